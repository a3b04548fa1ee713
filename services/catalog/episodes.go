package catalog

import (
	"context"
	"sync"
	"time"

	"dramarelay/models"
)

// episodeCache keeps the full episode list per drama for a bounded time so
// repeated stream lookups don't hammer the upstream. Expiry is checked
// lazily on read; there is no background sweeper. Concurrent misses for the
// same drama are coalesced into a single upstream fetch.
type episodeCache struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	entries  map[string]*episodeEntry
	inflight map[string]*inflightFetch
}

type episodeEntry struct {
	episodes  []models.Episode
	fetchedAt time.Time
}

type inflightFetch struct {
	wg       sync.WaitGroup
	episodes []models.Episode
	err      error
}

func newEpisodeCache(ttl time.Duration) *episodeCache {
	return &episodeCache{
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[string]*episodeEntry),
		inflight: make(map[string]*inflightFetch),
	}
}

// get returns the cached episode list for bookID, calling fetch on a miss or
// expired entry. The entry is replaced wholesale; it is never partially
// mutated.
func (c *episodeCache) get(ctx context.Context, bookID string, fetch func(context.Context) ([]models.Episode, error)) ([]models.Episode, error) {
	c.mu.Lock()
	if entry, ok := c.entries[bookID]; ok {
		if c.now().Sub(entry.fetchedAt) < c.ttl {
			episodes := entry.episodes
			c.mu.Unlock()
			return episodes, nil
		}
		delete(c.entries, bookID)
	}

	if flight, ok := c.inflight[bookID]; ok {
		c.mu.Unlock()
		flight.wg.Wait()
		return flight.episodes, flight.err
	}

	flight := &inflightFetch{}
	flight.wg.Add(1)
	c.inflight[bookID] = flight
	c.mu.Unlock()

	episodes, err := fetch(ctx)

	c.mu.Lock()
	if err == nil {
		c.entries[bookID] = &episodeEntry{episodes: episodes, fetchedAt: c.now()}
	}
	delete(c.inflight, bookID)
	c.mu.Unlock()

	flight.episodes = episodes
	flight.err = err
	flight.wg.Done()

	return episodes, err
}
