package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"dramarelay/models"
)

const (
	trendingLimit       = 20
	recommendationLimit = 10
	similarityThreshold = 0.1
	catalogExtraPages   = 2
	defaultEpisodeTTL   = 30 * time.Minute
)

// fetcher is the slice of the upstream client the gateway consumes.
type fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Service is the catalog gateway: it validates nothing about transport (the
// handlers do), fetches from the upstream, normalizes the payload variants,
// and serves the derived views (trending, recommendations, moods) plus the
// cached episode lookups.
type Service struct {
	client  fetcher
	baseURL string
	cache   *episodeCache
}

func NewService(client fetcher, baseURL string, episodeTTL time.Duration) *Service {
	if episodeTTL <= 0 {
		episodeTTL = defaultEpisodeTTL
	}
	return &Service{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   newEpisodeCache(episodeTTL),
	}
}

// Latest returns one normalized page of the upstream catalog.
func (s *Service) Latest(ctx context.Context, page int) ([]models.Drama, error) {
	endpoint := s.baseURL + "/latest"
	if page > 1 {
		endpoint = fmt.Sprintf("%s?page=%d", endpoint, page)
	}
	payload, err := s.client.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return normalizeCatalog(payload)
}

// Search returns normalized matches for a keyword.
func (s *Service) Search(ctx context.Context, keyword string) ([]models.Drama, error) {
	endpoint := s.baseURL + "/search?query=" + url.QueryEscape(keyword)
	payload, err := s.client.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return normalizeCatalog(payload)
}

// Episodes returns the full episode list for a drama, served from cache when
// a live entry exists.
func (s *Service) Episodes(ctx context.Context, bookID string) ([]models.Episode, error) {
	return s.cache.get(ctx, bookID, func(ctx context.Context) ([]models.Episode, error) {
		endpoint := s.baseURL + "/allepisode?bookId=" + url.QueryEscape(bookID)
		payload, err := s.client.Get(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		episodes, err := normalizeEpisodes(payload)
		if errors.Is(err, errNoEpisodes) {
			return nil, &NotFoundError{BookID: bookID}
		}
		return episodes, err
	})
}

// Stream resolves a 1-based episode number against the cached episode list.
func (s *Service) Stream(ctx context.Context, bookID string, episode int) (*models.StreamInfo, error) {
	episodes, err := s.Episodes(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if episode < 1 || episode > len(episodes) {
		return nil, &EpisodeRangeError{BookID: bookID, Episode: episode, TotalEpisodes: len(episodes)}
	}

	ep := episodes[episode-1]
	def, ok := ep.DefaultQuality()
	if !ok {
		return nil, fmt.Errorf("%w: video URL not found for episode %d", ErrUpstreamUnavailable, episode)
	}
	return &models.StreamInfo{
		URL:           def.URL,
		Qualities:     ep.Qualities,
		Episode:       episode,
		BookID:        bookID,
		TotalEpisodes: len(episodes),
		EpisodeName:   ep.ChapterName,
	}, nil
}

// Trending returns the catalog snapshot sorted by view count, capped at 20.
func (s *Service) Trending(ctx context.Context) ([]models.Drama, error) {
	dramas, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(dramas, func(i, j int) bool {
		return dramas[i].ViewNum > dramas[j].ViewNum
	})
	if len(dramas) > trendingLimit {
		dramas = dramas[:trendingLimit]
	}
	return dramas, nil
}

// Recommendations ranks the catalog by tag overlap with the given drama and
// keeps the ten closest matches above the similarity floor.
func (s *Service) Recommendations(ctx context.Context, bookID string) ([]models.Drama, *models.RecommendationSource, error) {
	dramas, err := s.snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}

	var source *models.Drama
	for i := range dramas {
		if dramas[i].BookID == bookID {
			source = &dramas[i]
			break
		}
	}
	if source == nil {
		return nil, nil, &NotFoundError{BookID: bookID}
	}

	sourceTags := tagSet(source.Tags)
	type scored struct {
		drama models.Drama
		score float64
	}
	candidates := make([]scored, 0, len(dramas))
	for _, d := range dramas {
		if d.BookID == bookID {
			continue
		}
		score := jaccard(sourceTags, tagSet(d.Tags))
		if score > similarityThreshold {
			candidates = append(candidates, scored{drama: d, score: score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > recommendationLimit {
		candidates = candidates[:recommendationLimit]
	}

	matches := make([]models.Drama, len(candidates))
	for i, c := range candidates {
		matches[i] = c.drama
	}
	return matches, &models.RecommendationSource{BookID: source.BookID, Name: source.Name}, nil
}

// moodTags is the fixed mood -> tag-keyword mapping. The key set matches the
// mood picker the frontend ships.
var moodTags = map[string][]string{
	"feel-good":    {"romance", "comedy", "slice-of-life", "family", "heartwarming"},
	"edge-of-seat": {"thriller", "suspense", "action", "crime", "revenge"},
	"tearjerker":   {"melodrama", "tragedy", "romance", "drama", "emotional"},
	"mind-bender":  {"mystery", "fantasy", "supernatural", "time-travel", "sci-fi"},
}

// ValidMoods returns the accepted mood keys, sorted.
func ValidMoods() []string {
	moods := make([]string, 0, len(moodTags))
	for mood := range moodTags {
		moods = append(moods, mood)
	}
	sort.Strings(moods)
	return moods
}

// Mood filters the catalog to dramas whose tags intersect the keyword set
// for the given mood.
func (s *Service) Mood(ctx context.Context, mood string) ([]models.Drama, error) {
	keywords, ok := moodTags[strings.ToLower(strings.TrimSpace(mood))]
	if !ok {
		return nil, &UnknownMoodError{Mood: mood, Valid: ValidMoods()}
	}

	dramas, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]models.Drama, 0, len(dramas))
	for _, d := range dramas {
		if tagsMatchMood(d.Tags, keywords) {
			matched = append(matched, d)
		}
	}
	return matched, nil
}

// snapshot merges the first catalog pages into one deduplicated list. The
// first page must succeed; extra pages are fetched concurrently and are
// best-effort.
func (s *Service) snapshot(ctx context.Context) ([]models.Drama, error) {
	first, err := s.Latest(ctx, 1)
	if err != nil {
		return nil, err
	}

	extra := make([][]models.Drama, catalogExtraPages)
	p := pool.New().WithMaxGoroutines(catalogExtraPages)
	for i := range extra {
		i := i
		p.Go(func() {
			page := i + 2
			dramas, err := s.Latest(ctx, page)
			if err != nil {
				log.Printf("[catalog] page %d fetch failed: %v", page, err)
				return
			}
			extra[i] = dramas
		})
	}
	p.Wait()

	seen := make(map[string]bool, len(first))
	merged := make([]models.Drama, 0, len(first))
	for _, page := range append([][]models.Drama{first}, extra...) {
		for _, d := range page {
			if seen[d.BookID] {
				continue
			}
			seen[d.BookID] = true
			merged = append(merged, d)
		}
	}
	return merged, nil
}

func tagSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		if n := normalizeTag(t); n != "" {
			set[n] = true
		}
	}
	return set
}

func normalizeTag(tag string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(tag)), " ", "-")
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if b[t] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tagsMatchMood(tags, keywords []string) bool {
	for _, tag := range tags {
		n := normalizeTag(tag)
		if n == "" {
			continue
		}
		for _, kw := range keywords {
			if strings.Contains(n, kw) || strings.Contains(kw, n) {
				return true
			}
		}
	}
	return false
}
