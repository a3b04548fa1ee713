package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUpstreamUnavailable marks payloads the upstream delivered but that
// cannot be trusted: error-flagged bodies, unknown shapes, empty episode
// lists. Wrapped errors carry the upstream-reported reason for diagnostics.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// errNoEpisodes marks a well-formed chapter payload with zero episodes; the
// service maps it to NotFoundError for the requested drama.
var errNoEpisodes = errors.New("no episodes in payload")

// NotFoundError is returned when a bookId is absent from the catalog.
type NotFoundError struct {
	BookID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("drama %s not found", e.BookID)
}

// EpisodeRangeError is returned when a requested episode number falls
// outside the cached episode list. TotalEpisodes lets the caller report the
// valid range.
type EpisodeRangeError struct {
	BookID        string
	Episode       int
	TotalEpisodes int
}

func (e *EpisodeRangeError) Error() string {
	return fmt.Sprintf("episode %d of drama %s out of range (1-%d)", e.Episode, e.BookID, e.TotalEpisodes)
}

// UnknownMoodError is returned for mood keys outside the fixed set.
type UnknownMoodError struct {
	Mood  string
	Valid []string
}

func (e *UnknownMoodError) Error() string {
	return fmt.Sprintf("unknown mood %q, valid moods: %s", e.Mood, strings.Join(e.Valid, ", "))
}
