package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"dramarelay/models"
	"dramarelay/services/catalog"
	"dramarelay/services/upstream"
)

const rateLimitRetryAfterSeconds = 300

// rateLimitMarkers are body fragments that identify an upstream rejection
// as rate limiting even when the status code is not 429.
var rateLimitMarkers = []string{
	"rate limit",
	"too many requests",
	"quota",
	"limit exceeded",
}

type catalogService interface {
	Latest(ctx context.Context, page int) ([]models.Drama, error)
	Search(ctx context.Context, keyword string) ([]models.Drama, error)
	Stream(ctx context.Context, bookID string, episode int) (*models.StreamInfo, error)
	Trending(ctx context.Context) ([]models.Drama, error)
	Recommendations(ctx context.Context, bookID string) ([]models.Drama, *models.RecommendationSource, error)
	Mood(ctx context.Context, mood string) ([]models.Drama, error)
}

var _ catalogService = (*catalog.Service)(nil)

type CatalogHandler struct {
	Service catalogService
}

func NewCatalogHandler(s catalogService) *CatalogHandler {
	return &CatalogHandler{Service: s}
}

func (h *CatalogHandler) Latest(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}

	dramas, err := h.Service.Latest(r.Context(), page)
	if err != nil {
		h.writeServiceError(w, err, false)
		return
	}
	writeData(w, dramas)
}

func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	if keyword == "" {
		keyword = strings.TrimSpace(r.URL.Query().Get("query"))
	}
	if keyword == "" {
		writeError(w, http.StatusBadRequest, "Keyword required")
		return
	}

	dramas, err := h.Service.Search(r.Context(), keyword)
	if err != nil {
		h.writeServiceError(w, err, false)
		return
	}
	writeData(w, dramas)
}

// streamNotFoundResponse carries the valid episode range alongside the
// standard envelope fields.
type streamNotFoundResponse struct {
	Status        bool   `json:"status"`
	Message       string `json:"message"`
	TotalEpisodes int    `json:"totalEpisodes"`
}

type rateLimitedResponse struct {
	Status            bool   `json:"status"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retryAfterSeconds"`
}

func (h *CatalogHandler) Stream(w http.ResponseWriter, r *http.Request) {
	bookID := strings.TrimSpace(r.URL.Query().Get("bookId"))
	if bookID == "" {
		writeError(w, http.StatusBadRequest, "bookId required")
		return
	}

	episode := 1
	if raw := r.URL.Query().Get("episode"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "episode must be a positive number")
			return
		}
		episode = parsed
	}

	info, err := h.Service.Stream(r.Context(), bookID, episode)
	if err != nil {
		h.writeServiceError(w, err, true)
		return
	}
	writeData(w, info)
}

func (h *CatalogHandler) Trending(w http.ResponseWriter, r *http.Request) {
	dramas, err := h.Service.Trending(r.Context())
	if err != nil {
		h.writeServiceError(w, err, false)
		return
	}
	writeData(w, dramas)
}

// recommendationsResponse adds the source drama to the envelope.
type recommendationsResponse struct {
	Status bool                         `json:"status"`
	Data   []models.Drama               `json:"data"`
	Source *models.RecommendationSource `json:"source"`
}

func (h *CatalogHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	bookID := strings.TrimSpace(r.URL.Query().Get("bookId"))
	if bookID == "" {
		writeError(w, http.StatusBadRequest, "bookId required")
		return
	}

	dramas, source, err := h.Service.Recommendations(r.Context(), bookID)
	if err != nil {
		h.writeServiceError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, recommendationsResponse{Status: true, Data: dramas, Source: source})
}

func (h *CatalogHandler) Mood(w http.ResponseWriter, r *http.Request) {
	mood := mux.Vars(r)["mood"]

	dramas, err := h.Service.Mood(r.Context(), mood)
	if err != nil {
		h.writeServiceError(w, err, false)
		return
	}
	writeData(w, dramas)
}

// writeServiceError maps service-layer failures onto client-facing statuses.
// Rate-limit detection only applies on the streaming path.
func (h *CatalogHandler) writeServiceError(w http.ResponseWriter, err error, detectRateLimit bool) {
	var rangeErr *catalog.EpisodeRangeError
	if errors.As(err, &rangeErr) {
		writeJSON(w, http.StatusNotFound, streamNotFoundResponse{
			Status:        false,
			Message:       rangeErr.Error(),
			TotalEpisodes: rangeErr.TotalEpisodes,
		})
		return
	}

	var notFound *catalog.NotFoundError
	if errors.As(err, &notFound) {
		writeError(w, http.StatusNotFound, notFound.Error())
		return
	}

	var moodErr *catalog.UnknownMoodError
	if errors.As(err, &moodErr) {
		writeError(w, http.StatusBadRequest, moodErr.Error())
		return
	}

	var httpErr *upstream.HTTPError
	if errors.As(err, &httpErr) {
		if detectRateLimit && isRateLimited(httpErr) {
			writeJSON(w, http.StatusTooManyRequests, rateLimitedResponse{
				Status:            false,
				Message:           "Upstream rate limit reached, try again later",
				RetryAfterSeconds: rateLimitRetryAfterSeconds,
			})
			return
		}
		writeError(w, http.StatusBadGateway, httpErr.Error())
		return
	}

	if errors.Is(err, catalog.ErrUpstreamUnavailable) {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	log.Printf("[gateway] upstream failure: %v", err)
	writeError(w, http.StatusBadGateway, "Upstream request failed")
}

func isRateLimited(err *upstream.HTTPError) bool {
	if err.StatusCode == http.StatusTooManyRequests {
		return true
	}
	body := strings.ToLower(err.Body)
	for _, marker := range rateLimitMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}
