package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"dramarelay/models"
	"dramarelay/services/catalog"
	"dramarelay/services/upstream"
)

type stubCatalog struct {
	latest          func(ctx context.Context, page int) ([]models.Drama, error)
	search          func(ctx context.Context, keyword string) ([]models.Drama, error)
	stream          func(ctx context.Context, bookID string, episode int) (*models.StreamInfo, error)
	trending        func(ctx context.Context) ([]models.Drama, error)
	recommendations func(ctx context.Context, bookID string) ([]models.Drama, *models.RecommendationSource, error)
	mood            func(ctx context.Context, mood string) ([]models.Drama, error)
}

func (s *stubCatalog) Latest(ctx context.Context, page int) ([]models.Drama, error) {
	return s.latest(ctx, page)
}

func (s *stubCatalog) Search(ctx context.Context, keyword string) ([]models.Drama, error) {
	return s.search(ctx, keyword)
}

func (s *stubCatalog) Stream(ctx context.Context, bookID string, episode int) (*models.StreamInfo, error) {
	return s.stream(ctx, bookID, episode)
}

func (s *stubCatalog) Trending(ctx context.Context) ([]models.Drama, error) {
	return s.trending(ctx)
}

func (s *stubCatalog) Recommendations(ctx context.Context, bookID string) ([]models.Drama, *models.RecommendationSource, error) {
	return s.recommendations(ctx, bookID)
}

func (s *stubCatalog) Mood(ctx context.Context, mood string) ([]models.Drama, error) {
	return s.mood(ctx, mood)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v\nbody: %s", err, rr.Body.String())
	}
	return body
}

func TestLatestSuccessEnvelope(t *testing.T) {
	h := NewCatalogHandler(&stubCatalog{
		latest: func(ctx context.Context, page int) ([]models.Drama, error) {
			if page != 1 {
				t.Errorf("expected default page 1, got %d", page)
			}
			return []models.Drama{{BookID: "b1", Name: "First"}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/latest", nil)
	rr := httptest.NewRecorder()
	h.Latest(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["status"] != true {
		t.Errorf("expected status true, got %v", body["status"])
	}
	data, ok := body["data"].([]any)
	if !ok || len(data) != 1 {
		t.Fatalf("expected 1 item in data, got %v", body["data"])
	}
}

func TestLatestForwardsPageParam(t *testing.T) {
	var gotPage int
	h := NewCatalogHandler(&stubCatalog{
		latest: func(ctx context.Context, page int) ([]models.Drama, error) {
			gotPage = page
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/latest?page=3", nil)
	rr := httptest.NewRecorder()
	h.Latest(rr, req)

	if gotPage != 3 {
		t.Errorf("expected page 3, got %d", gotPage)
	}
}

func TestLatestEmptyResultIsSuccess(t *testing.T) {
	h := NewCatalogHandler(&stubCatalog{
		latest: func(ctx context.Context, page int) ([]models.Drama, error) {
			return []models.Drama{}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/latest", nil)
	rr := httptest.NewRecorder()
	h.Latest(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty result, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["status"] != true {
		t.Errorf("expected status true, got %v", body["status"])
	}
}

func TestSearchMissingKeyword(t *testing.T) {
	h := NewCatalogHandler(&stubCatalog{})

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rr := httptest.NewRecorder()
	h.Search(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["status"] != false {
		t.Errorf("expected status false, got %v", body["status"])
	}
	if body["message"] != "Keyword required" {
		t.Errorf("unexpected message: %v", body["message"])
	}
}

func TestSearchAcceptsQueryAlias(t *testing.T) {
	var gotKeyword string
	h := NewCatalogHandler(&stubCatalog{
		search: func(ctx context.Context, keyword string) ([]models.Drama, error) {
			gotKeyword = keyword
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/search?query=revenge", nil)
	rr := httptest.NewRecorder()
	h.Search(rr, req)

	if gotKeyword != "revenge" {
		t.Errorf("expected keyword from query param, got %q", gotKeyword)
	}
}

func TestStreamMissingBookID(t *testing.T) {
	h := NewCatalogHandler(&stubCatalog{})

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	rr := httptest.NewRecorder()
	h.Stream(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestStreamInvalidEpisode(t *testing.T) {
	h := NewCatalogHandler(&stubCatalog{})

	for _, raw := range []string{"abc", "0", "-2"} {
		req := httptest.NewRequest(http.MethodGet, "/stream?bookId=b1&episode="+raw, nil)
		rr := httptest.NewRecorder()
		h.Stream(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("episode=%q: expected 400, got %d", raw, rr.Code)
		}
	}
}

func TestStreamEpisodeOutOfRange(t *testing.T) {
	h := NewCatalogHandler(&stubCatalog{
		stream: func(ctx context.Context, bookID string, episode int) (*models.StreamInfo, error) {
			return nil, &catalog.EpisodeRangeError{BookID: bookID, Episode: episode, TotalEpisodes: 20}
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/stream?bookId=b1&episode=99", nil)
	rr := httptest.NewRecorder()
	h.Stream(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["totalEpisodes"] != float64(20) {
		t.Errorf("expected totalEpisodes 20, got %v", body["totalEpisodes"])
	}
}

func TestStreamRateLimitByStatus(t *testing.T) {
	h := NewCatalogHandler(&stubCatalog{
		stream: func(ctx context.Context, bookID string, episode int) (*models.StreamInfo, error) {
			return nil, fmt.Errorf("fetching episodes: %w", &upstream.HTTPError{
				StatusCode: http.StatusTooManyRequests,
				Status:     "429 Too Many Requests",
			})
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/stream?bookId=b1", nil)
	rr := httptest.NewRecorder()
	h.Stream(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["retryAfterSeconds"] != float64(300) {
		t.Errorf("expected retryAfterSeconds 300, got %v", body["retryAfterSeconds"])
	}
}

func TestStreamRateLimitByBodyMarker(t *testing.T) {
	h := NewCatalogHandler(&stubCatalog{
		stream: func(ctx context.Context, bookID string, episode int) (*models.StreamInfo, error) {
			return nil, &upstream.HTTPError{
				StatusCode: http.StatusForbidden,
				Status:     "403 Forbidden",
				Body:       `{"error":"API quota exhausted"}`,
			}
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/stream?bookId=b1", nil)
	rr := httptest.NewRecorder()
	h.Stream(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for quota body, got %d", rr.Code)
	}
}

func TestNonStreamPathSkipsRateLimitDetection(t *testing.T) {
	h := NewCatalogHandler(&stubCatalog{
		latest: func(ctx context.Context, page int) ([]models.Drama, error) {
			return nil, &upstream.HTTPError{
				StatusCode: http.StatusTooManyRequests,
				Status:     "429 Too Many Requests",
			}
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/latest", nil)
	rr := httptest.NewRecorder()
	h.Latest(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 on non-stream path, got %d", rr.Code)
	}
}

func TestLatestUpstreamUnavailable(t *testing.T) {
	h := NewCatalogHandler(&stubCatalog{
		latest: func(ctx context.Context, page int) ([]models.Drama, error) {
			return nil, fmt.Errorf("%w: connection refused", catalog.ErrUpstreamUnavailable)
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/latest", nil)
	rr := httptest.NewRecorder()
	h.Latest(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	msg, _ := body["message"].(string)
	if !strings.Contains(msg, "connection refused") {
		t.Errorf("expected failure reason in message, got %q", msg)
	}
}

func TestRecommendationsIncludesSource(t *testing.T) {
	h := NewCatalogHandler(&stubCatalog{
		recommendations: func(ctx context.Context, bookID string) ([]models.Drama, *models.RecommendationSource, error) {
			return []models.Drama{{BookID: "b2"}}, &models.RecommendationSource{BookID: bookID, Name: "Origin"}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/recommendations?bookId=b1", nil)
	rr := httptest.NewRecorder()
	h.Recommendations(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	source, ok := body["source"].(map[string]any)
	if !ok {
		t.Fatalf("expected source object, got %v", body["source"])
	}
	if source["name"] != "Origin" {
		t.Errorf("unexpected source name: %v", source["name"])
	}
}

func TestRecommendationsUnknownBook(t *testing.T) {
	h := NewCatalogHandler(&stubCatalog{
		recommendations: func(ctx context.Context, bookID string) ([]models.Drama, *models.RecommendationSource, error) {
			return nil, nil, &catalog.NotFoundError{BookID: bookID}
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/recommendations?bookId=missing", nil)
	rr := httptest.NewRecorder()
	h.Recommendations(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestMoodUnknownKey(t *testing.T) {
	h := NewCatalogHandler(&stubCatalog{
		mood: func(ctx context.Context, mood string) ([]models.Drama, error) {
			return nil, &catalog.UnknownMoodError{
				Mood:  mood,
				Valid: []string{"edge-of-seat", "feel-good", "mind-bender", "tearjerker"},
			}
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/mood/grumpy", nil)
	req = mux.SetURLVars(req, map[string]string{"mood": "grumpy"})
	rr := httptest.NewRecorder()
	h.Mood(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	msg, _ := body["message"].(string)
	if !strings.Contains(msg, "tearjerker") {
		t.Errorf("expected valid moods listed in message, got %q", msg)
	}
}

func TestMoodForwardsPathVar(t *testing.T) {
	var gotMood string
	h := NewCatalogHandler(&stubCatalog{
		mood: func(ctx context.Context, mood string) ([]models.Drama, error) {
			gotMood = mood
			return []models.Drama{}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/mood/tearjerker", nil)
	req = mux.SetURLVars(req, map[string]string{"mood": "tearjerker"})
	rr := httptest.NewRecorder()
	h.Mood(rr, req)

	if gotMood != "tearjerker" {
		t.Errorf("expected mood from path, got %q", gotMood)
	}
}

func TestHealthResponseShape(t *testing.T) {
	h := NewHealthHandler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	h.Health(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	if _, ok := body["uptime"].(float64); !ok {
		t.Errorf("expected numeric uptime, got %v", body["uptime"])
	}
	if _, ok := body["timestamp"].(string); !ok {
		t.Errorf("expected timestamp string, got %v", body["timestamp"])
	}
}
