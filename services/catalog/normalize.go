package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"dramarelay/models"
)

// The upstream has shipped several payload shapes over time: a bare array,
// {data:[...]}, {results:[...]}, and "tag card" wrapper items whose
// tagBooks sub-array has to be flattened. normalizeCatalog folds all of
// them into the canonical drama list and fails closed on anything else.

type rawTagBook struct {
	BookID   string `json:"bookId"`
	BookName string `json:"bookName"`
	CoverWap string `json:"coverWap"`
}

type rawItem struct {
	BookID       string          `json:"bookId"`
	BookName     string          `json:"bookName"`
	Name         string          `json:"name"`
	Cover        string          `json:"cover"`
	CoverWap     string          `json:"coverWap"`
	ChapterCount int             `json:"chapterCount"`
	PlayCount    json.RawMessage `json:"playCount"`
	Introduction string          `json:"introduction"`
	Tags         []string        `json:"tags"`
	TagNames     []string        `json:"tagNames"`
	CardType     int             `json:"cardType"`
	TagCardVo    *struct {
		TagBooks []rawTagBook `json:"tagBooks"`
	} `json:"tagCardVo"`
}

type rawEnvelope struct {
	Data    json.RawMessage `json:"data"`
	Results json.RawMessage `json:"results"`
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

// normalizeCatalog maps a raw upstream payload into canonical drama records.
func normalizeCatalog(payload []byte) ([]models.Drama, error) {
	items, err := extractItems(payload)
	if err != nil {
		return nil, err
	}

	dramas := make([]models.Drama, 0, len(items))
	for _, item := range items {
		if item.CardType == 3 && item.TagCardVo != nil {
			// Tag cards carry no per-book episode or view data.
			for _, book := range item.TagCardVo.TagBooks {
				if book.BookID == "" {
					continue
				}
				dramas = append(dramas, models.Drama{
					BookID:        book.BookID,
					Name:          book.BookName,
					Cover:         book.CoverWap,
					VerticalCover: book.CoverWap,
				})
			}
			continue
		}
		if item.BookID == "" {
			continue
		}
		cover := item.Cover
		if cover == "" {
			cover = item.CoverWap
		}
		name := item.BookName
		if name == "" {
			name = item.Name
		}
		tags := item.TagNames
		if len(tags) == 0 {
			tags = item.Tags
		}
		dramas = append(dramas, models.Drama{
			BookID:        item.BookID,
			Name:          name,
			Cover:         cover,
			VerticalCover: cover,
			ChapterNum:    item.ChapterCount,
			ChapterCount:  item.ChapterCount,
			ViewNum:       parseViewCount(item.PlayCount),
			Introduction:  item.Introduction,
			Tags:          tags,
		})
	}
	return dramas, nil
}

// extractItems locates the item array inside whichever envelope variant the
// payload uses, rejecting error-flagged and unknown shapes.
func extractItems(payload []byte) ([]rawItem, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrUpstreamUnavailable)
	}

	if trimmed[0] == '[' {
		var items []rawItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: malformed array payload", ErrUpstreamUnavailable)
		}
		return items, nil
	}

	var env rawEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed payload", ErrUpstreamUnavailable)
	}
	if len(env.Error) > 0 && !bytes.Equal(bytes.TrimSpace(env.Error), []byte("null")) {
		reason := strings.Trim(string(env.Error), `"`)
		if env.Message != "" {
			reason = env.Message
		}
		return nil, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, reason)
	}
	if env.Message == "Error" {
		return nil, fmt.Errorf("%w: upstream reported an error", ErrUpstreamUnavailable)
	}

	for _, raw := range [][]byte{env.Data, env.Results} {
		if len(raw) == 0 {
			continue
		}
		var items []rawItem
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: malformed item list", ErrUpstreamUnavailable)
		}
		return items, nil
	}

	return nil, fmt.Errorf("%w: unrecognized payload shape", ErrUpstreamUnavailable)
}

// parseViewCount converts compact view-count notations into numbers:
// "1.2M" -> 1200000, "850K" -> 850000, bare digits pass through, anything
// else counts as 0.
func parseViewCount(raw json.RawMessage) int {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0
	}

	var s string
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return 0
		}
	} else {
		s = string(trimmed)
	}

	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0
	}

	switch {
	case strings.Contains(s, "M"):
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(s, "M", "")), 64)
		if err != nil {
			return 0
		}
		return int(f * 1_000_000)
	case strings.Contains(s, "K"):
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(s, "K", "")), 64)
		if err != nil {
			return 0
		}
		return int(f * 1_000)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

// --- episode payloads ---

type rawVideoPath struct {
	VideoPath string `json:"videoPath"`
	Quality   int    `json:"quality"`
	IsDefault int    `json:"isDefault"`
}

type rawCDN struct {
	CDNDomain     string         `json:"cdnDomain"`
	VideoPathList []rawVideoPath `json:"videoPathList"`
}

type rawChapter struct {
	ChapterID   json.Number `json:"chapterId"`
	ChapterName string      `json:"chapterName"`
	CDNList     []rawCDN    `json:"cdnList"`
}

type rawChapterEnvelope struct {
	Data struct {
		ChapterList []rawChapter `json:"chapterList"`
	} `json:"data"`
	ChapterList []rawChapter    `json:"chapterList"`
	Error       json.RawMessage `json:"error"`
	Message     string          `json:"message"`
}

// normalizeEpisodes maps an upstream chapter payload into the cached episode
// list. An empty list means the upstream has no such drama; that surfaces as
// errNoEpisodes so the service can report not-found instead of an upstream
// fault.
func normalizeEpisodes(payload []byte) ([]models.Episode, error) {
	chapters, err := extractChapters(payload)
	if err != nil {
		return nil, err
	}
	if len(chapters) == 0 {
		return nil, errNoEpisodes
	}

	episodes := make([]models.Episode, 0, len(chapters))
	for _, ch := range chapters {
		ep := models.Episode{
			ChapterID:   ch.ChapterID.String(),
			ChapterName: ch.ChapterName,
		}
		if len(ch.CDNList) > 0 {
			for _, vp := range ch.CDNList[0].VideoPathList {
				if vp.VideoPath == "" {
					continue
				}
				quality := "default"
				if vp.Quality > 0 {
					quality = strconv.Itoa(vp.Quality) + "p"
				}
				ep.Qualities = append(ep.Qualities, models.StreamQuality{
					URL:       vp.VideoPath,
					Quality:   quality,
					IsDefault: vp.IsDefault == 1,
				})
			}
		}
		episodes = append(episodes, ep)
	}
	return episodes, nil
}

func extractChapters(payload []byte) ([]rawChapter, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrUpstreamUnavailable)
	}

	if trimmed[0] == '[' {
		var chapters []rawChapter
		if err := json.Unmarshal(trimmed, &chapters); err != nil {
			return nil, fmt.Errorf("%w: malformed chapter payload", ErrUpstreamUnavailable)
		}
		return chapters, nil
	}

	var env rawChapterEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed chapter payload", ErrUpstreamUnavailable)
	}
	if len(env.Error) > 0 && !bytes.Equal(bytes.TrimSpace(env.Error), []byte("null")) || env.Message == "Error" {
		return nil, fmt.Errorf("%w: upstream reported an error", ErrUpstreamUnavailable)
	}
	// A chapterList that is present but empty is meaningful (unknown drama),
	// so nil-ness decides the shape, not length.
	if env.Data.ChapterList != nil {
		return env.Data.ChapterList, nil
	}
	if env.ChapterList != nil {
		return env.ChapterList, nil
	}
	return nil, fmt.Errorf("%w: unrecognized chapter payload shape", ErrUpstreamUnavailable)
}
