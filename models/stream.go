package models

// StreamQuality is one selectable rendition of an episode.
type StreamQuality struct {
	URL       string `json:"url"`
	Quality   string `json:"quality"`
	IsDefault bool   `json:"isDefault"`
}

// StreamInfo is the payload returned by the stream endpoint.
type StreamInfo struct {
	URL           string          `json:"url"`
	Qualities     []StreamQuality `json:"qualities"`
	Episode       int             `json:"episode"`
	BookID        string          `json:"bookId"`
	TotalEpisodes int             `json:"totalEpisodes"`
	EpisodeName   string          `json:"episodeName,omitempty"`
}

// Episode is one cached chapter of a drama, as delivered by the upstream
// batch endpoint.
type Episode struct {
	ChapterID   string          `json:"chapterId"`
	ChapterName string          `json:"chapterName"`
	Qualities   []StreamQuality `json:"qualities"`
}

// DefaultQuality returns the rendition flagged as default, falling back to
// the first one. ok is false when the episode carries no playable URL.
func (e Episode) DefaultQuality() (StreamQuality, bool) {
	for _, q := range e.Qualities {
		if q.IsDefault {
			return q, true
		}
	}
	if len(e.Qualities) > 0 {
		return e.Qualities[0], true
	}
	return StreamQuality{}, false
}
