package models

// Drama is the canonical catalog record every upstream payload variant is
// normalized into. Field names follow the wire format the frontend expects.
type Drama struct {
	BookID        string   `json:"bookId"`
	Name          string   `json:"name"`
	Cover         string   `json:"cover"`
	VerticalCover string   `json:"verticalCover"`
	ChapterNum    int      `json:"chapterNum"`
	ChapterCount  int      `json:"chapterCount"`
	ViewNum       int      `json:"viewNum"`
	Introduction  string   `json:"introduction,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// RecommendationSource identifies the drama a recommendation list was
// derived from.
type RecommendationSource struct {
	BookID string `json:"bookId"`
	Name   string `json:"name"`
}
