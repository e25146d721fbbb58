package media

import "time"

type PhotoResponse struct {
	ID           string    `json:"id"`
	SectionID    int64     `json:"section_id"`
	OriginalName string    `json:"original_name"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	Position     int       `json:"position"`
	URL          string    `json:"url"`
	SmallURL     string    `json:"small_url,omitempty"`
	MediumURL    string    `json:"medium_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type VideoResponse struct {
	ID           string    `json:"id"`
	SectionID    int64     `json:"section_id"`
	OriginalName string    `json:"original_name"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	Position     int       `json:"position"`
	URL          string    `json:"url"`
	CreatedAt    time.Time `json:"created_at"`
}
