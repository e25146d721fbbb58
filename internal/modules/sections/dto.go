package sections

import "photogallery/internal/ingest"

type CreateSectionRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Type    string `json:"type" validate:"required,section_type"`
	Locator string `json:"locator" validate:"max=2048"`
}

// RefreshResponse is returned by the manual refresh endpoint. Queued
// responses carry no merge result.
type RefreshResponse struct {
	SectionID int64               `json:"section_id"`
	Queued    bool                `json:"queued"`
	Result    *ingest.MergeResult `json:"result,omitempty"`
}
