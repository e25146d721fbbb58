package download

// PasswordRequest carries the optional download password in a JSON or form
// body. The X-Download-Password header takes precedence.
type PasswordRequest struct {
	Password string `json:"password" form:"password"`
}

type ChunkInfo struct {
	ChunkNumber int   `json:"chunk_number"`
	ItemCount   int   `json:"item_count"`
	Size        int64 `json:"size"`
}

type InfoResponse struct {
	GalleryID  int64       `json:"gallery_id"`
	SectionID  *int64      `json:"section_id,omitempty"`
	Title      string      `json:"title"`
	TotalItems int         `json:"total_items"`
	TotalSize  int64       `json:"total_size"`
	ChunkCount int         `json:"chunk_count"`
	Chunks     []ChunkInfo `json:"chunks"`
}
