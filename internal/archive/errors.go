package archive

import "errors"

var (
	ErrChunkNotFound   = errors.New("archive chunk not found")
	ErrGalleryNotFound = errors.New("gallery not found")
	ErrSectionNotFound = errors.New("section not found in gallery")
)
