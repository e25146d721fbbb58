package gallery

import "errors"

var (
	ErrGalleryNotFound    = errors.New("gallery not found")
	ErrSectionNotFound    = errors.New("section not found")
	ErrInvalidLocator     = errors.New("invalid section locator")
	ErrInvalidSectionType = errors.New("invalid section type")
	ErrNotOwner           = errors.New("you do not own this gallery")
)
