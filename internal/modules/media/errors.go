package media

import "errors"

var (
	ErrFileTooLarge     = errors.New("file exceeds maximum allowed size")
	ErrInvalidMimeType  = errors.New("file type is not allowed")
	ErrEmptyFile        = errors.New("file is empty")
	ErrSectionNotFound  = errors.New("section not found in this gallery")
	ErrWrongSectionType = errors.New("section does not accept this media type")
)
