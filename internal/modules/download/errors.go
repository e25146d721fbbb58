package download

import "errors"

var (
	ErrPasswordRequired = errors.New("download password required")
	ErrInvalidPassword  = errors.New("invalid download password")
)
