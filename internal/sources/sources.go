// Package sources defines the contract every external media provider adapter
// satisfies: given a section locator, return the provider's current listing.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"photogallery/internal/domain/gallery"
)

// ErrExpired means the provider reports the locator as permanently gone.
var ErrExpired = errors.New("source no longer exists")

// Item is one media entry in a provider listing.
type Item struct {
	SourceID     string
	Kind         gallery.MediaKind
	Name         string
	ThumbnailURL string
	ViewURL      string
	Size         int64
	Metadata     json.RawMessage
}

// Adapter fetches the full current listing for the section. Implementations
// hold no per-section state.
type Adapter interface {
	Type() gallery.SectionType
	Fetch(ctx context.Context, section gallery.Section) ([]Item, error)
}

// FetchError wraps a transient provider or network failure.
type FetchError struct {
	Source gallery.SectionType
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s fetch failed: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Wrap returns err as a FetchError unless it already carries ErrExpired or is nil.
func Wrap(source gallery.SectionType, err error) error {
	if err == nil || errors.Is(err, ErrExpired) {
		return err
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &FetchError{Source: source, Err: err}
}

// KindFromMIME maps a content type to a media kind.
func KindFromMIME(mime string) (gallery.MediaKind, bool) {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return gallery.KindPhoto, true
	case strings.HasPrefix(mime, "video/"):
		return gallery.KindVideo, true
	}
	return "", false
}
