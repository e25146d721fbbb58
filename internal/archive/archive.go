// Package archive splits a gallery's downloadable media into size-bounded
// parts and streams any part as a ZIP.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"photogallery/internal/domain/gallery"
	"photogallery/internal/logging"
	"photogallery/internal/repository"
	"photogallery/internal/storage"
)

type GalleryStore interface {
	GetByID(ctx context.Context, id int64) (*gallery.Gallery, error)
}

type MediaStore interface {
	ListDownloadable(ctx context.Context, galleryID int64, sectionID *int64) ([]repository.DownloadableMedia, error)
}

type ObjectOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type Service struct {
	galleries GalleryStore
	media     MediaStore
	objects   ObjectOpener
	boundary  int64
	log       logging.Logger
}

func NewService(galleries GalleryStore, media MediaStore, objects ObjectOpener, boundary int64, log logging.Logger) *Service {
	if boundary <= 0 {
		boundary = DefaultChunkBytes
	}
	return &Service{
		galleries: galleries,
		media:     media,
		objects:   objects,
		boundary:  boundary,
		log:       log.With("component", "archive"),
	}
}

// Gallery loads the gallery and, when sectionID is set, checks the section
// belongs to it.
func (s *Service) Gallery(ctx context.Context, galleryID int64, sectionID *int64) (*gallery.Gallery, error) {
	g, err := s.galleries.GetByID(ctx, galleryID)
	if errors.Is(err, gallery.ErrGalleryNotFound) {
		return nil, ErrGalleryNotFound
	}
	if err != nil {
		return nil, err
	}
	if sectionID != nil {
		found := false
		for _, sec := range g.Sections {
			if sec.ID == *sectionID {
				found = true
				break
			}
		}
		if !found {
			return nil, ErrSectionNotFound
		}
	}
	return g, nil
}

// Plan computes the chunk layout of a gallery or one of its sections.
func (s *Service) Plan(ctx context.Context, galleryID int64, sectionID *int64) (*Plan, error) {
	if _, err := s.Gallery(ctx, galleryID, sectionID); err != nil {
		return nil, err
	}
	return s.plan(ctx, galleryID, sectionID)
}

func (s *Service) plan(ctx context.Context, galleryID int64, sectionID *int64) (*Plan, error) {
	media, err := s.media.ListDownloadable(ctx, galleryID, sectionID)
	if err != nil {
		return nil, fmt.Errorf("list downloadable media: %w", err)
	}
	SortMedia(media)

	names := entryNames(media, sectionID == nil)
	items := make([]Item, len(media))
	var total int64
	for i, m := range media {
		items[i] = Item{ID: m.ID, StorageKey: m.StorageKey, Name: names[i], Size: m.Size}
		total += m.Size
	}

	chunks := Split(items, s.boundary)
	if chunks == nil {
		chunks = []Chunk{}
	}
	return &Plan{
		GalleryID:  galleryID,
		SectionID:  sectionID,
		TotalItems: len(items),
		TotalSize:  total,
		ChunkCount: len(chunks),
		Chunks:     chunks,
	}, nil
}

// Stream writes chunk n as a ZIP to w. An unknown chunk returns
// ErrChunkNotFound before anything is written. Objects missing from storage
// are skipped.
func (s *Service) Stream(ctx context.Context, galleryID int64, sectionID *int64, n int, w io.Writer) error {
	p, err := s.Plan(ctx, galleryID, sectionID)
	if err != nil {
		return err
	}
	chunk, err := p.Chunk(n)
	if err != nil {
		return err
	}
	return s.write(ctx, chunk, w)
}

func (s *Service) write(ctx context.Context, chunk *Chunk, w io.Writer) error {
	zw := zip.NewWriter(w)
	modified := time.Now()

	for _, it := range chunk.Items {
		if err := ctx.Err(); err != nil {
			return err
		}
		rc, err := s.objects.Open(ctx, it.StorageKey)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				s.log.Warn(ctx, "archive item missing from storage", "item_id", it.ID, "key", it.StorageKey)
			} else {
				s.log.Error(ctx, "archive item open failed", "item_id", it.ID, "key", it.StorageKey, "error", err)
			}
			continue
		}

		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:     it.Name,
			Method:   zip.Store,
			Modified: modified,
		})
		if err != nil {
			rc.Close()
			return fmt.Errorf("zip header %s: %w", it.Name, err)
		}
		_, err = io.Copy(entry, rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("zip copy %s: %w", it.Name, err)
		}
	}
	return zw.Close()
}
