package download

import (
	"context"
	"io"

	"golang.org/x/crypto/bcrypt"

	"photogallery/internal/archive"
	"photogallery/internal/domain/gallery"
)

type Archiver interface {
	Gallery(ctx context.Context, galleryID int64, sectionID *int64) (*gallery.Gallery, error)
	Plan(ctx context.Context, galleryID int64, sectionID *int64) (*archive.Plan, error)
	Stream(ctx context.Context, galleryID int64, sectionID *int64, n int, w io.Writer) error
}

// Service gates archive access behind the gallery's optional password.
type Service struct {
	archiver Archiver
}

func NewService(archiver Archiver) *Service {
	return &Service{archiver: archiver}
}

// Authorize loads the gallery and checks the download password.
func (s *Service) Authorize(ctx context.Context, galleryID int64, sectionID *int64, password string) (*gallery.Gallery, error) {
	g, err := s.archiver.Gallery(ctx, galleryID, sectionID)
	if err != nil {
		return nil, err
	}
	if err := CheckPassword(g, password); err != nil {
		return nil, err
	}
	return g, nil
}

func CheckPassword(g *gallery.Gallery, password string) error {
	if !g.HasDownloadPassword() {
		return nil
	}
	if password == "" {
		return ErrPasswordRequired
	}
	if bcrypt.CompareHashAndPassword([]byte(g.DownloadPasswordHash), []byte(password)) != nil {
		return ErrInvalidPassword
	}
	return nil
}

func (s *Service) Info(ctx context.Context, galleryID int64, sectionID *int64, password string) (*InfoResponse, error) {
	g, err := s.Authorize(ctx, galleryID, sectionID, password)
	if err != nil {
		return nil, err
	}
	p, err := s.archiver.Plan(ctx, galleryID, sectionID)
	if err != nil {
		return nil, err
	}

	resp := &InfoResponse{
		GalleryID:  g.ID,
		SectionID:  sectionID,
		Title:      g.Title,
		TotalItems: p.TotalItems,
		TotalSize:  p.TotalSize,
		ChunkCount: p.ChunkCount,
		Chunks:     make([]ChunkInfo, 0, len(p.Chunks)),
	}
	for _, c := range p.Chunks {
		resp.Chunks = append(resp.Chunks, ChunkInfo{ChunkNumber: c.Number, ItemCount: c.ItemCount, Size: c.Size})
	}
	return resp, nil
}

// Download streams chunk n of an authorized gallery. w must not emit headers
// until its first write so that ErrChunkNotFound can still become a JSON
// error.
func (s *Service) Download(ctx context.Context, g *gallery.Gallery, sectionID *int64, n int, w io.Writer) error {
	return s.archiver.Stream(ctx, g.ID, sectionID, n, w)
}
