package sections

import (
	"context"
	"fmt"
	"strings"

	"photogallery/internal/domain/gallery"
	"photogallery/internal/ingest"
)

type SectionStore interface {
	Create(ctx context.Context, s *gallery.Section) error
	GetByID(ctx context.Context, id int64) (*gallery.Section, error)
	NextPosition(ctx context.Context, galleryID int64) (int, error)
}

type GalleryStore interface {
	GetByID(ctx context.Context, id int64) (*gallery.Gallery, error)
}

type Refresher interface {
	RefreshByID(ctx context.Context, id int64) (*gallery.Section, ingest.MergeResult, error)
}

// Publisher hands refresh requests to the worker process.
type Publisher interface {
	PublishRefresh(ctx context.Context, sectionID, requestedBy int64) error
}

type Service struct {
	sections  SectionStore
	galleries GalleryStore
	refresher Refresher
	publisher Publisher
}

// NewService builds the section service. A nil publisher runs refreshes
// inline.
func NewService(sections SectionStore, galleries GalleryStore, refresher Refresher, publisher Publisher) *Service {
	return &Service{
		sections:  sections,
		galleries: galleries,
		refresher: refresher,
		publisher: publisher,
	}
}

// Create appends a section to the gallery after validating its locator.
func (s *Service) Create(ctx context.Context, g *gallery.Gallery, req CreateSectionRequest) (*gallery.Section, error) {
	typ := gallery.SectionType(req.Type)
	locator, err := gallery.NormalizeLocator(typ, req.Locator)
	if err != nil {
		return nil, err
	}

	pos, err := s.sections.NextPosition(ctx, g.ID)
	if err != nil {
		return nil, fmt.Errorf("next section position: %w", err)
	}

	section := &gallery.Section{
		GalleryID: g.ID,
		Name:      strings.TrimSpace(req.Name),
		Position:  pos,
		Type:      typ,
		Locator:   locator,
	}
	if err := s.sections.Create(ctx, section); err != nil {
		return nil, err
	}
	return section, nil
}

// Refresh syncs a provider section on behalf of its gallery owner.
func (s *Service) Refresh(ctx context.Context, userID, sectionID int64) (*RefreshResponse, error) {
	section, err := s.sections.GetByID(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	g, err := s.galleries.GetByID(ctx, section.GalleryID)
	if err != nil {
		return nil, err
	}
	if g.OwnerID != userID {
		return nil, gallery.ErrNotOwner
	}
	if !section.Type.External() {
		return nil, ingest.ErrNotSyncable
	}

	if s.publisher != nil {
		if err := s.publisher.PublishRefresh(ctx, section.ID, userID); err != nil {
			return nil, fmt.Errorf("queue refresh: %w", err)
		}
		return &RefreshResponse{SectionID: section.ID, Queued: true}, nil
	}

	_, res, err := s.refresher.RefreshByID(ctx, section.ID)
	if err != nil {
		return nil, err
	}
	return &RefreshResponse{SectionID: section.ID, Result: &res}, nil
}
