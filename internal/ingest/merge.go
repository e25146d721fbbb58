package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"photogallery/internal/domain/gallery"
	"photogallery/internal/repository"
	"photogallery/internal/sources"
)

// ItemStore is the persistence the merge engine needs.
type ItemStore interface {
	SourceIDs(ctx context.Context, t gallery.SectionType, galleryID, sectionID int64) (map[string]struct{}, error)
	Count(ctx context.Context, t gallery.SectionType, sectionID int64) (int64, error)
	InsertAndMarkSynced(ctx context.Context, t gallery.SectionType, sectionID int64, items []gallery.ExternalItem, at time.Time) error
}

type MergeResult struct {
	Fetched  int `json:"fetched"`
	Inserted int `json:"inserted"`
}

type Merger struct {
	store ItemStore
	now   func() time.Time
}

func NewMerger(store ItemStore) *Merger {
	return &Merger{store: store, now: time.Now}
}

// Merge inserts the listing items whose source id the section does not have
// yet, in listing order, and advances the section's last sync time. Running it
// again with the same listing inserts nothing.
//
// A duplicate-key failure means another writer inserted some of the same ids
// between our read and write; the known set is reloaded and the merge retried
// once.
func (m *Merger) Merge(ctx context.Context, section gallery.Section, listing []sources.Item) (MergeResult, error) {
	res := MergeResult{Fetched: len(listing)}

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var inserted int
		inserted, err = m.mergeOnce(ctx, section, listing)
		if err == nil {
			res.Inserted = inserted
			return res, nil
		}
		if !errors.Is(err, repository.ErrDuplicateSource) {
			break
		}
	}
	return res, fmt.Errorf("merge section %d: %w", section.ID, err)
}

func (m *Merger) mergeOnce(ctx context.Context, section gallery.Section, listing []sources.Item) (int, error) {
	known, err := m.store.SourceIDs(ctx, section.Type, section.GalleryID, section.ID)
	if err != nil {
		return 0, fmt.Errorf("load source ids: %w", err)
	}
	count, err := m.store.Count(ctx, section.Type, section.ID)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}

	now := m.now().UTC()
	fresh := Fresh(listing, known)
	rows := make([]gallery.ExternalItem, 0, len(fresh))
	for i, it := range fresh {
		rows = append(rows, gallery.ExternalItem{
			GalleryID:    section.GalleryID,
			SectionID:    section.ID,
			SourceID:     it.SourceID,
			Kind:         it.Kind,
			Name:         it.Name,
			ThumbnailURL: it.ThumbnailURL,
			ViewURL:      it.ViewURL,
			Size:         it.Size,
			Position:     int(count) + i,
			Metadata:     datatypes.JSON(it.Metadata),
			SyncedAt:     now,
		})
	}

	if err := m.store.InsertAndMarkSynced(ctx, section.Type, section.ID, rows, now); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Fresh returns the listing items not present in known, preserving order and
// dropping repeats within the listing itself.
func Fresh(listing []sources.Item, known map[string]struct{}) []sources.Item {
	seen := make(map[string]struct{}, len(listing))
	out := make([]sources.Item, 0, len(listing))
	for _, it := range listing {
		if it.SourceID == "" {
			continue
		}
		if _, ok := known[it.SourceID]; ok {
			continue
		}
		if _, ok := seen[it.SourceID]; ok {
			continue
		}
		seen[it.SourceID] = struct{}{}
		out = append(out, it)
	}
	return out
}
