package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"photogallery/internal/domain/gallery"
)

const insertBatchSize = 200

// ExternalItemRepository persists provider-sourced media across the three
// per-source tables.
type ExternalItemRepository struct {
	db *gorm.DB
}

func NewExternalItemRepository(db *gorm.DB) *ExternalItemRepository {
	return &ExternalItemRepository{db: db}
}

func tableFor(t gallery.SectionType) (string, error) {
	table, ok := gallery.ExternalTable(t)
	if !ok {
		return "", fmt.Errorf("%w: %s has no item table", gallery.ErrInvalidSectionType, t)
	}
	return table, nil
}

// SourceIDs returns the set of source ids already stored for a section.
func (r *ExternalItemRepository) SourceIDs(ctx context.Context, t gallery.SectionType, galleryID, sectionID int64) (map[string]struct{}, error) {
	table, err := tableFor(t)
	if err != nil {
		return nil, err
	}
	var ids []string
	err = r.db.WithContext(ctx).Table(table).
		Where("gallery_id = ? AND section_id = ?", galleryID, sectionID).
		Pluck("source_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (r *ExternalItemRepository) Count(ctx context.Context, t gallery.SectionType, sectionID int64) (int64, error) {
	table, err := tableFor(t)
	if err != nil {
		return 0, err
	}
	var n int64
	err = r.db.WithContext(ctx).Table(table).Where("section_id = ?", sectionID).Count(&n).Error
	return n, err
}

func (r *ExternalItemRepository) ListBySection(ctx context.Context, t gallery.SectionType, sectionID int64) ([]gallery.ExternalItem, error) {
	table, err := tableFor(t)
	if err != nil {
		return nil, err
	}
	var out []gallery.ExternalItem
	err = r.db.WithContext(ctx).Table(table).
		Where("section_id = ?", sectionID).
		Order("position ASC, id ASC").
		Find(&out).Error
	return out, err
}

// InsertAndMarkSynced inserts items and advances the section's sync metadata
// in one transaction. When the insert fails nothing is written, so last_sync_at
// stays put and the next cycle retries the same listing.
func (r *ExternalItemRepository) InsertAndMarkSynced(ctx context.Context, t gallery.SectionType, sectionID int64, items []gallery.ExternalItem, at time.Time) error {
	table, err := tableFor(t)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(items) > 0 {
			if err := tx.Table(table).CreateInBatches(&items, insertBatchSize).Error; err != nil {
				if isUniqueConstraintError(err) {
					return fmt.Errorf("%w: %v", ErrDuplicateSource, err)
				}
				return err
			}
		}
		return markSynced(tx, sectionID, at)
	})
}
