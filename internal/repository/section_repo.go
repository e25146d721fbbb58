package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"photogallery/internal/domain/gallery"
)

type SectionRepository struct {
	db *gorm.DB
}

func NewSectionRepository(db *gorm.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

func (r *SectionRepository) Create(ctx context.Context, s *gallery.Section) error {
	err := r.db.WithContext(ctx).Create(s).Error
	if isUniqueConstraintError(err) {
		return ErrSectionNameExists
	}
	return err
}

func (r *SectionRepository) GetByID(ctx context.Context, id int64) (*gallery.Section, error) {
	var s gallery.Section
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, gallery.ErrSectionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// NextPosition returns the position a new section of the gallery gets.
func (r *SectionRepository) NextPosition(ctx context.Context, galleryID int64) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&gallery.Section{}).Where("gallery_id = ?", galleryID).Count(&count).Error
	return int(count), err
}

// ListSyncable returns the non-expired sections of one source type.
func (r *SectionRepository) ListSyncable(ctx context.Context, t gallery.SectionType) ([]gallery.Section, error) {
	var out []gallery.Section
	err := r.db.WithContext(ctx).
		Where("type = ? AND expired = ?", t, false).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// RecordSyncError stores the last fetch failure of a section.
func (r *SectionRepository) RecordSyncError(ctx context.Context, id int64, msg string) error {
	return r.db.WithContext(ctx).Model(&gallery.Section{}).
		Where("id = ?", id).
		Update("last_error", msg).Error
}

// MarkExpired flags a section whose source no longer exists; schedulers skip
// it from then on.
func (r *SectionRepository) MarkExpired(ctx context.Context, id int64, msg string) error {
	return r.db.WithContext(ctx).Model(&gallery.Section{}).
		Where("id = ?", id).
		Updates(map[string]any{"expired": true, "last_error": msg}).Error
}

// markSynced advances last_sync_at without ever moving it backwards and clears
// the error field. Scoped to one section row.
func markSynced(db *gorm.DB, id int64, at time.Time) error {
	at = at.UTC()
	return db.Model(&gallery.Section{}).
		Where("id = ? AND (last_sync_at IS NULL OR last_sync_at <= ?)", id, at).
		Updates(map[string]any{"last_sync_at": at, "last_error": ""}).Error
}
