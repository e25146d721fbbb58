package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"photogallery/internal/domain/gallery"
)

type GalleryRepository struct {
	db *gorm.DB
}

func NewGalleryRepository(db *gorm.DB) *GalleryRepository {
	return &GalleryRepository{db: db}
}

func (r *GalleryRepository) Create(ctx context.Context, g *gallery.Gallery) error {
	return r.db.WithContext(ctx).Create(g).Error
}

// GetByID loads a gallery with its sections in display order.
func (r *GalleryRepository) GetByID(ctx context.Context, id int64) (*gallery.Gallery, error) {
	var g gallery.Gallery
	err := r.db.WithContext(ctx).
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Where("id = ?", id).
		First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, gallery.ErrGalleryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ListExpired returns galleries whose retention deadline is before now.
// Deadlines are stored in UTC, so now is compared in UTC as well.
func (r *GalleryRepository) ListExpired(ctx context.Context, now time.Time) ([]gallery.Gallery, error) {
	var out []gallery.Gallery
	err := r.db.WithContext(ctx).
		Where("auto_delete_date IS NOT NULL AND auto_delete_date < ?", now.UTC()).
		Order("auto_delete_date ASC, id ASC").
		Find(&out).Error
	return out, err
}

// DeleteCascade removes every row referencing the gallery, the gallery itself,
// and subtracts freedBytes from the owner's counter, all in one transaction.
func (r *GalleryRepository) DeleteCascade(ctx context.Context, g *gallery.Gallery, freedBytes int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&gallery.Photo{}, &gallery.Video{}, &gallery.Backup{}} {
			if err := tx.Where("gallery_id = ?", g.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		for _, table := range gallery.ExternalTables() {
			if err := tx.Table(table).Where("gallery_id = ?", g.ID).Delete(&gallery.ExternalItem{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("gallery_id = ?", g.ID).Delete(&gallery.Section{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", g.ID).Delete(&gallery.Gallery{}).Error; err != nil {
			return err
		}
		if freedBytes > 0 {
			return addStorageUsage(tx, g.OwnerID, -freedBytes)
		}
		return nil
	})
}
