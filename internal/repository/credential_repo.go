package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"photogallery/internal/domain/gallery"
)

var ErrCredentialNotFound = errors.New("drive credential not found")

type DriveCredentialRepository struct {
	db *gorm.DB
}

func NewDriveCredentialRepository(db *gorm.DB) *DriveCredentialRepository {
	return &DriveCredentialRepository{db: db}
}

func (r *DriveCredentialRepository) Get(ctx context.Context, userID int64) (*gallery.DriveCredential, error) {
	var c gallery.DriveCredential
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCredentialNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Save upserts the credential of a user.
func (r *DriveCredentialRepository) Save(ctx context.Context, c *gallery.DriveCredential) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "expiry", "updated_at"}),
	}).Create(c).Error
}

// GetForGallery resolves the credential of the user owning a gallery.
func (r *DriveCredentialRepository) GetForGallery(ctx context.Context, galleryID int64) (*gallery.DriveCredential, error) {
	var c gallery.DriveCredential
	err := r.db.WithContext(ctx).
		Joins("JOIN galleries ON galleries.owner_id = drive_credentials.user_id").
		Where("galleries.id = ?", galleryID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCredentialNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
