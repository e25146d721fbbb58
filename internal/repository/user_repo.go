package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"photogallery/internal/domain/gallery"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *gallery.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*gallery.User, error) {
	var u gallery.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// AddStorageUsage adjusts the owner's counter by delta, never below zero.
func (r *UserRepository) AddStorageUsage(ctx context.Context, userID, delta int64) error {
	return addStorageUsage(r.db.WithContext(ctx), userID, delta)
}

func addStorageUsage(db *gorm.DB, userID, delta int64) error {
	return db.Model(&gallery.User{}).
		Where("id = ?", userID).
		Update("storage_used_bytes", gorm.Expr(
			"CASE WHEN storage_used_bytes + ? > 0 THEN storage_used_bytes + ? ELSE 0 END", delta, delta,
		)).Error
}
