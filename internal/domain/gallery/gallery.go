// Package gallery holds the persisted shapes of galleries, their sections and
// every media collection that references them.
package gallery

import (
	"time"

	"gorm.io/gorm"
)

// User is the photographer owning galleries. StorageUsedBytes is the
// owner's storage-usage counter and never goes below zero.
type User struct {
	ID               int64     `gorm:"primaryKey" json:"id"`
	Email            string    `gorm:"uniqueIndex;not null" json:"email"`
	Name             string    `json:"name"`
	StorageUsedBytes int64     `gorm:"not null;default:0" json:"storage_used_bytes"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

type Gallery struct {
	ID                   int64      `gorm:"primaryKey" json:"id"`
	OwnerID              int64      `gorm:"not null;index" json:"owner_id"`
	Title                string     `gorm:"not null" json:"title"`
	AutoDeleteDate       *time.Time `gorm:"index" json:"auto_delete_date,omitempty"`
	DownloadPasswordHash string     `json:"-"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	Sections []Section `gorm:"foreignKey:GalleryID" json:"sections,omitempty"`
}

func (Gallery) TableName() string { return "galleries" }

// BeforeSave stores the deadline in UTC; SQLite compares it as text.
func (g *Gallery) BeforeSave(_ *gorm.DB) error {
	if g.AutoDeleteDate != nil {
		utc := g.AutoDeleteDate.UTC()
		g.AutoDeleteDate = &utc
	}
	return nil
}

// HasDownloadPassword reports whether downloads are gated.
func (g *Gallery) HasDownloadPassword() bool {
	return g.DownloadPasswordHash != ""
}

// Expired reports whether the retention deadline has passed at now.
func (g *Gallery) Expired(now time.Time) bool {
	return g.AutoDeleteDate != nil && g.AutoDeleteDate.Before(now)
}

// Backup is an archived copy of a gallery kept in object storage.
type Backup struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	GalleryID  int64     `gorm:"not null;index" json:"gallery_id"`
	StorageKey string    `gorm:"not null" json:"-"`
	Size       int64     `gorm:"not null;default:0" json:"size"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Backup) TableName() string { return "gallery_backups" }

// DriveCredential carries the externally-issued OAuth tokens the cloud-drive
// adapter uses on behalf of a gallery owner.
type DriveCredential struct {
	UserID       int64     `gorm:"primaryKey" json:"user_id"`
	AccessToken  string    `gorm:"not null" json:"-"`
	RefreshToken string    `json:"-"`
	Expiry       time.Time `json:"expiry"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (DriveCredential) TableName() string { return "drive_credentials" }
