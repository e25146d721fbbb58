package gallery

import (
	"time"

	"gorm.io/datatypes"
)

type MediaKind string

const (
	KindPhoto MediaKind = "photo"
	KindVideo MediaKind = "video"
)

// ExternalItem is the shared shape of every provider-sourced media row.
// SourceID is unique per section; the composite unique index is created per
// table in database.Migrate because index names are database-global.
type ExternalItem struct {
	ID           int64          `gorm:"primaryKey" json:"id"`
	GalleryID    int64          `gorm:"not null;index" json:"gallery_id"`
	SectionID    int64          `gorm:"not null;index" json:"section_id"`
	SourceID     string         `gorm:"not null" json:"source_id"`
	Kind         MediaKind      `gorm:"type:varchar(16);not null" json:"kind"`
	Name         string         `json:"name"`
	ThumbnailURL string         `json:"thumbnail_url"`
	ViewURL      string         `json:"view_url"`
	Size         int64          `gorm:"not null;default:0" json:"size"`
	Position     int            `gorm:"not null;default:0" json:"position"`
	Highlight    bool           `gorm:"not null;default:false" json:"highlight"`
	Hidden       bool           `gorm:"not null;default:false" json:"hidden"`
	Metadata     datatypes.JSON `json:"metadata,omitempty"`
	SyncedAt     time.Time      `gorm:"not null" json:"synced_at"`
}

type ScrapedEventItem struct {
	ExternalItem `gorm:"embedded"`
}

func (ScrapedEventItem) TableName() string { return "scraped_event_items" }

type DriveItem struct {
	ExternalItem `gorm:"embedded"`
}

func (DriveItem) TableName() string { return "drive_items" }

type SharedFolderItem struct {
	ExternalItem `gorm:"embedded"`
}

func (SharedFolderItem) TableName() string { return "shared_folder_items" }

// ExternalTable maps a synced section type to its item table.
func ExternalTable(t SectionType) (string, bool) {
	switch t {
	case SectionScrapedEvent:
		return ScrapedEventItem{}.TableName(), true
	case SectionCloudDrive:
		return DriveItem{}.TableName(), true
	case SectionSharedFolder:
		return SharedFolderItem{}.TableName(), true
	}
	return "", false
}

// ExternalTables lists every provider item table.
func ExternalTables() []string {
	return []string{
		ScrapedEventItem{}.TableName(),
		DriveItem{}.TableName(),
		SharedFolderItem{}.TableName(),
	}
}

// Photo is a locally uploaded image. Size is the original's byte size and
// ThumbSize the sum of derived thumbnails; both count against the quota.
type Photo struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	GalleryID    int64     `gorm:"not null;index" json:"gallery_id"`
	SectionID    int64     `gorm:"not null;index" json:"section_id"`
	OriginalName string    `json:"original_name"`
	Ext          string    `gorm:"not null" json:"-"`
	ContentType  string    `json:"content_type"`
	StorageKey   string    `gorm:"not null" json:"-"`
	Size         int64     `gorm:"not null;default:0" json:"size"`
	ThumbSize    int64     `gorm:"not null;default:0" json:"-"`
	HasSmall     bool      `gorm:"not null;default:false" json:"-"`
	HasMedium    bool      `gorm:"not null;default:false" json:"-"`
	Hidden       bool      `gorm:"not null;default:false" json:"hidden"`
	Flagged      bool      `gorm:"not null;default:false" json:"flagged"`
	Highlight    bool      `gorm:"not null;default:false" json:"highlight"`
	Position     int       `gorm:"not null;default:0" json:"position"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Photo) TableName() string { return "photos" }

type Video struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	GalleryID    int64     `gorm:"not null;index" json:"gallery_id"`
	SectionID    int64     `gorm:"not null;index" json:"section_id"`
	OriginalName string    `json:"original_name"`
	Ext          string    `gorm:"not null" json:"-"`
	ContentType  string    `json:"content_type"`
	StorageKey   string    `gorm:"not null" json:"-"`
	Size         int64     `gorm:"not null;default:0" json:"size"`
	Hidden       bool      `gorm:"not null;default:false" json:"hidden"`
	Flagged      bool      `gorm:"not null;default:false" json:"flagged"`
	Position     int       `gorm:"not null;default:0" json:"position"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Video) TableName() string { return "videos" }
