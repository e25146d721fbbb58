package gallery

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type SectionType string

const (
	SectionPhoto        SectionType = "photo"
	SectionVideo        SectionType = "video"
	SectionScrapedEvent SectionType = "scraped_event"
	SectionCloudDrive   SectionType = "cloud_drive"
	SectionSharedFolder SectionType = "shared_folder"
)

// SyncedTypes lists the section types driven by a sync scheduler.
var SyncedTypes = []SectionType{SectionScrapedEvent, SectionCloudDrive, SectionSharedFolder}

func (t SectionType) Valid() bool {
	switch t {
	case SectionPhoto, SectionVideo, SectionScrapedEvent, SectionCloudDrive, SectionSharedFolder:
		return true
	}
	return false
}

// External reports whether media of this section comes from a provider.
func (t SectionType) External() bool {
	switch t {
	case SectionScrapedEvent, SectionCloudDrive, SectionSharedFolder:
		return true
	}
	return false
}

// Section is stored as its own row so that concurrent schedulers only ever
// touch the row they sync.
type Section struct {
	ID         int64       `gorm:"primaryKey" json:"id"`
	GalleryID  int64       `gorm:"not null;uniqueIndex:idx_section_gallery_name,priority:1;index" json:"gallery_id"`
	Name       string      `gorm:"not null;uniqueIndex:idx_section_gallery_name,priority:2" json:"name"`
	Position   int         `gorm:"not null;default:0" json:"position"`
	Type       SectionType `gorm:"type:varchar(32);not null;index" json:"type"`
	Locator    string      `json:"locator,omitempty"`
	LastSyncAt *time.Time  `json:"last_sync_at,omitempty"`
	LastError  string      `json:"last_error,omitempty"`
	Expired    bool        `gorm:"not null;default:false" json:"expired"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (Section) TableName() string { return "gallery_sections" }

var (
	scrapeURLPattern  = regexp.MustCompile(`^https?://[A-Za-z0-9.-]+(:\d+)?/(e|event|events|gallery)/[A-Za-z0-9_-]+/?$`)
	driveFolderID     = regexp.MustCompile(`^[A-Za-z0-9_-]{10,120}$`)
	driveFolderURL    = regexp.MustCompile(`/folders/([A-Za-z0-9_-]{10,120})`)
	sharedFolderShort = regexp.MustCompile(`^[A-Za-z0-9_-]{6,64}$`)
	sharedFolderURL   = regexp.MustCompile(`^https://(disk\.yandex\.[a-z]+|yadi\.sk)/(d|i)/[A-Za-z0-9_-]+/?$`)
)

// NormalizeLocator validates a locator for the given section type and
// returns its canonical stored form. Local sections take no locator.
func NormalizeLocator(t SectionType, raw string) (string, error) {
	locator := strings.TrimSpace(raw)
	switch t {
	case SectionPhoto, SectionVideo:
		return "", nil
	case SectionScrapedEvent:
		if !scrapeURLPattern.MatchString(locator) {
			return "", fmt.Errorf("%w: scrape url %q does not match an event page", ErrInvalidLocator, locator)
		}
		return strings.TrimRight(locator, "/"), nil
	case SectionCloudDrive:
		if m := driveFolderURL.FindStringSubmatch(locator); m != nil {
			return m[1], nil
		}
		if !driveFolderID.MatchString(locator) {
			return "", fmt.Errorf("%w: %q is not a drive folder id", ErrInvalidLocator, locator)
		}
		return locator, nil
	case SectionSharedFolder:
		if sharedFolderURL.MatchString(locator) {
			return strings.TrimRight(locator, "/"), nil
		}
		if !sharedFolderShort.MatchString(locator) {
			return "", fmt.Errorf("%w: %q is not a share code", ErrInvalidLocator, locator)
		}
		return locator, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSectionType, t)
}
