package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photogallery/internal/domain/gallery"
)

func TestMigrate_CreatesSourceUniqueIndex(t *testing.T) {
	db, err := Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	// Running twice must be harmless.
	require.NoError(t, Migrate(db))

	item := gallery.DriveItem{ExternalItem: gallery.ExternalItem{
		GalleryID: 1, SectionID: 7, SourceID: "file-1", Kind: gallery.KindPhoto, SyncedAt: time.Now(),
	}}
	require.NoError(t, db.Create(&item).Error)

	dup := gallery.DriveItem{ExternalItem: gallery.ExternalItem{
		GalleryID: 1, SectionID: 7, SourceID: "file-1", Kind: gallery.KindPhoto, SyncedAt: time.Now(),
	}}
	assert.Error(t, db.Create(&dup).Error)

	// The same source id in another section is a different item.
	other := gallery.DriveItem{ExternalItem: gallery.ExternalItem{
		GalleryID: 1, SectionID: 8, SourceID: "file-1", Kind: gallery.KindPhoto, SyncedAt: time.Now(),
	}}
	assert.NoError(t, db.Create(&other).Error)
}
