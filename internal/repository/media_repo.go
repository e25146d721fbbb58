package repository

import (
	"context"

	"gorm.io/gorm"

	"photogallery/internal/domain/gallery"
)

// DownloadableMedia is a locally stored photo or video eligible for export.
type DownloadableMedia struct {
	ID              string
	Kind            gallery.MediaKind
	SectionID       int64
	SectionName     string
	SectionPosition int
	Position        int
	OriginalName    string
	Ext             string
	StorageKey      string
	Size            int64
	CreatedAtUnix   int64
}

// MediaRepository covers the locally stored media tables: photos, videos and
// gallery backups.
type MediaRepository struct {
	db *gorm.DB
}

func NewMediaRepository(db *gorm.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

func (r *MediaRepository) CreatePhoto(ctx context.Context, p *gallery.Photo) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *MediaRepository) CreateVideo(ctx context.Context, v *gallery.Video) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *MediaRepository) CreateBackup(ctx context.Context, b *gallery.Backup) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *MediaRepository) ListPhotos(ctx context.Context, galleryID int64) ([]gallery.Photo, error) {
	var out []gallery.Photo
	err := r.db.WithContext(ctx).Where("gallery_id = ?", galleryID).Order("position ASC, id ASC").Find(&out).Error
	return out, err
}

func (r *MediaRepository) ListVideos(ctx context.Context, galleryID int64) ([]gallery.Video, error) {
	var out []gallery.Video
	err := r.db.WithContext(ctx).Where("gallery_id = ?", galleryID).Order("position ASC, id ASC").Find(&out).Error
	return out, err
}

func (r *MediaRepository) ListBackups(ctx context.Context, galleryID int64) ([]gallery.Backup, error) {
	var out []gallery.Backup
	err := r.db.WithContext(ctx).Where("gallery_id = ?", galleryID).Order("id ASC").Find(&out).Error
	return out, err
}

// NextPhotoPosition returns the position for a photo appended to a section.
func (r *MediaRepository) NextPhotoPosition(ctx context.Context, sectionID int64) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&gallery.Photo{}).Where("section_id = ?", sectionID).Count(&count).Error
	return int(count), err
}

func (r *MediaRepository) NextVideoPosition(ctx context.Context, sectionID int64) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&gallery.Video{}).Where("section_id = ?", sectionID).Count(&count).Error
	return int(count), err
}

// ListDownloadable returns the visible, unflagged photos and videos of a
// gallery, optionally restricted to one section, in their unsorted database
// form. Ordering is applied by the caller.
func (r *MediaRepository) ListDownloadable(ctx context.Context, galleryID int64, sectionID *int64) ([]DownloadableMedia, error) {
	sections := map[int64]gallery.Section{}
	var secs []gallery.Section
	q := r.db.WithContext(ctx).Where("gallery_id = ?", galleryID)
	if sectionID != nil {
		q = q.Where("id = ?", *sectionID)
	}
	if err := q.Find(&secs).Error; err != nil {
		return nil, err
	}
	for _, s := range secs {
		sections[s.ID] = s
	}

	photoQ := r.db.WithContext(ctx).Where("gallery_id = ? AND hidden = ? AND flagged = ?", galleryID, false, false)
	videoQ := r.db.WithContext(ctx).Where("gallery_id = ? AND hidden = ? AND flagged = ?", galleryID, false, false)
	if sectionID != nil {
		photoQ = photoQ.Where("section_id = ?", *sectionID)
		videoQ = videoQ.Where("section_id = ?", *sectionID)
	}

	var photos []gallery.Photo
	if err := photoQ.Find(&photos).Error; err != nil {
		return nil, err
	}
	var videos []gallery.Video
	if err := videoQ.Find(&videos).Error; err != nil {
		return nil, err
	}

	out := make([]DownloadableMedia, 0, len(photos)+len(videos))
	for _, p := range photos {
		s := sections[p.SectionID]
		out = append(out, DownloadableMedia{
			ID: p.ID, Kind: gallery.KindPhoto,
			SectionID: p.SectionID, SectionName: s.Name, SectionPosition: s.Position,
			Position: p.Position, OriginalName: p.OriginalName, Ext: p.Ext,
			StorageKey: p.StorageKey, Size: p.Size, CreatedAtUnix: p.CreatedAt.UnixNano(),
		})
	}
	for _, v := range videos {
		s := sections[v.SectionID]
		out = append(out, DownloadableMedia{
			ID: v.ID, Kind: gallery.KindVideo,
			SectionID: v.SectionID, SectionName: s.Name, SectionPosition: s.Position,
			Position: v.Position, OriginalName: v.OriginalName, Ext: v.Ext,
			StorageKey: v.StorageKey, Size: v.Size, CreatedAtUnix: v.CreatedAt.UnixNano(),
		})
	}
	return out, nil
}
