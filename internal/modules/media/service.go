package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"photogallery/internal/domain/gallery"
	"photogallery/internal/logging"
	"photogallery/internal/storage"
)

var allowedPhotoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var allowedVideoTypes = map[string]string{
	"video/mp4":  ".mp4",
	"video/webm": ".webm",
	"video/avi":  ".avi",
}

type Objects interface {
	UploadWithThumbnails(ctx context.Context, id string, data []byte, ext, contentType string) (storage.UploadResult, error)
	UploadStream(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) bool
}

type MediaStore interface {
	CreatePhoto(ctx context.Context, p *gallery.Photo) error
	CreateVideo(ctx context.Context, v *gallery.Video) error
	NextPhotoPosition(ctx context.Context, sectionID int64) (int, error)
	NextVideoPosition(ctx context.Context, sectionID int64) (int, error)
}

type UsageStore interface {
	AddStorageUsage(ctx context.Context, userID, delta int64) error
}

// Service stores local uploads and charges them to the owner's quota.
// Photo processing holds the whole file in memory, so concurrent uploads
// are bounded by a weighted semaphore.
type Service struct {
	objects  Objects
	media    MediaStore
	usage    UsageStore
	sem      *semaphore.Weighted
	maxBytes int64
	log      logging.Logger
}

func NewService(objects Objects, media MediaStore, usage UsageStore, concurrency, maxBytes int64, log logging.Logger) *Service {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Service{
		objects:  objects,
		media:    media,
		usage:    usage,
		sem:      semaphore.NewWeighted(concurrency),
		maxBytes: maxBytes,
		log:      log.With("component", "media_upload"),
	}
}

func (s *Service) UploadPhoto(ctx context.Context, g *gallery.Gallery, sectionID int64, fh *multipart.FileHeader) (*PhotoResponse, error) {
	section, err := findSection(g, sectionID, gallery.SectionPhoto)
	if err != nil {
		return nil, err
	}
	if err := s.checkSize(fh.Size); err != nil {
		return nil, err
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	data, err := readAll(fh, s.maxBytes)
	if err != nil {
		return nil, err
	}
	contentType := detectType(data)
	ext, ok := allowedPhotoTypes[contentType]
	if !ok {
		return nil, ErrInvalidMimeType
	}
	if e := strings.ToLower(filepath.Ext(fh.Filename)); e == ".jpeg" && ext == ".jpg" {
		ext = e
	}

	id := uuid.New().String()
	res, err := s.objects.UploadWithThumbnails(ctx, id, data, ext, contentType)
	if err != nil {
		return nil, err
	}

	pos, err := s.media.NextPhotoPosition(ctx, section.ID)
	if err != nil {
		s.rollback(ctx, res.Keys.All()...)
		return nil, fmt.Errorf("next photo position: %w", err)
	}

	photo := &gallery.Photo{
		ID:           id,
		GalleryID:    g.ID,
		SectionID:    section.ID,
		OriginalName: fh.Filename,
		Ext:          ext,
		ContentType:  contentType,
		StorageKey:   res.Keys.Original,
		Size:         int64(len(data)),
		ThumbSize:    res.ThumbBytes,
		HasSmall:     res.SmallURL != "",
		HasMedium:    res.MediumURL != "",
		Position:     pos,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.media.CreatePhoto(ctx, photo); err != nil {
		s.rollback(ctx, res.Keys.All()...)
		return nil, fmt.Errorf("save photo: %w", err)
	}
	if err := s.usage.AddStorageUsage(ctx, g.OwnerID, photo.Size+photo.ThumbSize); err != nil {
		s.log.Error(ctx, "storage usage increment failed", "photo_id", id, "owner_id", g.OwnerID, "error", err)
	}

	return &PhotoResponse{
		ID:           photo.ID,
		SectionID:    photo.SectionID,
		OriginalName: photo.OriginalName,
		ContentType:  photo.ContentType,
		Size:         photo.Size,
		Position:     photo.Position,
		URL:          res.OriginalURL,
		SmallURL:     res.SmallURL,
		MediumURL:    res.MediumURL,
		CreatedAt:    photo.CreatedAt,
	}, nil
}

// UploadVideo streams the file to storage without buffering it.
func (s *Service) UploadVideo(ctx context.Context, g *gallery.Gallery, sectionID int64, fh *multipart.FileHeader) (*VideoResponse, error) {
	section, err := findSection(g, sectionID, gallery.SectionVideo)
	if err != nil {
		return nil, err
	}
	if err := s.checkSize(fh.Size); err != nil {
		return nil, err
	}

	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	head := make([]byte, 512)
	n, _ := io.ReadFull(file, head)
	contentType := detectType(head[:n])
	ext, ok := allowedVideoTypes[contentType]
	if !ok {
		return nil, ErrInvalidMimeType
	}

	id := uuid.New().String()
	key := storage.VideoKey(id, ext)
	body := io.MultiReader(bytes.NewReader(head[:n]), file)
	url, err := s.objects.UploadStream(ctx, key, body, fh.Size, contentType)
	if err != nil {
		return nil, err
	}

	pos, err := s.media.NextVideoPosition(ctx, section.ID)
	if err != nil {
		s.rollback(ctx, key)
		return nil, fmt.Errorf("next video position: %w", err)
	}
	video := &gallery.Video{
		ID:           id,
		GalleryID:    g.ID,
		SectionID:    section.ID,
		OriginalName: fh.Filename,
		Ext:          ext,
		ContentType:  contentType,
		StorageKey:   key,
		Size:         fh.Size,
		Position:     pos,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.media.CreateVideo(ctx, video); err != nil {
		s.rollback(ctx, key)
		return nil, fmt.Errorf("save video: %w", err)
	}
	if err := s.usage.AddStorageUsage(ctx, g.OwnerID, video.Size); err != nil {
		s.log.Error(ctx, "storage usage increment failed", "video_id", id, "owner_id", g.OwnerID, "error", err)
	}

	return &VideoResponse{
		ID:           video.ID,
		SectionID:    video.SectionID,
		OriginalName: video.OriginalName,
		ContentType:  video.ContentType,
		Size:         video.Size,
		Position:     video.Position,
		URL:          url,
		CreatedAt:    video.CreatedAt,
	}, nil
}

func (s *Service) checkSize(size int64) error {
	if size <= 0 {
		return ErrEmptyFile
	}
	if size > s.maxBytes {
		return ErrFileTooLarge
	}
	return nil
}

func (s *Service) rollback(ctx context.Context, keys ...string) {
	for _, k := range keys {
		s.objects.Delete(ctx, k)
	}
}

func findSection(g *gallery.Gallery, sectionID int64, want gallery.SectionType) (*gallery.Section, error) {
	for i := range g.Sections {
		if g.Sections[i].ID != sectionID {
			continue
		}
		if g.Sections[i].Type != want {
			return nil, ErrWrongSectionType
		}
		return &g.Sections[i], nil
	}
	return nil, ErrSectionNotFound
}

func readAll(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	return data, nil
}

func detectType(head []byte) string {
	return strings.Split(http.DetectContentType(head), ";")[0]
}
