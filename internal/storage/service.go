// Package storage uploads, serves and deletes gallery media objects across a
// remote bucket or the local filesystem.
package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"photogallery/internal/config"
	"photogallery/internal/logging"
)

// Thumbnailer renders a JPEG that fits inside a box×box square.
type Thumbnailer interface {
	Thumbnail(data []byte, box, quality int) ([]byte, error)
}

type Service struct {
	backend    Backend
	publicBase string
	thumbs     Thumbnailer
	log        logging.Logger
}

func NewService(backend Backend, publicBase string, thumbs Thumbnailer, log logging.Logger) *Service {
	return &Service{
		backend:    backend,
		publicBase: strings.TrimRight(publicBase, "/"),
		thumbs:     thumbs,
		log:        log.With("component", "storage", "backend", backend.Name()),
	}
}

// NewBackend selects the backend named by the config. A remote driver with
// missing credentials falls back to the local directory.
func NewBackend(ctx context.Context, cfg *config.Config, log logging.Logger) (Backend, error) {
	switch cfg.StorageDriver {
	case "s3":
		if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" {
			return NewS3Backend(ctx, cfg.S3)
		}
		log.Warn(ctx, "s3 credentials incomplete, falling back to local storage", "dir", cfg.StorageLocalDir)
	case "minio":
		if cfg.Minio.Endpoint != "" && cfg.Minio.AccessKey != "" && cfg.Minio.SecretKey != "" && cfg.Minio.Bucket != "" {
			return NewMinioBackend(ctx, cfg.Minio)
		}
		log.Warn(ctx, "minio credentials incomplete, falling back to local storage", "dir", cfg.StorageLocalDir)
	}
	return NewLocalBackend(cfg.StorageLocalDir)
}

// UploadResult describes the objects written for one photo. Empty thumbnail
// URLs mean that size could not be produced.
type UploadResult struct {
	Keys        PhotoKeys
	OriginalURL string
	SmallURL    string
	MediumURL   string
	// ThumbBytes is the total size of the thumbnails that were written.
	ThumbBytes int64
}

// BackendName reports which backend objects are written to.
func (s *Service) BackendName() string { return s.backend.Name() }

func (s *Service) PublicURL(key string) string {
	return s.publicBase + "/" + strings.TrimLeft(key, "/")
}

func (s *Service) ThumbnailURL(id string, size ThumbSize) string {
	return s.PublicURL(ThumbnailKey(id, size))
}

func (s *Service) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := s.backend.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", &WriteError{Key: key, Err: err}
	}
	return s.PublicURL(key), nil
}

// UploadStream writes an object of known size without buffering it.
func (s *Service) UploadStream(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if err := s.backend.Put(ctx, key, r, size, contentType); err != nil {
		return "", &WriteError{Key: key, Err: err}
	}
	return s.PublicURL(key), nil
}

// Delete removes an object. An absent object counts as deleted; any other
// failure is logged and reported as false.
func (s *Service) Delete(ctx context.Context, key string) bool {
	if key == "" {
		return true
	}
	if err := s.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		s.log.Warn(ctx, "storage delete failed", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Service) Exists(ctx context.Context, key string) bool {
	ok, err := s.backend.Exists(ctx, key)
	if err != nil {
		s.log.Warn(ctx, "storage exists check failed", "key", key, "error", err)
		return false
	}
	return ok
}

func (s *Service) Fetch(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Open streams an object. Callers must close the reader.
func (s *Service) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

// UploadWithThumbnails stores the original and then the small and medium
// JPEG renditions. Only the original is mandatory.
func (s *Service) UploadWithThumbnails(ctx context.Context, id string, data []byte, ext, contentType string) (UploadResult, error) {
	keys := KeysForPhoto(id, ext)
	res := UploadResult{Keys: keys}

	url, err := s.Upload(ctx, keys.Original, data, contentType)
	if err != nil {
		return res, err
	}
	res.OriginalURL = url

	if s.thumbs == nil {
		return res, nil
	}
	for _, size := range []ThumbSize{ThumbSmall, ThumbMedium} {
		spec := thumbSpec[size]
		thumb, err := s.thumbs.Thumbnail(data, spec.Box, spec.Quality)
		if err != nil {
			s.log.Warn(ctx, "thumbnail generation failed", "photo_id", id, "size", size, "error", err)
			continue
		}
		key := ThumbnailKey(id, size)
		url, err := s.Upload(ctx, key, thumb, "image/jpeg")
		if err != nil {
			s.log.Warn(ctx, "thumbnail upload failed", "photo_id", id, "size", size, "error", err)
			continue
		}
		res.ThumbBytes += int64(len(thumb))
		switch size {
		case ThumbSmall:
			res.SmallURL = url
		case ThumbMedium:
			res.MediumURL = url
		}
	}
	return res, nil
}
