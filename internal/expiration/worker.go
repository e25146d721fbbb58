// Package expiration deletes galleries whose retention deadline has passed,
// together with every stored object and row that references them.
package expiration

import (
	"context"
	"fmt"
	"time"

	"photogallery/internal/domain/gallery"
	"photogallery/internal/logging"
	"photogallery/internal/storage"
)

type GalleryStore interface {
	ListExpired(ctx context.Context, now time.Time) ([]gallery.Gallery, error)
	DeleteCascade(ctx context.Context, g *gallery.Gallery, freedBytes int64) error
}

type MediaStore interface {
	ListPhotos(ctx context.Context, galleryID int64) ([]gallery.Photo, error)
	ListVideos(ctx context.Context, galleryID int64) ([]gallery.Video, error)
	ListBackups(ctx context.Context, galleryID int64) ([]gallery.Backup, error)
}

// ObjectDeleter removes a stored object, treating an absent one as deleted.
type ObjectDeleter interface {
	Delete(ctx context.Context, key string) bool
}

type Worker struct {
	galleries GalleryStore
	media     MediaStore
	objects   ObjectDeleter
	interval  time.Duration
	log       logging.Logger
	now       func() time.Time
}

func NewWorker(galleries GalleryStore, media MediaStore, objects ObjectDeleter, interval time.Duration, log logging.Logger) *Worker {
	return &Worker{
		galleries: galleries,
		media:     media,
		objects:   objects,
		interval:  interval,
		log:       log.With("component", "expiration"),
		now:       time.Now,
	}
}

type SweepReport struct {
	Found      int
	Deleted    int
	Failed     int
	FreedBytes int64
}

// Result of deleting one gallery.
type Result struct {
	FreedBytes     int64
	ObjectsDeleted int
	ObjectsFailed  int
}

// Run sweeps once immediately and then on every interval until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info(ctx, "expiration worker started", "interval", w.interval.String())
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.Sweep(ctx)
		select {
		case <-ctx.Done():
			w.log.Info(ctx, "expiration worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep deletes every gallery past its deadline. Each gallery is handled on
// its own; one failure does not stop the rest.
func (w *Worker) Sweep(ctx context.Context) SweepReport {
	var rep SweepReport
	start := w.now()

	expired, err := w.galleries.ListExpired(ctx, start)
	if err != nil {
		w.log.Error(ctx, "list expired galleries failed", "error", err)
		return rep
	}
	rep.Found = len(expired)

	for i := range expired {
		if ctx.Err() != nil {
			break
		}
		g := &expired[i]
		res, err := w.DeleteGallery(ctx, g)
		if err != nil {
			rep.Failed++
			w.log.Error(ctx, "gallery expiration failed", "gallery_id", g.ID, "error", err)
			continue
		}
		rep.Deleted++
		rep.FreedBytes += res.FreedBytes
		w.log.Info(ctx, "gallery expired",
			"gallery_id", g.ID, "owner_id", g.OwnerID, "freed_bytes", res.FreedBytes,
			"objects_deleted", res.ObjectsDeleted, "objects_failed", res.ObjectsFailed)
	}

	if rep.Found > 0 {
		w.log.Info(ctx, "expiration sweep finished",
			"found", rep.Found, "deleted", rep.Deleted, "failed", rep.Failed,
			"freed_bytes", rep.FreedBytes, "took", time.Since(start).String())
	}
	return rep
}

// DeleteGallery removes stored objects first and then, in one transaction,
// every row of the gallery plus the owner's quota decrement. If the process
// dies in between, the gallery is still past its deadline and the next sweep
// finishes the job.
func (w *Worker) DeleteGallery(ctx context.Context, g *gallery.Gallery) (Result, error) {
	var res Result

	photos, err := w.media.ListPhotos(ctx, g.ID)
	if err != nil {
		return res, fmt.Errorf("list photos: %w", err)
	}
	videos, err := w.media.ListVideos(ctx, g.ID)
	if err != nil {
		return res, fmt.Errorf("list videos: %w", err)
	}
	backups, err := w.media.ListBackups(ctx, g.ID)
	if err != nil {
		return res, fmt.Errorf("list backups: %w", err)
	}

	var keys []string
	for _, p := range photos {
		res.FreedBytes += p.Size + p.ThumbSize
		keys = append(keys, p.StorageKey)
		pk := storage.KeysForPhoto(p.ID, p.Ext)
		keys = append(keys, pk.Small, pk.Medium)
	}
	for _, v := range videos {
		res.FreedBytes += v.Size
		keys = append(keys, v.StorageKey)
	}
	for _, b := range backups {
		res.FreedBytes += b.Size
		keys = append(keys, b.StorageKey)
	}

	for _, key := range keys {
		if w.objects.Delete(ctx, key) {
			res.ObjectsDeleted++
		} else {
			res.ObjectsFailed++
		}
	}

	if err := w.galleries.DeleteCascade(ctx, g, res.FreedBytes); err != nil {
		return res, fmt.Errorf("delete gallery rows: %w", err)
	}
	return res, nil
}
