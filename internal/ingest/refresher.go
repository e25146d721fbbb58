package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"photogallery/internal/domain/gallery"
	"photogallery/internal/logging"
	"photogallery/internal/sources"
)

// SectionStore is the section persistence used by refreshes and schedulers.
type SectionStore interface {
	GetByID(ctx context.Context, id int64) (*gallery.Section, error)
	ListSyncable(ctx context.Context, t gallery.SectionType) ([]gallery.Section, error)
	RecordSyncError(ctx context.Context, id int64, msg string) error
	MarkExpired(ctx context.Context, id int64, msg string) error
}

// Refresher runs one fetch-and-merge cycle for a section. Schedulers and the
// manual refresh endpoint share it.
type Refresher struct {
	adapters map[gallery.SectionType]sources.Adapter
	merger   *Merger
	sections SectionStore
	locker   Locker
	lockTTL  time.Duration
	log      logging.Logger
}

func NewRefresher(adapters []sources.Adapter, merger *Merger, sections SectionStore, locker Locker, lockTTL time.Duration, log logging.Logger) *Refresher {
	byType := make(map[gallery.SectionType]sources.Adapter, len(adapters))
	for _, a := range adapters {
		byType[a.Type()] = a
	}
	return &Refresher{
		adapters: byType,
		merger:   merger,
		sections: sections,
		locker:   locker,
		lockTTL:  lockTTL,
		log:      log.With("component", "refresher"),
	}
}

// RefreshByID loads the section and refreshes it.
func (r *Refresher) RefreshByID(ctx context.Context, id int64) (*gallery.Section, MergeResult, error) {
	section, err := r.sections.GetByID(ctx, id)
	if err != nil {
		return nil, MergeResult{}, err
	}
	res, err := r.Refresh(ctx, *section)
	return section, res, err
}

// Refresh fetches the section's listing and merges it. A fetch failure is
// stored on the section and returned; an expired source marks the section
// expired.
func (r *Refresher) Refresh(ctx context.Context, section gallery.Section) (MergeResult, error) {
	if !section.Type.External() {
		return MergeResult{}, fmt.Errorf("%w: %s", ErrNotSyncable, section.Type)
	}
	if section.Expired {
		return MergeResult{}, fmt.Errorf("section %d: %w", section.ID, sources.ErrExpired)
	}
	adapter, ok := r.adapters[section.Type]
	if !ok {
		return MergeResult{}, fmt.Errorf("%w: %s", ErrNoAdapter, section.Type)
	}

	release, err := r.locker.Acquire(ctx, section.ID, r.lockTTL)
	if err != nil {
		return MergeResult{}, err
	}
	defer release()

	log := r.log.With("section_id", section.ID, "source", section.Type)

	listing, err := adapter.Fetch(ctx, section)
	if err != nil {
		if errors.Is(err, sources.ErrExpired) {
			log.Warn(ctx, "source expired, section disabled", "error", err)
			if mErr := r.sections.MarkExpired(ctx, section.ID, err.Error()); mErr != nil {
				log.Error(ctx, "mark section expired failed", "error", mErr)
			}
			return MergeResult{}, err
		}
		r.recordError(ctx, log, section.ID, err)
		return MergeResult{}, err
	}

	res, err := r.merger.Merge(ctx, section, listing)
	if err != nil {
		r.recordError(ctx, log, section.ID, err)
		return res, err
	}
	log.Info(ctx, "section synced", "fetched", res.Fetched, "inserted", res.Inserted)
	return res, nil
}

func (r *Refresher) recordError(ctx context.Context, log logging.Logger, sectionID int64, err error) {
	log.Warn(ctx, "section sync failed", "error", err)
	if recErr := r.sections.RecordSyncError(ctx, sectionID, err.Error()); recErr != nil {
		log.Error(ctx, "record sync error failed", "error", recErr)
	}
}
