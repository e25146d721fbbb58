package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"photogallery/internal/domain/gallery"
	"photogallery/internal/logging"
)

// Scheduler drives one source type: every tick it lists that type's sections
// and refreshes the ones the policy says are due.
type Scheduler struct {
	sectionType gallery.SectionType
	sections    SectionStore
	refresher   *Refresher
	policy      Policy
	interval    time.Duration
	log         logging.Logger
	now         func() time.Time
}

func NewScheduler(t gallery.SectionType, sections SectionStore, refresher *Refresher, policy Policy, interval time.Duration, log logging.Logger) *Scheduler {
	return &Scheduler{
		sectionType: t,
		sections:    sections,
		refresher:   refresher,
		policy:      policy,
		interval:    interval,
		log:         log.With("component", "scheduler", "source", t),
		now:         time.Now,
	}
}

// TickReport summarises one pass over a section type.
type TickReport struct {
	Checked int
	Synced  int
	Failed  int
	Skipped int
}

// Run ticks until ctx is cancelled. The first tick runs immediately.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info(ctx, "scheduler started", "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.Tick(ctx)
		select {
		case <-ctx.Done():
			s.log.Info(ctx, "scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

// Tick performs one pass. Cancellation is honoured between sections, so the
// section in flight always finishes.
func (s *Scheduler) Tick(ctx context.Context) TickReport {
	var rep TickReport

	list, err := s.sections.ListSyncable(ctx, s.sectionType)
	if err != nil {
		s.log.Error(ctx, "list sections failed", "error", err)
		return rep
	}

	now := s.now()
	for _, section := range list {
		if ctx.Err() != nil {
			break
		}
		rep.Checked++
		if !s.policy.Due(section, now) {
			rep.Skipped++
			continue
		}
		switch err := s.syncOne(ctx, section); {
		case err == nil:
			rep.Synced++
		case errors.Is(err, ErrSectionBusy):
			rep.Skipped++
		default:
			rep.Failed++
		}
	}

	if rep.Synced > 0 || rep.Failed > 0 {
		s.log.Info(ctx, "sync tick finished",
			"checked", rep.Checked, "synced", rep.Synced, "failed", rep.Failed, "skipped", rep.Skipped)
	}
	return rep
}

func (s *Scheduler) syncOne(ctx context.Context, section gallery.Section) (err error) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Error(ctx, "section sync panicked", "section_id", section.ID, "panic", fmt.Sprint(p))
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	_, err = s.refresher.Refresh(ctx, section)
	return err
}
