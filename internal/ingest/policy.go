package ingest

import (
	"time"

	"photogallery/internal/domain/gallery"
)

// Tier is one step of the age-tiered re-poll schedule.
type Tier struct {
	MaxAge   time.Duration
	Interval time.Duration
}

// Policy decides when a section is due for another fetch based on how long
// ago it was created. Tiers are checked in order; the first whose MaxAge
// exceeds the section age applies, and Final covers everything older.
type Policy struct {
	Tiers []Tier
	Final time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		Tiers: []Tier{
			{MaxAge: 24 * time.Hour, Interval: 10 * time.Minute},
			{MaxAge: 48 * time.Hour, Interval: time.Hour},
			{MaxAge: 30 * 24 * time.Hour, Interval: 24 * time.Hour},
		},
		Final: 30 * 24 * time.Hour,
	}
}

func (p Policy) Interval(age time.Duration) time.Duration {
	for _, t := range p.Tiers {
		if age < t.MaxAge {
			return t.Interval
		}
	}
	return p.Final
}

// Due reports whether the section should be fetched at now. A section that
// has never synced is always due.
func (p Policy) Due(s gallery.Section, now time.Time) bool {
	if s.LastSyncAt == nil {
		return true
	}
	interval := p.Interval(now.Sub(s.CreatedAt))
	return now.Sub(*s.LastSyncAt) >= interval
}
