package ingest

import "errors"

var (
	// ErrSectionBusy means another worker holds the section's sync lock.
	ErrSectionBusy = errors.New("section sync already in progress")
	ErrNoAdapter   = errors.New("no adapter registered for section type")
	ErrNotSyncable = errors.New("section type is not synced from a provider")
)
