package domain

import (
	"context"
	"time"
)

// RunResultRecord is one aggregated status count from a batch run, written
// to the audit backend for dashboarding.
type RunResultRecord struct {
	RunID     string
	CheckedAt time.Time
	Status    string
	Count     int
}

type RunRecorder interface {
	RecordRunResults(ctx context.Context, records []RunResultRecord) error
	Flush(ctx context.Context) error
	Close() error
}
