package storage

import (
	"context"

	"vivarium/internal/model"
)

// Store persists the provenance log and milestone snapshots of runs.
type Store interface {
	Init(ctx context.Context) error
	// AppendHistory adds records to the run's log, after any already stored.
	AppendHistory(ctx context.Context, runID string, records []model.HistoryRecord) error
	GetHistory(ctx context.Context, runID string) ([]model.HistoryRecord, bool, error)
	// SaveSnapshot stores a milestone, replacing one of the same run and
	// generation.
	SaveSnapshot(ctx context.Context, snapshot model.VivariumSnapshot) error
	GetSnapshot(ctx context.Context, runID string, generation int) (model.VivariumSnapshot, bool, error)
	LatestSnapshot(ctx context.Context, runID string) (model.VivariumSnapshot, bool, error)
	ListRuns(ctx context.Context) ([]string, error)
}
