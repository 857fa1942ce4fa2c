// Package history keeps the provenance log of a run: which operator made
// each individual, and from which parents.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"vivarium/internal/model"
	"vivarium/internal/storage"
)

// Sink receives flushed records. Every storage.Store is one.
type Sink interface {
	AppendHistory(ctx context.Context, runID string, records []model.HistoryRecord) error
}

// Log buffers provenance records in memory until flushed. It is safe for
// concurrent use and satisfies evo.Tracer.
type Log struct {
	runID string
	newID func() string
	now   func() time.Time

	mu      sync.Mutex
	pending []model.HistoryRecord
	total   int
}

type Option func(*Log)

// WithIDFunc replaces the UUID generator, for deterministic tests.
func WithIDFunc(fn func() string) Option {
	return func(l *Log) { l.newID = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(l *Log) { l.now = fn }
}

func New(runID string, opts ...Option) *Log {
	l := &Log{runID: runID, newID: uuid.NewString, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Log) RunID() string { return l.runID }

// NewID tags ind with a fresh provenance ID.
func (l *Log) NewID(ind *model.Individual) {
	ind.HistoryID = l.newID()
}

// Trace records that op produced ind from parents.
func (l *Log) Trace(generation, deme int, parents []string, ind *model.Individual, op, kind string) {
	rec := model.HistoryRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              ind.HistoryID,
		Parents:         append([]string(nil), parents...),
		Generation:      generation,
		Deme:            deme,
		Operation:       op,
		Kind:            kind,
		At:              l.now().UTC(),
	}
	if v, ok := ind.ScalarFitness(); ok {
		rec.Fitness = &v
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, rec)
	l.total++
}

// Pending returns a copy of the records not yet flushed.
func (l *Log) Pending() []model.HistoryRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.HistoryRecord(nil), l.pending...)
}

// Total counts every record traced, flushed or not.
func (l *Log) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// Flush writes pending records to sink and drops them from memory. On
// error the records stay pending.
func (l *Log) Flush(ctx context.Context, sink Sink) (int, error) {
	l.mu.Lock()
	batch := l.pending
	l.pending = nil
	l.mu.Unlock()

	if len(batch) == 0 {
		return 0, nil
	}
	if err := sink.AppendHistory(ctx, l.runID, batch); err != nil {
		l.mu.Lock()
		l.pending = append(batch, l.pending...)
		l.mu.Unlock()
		return 0, err
	}
	return len(batch), nil
}
