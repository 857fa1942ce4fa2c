package storage

import (
	"context"
	"errors"
	"slices"
	"sync"

	"vivarium/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	history     map[string][]model.HistoryRecord
	snapshots   map[string]map[int]model.VivariumSnapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.history = make(map[string][]model.HistoryRecord)
	s.snapshots = make(map[string]map[int]model.VivariumSnapshot)
	return nil
}

func (s *MemoryStore) AppendHistory(_ context.Context, runID string, records []model.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	for _, r := range records {
		s.history[runID] = append(s.history[runID], copyHistoryRecord(r))
	}
	return nil
}

func (s *MemoryStore) GetHistory(_ context.Context, runID string) ([]model.HistoryRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, false, errNotInitialized
	}
	records, ok := s.history[runID]
	if !ok {
		return nil, false, nil
	}
	out := make([]model.HistoryRecord, len(records))
	for i, r := range records {
		out[i] = copyHistoryRecord(r)
	}
	return out, true, nil
}

func (s *MemoryStore) SaveSnapshot(_ context.Context, snapshot model.VivariumSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	byGen, ok := s.snapshots[snapshot.RunID]
	if !ok {
		byGen = make(map[int]model.VivariumSnapshot)
		s.snapshots[snapshot.RunID] = byGen
	}
	byGen[snapshot.Generation] = copySnapshot(snapshot)
	return nil
}

func (s *MemoryStore) GetSnapshot(_ context.Context, runID string, generation int) (model.VivariumSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.VivariumSnapshot{}, false, errNotInitialized
	}
	snapshot, ok := s.snapshots[runID][generation]
	if !ok {
		return model.VivariumSnapshot{}, false, nil
	}
	return copySnapshot(snapshot), true, nil
}

func (s *MemoryStore) LatestSnapshot(_ context.Context, runID string) (model.VivariumSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.VivariumSnapshot{}, false, errNotInitialized
	}
	byGen := s.snapshots[runID]
	if len(byGen) == 0 {
		return model.VivariumSnapshot{}, false, nil
	}
	latest := -1
	for gen := range byGen {
		latest = max(latest, gen)
	}
	return copySnapshot(byGen[latest]), true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errNotInitialized
	}
	seen := make(map[string]struct{}, len(s.history)+len(s.snapshots))
	for id := range s.history {
		seen[id] = struct{}{}
	}
	for id := range s.snapshots {
		seen[id] = struct{}{}
	}
	runs := make([]string, 0, len(seen))
	for id := range seen {
		runs = append(runs, id)
	}
	slices.Sort(runs)
	return runs, nil
}

func copyHistoryRecord(r model.HistoryRecord) model.HistoryRecord {
	r.Parents = slices.Clone(r.Parents)
	if r.Fitness != nil {
		v := *r.Fitness
		r.Fitness = &v
	}
	return r
}

func copySnapshot(s model.VivariumSnapshot) model.VivariumSnapshot {
	demes := make([]model.DemeSnapshot, len(s.Demes))
	for i, d := range s.Demes {
		inds := make([]model.IndividualRecord, len(d.Individuals))
		for j, ind := range d.Individuals {
			ind.Genome = slices.Clone(ind.Genome)
			if ind.Fitness != nil {
				v := *ind.Fitness
				ind.Fitness = &v
			}
			inds[j] = ind
		}
		demes[i] = model.DemeSnapshot{Individuals: inds, Stats: d.Stats}
	}
	s.Demes = demes
	return s
}
