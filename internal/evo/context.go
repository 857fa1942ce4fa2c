package evo

import (
	"log/slog"

	"vivarium/internal/metrics"
	"vivarium/internal/model"
	"vivarium/internal/rng"
)

// Tracer records provenance. Implementations must be safe for
// concurrent use; parallel tasks call it directly.
type Tracer interface {
	// NewID assigns a fresh provenance ID to ind.
	NewID(ind *model.Individual)
	Trace(generation, deme int, parents []string, ind *model.Individual, op, kind string)
}

// System holds the collaborators shared by every context of a run.
type System struct {
	Logger  *slog.Logger
	History Tracer
	Metrics *metrics.Recorder
	// Workers bounds data-parallel deme operators. Values below 2 run
	// sequentially.
	Workers int
}

func (s *System) logger() *slog.Logger {
	if s == nil || s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

func (s *System) workers() int {
	if s == nil || s.Workers < 1 {
		return 1
	}
	return s.Workers
}

// Context is the evolutionary context threaded through every operator.
// A Context is owned by one goroutine at a time.
type Context struct {
	System   *System
	Rand     rng.Randomizer
	Vivarium *model.Vivarium

	Deme      *model.Deme
	DemeIndex int

	Generation int

	// IndividualIndex is the pool slot of the individual last selected
	// while breeding.
	IndividualIndex int
	Individual      *model.Individual
}

func NewContext(sys *System, r rng.Randomizer, viv *model.Vivarium) *Context {
	if sys == nil {
		sys = &System{}
	}
	return &Context{System: sys, Rand: r, Vivarium: viv}
}

// ForDeme points the context at deme i of the vivarium.
func (c *Context) ForDeme(i int) *Context {
	c.DemeIndex = i
	c.Deme = c.Vivarium.Demes[i]
	c.IndividualIndex = 0
	c.Individual = nil
	return c
}

// Clone copies the context. The copy shares the random stream.
func (c *Context) Clone() *Context {
	cp := *c
	return &cp
}

// Fork copies the context with an independent random stream, for use by
// another goroutine.
func (c *Context) Fork() *Context {
	cp := *c
	cp.Rand = c.Rand.Split()
	return &cp
}

func (c *Context) Logger() *slog.Logger {
	return c.System.logger()
}

// Trace assigns ind a new provenance ID and records the event. It is a
// no-op without a history collaborator.
func (c *Context) Trace(ind *model.Individual, op, kind string, parents ...string) {
	h := c.System.History
	if h == nil || ind == nil {
		return
	}
	h.NewID(ind)
	h.Trace(c.Generation, c.DemeIndex, parents, ind, op, kind)
}

// parentIDs collects non-empty provenance IDs.
func parentIDs(inds ...*model.Individual) []string {
	ids := make([]string, 0, len(inds))
	for _, ind := range inds {
		if ind != nil && ind.HistoryID != "" {
			ids = append(ids, ind.HistoryID)
		}
	}
	return ids
}
