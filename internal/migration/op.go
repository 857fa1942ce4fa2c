package migration

import (
	"context"
	"fmt"
	"log/slog"

	"vivarium/internal/evo"
	"vivarium/internal/model"
)

// Config holds the settings shared by every migration operator.
type Config struct {
	// Interval is the generation period of migration events; 0 disables
	// migration.
	Interval int
	// Selector picks emigrants. Nil means distinct uniform picks.
	Selector evo.Selector
	// Replacement picks the slots immigrants overwrite. Nil reuses the
	// emigrant slots.
	Replacement evo.Selector
}

// Op migrates individuals of one deme along a fixed topology.
type Op struct {
	name     string
	cfg      Config
	topology Topology
}

// NewMapOp migrates along an arbitrary table, validated here.
func NewMapOp(table Topology, cfg Config) (*Op, error) {
	return newOp("migration-map", table, cfg)
}

// NewRingOp builds a ring over demes demes.
func NewRingOp(demes, migrants int, cfg Config) (*Op, error) {
	t, err := RingTopology(demes, migrants)
	if err != nil {
		return nil, err
	}
	return newOp("migration-ring", t, cfg)
}

// NewGridOp builds a grid over demes demes.
func NewGridOp(demes int, grid GridConfig, cfg Config, logger *slog.Logger) (*Op, error) {
	t, err := GridTopology(demes, grid, logger)
	if err != nil {
		return nil, err
	}
	return newOp("migration-grid", t, cfg)
}

func newOp(name string, t Topology, cfg Config) (*Op, error) {
	if err := t.Validate(len(t)); err != nil {
		return nil, err
	}
	if cfg.Interval < 0 {
		return nil, fmt.Errorf("%w: migration interval must be >= 0, got %d", model.ErrValidation, cfg.Interval)
	}
	if cfg.Selector == nil {
		cfg.Selector = evo.UniqueRandomSelector{}
	}
	return &Op{name: name, cfg: cfg, topology: t}, nil
}

func (op *Op) Name() string       { return op.name }
func (op *Op) Topology() Topology { return op.topology }

// Due reports whether generation is a migration generation.
func (op *Op) Due(generation int) bool {
	return generation > 0 && op.cfg.Interval > 0 && generation%op.cfg.Interval == 0
}

// Operate runs Migrate for ec.Deme when a migration event is due.
func (op *Op) Operate(ctx context.Context, ec *evo.Context) error {
	if ec.Vivarium == nil || len(ec.Vivarium.Demes) < 2 || !op.Due(ec.Generation) {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return op.Migrate(ec)
}

// Migrate sends the deme's outgoing row: it selects emigrants, queues
// them with the slots to vacate, and moves them into each destination's
// buffer, merging wherever a slot is already pending.
func (op *Op) Migrate(ec *evo.Context) error {
	demes := ec.Vivarium.Demes
	if len(demes) != len(op.topology) {
		return fmt.Errorf("%s: topology covers %d demes, vivarium has %d", op.name, len(op.topology), len(demes))
	}
	di := ec.DemeIndex
	deme := ec.Deme
	total := op.topology.Sent(di)
	if total == 0 {
		return nil
	}
	if total > deme.Len() {
		return fmt.Errorf("%s: %w: deme %d must send %d individuals, holds %d",
			op.name, model.ErrTooManyEmigrants, di, total, deme.Len())
	}

	emigrants, err := op.pick(op.cfg.Selector, total, ec)
	if err != nil {
		return err
	}
	vacated := emigrants
	if op.cfg.Replacement != nil {
		if vacated, err = op.pick(op.cfg.Replacement, total, ec); err != nil {
			return err
		}
	}

	err = deme.Buffer.InsertEmigrants(emigrants, deme, func(src, dup *model.Individual) {
		var parents []string
		if src.HistoryID != "" {
			parents = []string{src.HistoryID}
		}
		ec.Trace(dup, op.name, "migration", parents...)
	})
	if err != nil {
		return err
	}
	if err := deme.Buffer.InsertReplaced(vacated, deme); err != nil {
		return err
	}
	for dest, n := range op.topology[di] {
		if n == 0 {
			continue
		}
		if err := deme.Buffer.MoveMigrants(n, demes[dest]); err != nil {
			return fmt.Errorf("%s: deme %d to %d: %w", op.name, di, dest, err)
		}
		demes[dest].InvalidateStats()
		ec.System.Metrics.Migrants(di, dest, n)
	}
	deme.InvalidateStats()
	ec.Vivarium.InvalidateStats()
	ec.Logger().Debug("migrated", "operator", op.name, "deme", di, "emigrants", total,
		"generation", ec.Generation)
	return nil
}

// pick selects n slots of the deme in random order.
func (op *Op) pick(sel evo.Selector, n int, ec *evo.Context) ([]int, error) {
	counts, err := sel.SelectMany(n, ec.Deme.Individuals, ec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op.name, err)
	}
	list, err := evo.ConvertToList(n, counts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op.name, err)
	}
	ec.Rand.Shuffle(len(list), func(i, j int) { list[i], list[j] = list[j], list[i] })
	return list, nil
}
