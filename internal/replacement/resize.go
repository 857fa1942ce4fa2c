package replacement

import (
	"context"
	"fmt"

	"vivarium/internal/evo"
	"vivarium/internal/model"
)

// FromTable selects the per-deme population size table instead of a ratio.
const FromTable = -1.0

// OversizeConfig configures deme growth.
type OversizeConfig struct {
	// Ratio >= 1 grows the deme to ceil(Ratio*size). FromTable grows it to
	// PopSizes[deme].
	Ratio    float64
	PopSizes []int
}

// Oversize appends offspring to the deme, leaving the parents in place.
type Oversize struct {
	breeder
	cfg OversizeConfig
}

func NewOversize(tree *evo.Tree, cfg OversizeConfig) (*Oversize, error) {
	if cfg.Ratio != FromTable && cfg.Ratio < 1 {
		return nil, fmt.Errorf("%w: oversize ratio must be >= 1 or %g, got %g", model.ErrValidation, FromTable, cfg.Ratio)
	}
	return &Oversize{breeder: breeder{name: "oversize", tree: tree}, cfg: cfg}, nil
}

func (s *Oversize) Name() string { return s.name }

func (s *Oversize) target(ec *evo.Context) (int, error) {
	size := ec.Deme.Len()
	if s.cfg.Ratio != FromTable {
		return ceilCount(s.cfg.Ratio * float64(size)), nil
	}
	target, err := targetSize(s.name, s.cfg.PopSizes, ec.DemeIndex)
	if err != nil {
		return 0, err
	}
	if target < size {
		return 0, fmt.Errorf("%s: %w: configured size %d of deme %d is smaller than its current size %d",
			s.name, model.ErrDemeShape, target, ec.DemeIndex, size)
	}
	return target, nil
}

func (s *Oversize) Operate(ctx context.Context, ec *evo.Context) error {
	deme := ec.Deme
	target, err := s.target(ec)
	if err != nil {
		return err
	}
	w, err := s.buildWheel(ec)
	if err != nil {
		return err
	}
	pool := deme.Individuals
	offspring, err := w.breedN(ctx, target-len(pool), pool, ec)
	if err != nil {
		return err
	}
	deme.Individuals = append(deme.Individuals, offspring...)
	finish(ec, s.name, len(offspring))
	return nil
}

// DecimateConfig configures deme truncation.
type DecimateConfig struct {
	// Ratio in [0,1] keeps ceil(Ratio*size) individuals. FromTable keeps
	// PopSizes[deme].
	Ratio    float64
	PopSizes []int
}

// Decimate keeps the best individuals of the deme and drops the rest.
type Decimate struct {
	name string
	cfg  DecimateConfig
}

func NewDecimate(cfg DecimateConfig) (*Decimate, error) {
	if cfg.Ratio != FromTable && (cfg.Ratio < 0 || cfg.Ratio > 1) {
		return nil, fmt.Errorf("%w: decimation ratio must be in [0,1] or %g, got %g", model.ErrValidation, FromTable, cfg.Ratio)
	}
	return &Decimate{name: "decimate", cfg: cfg}, nil
}

func (s *Decimate) Name() string { return s.name }

func (s *Decimate) target(ec *evo.Context) (int, error) {
	size := ec.Deme.Len()
	if s.cfg.Ratio == FromTable {
		return targetSize(s.name, s.cfg.PopSizes, ec.DemeIndex)
	}
	mu := ceilCount(s.cfg.Ratio * float64(size))
	if ec.DemeIndex < len(s.cfg.PopSizes) {
		// rounding noise around the configured size snaps onto it
		if want := s.cfg.PopSizes[ec.DemeIndex]; mu-want >= -1 && mu-want <= 1 {
			mu = want
		}
	}
	return mu, nil
}

func (s *Decimate) Operate(_ context.Context, ec *evo.Context) error {
	deme := ec.Deme
	mu, err := s.target(ec)
	if err != nil {
		return err
	}
	if mu > deme.Len() {
		ec.Logger().Warn("decimation target exceeds deme size, nothing to drop",
			"deme", ec.DemeIndex, "size", deme.Len(), "target", mu)
		return nil
	}
	if mu == deme.Len() {
		return nil
	}
	kept, err := keepBest(deme.Individuals, mu)
	if err != nil {
		return err
	}
	deme.Individuals = kept
	finish(ec, s.name, 0)
	return nil
}

// Sequence runs strategies one after another on the same deme, for
// instance Oversize then Decimate.
type Sequence struct {
	name  string
	steps []Strategy
}

func NewSequence(name string, steps ...Strategy) (*Sequence, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: strategy sequence %s is empty", model.ErrValidation, name)
	}
	return &Sequence{name: name, steps: steps}, nil
}

func (s *Sequence) Name() string { return s.name }

func (s *Sequence) Operate(ctx context.Context, ec *evo.Context) error {
	for _, step := range s.steps {
		if err := step.Operate(ctx, ec); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}
