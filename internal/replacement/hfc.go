package replacement

import (
	"context"
	"fmt"
	"math"

	"vivarium/internal/evo"
	"vivarium/internal/model"
)

// HFCConfig configures hierarchical fair competition.
type HFCConfig struct {
	// Percentile in [0,1) places each deme's admission threshold.
	Percentile float64
	// Interval is the generation period of exchanges; 0 disables them.
	Interval int
	// PopSizes is the target size of every deme, and its length fixes the
	// number of levels.
	PopSizes []int
}

func DefaultHFCConfig(popSizes []int) HFCConfig {
	return HFCConfig{Percentile: 0.85, Interval: 1, PopSizes: popSizes}
}

// HFC arranges demes as a chain of fitness levels. Each deme above the
// first publishes an admission threshold; individuals of the level below
// that reach it move up. Demes are refilled by breeding or trimmed of
// their worst to stay at their target size.
type HFC struct {
	breeder
	cfg        HFCConfig
	thresholds []model.Fitness
}

func NewHFC(tree *evo.Tree, cfg HFCConfig) (*HFC, error) {
	if cfg.Percentile < 0 || cfg.Percentile >= 1 {
		return nil, fmt.Errorf("%w: hfc percentile must be in [0,1), got %g", model.ErrValidation, cfg.Percentile)
	}
	if cfg.Interval < 0 {
		return nil, fmt.Errorf("%w: hfc interval must be >= 0, got %d", model.ErrValidation, cfg.Interval)
	}
	if len(cfg.PopSizes) == 0 {
		return nil, fmt.Errorf("%w: hfc needs a population size per deme", model.ErrValidation)
	}
	return &HFC{breeder: breeder{name: "hfc", tree: tree}, cfg: cfg}, nil
}

func (s *HFC) Name() string { return s.name }

// Threshold returns the admission threshold into deme di, nil if unset.
func (s *HFC) Threshold(di int) model.Fitness {
	if di < 1 || di-1 >= len(s.thresholds) {
		return nil
	}
	return s.thresholds[di-1]
}

func (s *HFC) Operate(ctx context.Context, ec *evo.Context) error {
	levels := len(s.cfg.PopSizes)
	if ec.Generation == 0 {
		s.thresholds = nil
	}
	if len(s.thresholds) != levels-1 {
		s.thresholds = make([]model.Fitness, max(levels-1, 0))
	}

	deme := ec.Deme
	di := ec.DemeIndex
	if deme.Len() == 0 || levels < 2 || s.cfg.Interval == 0 || ec.Generation%s.cfg.Interval != 0 {
		return nil
	}
	if di >= levels {
		return fmt.Errorf("%s: no population size configured for deme %d", s.name, di)
	}
	ec.Logger().Debug("applying hfc exchange", "deme", di, "generation", ec.Generation)

	changed := false

	if di > 0 {
		if err := s.updateThreshold(ec); err != nil {
			return err
		}
		if n := deme.Buffer.Immigrants(); n > 0 {
			slots := make([]int, n)
			for i := range slots {
				slots[i] = deme.Len() + i
			}
			deme.Individuals = append(deme.Individuals, make([]*model.Individual, n)...)
			if err := deme.Buffer.InsertReplaced(slots, deme); err != nil {
				return err
			}
			changed = true
		}
	}

	if di < levels-1 && s.thresholds[di] != nil {
		moved, err := s.promote(ec)
		if err != nil {
			return err
		}
		changed = changed || moved
	}

	target := s.cfg.PopSizes[di]
	if deme.Len() < target {
		w, err := s.buildWheel(ec)
		if err != nil {
			return err
		}
		offspring, err := w.breedN(ctx, target-deme.Len(), deme.Individuals, ec)
		if err != nil {
			return err
		}
		deme.Individuals = append(deme.Individuals, offspring...)
		ec.System.Metrics.Offspring(s.name, len(offspring))
		changed = true
	}
	if deme.Len() > target {
		kept, err := keepBest(deme.Individuals, target)
		if err != nil {
			return err
		}
		deme.Individuals = kept
		changed = true
	}

	if changed {
		deme.InvalidateStats()
		if ec.Vivarium != nil {
			ec.Vivarium.InvalidateStats()
		}
		ec.System.Metrics.DemeSize(di, deme.Len())
	}
	return nil
}

// updateThreshold stores the fitness found at the configured percentile
// of the deme as the admission threshold from the level below.
func (s *HFC) updateThreshold(ec *evo.Context) error {
	pool := ec.Deme.Individuals
	if !model.AllEvaluated(pool) {
		return fmt.Errorf("%s: %w: thresholds need evaluated individuals", s.name, model.ErrInvalidFitness)
	}
	ranked := model.BestIndices(pool)
	at := int(math.Ceil((1 - s.cfg.Percentile) * float64(len(pool)-1)))
	s.thresholds[ec.DemeIndex-1] = pool[ranked[at]].Fitness.Clone()
	return nil
}

// promote moves every individual at or above the next level's threshold
// into the next deme.
func (s *HFC) promote(ec *evo.Context) (bool, error) {
	deme := ec.Deme
	threshold := s.thresholds[ec.DemeIndex]
	var leaving []int
	staying := make([]*model.Individual, 0, deme.Len())
	for i, ind := range deme.Individuals {
		if ind.Fitness != nil && !ind.Fitness.Less(threshold) && ind.Evaluated() {
			leaving = append(leaving, i)
		} else {
			staying = append(staying, ind)
		}
	}
	if len(leaving) == 0 {
		return false, nil
	}
	next := ec.Vivarium.Demes[ec.DemeIndex+1]
	err := deme.Buffer.InsertEmigrants(leaving, deme, func(src, dup *model.Individual) {
		ec.Trace(dup, s.name, "migration", parentIDsOf(src)...)
	})
	if err != nil {
		return false, err
	}
	if err := deme.Buffer.MoveMigrants(len(leaving), next); err != nil {
		return false, err
	}
	deme.Individuals = staying
	ec.System.Metrics.Migrants(ec.DemeIndex, ec.DemeIndex+1, len(leaving))
	return true, nil
}
