package replacement

import (
	"context"
	"fmt"

	"vivarium/internal/evo"
	"vivarium/internal/model"
)

// MuLambdaConfig configures (mu,lambda) and (mu+lambda).
type MuLambdaConfig struct {
	// Ratio is lambda/mu; it must be >= 1.
	Ratio float64
	// Elitism copies of the best parents join the (mu,lambda) candidates.
	Elitism int
	// PopSizes is the per-deme target used when no breeder tree is attached.
	PopSizes []int
}

// MuLambda implements both truncation strategies. Without a breeder tree
// it only shrinks the deme to its configured size.
type MuLambda struct {
	breeder
	cfg  MuLambdaConfig
	plus bool
}

func newMuLambda(name string, tree *evo.Tree, cfg MuLambdaConfig, plus bool) (*MuLambda, error) {
	if cfg.Ratio < 1 {
		return nil, fmt.Errorf("%w: %s ratio must be >= 1, got %g", model.ErrValidation, name, cfg.Ratio)
	}
	if err := validateElitism(name, cfg.Elitism); err != nil {
		return nil, err
	}
	return &MuLambda{breeder: breeder{name: name, tree: tree}, cfg: cfg, plus: plus}, nil
}

// NewMuCommaLambda keeps only offspring, plus elite copies.
func NewMuCommaLambda(tree *evo.Tree, cfg MuLambdaConfig) (*MuLambda, error) {
	return newMuLambda("mu-comma-lambda", tree, cfg, false)
}

// NewMuPlusLambda keeps parents and offspring in the truncation pool.
func NewMuPlusLambda(tree *evo.Tree, cfg MuLambdaConfig) (*MuLambda, error) {
	return newMuLambda("mu-plus-lambda", tree, cfg, true)
}

func (s *MuLambda) Name() string { return s.name }

// Lambda is the offspring count for mu parents.
func (s *MuLambda) Lambda(mu int) int {
	return ceilCount(s.cfg.Ratio * float64(mu))
}

func (s *MuLambda) Operate(ctx context.Context, ec *evo.Context) error {
	deme := ec.Deme
	if s.tree != nil {
		if err := checkElitism(s.name, s.cfg.Elitism, deme.Len()); err != nil {
			return err
		}
	}
	if deme.Len() == 0 {
		ec.Logger().Warn("deme is empty, nothing to replace", "strategy", s.name, "deme", ec.DemeIndex)
		return nil
	}
	if s.tree == nil {
		return s.shrink(ec)
	}
	w, err := s.buildWheel(ec)
	if err != nil {
		return err
	}

	pool := deme.Individuals
	mu := len(pool)
	offspring, err := w.breedN(ctx, s.Lambda(mu), pool, ec)
	if err != nil {
		return err
	}

	var candidates []*model.Individual
	if s.plus {
		candidates = append(append(candidates, pool...), offspring...)
	} else {
		candidates = append(eliteClones(s.name, pool, s.cfg.Elitism, ec), offspring...)
	}

	if !model.AllEvaluated(candidates) {
		// left for evaluation before a second pass truncates
		ec.Logger().Debug("candidates not evaluated, skipping truncation",
			"strategy", s.name, "deme", ec.DemeIndex, "candidates", len(candidates))
		deme.Individuals = candidates
		finish(ec, s.name, len(offspring))
		return nil
	}
	kept, err := keepBest(candidates, mu)
	if err != nil {
		return err
	}
	deme.Individuals = kept
	finish(ec, s.name, len(offspring))
	return nil
}

func (s *MuLambda) shrink(ec *evo.Context) error {
	deme := ec.Deme
	target, err := targetSize(s.name, s.cfg.PopSizes, ec.DemeIndex)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrNoBreederTree, err)
	}
	if deme.Len() <= target {
		if deme.Len() < target {
			ec.Logger().Warn("deme smaller than configured size and no breeder tree to grow it",
				"strategy", s.name, "deme", ec.DemeIndex, "size", deme.Len(), "target", target)
		}
		return nil
	}
	kept, err := keepBest(deme.Individuals, target)
	if err != nil {
		return err
	}
	deme.Individuals = kept
	finish(ec, s.name, 0)
	return nil
}
