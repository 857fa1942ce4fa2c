package replacement

import (
	"context"
	"fmt"
	"math"

	"vivarium/internal/evo"
	"vivarium/internal/model"
)

// OneCommaLambdaConfig configures the self-adaptive (1,lambda) strategy.
type OneCommaLambdaConfig struct {
	LambdaInit int
	LambdaMin  int
	LambdaMax  int
	// Factor in (0,1) scales lambda down on too many successes and up
	// (by its inverse) on none.
	Factor float64
}

func DefaultOneCommaLambdaConfig() OneCommaLambdaConfig {
	return OneCommaLambdaConfig{LambdaInit: 5, LambdaMin: 2, LambdaMax: 200, Factor: 0.9}
}

// OneCommaLambda evolves demes of exactly one individual, replacing the
// parent by the best of lambda offspring. Lambda adapts per deme so that
// about one offspring per generation beats its parent.
type OneCommaLambda struct {
	breeder
	cfg     OneCommaLambdaConfig
	lambdas map[int]int
}

func NewOneCommaLambda(tree *evo.Tree, cfg OneCommaLambdaConfig) (*OneCommaLambda, error) {
	if cfg.LambdaMin < 1 {
		return nil, fmt.Errorf("%w: minimum lambda must be >= 1, got %d", model.ErrValidation, cfg.LambdaMin)
	}
	if cfg.LambdaMax < cfg.LambdaMin {
		return nil, fmt.Errorf("%w: maximum lambda %d below minimum %d", model.ErrValidation, cfg.LambdaMax, cfg.LambdaMin)
	}
	if cfg.Factor <= 0 || cfg.Factor >= 1 {
		return nil, fmt.Errorf("%w: lambda adaptation factor must be in (0,1), got %g", model.ErrValidation, cfg.Factor)
	}
	return &OneCommaLambda{
		breeder: breeder{name: "one-comma-lambda-adapted", tree: tree},
		cfg:     cfg,
		lambdas: make(map[int]int),
	}, nil
}

func (s *OneCommaLambda) Name() string { return s.name }

func (s *OneCommaLambda) clamp(l int) int {
	return min(max(l, s.cfg.LambdaMin), s.cfg.LambdaMax)
}

// Lambda is the current offspring count of deme di.
func (s *OneCommaLambda) Lambda(di int) int {
	if l, ok := s.lambdas[di]; ok {
		return l
	}
	return s.clamp(s.cfg.LambdaInit)
}

func (s *OneCommaLambda) Operate(ctx context.Context, ec *evo.Context) error {
	deme := ec.Deme
	if deme.Len() != 1 {
		return fmt.Errorf("%s: %w: need exactly one individual, have %d", s.name, model.ErrDemeShape, deme.Len())
	}
	w, err := s.buildWheel(ec)
	if err != nil {
		return err
	}

	parent := deme.Individuals[0]
	lambda := s.Lambda(ec.DemeIndex)
	var best *model.Individual
	better := 0
	for i := 0; i < lambda; i++ {
		child, err := w.breedOne(ctx, deme.Individuals, ec)
		if err != nil {
			return err
		}
		if !child.Evaluated() {
			return fmt.Errorf("%s: %w: offspring must be evaluated", s.name, model.ErrInvalidFitness)
		}
		if best == nil || best.Less(child) {
			best = child
		}
		if parent.Less(child) {
			better++
		}
	}

	next := lambda
	switch {
	case better > 1:
		next = int(math.Floor(float64(lambda) * s.cfg.Factor))
		if next == lambda {
			next--
		}
	case better == 0:
		next = int(math.Ceil(float64(lambda) / s.cfg.Factor))
		if next == lambda {
			next++
		}
	}
	next = s.clamp(next)
	if next != lambda {
		ec.Logger().Debug("adapted lambda", "deme", ec.DemeIndex, "better", better, "from", lambda, "to", next)
	}
	s.lambdas[ec.DemeIndex] = next
	ec.System.Metrics.Lambda(ec.DemeIndex, next)

	deme.Individuals[0] = best
	finish(ec, s.name, lambda)
	return nil
}
