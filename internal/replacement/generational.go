package replacement

import (
	"context"

	"vivarium/internal/evo"
	"vivarium/internal/model"
)

// Generational rebuilds the whole deme each generation. The elitism best
// individuals are carried over as copies; every other slot is bred.
type Generational struct {
	breeder
	elitism int
}

func NewGenerational(tree *evo.Tree, elitism int) (*Generational, error) {
	if err := validateElitism("generational", elitism); err != nil {
		return nil, err
	}
	return &Generational{breeder: breeder{name: "generational", tree: tree}, elitism: elitism}, nil
}

func (s *Generational) Name() string { return s.name }

func (s *Generational) Operate(ctx context.Context, ec *evo.Context) error {
	deme := ec.Deme
	if err := checkElitism(s.name, s.elitism, deme.Len()); err != nil {
		return err
	}
	w, err := s.buildWheel(ec)
	if err != nil {
		return err
	}

	pool := deme.Individuals
	next := make([]*model.Individual, 0, len(pool))
	next = append(next, eliteClones(s.name, pool, s.elitism, ec)...)
	offspring, err := w.breedN(ctx, len(pool)-s.elitism, pool, ec)
	if err != nil {
		return err
	}
	deme.Individuals = append(next, offspring...)
	finish(ec, s.name, len(offspring))
	return nil
}

// SteadyState keeps the elitism best individuals where they are and
// overwrites the other slots, in random order, with offspring bred from
// the deme as it is being rewritten.
type SteadyState struct {
	breeder
	elitism int
}

func NewSteadyState(tree *evo.Tree, elitism int) (*SteadyState, error) {
	if err := validateElitism("steady-state", elitism); err != nil {
		return nil, err
	}
	return &SteadyState{breeder: breeder{name: "steady-state", tree: tree}, elitism: elitism}, nil
}

func (s *SteadyState) Name() string { return s.name }

func (s *SteadyState) Operate(ctx context.Context, ec *evo.Context) error {
	deme := ec.Deme
	if err := checkElitism(s.name, s.elitism, deme.Len()); err != nil {
		return err
	}
	w, err := s.buildWheel(ec)
	if err != nil {
		return err
	}

	ranked := model.BestIndices(deme.Individuals)
	for _, idx := range ranked[:s.elitism] {
		elite := deme.Individuals[idx]
		ec.Trace(elite, s.name, "elitism", parentIDsOf(elite)...)
	}
	slots := append([]int(nil), ranked[s.elitism:]...)
	ec.Rand.Shuffle(len(slots), func(i, j int) { slots[i], slots[j] = slots[j], slots[i] })

	for _, slot := range slots {
		if err := ctx.Err(); err != nil {
			return err
		}
		child, err := w.breedOne(ctx, deme.Individuals, ec)
		if err != nil {
			return err
		}
		deme.Individuals[slot] = child
	}
	finish(ec, s.name, len(slots))
	return nil
}
