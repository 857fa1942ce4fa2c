package evo

import (
	"fmt"

	"vivarium/internal/model"
)

// Selector chooses individuals from a pool.
type Selector interface {
	Name() string
	SelectOne(pool []*model.Individual, ec *Context) (int, error)
	// SelectMany returns one count per pool slot; the counts sum to n.
	SelectMany(n int, pool []*model.Individual, ec *Context) ([]int, error)
}

// ConvertToList expands per-slot counts into a list of n indices.
func ConvertToList(n int, counts []int) ([]int, error) {
	list := make([]int, 0, n)
	for idx, c := range counts {
		for j := 0; j < c; j++ {
			list = append(list, idx)
		}
	}
	if len(list) != n {
		return nil, fmt.Errorf("%w: expected %d, counted %d", model.ErrSelectionCount, n, len(list))
	}
	return list, nil
}

// selectManyByOne repeats SelectOne n times.
func selectManyByOne(s Selector, n int, pool []*model.Individual, ec *Context) ([]int, error) {
	counts := make([]int, len(pool))
	if n <= 0 {
		return counts, nil
	}
	if len(pool) == 0 {
		return nil, model.ErrEmptyPool
	}
	for i := 0; i < n; i++ {
		idx, err := s.SelectOne(pool, ec)
		if err != nil {
			return nil, err
		}
		counts[idx]++
	}
	return counts, nil
}

// BestSelector picks the fittest individuals in order, wrapping around
// the pool when more are asked than exist.
type BestSelector struct{}

func (BestSelector) Name() string { return "best" }

func (BestSelector) SelectOne(pool []*model.Individual, _ *Context) (int, error) {
	if len(pool) == 0 {
		return 0, model.ErrEmptyPool
	}
	best := 0
	for i := 1; i < len(pool); i++ {
		if pool[best].Less(pool[i]) {
			best = i
		}
	}
	return best, nil
}

func (BestSelector) SelectMany(n int, pool []*model.Individual, ec *Context) ([]int, error) {
	return selectRanked(n, pool, ec, model.BestIndices(pool), "best")
}

// WorstSelector is the mirror of BestSelector.
type WorstSelector struct{}

func (WorstSelector) Name() string { return "worst" }

func (WorstSelector) SelectOne(pool []*model.Individual, _ *Context) (int, error) {
	if len(pool) == 0 {
		return 0, model.ErrEmptyPool
	}
	worst := 0
	for i := 1; i < len(pool); i++ {
		if pool[i].Less(pool[worst]) {
			worst = i
		}
	}
	return worst, nil
}

func (WorstSelector) SelectMany(n int, pool []*model.Individual, ec *Context) ([]int, error) {
	ranked := model.BestIndices(pool)
	for i, j := 0, len(ranked)-1; i < j; i, j = i+1, j-1 {
		ranked[i], ranked[j] = ranked[j], ranked[i]
	}
	return selectRanked(n, pool, ec, ranked, "worst")
}

func selectRanked(n int, pool []*model.Individual, ec *Context, ranked []int, name string) ([]int, error) {
	counts := make([]int, len(pool))
	if n <= 0 {
		return counts, nil
	}
	if len(pool) == 0 {
		return nil, model.ErrEmptyPool
	}
	if n%len(pool) == 0 {
		ec.Logger().Warn("selection has no pressure: request is a multiple of the pool size",
			"selector", name, "requested", n, "pool", len(pool))
	}
	for i := 0; i < n; i++ {
		counts[ranked[i%len(ranked)]]++
	}
	return counts, nil
}

// RandomSelector picks uniformly, with replacement.
type RandomSelector struct{}

func (RandomSelector) Name() string { return "random" }

func (RandomSelector) SelectOne(pool []*model.Individual, ec *Context) (int, error) {
	if len(pool) == 0 {
		return 0, model.ErrEmptyPool
	}
	return ec.Rand.RollInteger(0, len(pool)-1), nil
}

func (s RandomSelector) SelectMany(n int, pool []*model.Individual, ec *Context) ([]int, error) {
	return selectManyByOne(s, n, pool, ec)
}

// UniqueRandomSelector picks distinct slots uniformly. It is the default
// emigrant selector.
type UniqueRandomSelector struct{}

func (UniqueRandomSelector) Name() string { return "unique-random" }

func (UniqueRandomSelector) SelectOne(pool []*model.Individual, ec *Context) (int, error) {
	return RandomSelector{}.SelectOne(pool, ec)
}

func (UniqueRandomSelector) SelectMany(n int, pool []*model.Individual, ec *Context) ([]int, error) {
	counts := make([]int, len(pool))
	if n <= 0 {
		return counts, nil
	}
	if n > len(pool) {
		return nil, fmt.Errorf("%w: need %d distinct, pool has %d", model.ErrInsufficientCandidates, n, len(pool))
	}
	perm := make([]int, len(pool))
	for i := range perm {
		perm[i] = i
	}
	ec.Rand.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
	for _, idx := range perm[:n] {
		counts[idx] = 1
	}
	return counts, nil
}

// RouletteSelector picks with probability proportional to fitness. It
// needs valid, non-negative scalar fitness on every individual.
type RouletteSelector struct{}

func (RouletteSelector) Name() string { return "roulette" }

func (s RouletteSelector) wheel(pool []*model.Individual) (*Roulette, error) {
	if len(pool) == 0 {
		return nil, model.ErrEmptyPool
	}
	wheel := &Roulette{}
	for i, ind := range pool {
		if ind.Fitness == nil {
			return nil, fmt.Errorf("%w: slot %d", model.ErrMissingFitness, i)
		}
		v, ok := ind.ScalarFitness()
		if !ok {
			if !ind.Fitness.Valid() {
				return nil, fmt.Errorf("%w: slot %d", model.ErrInvalidFitness, i)
			}
			return nil, fmt.Errorf("%w: roulette needs a scalar fitness", model.ErrUnsupportedFitness)
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: roulette needs non-negative fitness, slot %d has %g", model.ErrUnsupportedFitness, i, v)
		}
		wheel.Insert(v)
	}
	return wheel, nil
}

func (s RouletteSelector) SelectOne(pool []*model.Individual, ec *Context) (int, error) {
	wheel, err := s.wheel(pool)
	if err != nil {
		return 0, err
	}
	return wheel.Select(ec.Rand)
}

func (s RouletteSelector) SelectMany(n int, pool []*model.Individual, ec *Context) ([]int, error) {
	counts := make([]int, len(pool))
	if n <= 0 {
		return counts, nil
	}
	wheel, err := s.wheel(pool)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		idx, err := wheel.Select(ec.Rand)
		if err != nil {
			return nil, err
		}
		counts[idx]++
	}
	return counts, nil
}

// TournamentSelector keeps the better of successive uniform draws.
type TournamentSelector struct {
	participants int
	better       func(challenger, holder *model.Individual) bool
	name         string
}

func newTournament(name string, participants int, better func(challenger, holder *model.Individual) bool) (*TournamentSelector, error) {
	if participants < 1 {
		return nil, fmt.Errorf("%w: %s participants must be >= 1, got %d", model.ErrValidation, name, participants)
	}
	return &TournamentSelector{participants: participants, better: better, name: name}, nil
}

func NewTournamentSelector(participants int) (*TournamentSelector, error) {
	return newTournament("tournament", participants, func(c, h *model.Individual) bool {
		return h.Less(c)
	})
}

// NewParsimonyTournamentSelector breaks exact fitness ties in favor of
// the smaller genome.
func NewParsimonyTournamentSelector(participants int) (*TournamentSelector, error) {
	return newTournament("parsimony-tournament", participants, func(c, h *model.Individual) bool {
		if h.Less(c) {
			return true
		}
		return h.Equal(c) && c.Size() < h.Size()
	})
}

// NewWorstTournamentSelector keeps the worse competitor each round.
func NewWorstTournamentSelector(participants int) (*TournamentSelector, error) {
	return newTournament("worst-tournament", participants, func(c, h *model.Individual) bool {
		return c.Less(h)
	})
}

func (s *TournamentSelector) Name() string { return s.name }

func (s *TournamentSelector) Participants() int { return s.participants }

func (s *TournamentSelector) SelectOne(pool []*model.Individual, ec *Context) (int, error) {
	if len(pool) == 0 {
		return 0, model.ErrEmptyPool
	}
	holder := ec.Rand.RollInteger(0, len(pool)-1)
	for i := 1; i < s.participants; i++ {
		challenger := ec.Rand.RollInteger(0, len(pool)-1)
		if s.better(pool[challenger], pool[holder]) {
			holder = challenger
		}
	}
	return holder, nil
}

func (s *TournamentSelector) SelectMany(n int, pool []*model.Individual, ec *Context) ([]int, error) {
	return selectManyByOne(s, n, pool, ec)
}
