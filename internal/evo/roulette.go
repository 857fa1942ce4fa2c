package evo

import (
	"sort"

	"vivarium/internal/model"
	"vivarium/internal/rng"
)

// Roulette picks an index with probability proportional to its weight.
type Roulette struct {
	cum []float64
}

func (r *Roulette) Insert(weight float64) {
	if weight < 0 {
		weight = 0
	}
	total := r.Total()
	r.cum = append(r.cum, total+weight)
}

func (r *Roulette) Len() int { return len(r.cum) }

func (r *Roulette) Total() float64 {
	if len(r.cum) == 0 {
		return 0
	}
	return r.cum[len(r.cum)-1]
}

// Select draws one index. With an all-zero wheel every slot is equally
// likely.
func (r *Roulette) Select(rnd rng.Randomizer) (int, error) {
	if len(r.cum) == 0 {
		return 0, model.ErrEmptyPool
	}
	total := r.Total()
	if total <= 0 {
		return rnd.RollInteger(0, len(r.cum)-1), nil
	}
	u := rnd.RollUniform(0, total)
	i := sort.Search(len(r.cum), func(i int) bool { return r.cum[i] > u })
	if i == len(r.cum) {
		i--
	}
	return i, nil
}
