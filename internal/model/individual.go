package model

import "slices"

// Individual is a genome with an optional fitness and provenance tag.
type Individual struct {
	Genome    Genome
	Fitness   Fitness
	HistoryID string
}

func NewIndividual(genome Genome) *Individual {
	return &Individual{Genome: genome}
}

// Clone returns a deep copy; nothing is shared with the receiver.
func (ind *Individual) Clone() *Individual {
	if ind == nil {
		return nil
	}
	c := &Individual{HistoryID: ind.HistoryID}
	if ind.Genome != nil {
		c.Genome = ind.Genome.Clone()
	}
	if ind.Fitness != nil {
		c.Fitness = ind.Fitness.Clone()
	}
	return c
}

// Evaluated reports whether the individual carries a valid fitness.
func (ind *Individual) Evaluated() bool {
	return ind.Fitness != nil && ind.Fitness.Valid()
}

// InvalidateFitness marks the fitness stale after a genome change.
func (ind *Individual) InvalidateFitness() {
	if ind.Fitness != nil {
		ind.Fitness.SetInvalid()
	}
}

// Less reports whether ind is strictly worse than other. Unevaluated
// individuals are never ordered.
func (ind *Individual) Less(other *Individual) bool {
	if !ind.Evaluated() || !other.Evaluated() {
		return false
	}
	return ind.Fitness.Less(other.Fitness)
}

func (ind *Individual) Equal(other *Individual) bool {
	if ind.Fitness == nil || other.Fitness == nil {
		return ind.Fitness == nil && other.Fitness == nil
	}
	return ind.Fitness.Equal(other.Fitness)
}

func (ind *Individual) Size() int {
	if ind.Genome == nil {
		return 0
	}
	return ind.Genome.Size()
}

// ScalarFitness returns the fitness value when the individual is
// evaluated with a scalar fitness.
func (ind *Individual) ScalarFitness() (float64, bool) {
	if !ind.Evaluated() {
		return 0, false
	}
	s, ok := ind.Fitness.(Scalar)
	if !ok {
		return 0, false
	}
	return s.Value(), true
}

func compareBestFirst(a, b *Individual) int {
	switch {
	case b.Less(a):
		return -1
	case a.Less(b):
		return 1
	default:
		return 0
	}
}

// SortBestFirst orders individuals from best to worst. The order among
// equal or unordered fitnesses is left to the stable sort.
func SortBestFirst(inds []*Individual) {
	slices.SortStableFunc(inds, compareBestFirst)
}

func SortWorstFirst(inds []*Individual) {
	slices.SortStableFunc(inds, func(a, b *Individual) int {
		return compareBestFirst(b, a)
	})
}

// BestIndices returns the pool indices ordered best to worst.
func BestIndices(pool []*Individual) []int {
	idx := make([]int, len(pool))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return compareBestFirst(pool[a], pool[b])
	})
	return idx
}

// AllEvaluated reports whether every individual has a valid fitness.
func AllEvaluated(inds []*Individual) bool {
	for _, ind := range inds {
		if !ind.Evaluated() {
			return false
		}
	}
	return true
}

func CloneAll(inds []*Individual) []*Individual {
	out := make([]*Individual, len(inds))
	for i, ind := range inds {
		out[i] = ind.Clone()
	}
	return out
}
