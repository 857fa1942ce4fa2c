// Package rng provides the injectable random source used by every
// stochastic operator.
package rng

import (
	"math"
	"math/rand/v2"
)

// Randomizer is the random stream an evolutionary context carries.
// Implementations are not safe for concurrent use; parallel tasks take
// their own stream through Split.
type Randomizer interface {
	// RollUniform returns a value in [lo, hi).
	RollUniform(lo, hi float64) float64
	// RollInteger returns a value in [lo, hi], both inclusive.
	RollInteger(lo, hi int) int
	RollGaussian(mean, stddev float64) float64
	Shuffle(n int, swap func(i, j int))
	// Split derives an independent stream. The result is a deterministic
	// function of the parent's state.
	Split() Randomizer
}

// Source is a PCG-backed Randomizer.
type Source struct {
	r *rand.Rand
}

func New(seed uint64) *Source {
	return &Source{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *Source) RollUniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + s.r.Float64()*(hi-lo)
}

func (s *Source) RollInteger(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.r.IntN(hi-lo+1)
}

func (s *Source) RollGaussian(mean, stddev float64) float64 {
	return mean + s.r.NormFloat64()*math.Abs(stddev)
}

func (s *Source) Shuffle(n int, swap func(i, j int)) {
	s.r.Shuffle(n, swap)
}

func (s *Source) Split() Randomizer {
	return &Source{r: rand.New(rand.NewPCG(s.r.Uint64(), s.r.Uint64()))}
}

// Uint64 exposes raw bits for callers that need a seed.
func (s *Source) Uint64() uint64 {
	return s.r.Uint64()
}
