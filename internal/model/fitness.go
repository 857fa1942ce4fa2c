package model

import (
	"fmt"
	"math"
)

// Fitness is a validity flag plus a goodness value. Orderings are only
// defined between two valid fitnesses of the same polarity; every
// comparison involving an invalid value reports false.
type Fitness interface {
	Valid() bool
	SetInvalid()
	// Less reports whether the receiver is strictly worse than other.
	Less(other Fitness) bool
	// Dominated reports whether other is at least as good everywhere and
	// strictly better somewhere. Single-objective values reduce to Less.
	Dominated(other Fitness) bool
	Equal(other Fitness) bool
	Clone() Fitness
}

// Scalar is implemented by fitness types reducible to one number.
// Roulette selection and statistics need it.
type Scalar interface {
	Value() float64
}

// SimpleFitness is a single maximized value.
type SimpleFitness struct {
	value float64
	valid bool
}

func NewSimpleFitness(value float64) *SimpleFitness {
	f := &SimpleFitness{}
	f.SetValue(value)
	return f
}

func (f *SimpleFitness) Value() float64 { return f.value }

// SetValue stores value and marks the fitness valid. Non-finite values
// are pinned to the worst representable score.
func (f *SimpleFitness) SetValue(value float64) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = -math.MaxFloat64
	}
	f.value = value
	f.valid = true
}

func (f *SimpleFitness) Valid() bool { return f.valid }
func (f *SimpleFitness) SetInvalid() { f.valid = false }

func (f *SimpleFitness) Less(other Fitness) bool {
	o, ok := other.(*SimpleFitness)
	if !ok || !f.valid || !o.valid {
		return false
	}
	return f.value < o.value
}

func (f *SimpleFitness) Dominated(other Fitness) bool {
	return f.Less(other)
}

func (f *SimpleFitness) Equal(other Fitness) bool {
	o, ok := other.(*SimpleFitness)
	if !ok {
		return false
	}
	if !f.valid || !o.valid {
		return f.valid == o.valid
	}
	return f.value == o.value
}

func (f *SimpleFitness) Clone() Fitness {
	c := *f
	return &c
}

func (f *SimpleFitness) String() string {
	if !f.valid {
		return "invalid"
	}
	return fmt.Sprintf("%g", f.value)
}

// SimpleMinFitness is a single minimized value. Its Less is the inverse
// of SimpleFitness.Less for the same underlying values.
type SimpleMinFitness struct {
	value float64
	valid bool
}

func NewSimpleMinFitness(value float64) *SimpleMinFitness {
	f := &SimpleMinFitness{}
	f.SetValue(value)
	return f
}

func (f *SimpleMinFitness) Value() float64 { return f.value }

func (f *SimpleMinFitness) SetValue(value float64) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = math.MaxFloat64
	}
	f.value = value
	f.valid = true
}

func (f *SimpleMinFitness) Valid() bool { return f.valid }
func (f *SimpleMinFitness) SetInvalid() { f.valid = false }

func (f *SimpleMinFitness) Less(other Fitness) bool {
	o, ok := other.(*SimpleMinFitness)
	if !ok || !f.valid || !o.valid {
		return false
	}
	return f.value > o.value
}

func (f *SimpleMinFitness) Dominated(other Fitness) bool {
	return f.Less(other)
}

func (f *SimpleMinFitness) Equal(other Fitness) bool {
	o, ok := other.(*SimpleMinFitness)
	if !ok {
		return false
	}
	if !f.valid || !o.valid {
		return f.valid == o.valid
	}
	return f.value == o.value
}

func (f *SimpleMinFitness) Clone() Fitness {
	c := *f
	return &c
}

func (f *SimpleMinFitness) String() string {
	if !f.valid {
		return "invalid"
	}
	return fmt.Sprintf("%g", f.value)
}

// MeetsGoal reports whether f is at least as good as goal in its own
// direction: at or above it when maximizing, at or below when minimizing.
func MeetsGoal(f Fitness, goal float64) bool {
	if f == nil || !f.Valid() {
		return false
	}
	switch f := f.(type) {
	case *SimpleMinFitness:
		return f.Value() <= goal
	case Scalar:
		return f.Value() >= goal
	}
	return false
}
