// Package bitstr is a bit-string genome plug-in with the classic
// operators: bit-flip mutation, one-point crossover, uniform
// recombination and OneMax evaluation.
package bitstr

import (
	"context"
	"errors"
	"strings"

	"vivarium/internal/evo"
	"vivarium/internal/model"
	"vivarium/internal/rng"
)

const Kind = "bitstring"

// BitString is a fixed-length vector of bits.
type BitString struct {
	Bits []bool `json:"bits"`
}

func New(bits ...bool) *BitString {
	return &BitString{Bits: bits}
}

// Random draws length fair bits.
func Random(length int, r rng.Randomizer) *BitString {
	b := &BitString{Bits: make([]bool, length)}
	for i := range b.Bits {
		b.Bits[i] = r.RollInteger(0, 1) == 1
	}
	return b
}

func (b *BitString) Kind() string { return Kind }
func (b *BitString) Size() int    { return len(b.Bits) }

func (b *BitString) Clone() model.Genome {
	return &BitString{Bits: append([]bool(nil), b.Bits...)}
}

// Ones counts set bits.
func (b *BitString) Ones() int {
	n := 0
	for _, bit := range b.Bits {
		if bit {
			n++
		}
	}
	return n
}

func (b *BitString) String() string {
	var sb strings.Builder
	sb.Grow(len(b.Bits))
	for _, bit := range b.Bits {
		if bit {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

var errNotBitString = errors.New("genome is not a bit string")

func bitsOf(ind *model.Individual) (*BitString, error) {
	b, ok := ind.Genome.(*BitString)
	if !ok {
		return nil, errNotBitString
	}
	return b, nil
}

// FlipMutator flips each bit independently with BitProba.
type FlipMutator struct {
	BitProba float64
}

func (m FlipMutator) Mutate(ind *model.Individual, ec *evo.Context) (bool, error) {
	b, err := bitsOf(ind)
	if err != nil {
		return false, err
	}
	flipped := false
	for i := range b.Bits {
		if ec.Rand.RollUniform(0, 1) < m.BitProba {
			b.Bits[i] = !b.Bits[i]
			flipped = true
		}
	}
	return flipped, nil
}

// OnePointCrossover swaps the tails of two bit strings after a random cut.
type OnePointCrossover struct{}

func (OnePointCrossover) Mate(a *model.Individual, ecA *evo.Context, b *model.Individual, _ *evo.Context) (bool, error) {
	ba, err := bitsOf(a)
	if err != nil {
		return false, err
	}
	bb, err := bitsOf(b)
	if err != nil {
		return false, err
	}
	n := min(len(ba.Bits), len(bb.Bits))
	if n < 2 {
		return false, nil
	}
	cut := ecA.Rand.RollInteger(1, n-1)
	for i := cut; i < n; i++ {
		ba.Bits[i], bb.Bits[i] = bb.Bits[i], ba.Bits[i]
	}
	return true, nil
}

// UniformRecombiner builds one child taking each bit from a parent drawn
// uniformly. The child is as long as the shortest parent.
type UniformRecombiner struct{}

func (UniformRecombiner) Recombine(parents []*model.Individual, ec *evo.Context) (*model.Individual, error) {
	if len(parents) == 0 {
		return nil, model.ErrEmptyPool
	}
	strs := make([]*BitString, len(parents))
	n := -1
	for i, p := range parents {
		b, err := bitsOf(p)
		if err != nil {
			return nil, err
		}
		strs[i] = b
		if n < 0 || len(b.Bits) < n {
			n = len(b.Bits)
		}
	}
	child := &BitString{Bits: make([]bool, n)}
	for i := range child.Bits {
		child.Bits[i] = strs[ec.Rand.RollInteger(0, len(strs)-1)].Bits[i]
	}
	return model.NewIndividual(child), nil
}

// OneMax scores a bit string by its number of set bits. With Minimize it
// counts the same bits as a cost to minimize.
type OneMax struct {
	Minimize bool
}

func (o OneMax) Evaluate(ctx context.Context, ind *model.Individual, _ *evo.Context) (model.Fitness, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := bitsOf(ind)
	if err != nil {
		return nil, err
	}
	if o.Minimize {
		return model.NewSimpleMinFitness(float64(b.Ones())), nil
	}
	return model.NewSimpleFitness(float64(b.Ones())), nil
}
