package evo

import (
	"context"
	"fmt"

	"vivarium/internal/model"
)

func checkProba(kind string, p float64) error {
	if p < 0 {
		return fmt.Errorf("%w: %s probability must be >= 0, got %g", model.ErrValidation, kind, p)
	}
	return nil
}

// MutationOp applies a Mutator to the offspring of its input branch.
type MutationOp struct {
	name    string
	proba   float64
	mutator Mutator
}

func NewMutationOp(name string, proba float64, mutator Mutator) (*MutationOp, error) {
	if err := checkProba("mutation", proba); err != nil {
		return nil, err
	}
	if mutator == nil {
		return nil, fmt.Errorf("%w: mutation op %s has no mutator", model.ErrValidation, name)
	}
	return &MutationOp{name: name, proba: proba, mutator: mutator}, nil
}

func (op *MutationOp) Name() string { return op.name }

func (op *MutationOp) BreedingProba(Node) float64 { return op.proba }

func (op *MutationOp) Breed(ctx context.Context, pool []*model.Individual, child Node, ec *Context) (*model.Individual, error) {
	ind, err := breedChild(ctx, pool, child, ec)
	if err != nil {
		return nil, err
	}
	if err := op.mutate(ind, ec); err != nil {
		return nil, err
	}
	return ind, nil
}

func (op *MutationOp) mutate(ind *model.Individual, ec *Context) error {
	parents := parentIDs(ind)
	mutated, err := op.mutator.Mutate(ind, ec)
	if err != nil {
		return fmt.Errorf("%s: %w", op.name, err)
	}
	if mutated {
		ind.InvalidateFitness()
		ec.Trace(ind, op.name, "mutation", parents...)
	}
	return nil
}

// Apply mutates each individual of the deme in place with the configured
// probability.
func (op *MutationOp) Apply(ec *Context) error {
	deme := ec.Deme
	err := forEachChunk(ec, deme.Len(), func(lo, hi int, fec *Context) error {
		for i := lo; i < hi; i++ {
			if fec.Rand.RollUniform(0, 1) >= op.proba {
				continue
			}
			fec.IndividualIndex = i
			fec.Individual = deme.Individuals[i]
			if err := op.mutate(deme.Individuals[i], fec); err != nil {
				return err
			}
		}
		return nil
	})
	deme.InvalidateStats()
	return err
}

// CrossoverOp mates the offspring of its first input branch with the
// offspring of the branch's next sibling, and returns the first.
type CrossoverOp struct {
	name  string
	proba float64
	mater Mater
}

func NewCrossoverOp(name string, proba float64, mater Mater) (*CrossoverOp, error) {
	if err := checkProba("mating", proba); err != nil {
		return nil, err
	}
	if mater == nil {
		return nil, fmt.Errorf("%w: crossover op %s has no mater", model.ErrValidation, name)
	}
	return &CrossoverOp{name: name, proba: proba, mater: mater}, nil
}

func (op *CrossoverOp) Name() string { return op.name }

func (op *CrossoverOp) BreedingProba(Node) float64 { return op.proba }

func (op *CrossoverOp) Breed(ctx context.Context, pool []*model.Individual, child Node, ec *Context) (*model.Individual, error) {
	second := child.NextSibling()
	if child.IsNil() || second.IsNil() {
		return nil, fmt.Errorf("%s: %w: crossover needs two input branches", op.name, model.ErrNoBreederTree)
	}
	ec2 := ec.Clone()
	a, err := breedChild(ctx, pool, child, ec)
	if err != nil {
		return nil, err
	}
	b, err := breedChild(ctx, pool, second, ec2)
	if err != nil {
		return nil, err
	}
	if err := op.mate(a, ec, b, ec2); err != nil {
		return nil, err
	}
	return a, nil
}

func (op *CrossoverOp) mate(a *model.Individual, ecA *Context, b *model.Individual, ecB *Context) error {
	parents := parentIDs(a, b)
	mated, err := op.mater.Mate(a, ecA, b, ecB)
	if err != nil {
		return fmt.Errorf("%s: %w", op.name, err)
	}
	if mated {
		a.InvalidateFitness()
		b.InvalidateFitness()
		ecA.Trace(a, op.name, "crossover", parents...)
	}
	return nil
}

// Apply picks each individual for mating with the configured probability,
// shuffles the picks and mates consecutive pairs in place.
func (op *CrossoverOp) Apply(ec *Context) error {
	deme := ec.Deme
	var picked []int
	for i := range deme.Individuals {
		if ec.Rand.RollUniform(0, 1) < op.proba {
			picked = append(picked, i)
		}
	}
	ec.Rand.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })

	pairs := len(picked) / 2
	err := forEachChunk(ec, pairs, func(lo, hi int, fec *Context) error {
		for p := lo; p < hi; p++ {
			i, j := picked[2*p], picked[2*p+1]
			fec.IndividualIndex, fec.Individual = i, deme.Individuals[i]
			fec2 := fec.Clone()
			fec2.IndividualIndex, fec2.Individual = j, deme.Individuals[j]
			if err := op.mate(deme.Individuals[i], fec, deme.Individuals[j], fec2); err != nil {
				return err
			}
		}
		return nil
	})
	deme.InvalidateStats()
	return err
}

// RecombinationOp builds one child from several parents. Count bounds the
// number of parents; zero means the whole pool.
type RecombinationOp struct {
	name       string
	proba      float64
	count      int
	recombiner Recombiner
}

func NewRecombinationOp(name string, proba float64, count int, recombiner Recombiner) (*RecombinationOp, error) {
	if err := checkProba("recombination", proba); err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: recombination parent count must be >= 0, got %d", model.ErrValidation, count)
	}
	if recombiner == nil {
		return nil, fmt.Errorf("%w: recombination op %s has no recombiner", model.ErrValidation, name)
	}
	return &RecombinationOp{name: name, proba: proba, count: count, recombiner: recombiner}, nil
}

func (op *RecombinationOp) Name() string { return op.name }

func (op *RecombinationOp) BreedingProba(Node) float64 { return op.proba }

func (op *RecombinationOp) parentCount(poolSize int) int {
	if op.count == 0 || op.count > poolSize {
		return poolSize
	}
	return op.count
}

// Breed draws parents from the input branch, or straight from the pool
// when the node has no input branch.
func (op *RecombinationOp) Breed(ctx context.Context, pool []*model.Individual, child Node, ec *Context) (*model.Individual, error) {
	if len(pool) == 0 {
		return nil, fmt.Errorf("%s: %w", op.name, model.ErrEmptyPool)
	}
	n := op.parentCount(len(pool))
	var parents []*model.Individual
	if child.IsNil() {
		parents = op.sample(pool, n, ec)
	} else {
		parents = make([]*model.Individual, 0, n)
		for i := 0; i < n; i++ {
			ind, err := breedChild(ctx, pool, child, ec)
			if err != nil {
				return nil, err
			}
			parents = append(parents, ind)
		}
	}
	return op.recombine(parents, ec)
}

func (op *RecombinationOp) sample(pool []*model.Individual, n int, ec *Context) []*model.Individual {
	if n == len(pool) {
		return pool
	}
	perm := make([]int, len(pool))
	for i := range perm {
		perm[i] = i
	}
	ec.Rand.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
	out := make([]*model.Individual, n)
	for i := range out {
		out[i] = pool[perm[i]]
	}
	return out
}

func (op *RecombinationOp) recombine(parents []*model.Individual, ec *Context) (*model.Individual, error) {
	child, err := op.recombiner.Recombine(parents, ec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op.name, err)
	}
	child.InvalidateFitness()
	ec.Trace(child, op.name, "recombination", parentIDs(parents...)...)
	return child, nil
}

// Apply replaces each individual, with the configured probability, by a
// child recombined from parents of the current deme.
func (op *RecombinationOp) Apply(ec *Context) error {
	deme := ec.Deme
	pool := deme.Individuals
	if len(pool) == 0 {
		return nil
	}
	next := make([]*model.Individual, len(pool))
	n := op.parentCount(len(pool))
	err := forEachChunk(ec, len(pool), func(lo, hi int, fec *Context) error {
		for i := lo; i < hi; i++ {
			next[i] = pool[i]
			if fec.Rand.RollUniform(0, 1) >= op.proba {
				continue
			}
			fec.IndividualIndex, fec.Individual = i, pool[i]
			child, err := op.recombine(op.sample(pool, n, fec), fec)
			if err != nil {
				return err
			}
			next[i] = child
		}
		return nil
	})
	if err != nil {
		return err
	}
	deme.Individuals = next
	deme.InvalidateStats()
	return nil
}
