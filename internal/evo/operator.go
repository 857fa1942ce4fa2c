package evo

import (
	"context"

	"vivarium/internal/model"
)

// BreederOp is the operator held by a breeder tree node.
type BreederOp interface {
	Name() string
	// Breed produces one offspring from pool. child is the first node of
	// the operator's input subtree; selection leaves ignore it.
	Breed(ctx context.Context, pool []*model.Individual, child Node, ec *Context) (*model.Individual, error)
	// BreedingProba is the weight of this branch among its siblings.
	BreedingProba(child Node) float64
}

// Mutator changes an individual in place and reports whether the genome
// changed.
type Mutator interface {
	Mutate(ind *model.Individual, ec *Context) (bool, error)
}

// Mater recombines two individuals in place, each with its own context.
type Mater interface {
	Mate(a *model.Individual, ecA *Context, b *model.Individual, ecB *Context) (bool, error)
}

// Recombiner builds one child from several parents.
type Recombiner interface {
	Recombine(parents []*model.Individual, ec *Context) (*model.Individual, error)
}

// Evaluator scores one individual.
type Evaluator interface {
	Evaluate(ctx context.Context, ind *model.Individual, ec *Context) (model.Fitness, error)
}

// MutatorFunc adapts a function to Mutator.
type MutatorFunc func(ind *model.Individual, ec *Context) (bool, error)

func (f MutatorFunc) Mutate(ind *model.Individual, ec *Context) (bool, error) { return f(ind, ec) }

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, ind *model.Individual, ec *Context) (model.Fitness, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, ind *model.Individual, ec *Context) (model.Fitness, error) {
	return f(ctx, ind, ec)
}

// breedChild runs the operator at child on its own input subtree.
func breedChild(ctx context.Context, pool []*model.Individual, child Node, ec *Context) (*model.Individual, error) {
	if child.IsNil() {
		return nil, model.ErrNoBreederTree
	}
	return child.Op().Breed(ctx, pool, child.FirstChild(), ec)
}
