package evo

import (
	"context"
	"fmt"
	"sync"

	"vivarium/internal/model"
)

// DefaultReproProba is the breeding weight of a selection leaf.
const DefaultReproProba = 0.1

// SelectionOp wraps a Selector as a breeder tree leaf and as a whole-deme
// operator.
type SelectionOp struct {
	name       string
	selector   Selector
	reproProba float64
}

func NewSelectionOp(name string, selector Selector, reproProba float64) (*SelectionOp, error) {
	if selector == nil {
		return nil, fmt.Errorf("%w: selection op %s has no selector", model.ErrValidation, name)
	}
	if reproProba < 0 {
		return nil, fmt.Errorf("%w: reproduction probability must be >= 0, got %g", model.ErrValidation, reproProba)
	}
	if name == "" {
		name = "select-" + selector.Name()
	}
	return &SelectionOp{name: name, selector: selector, reproProba: reproProba}, nil
}

func (op *SelectionOp) Name() string               { return op.name }
func (op *SelectionOp) Selector() Selector         { return op.selector }
func (op *SelectionOp) BreedingProba(Node) float64 { return op.reproProba }

// Breed clones one selected individual and records its slot on ec.
func (op *SelectionOp) Breed(_ context.Context, pool []*model.Individual, _ Node, ec *Context) (*model.Individual, error) {
	idx, err := op.selector.SelectOne(pool, ec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op.name, err)
	}
	ec.IndividualIndex = idx
	ec.Individual = pool[idx]
	child := pool[idx].Clone()
	ec.Trace(child, op.name, "selection", parentIDs(pool[idx])...)
	return child, nil
}

// Apply replaces the deme with as many selections as it holds. Batches
// are selected in parallel and reduced under one lock.
func (op *SelectionOp) Apply(ec *Context) error {
	deme := ec.Deme
	pool := deme.Individuals
	n := len(pool)
	if n == 0 {
		return nil
	}

	total := make([]int, n)
	var mu sync.Mutex
	err := forEachChunk(ec, n, func(lo, hi int, fec *Context) error {
		counts, err := op.selector.SelectMany(hi-lo, pool, fec)
		if err != nil {
			return err
		}
		mu.Lock()
		for i, c := range counts {
			total[i] += c
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op.name, err)
	}

	list, err := ConvertToList(n, total)
	if err != nil {
		return err
	}
	next := make([]*model.Individual, n)
	for i, idx := range list {
		next[i] = pool[idx].Clone()
		ec.Trace(next[i], op.name, "selection", parentIDs(pool[idx])...)
	}
	deme.Individuals = next
	deme.InvalidateStats()
	return nil
}
