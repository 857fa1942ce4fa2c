// Package replacement rebuilds a deme's population each generation from
// a breeder tree.
package replacement

import (
	"context"
	"fmt"
	"math"

	"vivarium/internal/evo"
	"vivarium/internal/model"
)

// Strategy replaces the population of ec.Deme.
type Strategy interface {
	Name() string
	Operate(ctx context.Context, ec *evo.Context) error
}

// countEpsilon absorbs float error in ratio*size before rounding up.
const countEpsilon = 1e-9

func ceilCount(x float64) int {
	if x <= 0 {
		return 0
	}
	return int(math.Ceil(x - countEpsilon))
}

// breeder holds the breeder tree shared by every strategy.
type breeder struct {
	name string
	tree *evo.Tree
}

// wheel is the roulette over the root alternatives of the tree.
type wheel struct {
	roulette *evo.Roulette
	branches []evo.Node
}

func (b *breeder) buildWheel(ec *evo.Context) (*wheel, error) {
	if b.tree == nil {
		return nil, fmt.Errorf("%s: %w", b.name, model.ErrNoBreederTree)
	}
	w := &wheel{roulette: &evo.Roulette{}, branches: b.tree.Root().Siblings()}
	for _, n := range w.branches {
		w.roulette.Insert(n.Proba())
	}
	if total := w.roulette.Total(); math.Abs(1-total) > 1e-4 {
		ec.Logger().Info("breeding probabilities of root branches do not sum to 1",
			"strategy", b.name, "sum", total)
	}
	return w, nil
}

// breedOne picks a root branch by roulette and breeds one offspring.
func (w *wheel) breedOne(ctx context.Context, pool []*model.Individual, ec *evo.Context) (*model.Individual, error) {
	idx, err := w.roulette.Select(ec.Rand)
	if err != nil {
		return nil, err
	}
	node := w.branches[idx]
	child, err := node.Op().Breed(ctx, pool, node.FirstChild(), ec)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, fmt.Errorf("breeder %s produced no offspring", node.Op().Name())
	}
	return child, nil
}

func (w *wheel) breedN(ctx context.Context, n int, pool []*model.Individual, ec *evo.Context) ([]*model.Individual, error) {
	out := make([]*model.Individual, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		child, err := w.breedOne(ctx, pool, ec)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

func checkElitism(name string, elitism, size int) error {
	if elitism > size {
		return fmt.Errorf("%w: %s elitism keep size %d exceeds deme size %d", model.ErrValidation, name, elitism, size)
	}
	return nil
}

func validateElitism(name string, elitism int) error {
	if elitism < 0 {
		return fmt.Errorf("%w: %s elitism keep size must be >= 0, got %d", model.ErrValidation, name, elitism)
	}
	return nil
}

// eliteClones returns traced copies of the k best individuals.
func eliteClones(name string, pool []*model.Individual, k int, ec *evo.Context) []*model.Individual {
	if k <= 0 {
		return nil
	}
	ranked := model.BestIndices(pool)
	out := make([]*model.Individual, k)
	for i := 0; i < k; i++ {
		src := pool[ranked[i]]
		out[i] = src.Clone()
		ec.Trace(out[i], name, "elitism", parentIDsOf(src)...)
	}
	return out
}

func parentIDsOf(ind *model.Individual) []string {
	if ind.HistoryID == "" {
		return nil
	}
	return []string{ind.HistoryID}
}

// targetSize reads the configured size of deme di.
func targetSize(name string, table []int, di int) (int, error) {
	if len(table) == 0 {
		return 0, fmt.Errorf("%s: no population size table configured", name)
	}
	if di < 0 || di >= len(table) {
		return 0, fmt.Errorf("%s: no population size configured for deme %d", name, di)
	}
	return table[di], nil
}

// keepBest truncates inds to its n best, which requires valid fitness.
func keepBest(inds []*model.Individual, n int) ([]*model.Individual, error) {
	if !model.AllEvaluated(inds) {
		return nil, fmt.Errorf("%w: truncation needs evaluated individuals", model.ErrInvalidFitness)
	}
	model.SortBestFirst(inds)
	if n < len(inds) {
		clear(inds[n:])
		inds = inds[:n]
	}
	return inds, nil
}

func finish(ec *evo.Context, name string, bred int) {
	ec.Deme.InvalidateStats()
	if ec.Vivarium != nil {
		ec.Vivarium.InvalidateStats()
	}
	ec.System.Metrics.Offspring(name, bred)
	ec.System.Metrics.DemeSize(ec.DemeIndex, ec.Deme.Len())
}
