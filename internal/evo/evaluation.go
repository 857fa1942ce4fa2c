package evo

import (
	"context"
	"fmt"
	"sync"

	"vivarium/internal/model"
)

// EvaluationOp scores offspring. In a breeder tree it evaluates whatever
// its input branch produces, unless that already carries a valid fitness.
type EvaluationOp struct {
	name      string
	evaluator Evaluator
}

func NewEvaluationOp(name string, evaluator Evaluator) (*EvaluationOp, error) {
	if evaluator == nil {
		return nil, fmt.Errorf("%w: evaluation op %s has no evaluator", model.ErrValidation, name)
	}
	if name == "" {
		name = "evaluation"
	}
	return &EvaluationOp{name: name, evaluator: evaluator}, nil
}

func (op *EvaluationOp) Name() string { return op.name }

// BreedingProba forwards the weight of the input branch.
func (op *EvaluationOp) BreedingProba(child Node) float64 {
	return child.Proba()
}

func (op *EvaluationOp) Breed(ctx context.Context, pool []*model.Individual, child Node, ec *Context) (*model.Individual, error) {
	ind, err := breedChild(ctx, pool, child, ec)
	if err != nil {
		return nil, err
	}
	if ind.Evaluated() {
		return ind, nil
	}
	if err := op.evaluate(ctx, ind, ec); err != nil {
		return nil, err
	}
	return ind, nil
}

func (op *EvaluationOp) evaluate(ctx context.Context, ind *model.Individual, ec *Context) error {
	fitness, err := op.evaluator.Evaluate(ctx, ind, ec)
	if err != nil {
		return fmt.Errorf("%s: %w", op.name, err)
	}
	if fitness == nil {
		return fmt.Errorf("%s: %w", op.name, model.ErrMissingFitness)
	}
	ind.Fitness = fitness
	ec.System.Metrics.Evaluations(1)
	return nil
}

// Apply evaluates every unevaluated individual of the deme on a pool of
// workers. Each worker owns a forked context.
func (op *EvaluationOp) Apply(ctx context.Context, ec *Context) error {
	deme := ec.Deme
	var pending []int
	for i, ind := range deme.Individuals {
		if !ind.Evaluated() {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	type result struct {
		idx int
		err error
	}

	jobs := make(chan int)
	results := make(chan result, len(pending))

	workerCount := ec.System.workers()
	if workerCount > len(pending) {
		workerCount = len(pending)
	}
	forks := make([]*Context, workerCount)
	for w := range forks {
		forks[w] = ec.Fork()
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		fec := forks[w]
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: idx, err: err}
					continue
				}
				fec.IndividualIndex = idx
				fec.Individual = deme.Individuals[idx]
				results <- result{idx: idx, err: op.evaluate(ctx, deme.Individuals[idx], fec)}
			}
		}()
	}

	for _, idx := range pending {
		jobs <- idx
	}
	close(jobs)

	wg.Wait()
	close(results)

	deme.InvalidateStats()
	for res := range results {
		if res.err != nil {
			return fmt.Errorf("evaluate individual %d: %w", res.idx, res.err)
		}
	}
	return nil
}
