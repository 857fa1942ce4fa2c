package evo

import (
	"context"
	"fmt"
	"sync"

	"vivarium/internal/model"
)

// AdaptConfig configures AdaptBreedingProbaOp.
type AdaptConfig struct {
	// Period is the number of attempts two branches must each reach
	// before their probabilities are compared.
	Period int
	// Factor scales probabilities on adaptation; it must lie in (0,1).
	Factor float64
}

func DefaultAdaptConfig() AdaptConfig {
	return AdaptConfig{Period: 50, Factor: 0.95}
}

// AdaptBreedingProbaOp picks among its sibling input branches with
// probabilities retuned online from each branch's success ratio. A
// success is an offspring strictly fitter than its selected parent.
type AdaptBreedingProbaOp struct {
	name string
	cfg  AdaptConfig

	mu       sync.Mutex
	probas   []float64
	success  []int
	attempts []int
}

func NewAdaptBreedingProbaOp(name string, cfg AdaptConfig) (*AdaptBreedingProbaOp, error) {
	if cfg.Period < 1 {
		return nil, fmt.Errorf("%w: adaptation period must be >= 1, got %d", model.ErrValidation, cfg.Period)
	}
	if cfg.Factor <= 0 || cfg.Factor >= 1 {
		return nil, fmt.Errorf("%w: adaptation factor must be in (0,1), got %g", model.ErrValidation, cfg.Factor)
	}
	if name == "" {
		name = "adapt-breeding-proba"
	}
	return &AdaptBreedingProbaOp{name: name, cfg: cfg}, nil
}

func (op *AdaptBreedingProbaOp) Name() string { return op.name }

// BreedingProba is the summed weight of the input branches.
func (op *AdaptBreedingProbaOp) BreedingProba(child Node) float64 {
	sum := 0.0
	for _, n := range child.Siblings() {
		sum += n.Proba()
	}
	return sum
}

// Probabilities returns a copy of the current branch probabilities, nil
// before first use.
func (op *AdaptBreedingProbaOp) Probabilities() []float64 {
	op.mu.Lock()
	defer op.mu.Unlock()
	return append([]float64(nil), op.probas...)
}

// seed must be called with mu held.
func (op *AdaptBreedingProbaOp) seed(branches []Node) {
	op.probas = make([]float64, len(branches))
	op.success = make([]int, len(branches))
	op.attempts = make([]int, len(branches))
	sum := 0.0
	for i, n := range branches {
		op.probas[i] = n.Proba()
		sum += op.probas[i]
	}
	for i := range op.probas {
		if sum == 0 {
			op.probas[i] = 1 / float64(len(op.probas))
		} else {
			op.probas[i] /= sum
		}
	}
}

func (op *AdaptBreedingProbaOp) Breed(ctx context.Context, pool []*model.Individual, child Node, ec *Context) (*model.Individual, error) {
	branches := child.Siblings()
	if len(branches) == 0 {
		return nil, fmt.Errorf("%s: %w", op.name, model.ErrNoBreederTree)
	}

	op.mu.Lock()
	if len(op.probas) != len(branches) {
		op.seed(branches)
	}
	roll := ec.Rand.RollUniform(0, 1)
	pick, acc := len(branches)-1, 0.0
	for i, p := range op.probas {
		acc += p
		if roll <= acc {
			pick = i
			break
		}
	}
	op.mu.Unlock()

	ind, err := breedChild(ctx, pool, branches[pick], ec)
	if err != nil {
		return nil, err
	}

	if ec.IndividualIndex < 0 || ec.IndividualIndex >= len(pool) {
		return nil, fmt.Errorf("%s: parent slot %d outside pool of %d", op.name, ec.IndividualIndex, len(pool))
	}
	parent := pool[ec.IndividualIndex].Fitness
	if parent == nil {
		return nil, fmt.Errorf("%s: %w: parent slot %d", op.name, model.ErrMissingFitness, ec.IndividualIndex)
	}
	improved := ind.Fitness != nil && parent.Less(ind.Fitness)

	op.mu.Lock()
	adapted := op.record(pick, improved)
	op.mu.Unlock()

	if adapted {
		ec.System.Metrics.Adaptation()
		ec.Logger().Debug("adapted breeding probabilities", "op", op.name, "probabilities", op.Probabilities())
	}
	return ind, nil
}

// record counts one attempt of branch i and adapts when both i and some
// other branch reached the period. Must be called with mu held.
func (op *AdaptBreedingProbaOp) record(i int, improved bool) bool {
	op.attempts[i]++
	if improved {
		op.success[i]++
	}
	period := op.cfg.Period
	if op.attempts[i] < period {
		return false
	}
	other := -1
	for j := range op.attempts {
		if j != i && op.attempts[j] >= period {
			other = j
			break
		}
	}
	if other < 0 {
		return false
	}

	ratioThis := float64(op.success[i]) / float64(op.attempts[i])
	ratioOther := float64(op.success[other]) / float64(op.attempts[other])
	op.success[i], op.success[other] = 0, 0
	op.attempts[i], op.attempts[other] = 0, 0

	c := op.cfg.Factor
	switch {
	case ratioThis > ratioOther:
		op.probas[i] /= c
		op.probas[other] *= c
	case ratioThis < ratioOther:
		op.probas[i] *= c
		op.probas[other] /= c
	case op.probas[i] > op.probas[other]:
		op.probas[i] *= c
	case op.probas[i] < op.probas[other]:
		op.probas[other] *= c
	}

	sum := 0.0
	for _, p := range op.probas {
		sum += p
	}
	for j := range op.probas {
		op.probas[j] /= sum
	}
	return true
}
