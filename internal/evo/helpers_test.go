package evo

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"vivarium/internal/model"
	"vivarium/internal/rng"
)

type testGenome struct {
	genes []int
}

func (g *testGenome) Kind() string { return "evo-test" }
func (g *testGenome) Size() int    { return len(g.genes) }
func (g *testGenome) Clone() model.Genome {
	return &testGenome{genes: append([]int(nil), g.genes...)}
}

func sumGenes(ind *model.Individual) int {
	total := 0
	for _, v := range ind.Genome.(*testGenome).genes {
		total += v
	}
	return total
}

// ind builds an individual whose single gene equals its fitness.
func ind(v float64) *model.Individual {
	return &model.Individual{
		Genome:  &testGenome{genes: []int{int(v)}},
		Fitness: model.NewSimpleFitness(v),
	}
}

func poolOf(values ...float64) []*model.Individual {
	out := make([]*model.Individual, len(values))
	for i, v := range values {
		out[i] = ind(v)
	}
	return out
}

func fitnessValues(inds []*model.Individual) []float64 {
	out := make([]float64, len(inds))
	for i, in := range inds {
		out[i], _ = in.ScalarFitness()
	}
	return out
}

type traceEvent struct {
	id      string
	parents []string
	op      string
	kind    string
}

type recordingTracer struct {
	mu     sync.Mutex
	next   int
	events []traceEvent
}

func (r *recordingTracer) NewID(ind *model.Individual) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	ind.HistoryID = fmt.Sprintf("h%d", r.next)
}

func (r *recordingTracer) Trace(_, _ int, parents []string, ind *model.Individual, op, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, traceEvent{id: ind.HistoryID, parents: parents, op: op, kind: kind})
}

func (r *recordingTracer) kinds() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]int{}
	for _, e := range r.events {
		out[e.kind]++
	}
	return out
}

func newTestContext(seed uint64, workers int, demes ...*model.Deme) (*Context, *recordingTracer) {
	tracer := &recordingTracer{}
	sys := &System{
		Logger:  slog.New(slog.DiscardHandler),
		History: tracer,
		Workers: workers,
	}
	if len(demes) == 0 {
		demes = []*model.Deme{model.NewDeme(nil)}
	}
	ec := NewContext(sys, rng.New(seed), model.NewVivarium(demes...))
	return ec.ForDeme(0), tracer
}

// incMutator adds one to every gene.
type incMutator struct{}

func (incMutator) Mutate(ind *model.Individual, _ *Context) (bool, error) {
	g := ind.Genome.(*testGenome)
	for i := range g.genes {
		g.genes[i]++
	}
	return true, nil
}

// swapMater exchanges the first genes of both mates.
type swapMater struct{}

func (swapMater) Mate(a *model.Individual, _ *Context, b *model.Individual, _ *Context) (bool, error) {
	ga, gb := a.Genome.(*testGenome), b.Genome.(*testGenome)
	ga.genes[0], gb.genes[0] = gb.genes[0], ga.genes[0]
	return true, nil
}

// concatRecombiner joins the genes of every parent.
type concatRecombiner struct{}

func (concatRecombiner) Recombine(parents []*model.Individual, _ *Context) (*model.Individual, error) {
	g := &testGenome{}
	for _, p := range parents {
		g.genes = append(g.genes, p.Genome.(*testGenome).genes...)
	}
	return &model.Individual{Genome: g, Fitness: model.NewSimpleFitness(0)}, nil
}

// sumEvaluator scores an individual by the sum of its genes.
type sumEvaluator struct {
	mu    sync.Mutex
	calls int
}

func (e *sumEvaluator) Evaluate(_ context.Context, ind *model.Individual, _ *Context) (model.Fitness, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	return model.NewSimpleFitness(float64(sumGenes(ind))), nil
}

func mustSelection(t testing.TB, sel Selector) *SelectionOp {
	t.Helper()
	op, err := NewSelectionOp("", sel, DefaultReproProba)
	if err != nil {
		t.Fatalf("selection op: %v", err)
	}
	return op
}
