package replacement

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"vivarium/internal/evo"
	"vivarium/internal/model"
	"vivarium/internal/rng"
)

// gene is a one-value genome scored by its value.
type gene struct{ v int }

func (g *gene) Kind() string        { return "replacement-test" }
func (g *gene) Size() int           { return 1 }
func (g *gene) Clone() model.Genome { return &gene{v: g.v} }

func ind(v float64) *model.Individual {
	return &model.Individual{Genome: &gene{v: int(v)}, Fitness: model.NewSimpleFitness(v)}
}

func demeOf(values ...float64) *model.Deme {
	inds := make([]*model.Individual, len(values))
	for i, v := range values {
		inds[i] = ind(v)
	}
	return model.NewDeme(inds)
}

func values(d *model.Deme) []float64 {
	out := make([]float64, d.Len())
	for i, in := range d.Individuals {
		out[i], _ = in.ScalarFitness()
	}
	return out
}

func newContext(demes ...*model.Deme) *evo.Context {
	sys := &evo.System{Logger: slog.New(slog.DiscardHandler)}
	return evo.NewContext(sys, rng.New(7), model.NewVivarium(demes...)).ForDeme(0)
}

func stepBy(delta int) evo.Mutator {
	return evo.MutatorFunc(func(ind *model.Individual, _ *evo.Context) (bool, error) {
		ind.Genome.(*gene).v += delta
		return true, nil
	})
}

var scoreGene = evo.EvaluatorFunc(func(_ context.Context, ind *model.Individual, _ *evo.Context) (model.Fitness, error) {
	return model.NewSimpleFitness(float64(ind.Genome.(*gene).v)), nil
})

// breedTree is evaluation <- mutation <- tournament selection.
func breedTree(t testing.TB, delta int) *evo.Tree {
	t.Helper()
	sel, err := evo.NewTournamentSelector(2)
	require.NoError(t, err)
	selOp, err := evo.NewSelectionOp("", sel, evo.DefaultReproProba)
	require.NoError(t, err)
	mutOp, err := evo.NewMutationOp("step", 1, stepBy(delta))
	require.NoError(t, err)
	evalOp, err := evo.NewEvaluationOp("", scoreGene)
	require.NoError(t, err)
	tree, err := evo.NewTree(evo.TreeSpec{Op: evalOp, Children: []evo.TreeSpec{
		{Op: mutOp, Children: []evo.TreeSpec{{Op: selOp}}},
	}})
	require.NoError(t, err)
	return tree
}

// cloneTree is a bare selection root; offspring keep their parent's fitness.
func cloneTree(t testing.TB) *evo.Tree {
	t.Helper()
	selOp, err := evo.NewSelectionOp("", evo.RandomSelector{}, 1)
	require.NoError(t, err)
	return evo.MustTree(evo.TreeSpec{Op: selOp})
}
