package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

type testGenome struct {
	genes []int
}

func (g *testGenome) Kind() string { return "test" }
func (g *testGenome) Size() int    { return len(g.genes) }
func (g *testGenome) Clone() Genome {
	return &testGenome{genes: append([]int(nil), g.genes...)}
}

func scored(v float64) *Individual {
	return &Individual{Genome: &testGenome{genes: []int{int(v)}}, Fitness: NewSimpleFitness(v)}
}

func demeOf(values ...float64) *Deme {
	inds := make([]*Individual, len(values))
	for i, v := range values {
		inds[i] = scored(v)
	}
	return NewDeme(inds)
}

func TestSimpleMinIsInverseOfSimple(t *testing.T) {
	values := []float64{-2, 0, 1.5, 3, 3}
	for _, a := range values {
		for _, b := range values {
			maxA, maxB := NewSimpleFitness(a), NewSimpleFitness(b)
			minA, minB := NewSimpleMinFitness(a), NewSimpleMinFitness(b)
			require.Equal(t, maxB.Less(maxA), minA.Less(minB), "a=%v b=%v", a, b)
		}
	}
}

func TestInvalidFitnessNeverOrdered(t *testing.T) {
	a, b := NewSimpleFitness(1), NewSimpleFitness(2)
	b.SetInvalid()
	require.False(t, a.Less(b))
	require.False(t, b.Less(a))
	require.False(t, a.Equal(b))

	a.SetInvalid()
	require.True(t, a.Equal(b))
}

func TestFitnessPolaritiesDoNotCompare(t *testing.T) {
	require.False(t, NewSimpleFitness(1).Less(NewSimpleMinFitness(0)))
	require.False(t, NewSimpleMinFitness(1).Equal(NewSimpleFitness(1)))
}

func TestNonFiniteFitnessPinnedToWorst(t *testing.T) {
	require.Equal(t, -math.MaxFloat64, NewSimpleFitness(math.NaN()).Value())
	require.Equal(t, math.MaxFloat64, NewSimpleMinFitness(math.Inf(-1)).Value())
}

func TestIndividualCloneIsDeep(t *testing.T) {
	src := scored(4)
	src.HistoryID = "h1"
	dup := src.Clone()
	dup.Genome.(*testGenome).genes[0] = 99
	dup.InvalidateFitness()

	require.Equal(t, 4, src.Genome.(*testGenome).genes[0])
	require.True(t, src.Evaluated())
	require.Equal(t, "h1", dup.HistoryID)
}

func TestSortBestAndWorstFirst(t *testing.T) {
	d := demeOf(3, 1, 4, 1, 5)
	SortBestFirst(d.Individuals)
	got := make([]float64, 0, 5)
	for _, ind := range d.Individuals {
		v, _ := ind.ScalarFitness()
		got = append(got, v)
	}
	require.Equal(t, []float64{5, 4, 3, 1, 1}, got)

	SortWorstFirst(d.Individuals)
	v, _ := d.Individuals[0].ScalarFitness()
	require.Equal(t, 1.0, v)
	require.Equal(t, []int{2, 0, 1}, BestIndices(demeOf(2, 1, 3).Individuals))
}

func TestDemeStatsCachedUntilInvalidated(t *testing.T) {
	d := demeOf(1, 2, 3)
	s := d.Stats()
	require.Equal(t, 3, s.Evaluated)
	require.InDelta(t, 2.0, s.Mean, 1e-12)
	require.InDelta(t, 1.0, s.StdDev, 1e-12)
	require.Equal(t, 3.0, s.Max)
	require.Equal(t, 1.0, s.Min)

	d.Individuals = append(d.Individuals, scored(10))
	require.Equal(t, 3, d.Stats().Size)
	d.InvalidateStats()
	require.Equal(t, 4, d.Stats().Size)
}

func TestVivariumStatsAggregatesDemes(t *testing.T) {
	v := NewVivarium(demeOf(1, 2), demeOf(3))
	require.Equal(t, 3, v.Size())
	require.Equal(t, 3.0, v.Stats().Max)
	require.True(t, v.StatsValid())
	v.InvalidateStats()
	require.False(t, v.StatsValid())
}

func TestMigrationBufferMergesOldestFirst(t *testing.T) {
	src := demeOf(10, 20, 30)
	dst := demeOf(1, 2, 3)

	var copies int
	require.NoError(t, src.Buffer.InsertEmigrants([]int{2, 0}, src, func(_, _ *Individual) { copies++ }))
	require.Equal(t, 2, copies)
	require.Equal(t, 2, src.Buffer.Emigrants())

	// no slots yet, immigrants wait
	require.NoError(t, src.Buffer.MoveMigrants(2, dst))
	require.Equal(t, 2, dst.Buffer.Immigrants())

	require.NoError(t, dst.Buffer.InsertReplaced([]int{1, 0}, dst))
	require.True(t, dst.Buffer.Empty())
	v1, _ := dst.Individuals[1].ScalarFitness()
	v0, _ := dst.Individuals[0].ScalarFitness()
	require.Equal(t, 30.0, v1)
	require.Equal(t, 10.0, v0)

	// emigrants are copies
	require.NotSame(t, src.Individuals[2], dst.Individuals[1])
}

func TestMigrationBufferTooManyMigrants(t *testing.T) {
	src, dst := demeOf(1), demeOf(2)
	require.NoError(t, src.Buffer.InsertEmigrants([]int{0}, src, nil))
	require.ErrorIs(t, src.Buffer.MoveMigrants(2, dst), ErrTooManyEmigrants)
}

func TestMigrationBufferMergeSkipsEmptyDeme(t *testing.T) {
	src, dst := demeOf(1), NewDeme(nil)
	require.NoError(t, src.Buffer.InsertEmigrants([]int{0}, src, nil))
	require.NoError(t, src.Buffer.MoveMigrants(1, dst))
	require.NoError(t, dst.Buffer.InsertReplaced([]int{0}, dst))
	require.Equal(t, 1, dst.Buffer.Immigrants())
	require.Equal(t, 1, dst.Buffer.Replaced())
}

func TestMigrationBufferSlotOutOfRange(t *testing.T) {
	src, dst := demeOf(1), demeOf(2)
	require.ErrorIs(t, src.Buffer.InsertEmigrants([]int{5}, src, nil), ErrSlotOutOfRange)
	require.NoError(t, src.Buffer.InsertEmigrants([]int{0}, src, nil))
	require.NoError(t, src.Buffer.MoveMigrants(1, dst))
	require.ErrorIs(t, dst.Buffer.InsertReplaced([]int{3}, dst), ErrSlotOutOfRange)
}

func TestVivariumBestFollowsPolarity(t *testing.T) {
	viv := NewVivarium(demeOf(3, 9), demeOf(5))
	require.Equal(t, 9.0, viv.Best().Fitness.(Scalar).Value())

	minDeme := NewDeme([]*Individual{
		{Genome: &testGenome{}, Fitness: NewSimpleMinFitness(6)},
		{Genome: &testGenome{}, Fitness: NewSimpleMinFitness(2)},
		{Genome: &testGenome{}, Fitness: NewSimpleMinFitness(9)},
	})
	require.Equal(t, 2.0, NewVivarium(minDeme).Best().Fitness.(Scalar).Value())

	unevaluated := &Individual{Genome: &testGenome{}}
	require.Nil(t, NewVivarium(NewDeme([]*Individual{unevaluated})).Best())
}

func TestMeetsGoal(t *testing.T) {
	require.True(t, MeetsGoal(NewSimpleFitness(5), 5))
	require.False(t, MeetsGoal(NewSimpleFitness(4), 5))
	require.True(t, MeetsGoal(NewSimpleMinFitness(0), 0))
	require.False(t, MeetsGoal(NewSimpleMinFitness(6), 0))

	invalid := NewSimpleFitness(10)
	invalid.SetInvalid()
	require.False(t, MeetsGoal(invalid, 0))
	require.False(t, MeetsGoal(nil, 0))
}
