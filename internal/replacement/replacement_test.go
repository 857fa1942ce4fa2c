package replacement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vivarium/internal/model"
)

func TestElitismLargerThanDemeIsRejected(t *testing.T) {
	tree := cloneTree(t)
	gen, err := NewGenerational(tree, 4)
	require.NoError(t, err)
	steady, err := NewSteadyState(tree, 4)
	require.NoError(t, err)
	comma, err := NewMuCommaLambda(tree, MuLambdaConfig{Ratio: 1, Elitism: 4})
	require.NoError(t, err)

	for _, s := range []Strategy{gen, steady, comma} {
		t.Run(s.Name(), func(t *testing.T) {
			deme := demeOf(1, 2, 3)
			ec := newContext(deme)
			err := s.Operate(context.Background(), ec)
			require.ErrorIs(t, err, model.ErrValidation)
			assert.Equal(t, []float64{1, 2, 3}, values(deme))
		})
	}
}

func TestNegativeElitismIsRejected(t *testing.T) {
	_, err := NewGenerational(nil, -1)
	require.ErrorIs(t, err, model.ErrValidation)
	_, err = NewSteadyState(nil, -1)
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestGenerationalCarriesEliteCopies(t *testing.T) {
	deme := demeOf(1, 2, 3, 9)
	best := deme.Individuals[3]
	ec := newContext(deme)
	s, err := NewGenerational(breedTree(t, -100), 1)
	require.NoError(t, err)

	require.NoError(t, s.Operate(context.Background(), ec))
	require.Equal(t, 4, deme.Len())
	assert.Equal(t, 9.0, values(deme)[0])
	assert.NotSame(t, best, deme.Individuals[0])
	for _, v := range values(deme)[1:] {
		assert.Less(t, v, 0.0)
	}
	assert.False(t, deme.StatsValid())
}

func TestGenerationalWithoutTreeFails(t *testing.T) {
	s, err := NewGenerational(nil, 0)
	require.NoError(t, err)
	err = s.Operate(context.Background(), newContext(demeOf(1, 2)))
	require.ErrorIs(t, err, model.ErrNoBreederTree)
}

func TestSteadyStateKeepsEliteInPlace(t *testing.T) {
	deme := demeOf(1, 9, 2, 3)
	elite := deme.Individuals[1]
	ec := newContext(deme)
	s, err := NewSteadyState(breedTree(t, -100), 1)
	require.NoError(t, err)

	require.NoError(t, s.Operate(context.Background(), ec))
	require.Equal(t, 4, deme.Len())
	assert.Same(t, elite, deme.Individuals[1])
	for i, v := range values(deme) {
		if i != 1 {
			assert.Less(t, v, 0.0)
		}
	}
}

func TestMuPlusLambdaTruncatesToMu(t *testing.T) {
	deme := demeOf(1, 2, 3, 4)
	ec := newContext(deme)
	s, err := NewMuPlusLambda(breedTree(t, 1), MuLambdaConfig{Ratio: 2})
	require.NoError(t, err)
	require.Equal(t, 8, s.Lambda(4))

	require.NoError(t, s.Operate(context.Background(), ec))
	require.Equal(t, 4, deme.Len())
	got := values(deme)
	assert.IsNonIncreasing(t, got)
	assert.GreaterOrEqual(t, got[0], 4.0)
	assert.True(t, model.AllEvaluated(deme.Individuals))
}

func TestMuCommaLambdaDropsParents(t *testing.T) {
	deme := demeOf(1, 2, 3, 4)
	s, err := NewMuCommaLambda(breedTree(t, -100), MuLambdaConfig{Ratio: 1.5})
	require.NoError(t, err)

	require.NoError(t, s.Operate(context.Background(), newContext(deme)))
	require.Equal(t, 4, deme.Len())
	for _, v := range values(deme) {
		assert.Less(t, v, 0.0)
	}
}

func TestMuCommaLambdaElitism(t *testing.T) {
	deme := demeOf(1, 2, 3, 4)
	s, err := NewMuCommaLambda(breedTree(t, -100), MuLambdaConfig{Ratio: 2, Elitism: 1})
	require.NoError(t, err)

	require.NoError(t, s.Operate(context.Background(), newContext(deme)))
	require.Equal(t, 4, deme.Len())
	assert.Equal(t, 4.0, values(deme)[0])
}

func TestMuLambdaRatioBelowOne(t *testing.T) {
	_, err := NewMuPlusLambda(nil, MuLambdaConfig{Ratio: 0.5})
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestMuLambdaWithoutTreeShrinksToTable(t *testing.T) {
	s, err := NewMuPlusLambda(nil, MuLambdaConfig{Ratio: 1, PopSizes: []int{2}})
	require.NoError(t, err)

	deme := demeOf(3, 1, 4)
	require.NoError(t, s.Operate(context.Background(), newContext(deme)))
	assert.Equal(t, []float64{4, 3}, values(deme))

	small := demeOf(1)
	require.NoError(t, s.Operate(context.Background(), newContext(small)))
	assert.Equal(t, 1, small.Len())
}

func TestMuLambdaWithoutTreeOrTable(t *testing.T) {
	s, err := NewMuCommaLambda(nil, MuLambdaConfig{Ratio: 1})
	require.NoError(t, err)
	err = s.Operate(context.Background(), newContext(demeOf(1, 2)))
	require.ErrorIs(t, err, model.ErrNoBreederTree)
}

func TestDecimateKeepsBestFraction(t *testing.T) {
	deme := demeOf(3, 1, 4, 1, 5)
	s, err := NewDecimate(DecimateConfig{Ratio: 0.6})
	require.NoError(t, err)

	require.NoError(t, s.Operate(context.Background(), newContext(deme)))
	assert.ElementsMatch(t, []float64{5, 4, 3}, values(deme))
}

func TestDecimateSnapsToTable(t *testing.T) {
	deme := demeOf(3, 1, 4, 1, 5)
	s, err := NewDecimate(DecimateConfig{Ratio: 0.5, PopSizes: []int{2}})
	require.NoError(t, err)

	require.NoError(t, s.Operate(context.Background(), newContext(deme)))
	assert.Equal(t, []float64{5, 4}, values(deme))
}

func TestDecimateFromTable(t *testing.T) {
	s, err := NewDecimate(DecimateConfig{Ratio: FromTable})
	require.NoError(t, err)
	require.Error(t, s.Operate(context.Background(), newContext(demeOf(1, 2))))

	s, err = NewDecimate(DecimateConfig{Ratio: FromTable, PopSizes: []int{5}})
	require.NoError(t, err)
	deme := demeOf(1, 2)
	require.NoError(t, s.Operate(context.Background(), newContext(deme)))
	assert.Equal(t, 2, deme.Len())
}

func TestDecimateRejectsUnevaluated(t *testing.T) {
	deme := demeOf(1, 2, 3)
	deme.Individuals[0].InvalidateFitness()
	s, err := NewDecimate(DecimateConfig{Ratio: 0.5})
	require.NoError(t, err)
	require.ErrorIs(t, s.Operate(context.Background(), newContext(deme)), model.ErrInvalidFitness)
}

func TestDecimateRatioRange(t *testing.T) {
	_, err := NewDecimate(DecimateConfig{Ratio: 1.5})
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestOversizeAppendsOffspring(t *testing.T) {
	deme := demeOf(1, 2, 3)
	parents := append([]*model.Individual(nil), deme.Individuals...)
	s, err := NewOversize(cloneTree(t), OversizeConfig{Ratio: 2})
	require.NoError(t, err)

	require.NoError(t, s.Operate(context.Background(), newContext(deme)))
	require.Equal(t, 6, deme.Len())
	for i, p := range parents {
		assert.Same(t, p, deme.Individuals[i])
	}
}

func TestOversizeFromTable(t *testing.T) {
	s, err := NewOversize(cloneTree(t), OversizeConfig{Ratio: FromTable, PopSizes: []int{2}})
	require.NoError(t, err)
	require.ErrorIs(t, s.Operate(context.Background(), newContext(demeOf(1, 2, 3))), model.ErrDemeShape)

	s, err = NewOversize(cloneTree(t), OversizeConfig{Ratio: FromTable, PopSizes: []int{5}})
	require.NoError(t, err)
	deme := demeOf(1, 2, 3)
	require.NoError(t, s.Operate(context.Background(), newContext(deme)))
	assert.Equal(t, 5, deme.Len())

	_, err = NewOversize(nil, OversizeConfig{Ratio: 0.5})
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestOneCommaLambdaShrinksOnSuccess(t *testing.T) {
	deme := demeOf(0)
	s, err := NewOneCommaLambda(breedTree(t, 1), DefaultOneCommaLambdaConfig())
	require.NoError(t, err)
	require.Equal(t, 5, s.Lambda(0))

	require.NoError(t, s.Operate(context.Background(), newContext(deme)))
	assert.Equal(t, 4, s.Lambda(0))
	assert.Equal(t, []float64{1}, values(deme))
}

func TestOneCommaLambdaGrowsOnFailure(t *testing.T) {
	deme := demeOf(0)
	s, err := NewOneCommaLambda(breedTree(t, -1), DefaultOneCommaLambdaConfig())
	require.NoError(t, err)

	require.NoError(t, s.Operate(context.Background(), newContext(deme)))
	assert.Equal(t, 6, s.Lambda(0))
	assert.Equal(t, []float64{-1}, values(deme))
}

func TestOneCommaLambdaStaysWithinBounds(t *testing.T) {
	cfg := OneCommaLambdaConfig{LambdaInit: 3, LambdaMin: 2, LambdaMax: 4, Factor: 0.9}
	s, err := NewOneCommaLambda(breedTree(t, 1), cfg)
	require.NoError(t, err)
	deme := demeOf(0)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Operate(context.Background(), newContext(deme)))
	}
	assert.Equal(t, 2, s.Lambda(0))
}

func TestOneCommaLambdaNeedsSingleton(t *testing.T) {
	s, err := NewOneCommaLambda(breedTree(t, 1), DefaultOneCommaLambdaConfig())
	require.NoError(t, err)
	err = s.Operate(context.Background(), newContext(demeOf(1, 2)))
	require.ErrorIs(t, err, model.ErrDemeShape)
}

func TestOneCommaLambdaConfigValidation(t *testing.T) {
	_, err := NewOneCommaLambda(nil, OneCommaLambdaConfig{LambdaInit: 5, LambdaMin: 0, LambdaMax: 10, Factor: 0.9})
	require.ErrorIs(t, err, model.ErrValidation)
	_, err = NewOneCommaLambda(nil, OneCommaLambdaConfig{LambdaInit: 5, LambdaMin: 2, LambdaMax: 10, Factor: 1})
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestHFCPromotesAboveThreshold(t *testing.T) {
	low := demeOf(5, 15, 25, 35)
	high := demeOf(10, 20, 30, 40)
	ec := newContext(low, high)
	s, err := NewHFC(cloneTree(t), HFCConfig{Percentile: 0.5, Interval: 1, PopSizes: []int{4, 4}})
	require.NoError(t, err)
	ctx := context.Background()

	ec.Generation = 1
	require.NoError(t, s.Operate(ctx, ec.ForDeme(1)))
	require.NotNil(t, s.Threshold(1))
	require.NoError(t, s.Operate(ctx, ec.ForDeme(0)))

	assert.Equal(t, 4, low.Len())
	for _, v := range values(low) {
		assert.Less(t, v, 20.0)
	}
	assert.Equal(t, 2, high.Buffer.Immigrants())

	ec.Generation = 2
	require.NoError(t, s.Operate(ctx, ec.ForDeme(1)))
	assert.ElementsMatch(t, []float64{40, 35, 30, 25}, values(high))
	assert.True(t, high.Buffer.Empty())
}

func TestHFCSkipsOffInterval(t *testing.T) {
	low := demeOf(5, 15)
	high := demeOf(10, 20)
	ec := newContext(low, high)
	s, err := NewHFC(cloneTree(t), HFCConfig{Percentile: 0.5, Interval: 2, PopSizes: []int{2, 2}})
	require.NoError(t, err)

	ec.Generation = 1
	require.NoError(t, s.Operate(context.Background(), ec.ForDeme(1)))
	assert.Nil(t, s.Threshold(1))
}

func TestOversizeThenDecimate(t *testing.T) {
	grow, err := NewOversize(breedTree(t, 10), OversizeConfig{Ratio: 2})
	require.NoError(t, err)
	shrink, err := NewDecimate(DecimateConfig{Ratio: FromTable, PopSizes: []int{3}})
	require.NoError(t, err)
	seq, err := NewSequence("oversize-decimate", grow, shrink)
	require.NoError(t, err)

	deme := demeOf(1, 2, 3)
	require.NoError(t, seq.Operate(context.Background(), newContext(deme)))
	require.Equal(t, 3, deme.Len())
	for _, v := range values(deme) {
		assert.Greater(t, v, 10.0)
	}

	_, err = NewSequence("empty")
	require.ErrorIs(t, err, model.ErrValidation)
}
