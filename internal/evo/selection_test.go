package evo

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"vivarium/internal/model"
)

func allSelectors(t *testing.T) []Selector {
	t.Helper()
	tour, err := NewTournamentSelector(3)
	require.NoError(t, err)
	pars, err := NewParsimonyTournamentSelector(2)
	require.NoError(t, err)
	worst, err := NewWorstTournamentSelector(2)
	require.NoError(t, err)
	return []Selector{BestSelector{}, WorstSelector{}, RandomSelector{}, RouletteSelector{}, tour, pars, worst}
}

func TestSelectManyCountsSumToRequest(t *testing.T) {
	pool := poolOf(3, 1, 4, 1, 5, 9, 2, 6)
	for _, sel := range allSelectors(t) {
		for _, n := range []int{0, 1, 3, 8, 13, 40} {
			ec, _ := newTestContext(uint64(n)+1, 1)
			counts, err := sel.SelectMany(n, pool, ec)
			require.NoError(t, err, sel.Name())
			require.Len(t, counts, len(pool))
			sum := 0
			for _, c := range counts {
				require.GreaterOrEqual(t, c, 0)
				sum += c
			}
			require.Equal(t, n, sum, "%s n=%d", sel.Name(), n)

			list, err := ConvertToList(n, counts)
			require.NoError(t, err)
			require.Len(t, list, n)
		}
	}
}

func TestConvertToListRejectsMismatch(t *testing.T) {
	_, err := ConvertToList(3, []int{1, 1})
	require.ErrorIs(t, err, model.ErrSelectionCount)

	list, err := ConvertToList(4, []int{0, 3, 1})
	require.NoError(t, err)
	require.Equal(t, []int{1, 1, 1, 2}, list)
}

func TestBestAndWorstSelectInRankOrder(t *testing.T) {
	pool := poolOf(3, 1, 4, 2)
	ec, _ := newTestContext(1, 1)

	counts, err := BestSelector{}.SelectMany(2, pool, ec)
	require.NoError(t, err)
	require.Equal(t, []int{1, 0, 1, 0}, counts)

	counts, err = WorstSelector{}.SelectMany(6, pool, ec)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 1, 2}, counts)

	best, err := BestSelector{}.SelectOne(pool, ec)
	require.NoError(t, err)
	require.Equal(t, 2, best)
	worst, err := WorstSelector{}.SelectOne(pool, ec)
	require.NoError(t, err)
	require.Equal(t, 1, worst)
}

func TestBestSelectionWarnsWithoutPressure(t *testing.T) {
	var buf bytes.Buffer
	ec, _ := newTestContext(1, 1)
	ec.System.Logger = slog.New(slog.NewTextHandler(&buf, nil))

	_, err := BestSelector{}.SelectMany(8, poolOf(1, 2, 3, 4), ec)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "no pressure")

	buf.Reset()
	_, err = BestSelector{}.SelectMany(3, poolOf(1, 2, 3, 4), ec)
	require.NoError(t, err)
	require.Empty(t, buf.String())
}

func TestSelectorsFailOnEmptyPool(t *testing.T) {
	ec, _ := newTestContext(1, 1)
	for _, sel := range allSelectors(t) {
		_, err := sel.SelectOne(nil, ec)
		require.ErrorIs(t, err, model.ErrEmptyPool, sel.Name())
		_, err = sel.SelectMany(2, nil, ec)
		require.ErrorIs(t, err, model.ErrEmptyPool, sel.Name())
	}
}

func TestUniqueRandomDrawsDistinct(t *testing.T) {
	ec, _ := newTestContext(4, 1)
	pool := poolOf(1, 2, 3, 4, 5)

	counts, err := UniqueRandomSelector{}.SelectMany(5, pool, ec)
	require.NoError(t, err)
	require.Equal(t, []int{1, 1, 1, 1, 1}, counts)

	counts, err = UniqueRandomSelector{}.SelectMany(3, pool, ec)
	require.NoError(t, err)
	for _, c := range counts {
		require.LessOrEqual(t, c, 1)
	}

	_, err = UniqueRandomSelector{}.SelectMany(6, pool, ec)
	require.ErrorIs(t, err, model.ErrInsufficientCandidates)
}

func TestRouletteSelectorRequirements(t *testing.T) {
	ec, _ := newTestContext(1, 1)

	_, err := RouletteSelector{}.SelectOne(poolOf(1, -2), ec)
	require.ErrorIs(t, err, model.ErrUnsupportedFitness)

	pool := poolOf(1, 2)
	pool[1].Fitness = nil
	_, err = RouletteSelector{}.SelectOne(pool, ec)
	require.ErrorIs(t, err, model.ErrMissingFitness)

	pool = poolOf(0, 5, 0)
	for i := 0; i < 50; i++ {
		idx, err := RouletteSelector{}.SelectOne(pool, ec)
		require.NoError(t, err)
		require.Equal(t, 1, idx)
	}
}

func TestTournamentFavorsFitter(t *testing.T) {
	_, err := NewTournamentSelector(0)
	require.ErrorIs(t, err, model.ErrValidation)

	pool := poolOf(1, 2, 3, 4, 5, 6, 7, 8)
	ec, _ := newTestContext(3, 1)

	big, err := NewTournamentSelector(256)
	require.NoError(t, err)
	idx, err := big.SelectOne(pool, ec)
	require.NoError(t, err)
	require.Equal(t, 7, idx)

	worst, err := NewWorstTournamentSelector(256)
	require.NoError(t, err)
	idx, err = worst.SelectOne(pool, ec)
	require.NoError(t, err)
	require.Equal(t, 0, idx)
}

func TestParsimonyTournamentPrefersSmallerOnTie(t *testing.T) {
	small := ind(5)
	large := &model.Individual{Genome: &testGenome{genes: []int{1, 1, 1, 1}}, Fitness: model.NewSimpleFitness(5)}
	pool := []*model.Individual{large, small}

	sel, err := NewParsimonyTournamentSelector(32)
	require.NoError(t, err)
	ec, _ := newTestContext(8, 1)
	for i := 0; i < 20; i++ {
		idx, err := sel.SelectOne(pool, ec)
		require.NoError(t, err)
		require.Equal(t, 1, idx)
	}
}

func TestSelectorByName(t *testing.T) {
	sel, err := SelectorByName("", 0)
	require.NoError(t, err)
	require.Equal(t, "unique-random", sel.Name())

	sel, err = SelectorByName("tournament", 3)
	require.NoError(t, err)
	require.Equal(t, 3, sel.(*TournamentSelector).Participants())

	_, err = SelectorByName("tournament", 0)
	require.ErrorIs(t, err, model.ErrValidation)
	_, err = SelectorByName("nope", 1)
	require.ErrorIs(t, err, model.ErrValidation)
}
