package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vivarium/internal/model"
	"vivarium/internal/registry"
)

// bits is a JSON-serializable genome registered for codec tests.
type bits struct {
	Bits []bool `json:"bits"`
}

func (b *bits) Kind() string        { return "storage-test-bits" }
func (b *bits) Size() int           { return len(b.Bits) }
func (b *bits) Clone() model.Genome { return &bits{Bits: append([]bool(nil), b.Bits...)} }

func init() {
	model.Genomes.MustRegister("storage-test-bits", func() model.Genome { return &bits{} })
}

func testVivarium() *model.Vivarium {
	a := &model.Individual{Genome: &bits{Bits: []bool{true, false}}, Fitness: model.NewSimpleFitness(1), HistoryID: "h1"}
	b := &model.Individual{Genome: &bits{Bits: []bool{true, true}}, Fitness: model.NewSimpleMinFitness(0.5)}
	c := &model.Individual{Genome: &bits{Bits: []bool{false}}, Fitness: model.NewSimpleFitness(3)}
	c.InvalidateFitness()
	return model.NewVivarium(model.NewDeme([]*model.Individual{a, b}), model.NewDeme([]*model.Individual{c}))
}

func TestNewStoreMemory(t *testing.T) {
	for _, kind := range []string{"", KindMemory} {
		store, err := NewStore(kind, "")
		require.NoError(t, err)
		require.IsType(t, &MemoryStore{}, store)
		require.NoError(t, CloseIfSupported(store))
	}
}

func TestNewStoreUnsupported(t *testing.T) {
	_, err := NewStore("badger", "")
	require.ErrorIs(t, err, ErrUnknownBackend)
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	_, _, err := store.GetHistory(context.Background(), "run")
	require.Error(t, err)
}

func TestMemoryStoreHistoryAppends(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Init(ctx))

	v := 2.0
	first := []model.HistoryRecord{{VersionedRecord: CurrentVersion(), ID: "a", Kind: "selection", Fitness: &v}}
	second := []model.HistoryRecord{{VersionedRecord: CurrentVersion(), ID: "b", Parents: []string{"a"}, Kind: "mutation"}}
	require.NoError(t, store.AppendHistory(ctx, "run-1", first))
	require.NoError(t, store.AppendHistory(ctx, "run-1", second))

	out, ok, err := store.GetHistory(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, []string{"a"}, out[1].Parents)

	*out[0].Fitness = 9
	again, _, err := store.GetHistory(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2.0, *again[0].Fitness)

	_, ok, err = store.GetHistory(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreSnapshots(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Init(ctx))

	for _, gen := range []int{0, 5, 2} {
		snap, err := Snapshot("run-1", gen, testVivarium())
		require.NoError(t, err)
		require.NoError(t, store.SaveSnapshot(ctx, snap))
	}

	latest, ok, err := store.LatestSnapshot(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, latest.Generation)

	snap, ok, err := store.GetSnapshot(ctx, "run-1", 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, snap.Demes, 2)

	_, ok, err = store.GetSnapshot(ctx, "run-1", 3)
	require.NoError(t, err)
	assert.False(t, ok)

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1"}, runs)
}

func TestSnapshotRestore(t *testing.T) {
	viv := testVivarium()
	snap, err := Snapshot("run-1", 4, viv)
	require.NoError(t, err)

	payload, err := EncodeSnapshot(snap)
	require.NoError(t, err)
	decoded, err := DecodeSnapshot(payload)
	require.NoError(t, err)

	restored, err := Restore(decoded)
	require.NoError(t, err)
	require.Len(t, restored.Demes, 2)
	require.Equal(t, 2, restored.Demes[0].Len())

	a := restored.Demes[0].Individuals[0]
	assert.Equal(t, []bool{true, false}, a.Genome.(*bits).Bits)
	assert.Equal(t, "h1", a.HistoryID)
	v, ok := a.ScalarFitness()
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	b := restored.Demes[0].Individuals[1]
	assert.IsType(t, &model.SimpleMinFitness{}, b.Fitness)

	c := restored.Demes[1].Individuals[0]
	require.NotNil(t, c.Fitness)
	assert.False(t, c.Evaluated())
}

func TestDecodeIndividualUnknownKind(t *testing.T) {
	_, err := DecodeIndividual(model.IndividualRecord{GenomeKind: "nope", Genome: json.RawMessage(`{}`)})
	require.ErrorIs(t, err, registry.ErrNotFound)
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	_, err := DecodeSnapshot([]byte(`{"schema_version":99,"codec_version":1}`))
	require.ErrorIs(t, err, ErrVersionMismatch)
	_, err = DecodeHistoryRecord([]byte(`{"schema_version":1,"codec_version":2}`))
	require.ErrorIs(t, err, ErrVersionMismatch)
}
