package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vivarium/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// CurrentVersion stamps records written by this build.
func CurrentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeHistoryRecord(r model.HistoryRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeHistoryRecord(data []byte) (model.HistoryRecord, error) {
	var record model.HistoryRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.HistoryRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.HistoryRecord{}, err
	}
	return record, nil
}

func EncodeSnapshot(s model.VivariumSnapshot) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeSnapshot(data []byte) (model.VivariumSnapshot, error) {
	var snapshot model.VivariumSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.VivariumSnapshot{}, err
	}
	if err := checkVersion(snapshot.VersionedRecord); err != nil {
		return model.VivariumSnapshot{}, err
	}
	return snapshot, nil
}

// EncodeIndividual converts ind to its persisted form. The genome is
// marshalled with encoding/json; its kind must be registered in
// model.Genomes for DecodeIndividual to rebuild it.
func EncodeIndividual(ind *model.Individual) (model.IndividualRecord, error) {
	if ind == nil || ind.Genome == nil {
		return model.IndividualRecord{}, errors.New("individual has no genome")
	}
	genome, err := json.Marshal(ind.Genome)
	if err != nil {
		return model.IndividualRecord{}, fmt.Errorf("encode %s genome: %w", ind.Genome.Kind(), err)
	}
	rec := model.IndividualRecord{
		GenomeKind: ind.Genome.Kind(),
		Genome:     genome,
		HistoryID:  ind.HistoryID,
	}
	switch f := ind.Fitness.(type) {
	case nil:
	case *model.SimpleFitness:
		rec.Polarity = model.PolarityMax
		if f.Valid() {
			v := f.Value()
			rec.Fitness = &v
		}
	case *model.SimpleMinFitness:
		rec.Polarity = model.PolarityMin
		if f.Valid() {
			v := f.Value()
			rec.Fitness = &v
		}
	default:
		return model.IndividualRecord{}, fmt.Errorf("%w: cannot persist %T", model.ErrUnsupportedFitness, f)
	}
	return rec, nil
}

func DecodeIndividual(rec model.IndividualRecord) (*model.Individual, error) {
	newGenome, err := model.Genomes.Resolve(rec.GenomeKind)
	if err != nil {
		return nil, err
	}
	genome := newGenome()
	if err := json.Unmarshal(rec.Genome, genome); err != nil {
		return nil, fmt.Errorf("decode %s genome: %w", rec.GenomeKind, err)
	}
	ind := &model.Individual{Genome: genome, HistoryID: rec.HistoryID}
	switch rec.Polarity {
	case "":
	case model.PolarityMax:
		f := model.NewSimpleFitness(0)
		if rec.Fitness != nil {
			f.SetValue(*rec.Fitness)
		} else {
			f.SetInvalid()
		}
		ind.Fitness = f
	case model.PolarityMin:
		f := model.NewSimpleMinFitness(0)
		if rec.Fitness != nil {
			f.SetValue(*rec.Fitness)
		} else {
			f.SetInvalid()
		}
		ind.Fitness = f
	default:
		return nil, fmt.Errorf("%w: fitness polarity %q", model.ErrUnsupportedFitness, rec.Polarity)
	}
	return ind, nil
}

// Snapshot captures every deme of viv as a milestone record.
func Snapshot(runID string, generation int, viv *model.Vivarium) (model.VivariumSnapshot, error) {
	snap := model.VivariumSnapshot{
		VersionedRecord: CurrentVersion(),
		RunID:           runID,
		Generation:      generation,
		Demes:           make([]model.DemeSnapshot, len(viv.Demes)),
		Stats:           viv.Stats(),
		SavedAt:         time.Now().UTC(),
	}
	for i, deme := range viv.Demes {
		records := make([]model.IndividualRecord, deme.Len())
		for j, ind := range deme.Individuals {
			rec, err := EncodeIndividual(ind)
			if err != nil {
				return model.VivariumSnapshot{}, fmt.Errorf("deme %d individual %d: %w", i, j, err)
			}
			records[j] = rec
		}
		snap.Demes[i] = model.DemeSnapshot{Individuals: records, Stats: deme.Stats()}
	}
	return snap, nil
}

// Restore rebuilds a vivarium from a milestone. Migration buffers start
// empty.
func Restore(snap model.VivariumSnapshot) (*model.Vivarium, error) {
	demes := make([]*model.Deme, len(snap.Demes))
	for i, d := range snap.Demes {
		inds := make([]*model.Individual, len(d.Individuals))
		for j, rec := range d.Individuals {
			ind, err := DecodeIndividual(rec)
			if err != nil {
				return nil, fmt.Errorf("deme %d individual %d: %w", i, j, err)
			}
			inds[j] = ind
		}
		demes[i] = model.NewDeme(inds)
	}
	return model.NewVivarium(demes...), nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
