package model

import (
	"encoding/json"
	"time"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// HistoryRecord is one provenance event: an operator created or changed
// an individual.
type HistoryRecord struct {
	VersionedRecord
	ID         string    `json:"id"`
	Parents    []string  `json:"parents,omitempty"`
	Generation int       `json:"generation"`
	Deme       int       `json:"deme"`
	Operation  string    `json:"operation"`
	Kind       string    `json:"kind"`
	Fitness    *float64  `json:"fitness,omitempty"`
	At         time.Time `json:"at"`
}

// FitnessPolarity names the ordering of a persisted fitness.
const (
	PolarityMax = "max"
	PolarityMin = "min"
)

// IndividualRecord is the persisted form of an Individual. Genome holds
// the plug-in's JSON encoding, decoded through the Genomes registry.
type IndividualRecord struct {
	GenomeKind string          `json:"genome_kind"`
	Genome     json.RawMessage `json:"genome"`
	Fitness    *float64        `json:"fitness,omitempty"`
	Polarity   string          `json:"polarity,omitempty"`
	HistoryID  string          `json:"history_id,omitempty"`
}

type DemeSnapshot struct {
	Individuals []IndividualRecord `json:"individuals"`
	Stats       Stats              `json:"stats"`
}

// VivariumSnapshot is a milestone: the full population at a generation.
type VivariumSnapshot struct {
	VersionedRecord
	RunID      string         `json:"run_id"`
	Generation int            `json:"generation"`
	Demes      []DemeSnapshot `json:"demes"`
	Stats      Stats          `json:"stats"`
	SavedAt    time.Time      `json:"saved_at"`
}
