package model

import (
	"vivarium/internal/registry"
	"vivarium/internal/rng"
)

// Genome is the opaque representation supplied by a plug-in.
type Genome interface {
	// Kind names the registered representation, used to decode
	// persisted individuals.
	Kind() string
	// Size is the genome length used as a parsimony tie-break.
	Size() int
	Clone() Genome
}

// Genomes maps representation kinds to empty-genome constructors.
// Plug-ins register themselves from init.
var Genomes = registry.New[func() Genome]("genome")

// GenomeInit builds a random genome of the given length.
type GenomeInit func(length int, r rng.Randomizer) Genome

// Initializers maps representation kinds to random initializers, used to
// seed a fresh population.
var Initializers = registry.New[GenomeInit]("genome initializer")

// NewRandomVivarium fills one deme per entry of sizes with unevaluated
// individuals from init.
func NewRandomVivarium(sizes []int, length int, init GenomeInit, r rng.Randomizer) *Vivarium {
	demes := make([]*Deme, len(sizes))
	for i, n := range sizes {
		inds := make([]*Individual, n)
		for j := range inds {
			inds[j] = NewIndividual(init(length, r))
		}
		demes[i] = NewDeme(inds)
	}
	return NewVivarium(demes...)
}
