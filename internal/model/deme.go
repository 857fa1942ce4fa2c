package model

// Deme is one sub-population. Its size may temporarily differ from the
// configured target between operators.
type Deme struct {
	Individuals []*Individual
	Buffer      *MigrationBuffer

	stats      Stats
	statsValid bool
}

func NewDeme(inds []*Individual) *Deme {
	return &Deme{Individuals: inds, Buffer: NewMigrationBuffer()}
}

func (d *Deme) Len() int { return len(d.Individuals) }

// Stats returns the cached statistics, recomputing them when stale.
func (d *Deme) Stats() Stats {
	if !d.statsValid {
		d.UpdateStats()
	}
	return d.stats
}

func (d *Deme) UpdateStats() {
	d.stats = ComputeStats(d.Individuals)
	d.statsValid = true
}

func (d *Deme) InvalidateStats() { d.statsValid = false }

func (d *Deme) StatsValid() bool { return d.statsValid }

// Vivarium is the whole population.
type Vivarium struct {
	Demes []*Deme

	stats      Stats
	statsValid bool
}

func NewVivarium(demes ...*Deme) *Vivarium {
	return &Vivarium{Demes: demes}
}

func (v *Vivarium) Stats() Stats {
	if !v.statsValid {
		v.UpdateStats()
	}
	return v.stats
}

// UpdateStats aggregates over every deme's individuals.
func (v *Vivarium) UpdateStats() {
	var all []*Individual
	for _, d := range v.Demes {
		all = append(all, d.Individuals...)
	}
	v.stats = ComputeStats(all)
	v.statsValid = true
}

func (v *Vivarium) InvalidateStats() { v.statsValid = false }

func (v *Vivarium) StatsValid() bool { return v.statsValid }

// Size returns the total number of individuals.
func (v *Vivarium) Size() int {
	n := 0
	for _, d := range v.Demes {
		n += d.Len()
	}
	return n
}

// Best returns the best evaluated individual across all demes, nil when
// none is evaluated. Ties keep the first in deme order.
func (v *Vivarium) Best() *Individual {
	var best *Individual
	for _, d := range v.Demes {
		for _, ind := range d.Individuals {
			if !ind.Evaluated() {
				continue
			}
			if best == nil || best.Less(ind) {
				best = ind
			}
		}
	}
	return best
}
