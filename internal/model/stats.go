package model

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the scalar fitness of a group of individuals.
// Individuals without a valid scalar fitness are counted in Size only.
type Stats struct {
	Size      int     `json:"size"`
	Evaluated int     `json:"evaluated"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
	Max       float64 `json:"max"`
	Min       float64 `json:"min"`
}

func ComputeStats(inds []*Individual) Stats {
	s := Stats{Size: len(inds)}
	values := make([]float64, 0, len(inds))
	for _, ind := range inds {
		if v, ok := ind.ScalarFitness(); ok {
			values = append(values, v)
		}
	}
	s.Evaluated = len(values)
	if len(values) == 0 {
		return s
	}
	s.Max, s.Min = math.Inf(-1), math.Inf(1)
	for _, v := range values {
		s.Max = math.Max(s.Max, v)
		s.Min = math.Min(s.Min, v)
	}
	if len(values) == 1 {
		s.Mean = values[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	return s
}
