// Package migration moves individuals between demes along a topology.
package migration

import (
	"fmt"
	"log/slog"
	"math"

	"vivarium/internal/model"
)

// Topology is an N x N table: cell (i,j) holds the number of individuals
// deme i sends to deme j per migration event.
type Topology [][]int

// Validate checks the table is square over demes demes, holds no negative
// cells, and that every deme sends as many individuals as it receives.
func (t Topology) Validate(demes int) error {
	if len(t) != demes {
		return fmt.Errorf("%w: migration table has %d rows for %d demes", model.ErrValidation, len(t), demes)
	}
	for i, row := range t {
		if len(row) != demes {
			return fmt.Errorf("%w: migration table row %d has %d columns, want %d", model.ErrValidation, i, len(row), demes)
		}
		for j, n := range row {
			if n < 0 {
				return fmt.Errorf("%w: migration table cell (%d,%d) is negative", model.ErrValidation, i, j)
			}
		}
	}
	for i := range t {
		if out, in := t.Sent(i), t.Received(i); out != in {
			return fmt.Errorf("%w: deme %d sends %d individuals but receives %d", model.ErrValidation, i, out, in)
		}
	}
	return nil
}

// Sent is the row total of deme i.
func (t Topology) Sent(i int) int {
	total := 0
	for _, n := range t[i] {
		total += n
	}
	return total
}

// Received is the column total of deme i.
func (t Topology) Received(i int) int {
	total := 0
	for _, row := range t {
		total += row[i]
	}
	return total
}

func newTable(n int) Topology {
	t := make(Topology, n)
	for i := range t {
		t[i] = make([]int, n)
	}
	return t
}

// RingTopology sends migrants from deme i to deme (i+1) mod n.
func RingTopology(n, migrants int) (Topology, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: ring needs at least one deme", model.ErrValidation)
	}
	if migrants < 0 {
		return nil, fmt.Errorf("%w: migrant count must be >= 0, got %d", model.ErrValidation, migrants)
	}
	t := newTable(n)
	for i := 0; i < n; i++ {
		t[i][(i+1)%n] = migrants
	}
	return t, t.Validate(n)
}

// GridConfig shapes a grid topology.
type GridConfig struct {
	// Width is the number of demes per row; 0 picks ceil(sqrt(n)).
	Width int
	// Toroidal wraps rows and columns. It is ignored below 5 demes.
	Toroidal bool
	Migrants int
}

// GridTopology lays demes out row by row and links each one with its
// cardinal neighbours in both directions. The last row may be partial.
func GridTopology(n int, cfg GridConfig, logger *slog.Logger) (Topology, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: grid needs at least one deme", model.ErrValidation)
	}
	if cfg.Migrants < 0 || cfg.Width < 0 {
		return nil, fmt.Errorf("%w: grid width and migrant count must be >= 0", model.ErrValidation)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	toroidal := cfg.Toroidal
	if toroidal && n < 5 {
		logger.Warn("toroidal grids need at least 5 demes, wrapping disabled", "demes", n)
		toroidal = false
	}
	width := cfg.Width
	if width == 0 {
		width = int(math.Ceil(math.Sqrt(float64(n))))
	}
	width = min(width, n)

	rowLen := func(r int) int { return min(width, n-r*width) }
	colLen := func(c int) int {
		h := n / width
		if c < n%width {
			h++
		}
		return h
	}

	t := newTable(n)
	link := func(a, b int) {
		if a != b {
			t[a][b] = cfg.Migrants
			t[b][a] = cfg.Migrants
		}
	}
	for k := 0; k < n; k++ {
		r, c := k/width, k%width
		if c+1 < rowLen(r) {
			link(k, k+1)
		} else if toroidal {
			link(k, r*width)
		}
		if r+1 < colLen(c) {
			link(k, k+width)
		} else if toroidal {
			link(k, c)
		}
	}
	logger.Debug("built migration grid", "demes", n, "width", width, "toroidal", toroidal)
	return t, t.Validate(n)
}
