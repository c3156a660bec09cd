// Package terrain finds map features that shape region boundaries: ramps
// (walkable transitions between height levels) and choke points (narrow
// passages usable as cut lines).
package terrain

import (
	"slices"

	"github.com/talgya/regionmap/internal/cluster"
	"github.com/talgya/regionmap/internal/grid"
)

// Ramp is a group of walkable cells spanning more than one height level.
type Ramp struct {
	Cells []grid.Cell `json:"cells"`
	Lower int         `json:"lower"` // lowest height touched
	Upper int         `json:"upper"` // highest height touched
}

// RampConfig holds ramp detection parameters.
type RampConfig struct {
	// Epsilon is larger than the region epsilon: ramps are elongated,
	// often diagonal, and their candidate cells are sparse.
	Epsilon   float64
	MinPoints int
	MinSize   int // clusters smaller than this are discarded
}

// DefaultRampConfig returns the standard ramp detection parameters.
func DefaultRampConfig() RampConfig {
	return RampConfig{
		Epsilon:   2.5,
		MinPoints: 2,
		MinSize:   4,
	}
}

// RampFinder clusters multi-height cells into ramps.
type RampFinder struct {
	cfg RampConfig
}

// NewRampFinder creates a ramp finder.
func NewRampFinder(cfg RampConfig) *RampFinder {
	return &RampFinder{cfg: cfg}
}

// Find returns the ramps of t ordered by their first cell.
func (f *RampFinder) Find(t grid.Terrain) []Ramp {
	candidates := rampCandidates(t)
	if len(candidates) == 0 {
		return nil
	}

	points := make([]cluster.Point, len(candidates))
	for i, c := range candidates {
		// No height scaling here: a ramp is exactly the place where
		// heights change.
		points[i] = cluster.Point{X: float64(c.X), Y: float64(c.Y), ID: i}
	}
	clusters, _ := cluster.DBSCAN(points, f.cfg.Epsilon, f.cfg.MinPoints)

	var ramps []Ramp
	for _, cl := range clusters {
		if len(cl) < f.cfg.MinSize {
			continue
		}
		r := Ramp{Lower: t.Height(candidates[cl[0].ID]), Upper: t.Height(candidates[cl[0].ID])}
		for _, p := range cl {
			c := candidates[p.ID]
			r.Cells = append(r.Cells, c)
			h := t.Height(c)
			r.Lower = min(r.Lower, h)
			r.Upper = max(r.Upper, h)
		}
		slices.SortFunc(r.Cells, grid.Cell.Compare)
		ramps = append(ramps, r)
	}
	slices.SortFunc(ramps, func(a, b Ramp) int {
		return a.Cells[0].Compare(b.Cells[0])
	})
	return ramps
}

// rampCandidates returns walkable cells whose walkable 8-neighborhood spans
// more than one height level. Cliffs are unwalkable, so height changes
// across a cliff never qualify.
func rampCandidates(t grid.Terrain) []grid.Cell {
	var out []grid.Cell
	for _, c := range grid.WalkableCells(t) {
		h := t.Height(c)
		for _, n := range c.Neighbors8() {
			if t.Walkable(n) && t.Height(n) != h {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
