package terrain

import (
	"cmp"
	"math"
	"slices"

	"github.com/zyedidia/generic/mapset"

	"github.com/talgya/regionmap/internal/grid"
)

// ChokePoint is a candidate cut line across a narrow passage. Cells are
// ordered from one wall to the other. A choke point is only a candidate:
// the region decomposer decides whether cutting along it is worthwhile.
type ChokePoint struct {
	Cells  []grid.Cell `json:"cells"`
	Length float64     `json:"length"`
}

// ChokeConfig holds choke detection parameters.
type ChokeConfig struct {
	MaxLength      float64 // longest cut considered, in cells
	MaxProbe       int     // how far to walk along the passage looking for it to widen
	Widening       int     // cross-section must grow by this much on both sides
	SuppressRadius int     // candidates this close to an accepted choke are dropped
}

// DefaultChokeConfig returns the standard choke detection parameters.
func DefaultChokeConfig() ChokeConfig {
	return ChokeConfig{
		MaxLength:      10,
		MaxProbe:       20,
		Widening:       2,
		SuppressRadius: 2,
	}
}

// ChokeFinder detects narrow passages between unwalkable terrain.
type ChokeFinder struct {
	cfg ChokeConfig
}

// NewChokeFinder creates a choke finder.
func NewChokeFinder(cfg ChokeConfig) *ChokeFinder {
	return &ChokeFinder{cfg: cfg}
}

type vec struct{ x, y float64 }

func (v vec) unit() vec {
	l := math.Hypot(v.x, v.y)
	if l == 0 {
		return vec{}
	}
	return vec{v.x / l, v.y / l}
}

// step rounds a direction to the nearest of the eight grid directions.
func (v vec) step() grid.Cell {
	u := v.unit()
	return grid.Cell{X: int(math.Round(u.x)), Y: int(math.Round(u.y))}
}

func (v vec) normal() vec {
	return vec{-v.y, v.x}
}

type candidate struct {
	cells []grid.Cell
	dir   vec // across the passage
	// skew is how far a pinch cell sits off the line between the two
	// walls it separates; zero when they face each other directly.
	skew float64
}

// Find returns choke point candidates, cheapest first.
func (f *ChokeFinder) Find(t grid.Terrain) []ChokePoint {
	boundary := boundaryCells(t)
	inBoundary := mapset.New[grid.Cell]()
	for _, c := range boundary {
		inBoundary.Put(c)
	}

	var cands []candidate
	for _, a := range boundary {
		if dir, skew, ok := pinched(t, a); ok {
			cands = append(cands, candidate{cells: []grid.Cell{a}, dir: dir, skew: skew})
		}
		cands = append(cands, f.pairs(t, a, inBoundary)...)
	}

	var accepted []candidate
	for _, c := range cands {
		if f.widens(t, c) {
			accepted = append(accepted, c)
		}
	}

	slices.SortStableFunc(accepted, func(a, b candidate) int {
		return cmp.Or(
			cmp.Compare(cutLength(a.cells), cutLength(b.cells)),
			cmp.Compare(a.skew, b.skew),
			a.cells[0].Compare(b.cells[0]),
		)
	})

	var chokes []ChokePoint
	var kept [][]grid.Cell
	for _, c := range accepted {
		if suppressed(c.cells, kept, f.cfg.SuppressRadius) {
			continue
		}
		kept = append(kept, c.cells)
		chokes = append(chokes, ChokePoint{Cells: c.cells, Length: cutLength(c.cells)})
	}
	return chokes
}

// cutLength is the wall-to-wall span of a cut: the distance between its
// end cells plus one cell.
func cutLength(cells []grid.Cell) float64 {
	return cells[0].Distance(cells[len(cells)-1]) + 1
}

// boundaryCells returns walkable cells touching unwalkable or
// out-of-bounds terrain, in (y, x) order.
func boundaryCells(t grid.Terrain) []grid.Cell {
	var out []grid.Cell
	for _, c := range grid.WalkableCells(t) {
		for _, n := range c.Neighbors8() {
			if !t.Walkable(n) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// pinched reports whether a single cell separates two distinct stretches
// of unwalkable terrain, returning the direction from one to the other
// and the skew of c off the line joining them.
func pinched(t grid.Terrain, c grid.Cell) (vec, float64, bool) {
	var blocked [8]bool
	all := true
	for i, d := range grid.Ring {
		blocked[i] = !t.Walkable(c.Add(d))
		all = all && blocked[i]
	}
	if all {
		return vec{}, 0, false
	}

	// Start scanning just after an open cell so runs never wrap.
	start := 0
	for blocked[start] {
		start++
	}
	var runs [][]grid.Cell
	var cur []grid.Cell
	for k := 1; k <= 8; k++ {
		i := (start + k) % 8
		if blocked[i] {
			cur = append(cur, grid.Ring[i])
			continue
		}
		if len(cur) > 0 {
			runs = append(runs, cur)
			cur = nil
		}
	}
	if len(runs) < 2 {
		return vec{}, 0, false
	}
	a, b := mean(runs[0]), mean(runs[1])
	return vec{b.x - a.x, b.y - a.y}, math.Hypot(a.x+b.x, a.y+b.y), true
}

func mean(cells []grid.Cell) vec {
	var v vec
	for _, c := range cells {
		v.x += float64(c.X)
		v.y += float64(c.Y)
	}
	n := float64(len(cells))
	return vec{v.x / n, v.y / n}
}

// pairs returns cut candidates from a to later boundary cells. The
// straight line between them must be walkable and span from one wall to
// another: the cells just beyond both ends are unwalkable, and those two
// wall cells are not joined by a short walk along unwalkable terrain.
func (f *ChokeFinder) pairs(t grid.Terrain, a grid.Cell, boundary mapset.Set[grid.Cell]) []candidate {
	r := int(math.Floor(f.cfg.MaxLength))
	if r < 1 {
		return nil
	}

	var out []candidate
	for y := a.Y; y <= a.Y+r; y++ {
		for x := a.X - r; x <= a.X+r; x++ {
			b := grid.Cell{X: x, Y: y}
			if !a.Less(b) || !boundary.Has(b) || a.Distance(b) > f.cfg.MaxLength {
				continue
			}
			line := grid.Line(a, b)
			if !allWalkable(t, line) {
				continue
			}
			dir := vec{float64(b.X - a.X), float64(b.Y - a.Y)}
			d := dir.step()
			before := grid.Cell{X: a.X - d.X, Y: a.Y - d.Y}
			after := b.Add(d)
			if t.Walkable(before) || t.Walkable(after) {
				continue
			}
			if wallDistance(t, before, after, 2*len(line)+4) {
				continue // same wall
			}
			out = append(out, candidate{cells: line, dir: dir})
		}
	}
	return out
}

// wallDistance reports whether to can be reached from from within limit
// 8-adjacent steps over unwalkable cells. The one-cell frame around the
// map counts as unwalkable.
func wallDistance(t grid.Terrain, from, to grid.Cell, limit int) bool {
	w, h := t.Size()
	wall := func(c grid.Cell) bool {
		return c.X >= -1 && c.Y >= -1 && c.X <= w && c.Y <= h && !t.Walkable(c)
	}
	dist := map[grid.Cell]int{from: 0}
	queue := []grid.Cell{from}
	for qi := 0; qi < len(queue); qi++ {
		c := queue[qi]
		if c == to {
			return true
		}
		if dist[c] >= limit {
			continue
		}
		for _, n := range c.Neighbors8() {
			if _, seen := dist[n]; seen || !wall(n) {
				continue
			}
			dist[n] = dist[c] + 1
			queue = append(queue, n)
		}
	}
	return false
}

func allWalkable(t grid.Terrain, cells []grid.Cell) bool {
	for _, c := range cells {
		if !t.Walkable(c) {
			return false
		}
	}
	return true
}

// widens reports whether the cut is a local minimum of passage width:
// walking away from it on either side, the cross-section never gets
// narrower and eventually opens up by at least Widening cells.
func (f *ChokeFinder) widens(t grid.Terrain, c candidate) bool {
	length := len(c.cells)
	along := c.dir.step()
	n := c.dir.normal().step()
	mid := c.cells[len(c.cells)/2]
	target := length + f.cfg.Widening

	for _, s := range [2]int{1, -1} {
		opened := false
		for k := 1; k <= f.cfg.MaxProbe; k++ {
			p := mid.Add(grid.Cell{X: s * k * n.X, Y: s * k * n.Y})
			if !t.Walkable(p) {
				break
			}
			w := crossSection(t, p, along, target)
			if w < length {
				return false
			}
			if w >= target {
				opened = true
				break
			}
		}
		if !opened {
			return false
		}
	}
	return true
}

// crossSection counts walkable cells through p along dir, capped at limit.
func crossSection(t grid.Terrain, p, dir grid.Cell, limit int) int {
	w := 1
	for _, s := range [2]int{1, -1} {
		q := p
		for w < limit {
			q = q.Add(grid.Cell{X: s * dir.X, Y: s * dir.Y})
			if !t.Walkable(q) {
				break
			}
			w++
		}
	}
	return w
}

func suppressed(cells []grid.Cell, kept [][]grid.Cell, radius int) bool {
	for _, k := range kept {
		if allNear(cells, k, radius) {
			return true
		}
	}
	return false
}

func allNear(cells, other []grid.Cell, radius int) bool {
	for _, c := range cells {
		near := false
		for _, o := range other {
			if c.Chebyshev(o) <= radius {
				near = true
				break
			}
		}
		if !near {
			return false
		}
	}
	return true
}
