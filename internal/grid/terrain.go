package grid

import "errors"

// Sentinel errors for map construction and parsing.
var (
	// ErrEmptyMap indicates a map with no rows or no columns.
	ErrEmptyMap = errors.New("grid: map must have at least one row and one column")
	// ErrNonRectangular indicates rows of differing lengths.
	ErrNonRectangular = errors.New("grid: all rows must have the same length")
	// ErrUnknownGlyph indicates a map character with no terrain meaning.
	ErrUnknownGlyph = errors.New("grid: unknown map glyph")
	// ErrObstacleIndex indicates an obstacle index out of range.
	ErrObstacleIndex = errors.New("grid: obstacle index out of range")
)

// Terrain answers per-cell queries about a map. Implementations report
// false / zero for out-of-bounds cells.
type Terrain interface {
	Size() (width, height int)
	InBounds(c Cell) bool
	// Walkable reports terrain pathability, ignoring obstacles.
	Walkable(c Cell) bool
	Buildable(c Cell) bool
	// Height returns the discrete elevation level.
	Height(c Cell) int
	// Obstructed reports whether a blocking object currently covers the cell.
	Obstructed(c Cell) bool
}

// Passable reports whether a unit can stand on c right now.
func Passable(t Terrain, c Cell) bool {
	return t.Walkable(c) && !t.Obstructed(c)
}

// WalkableCells returns every walkable cell of t in (y, x) order.
func WalkableCells(t Terrain) []Cell {
	w, h := t.Size()
	var cells []Cell
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := Cell{X: x, Y: y}
			if t.Walkable(c) {
				cells = append(cells, c)
			}
		}
	}
	return cells
}

// Obstacle is a blocking neutral object such as destructible rocks.
type Obstacle struct {
	Kind      string `json:"kind"`
	Footprint []Cell `json:"footprint"`
	Cleared   bool   `json:"cleared"`
}

// Center returns the mean position of the footprint.
func (o Obstacle) Center() Point {
	if len(o.Footprint) == 0 {
		return Point{}
	}
	var sx, sy float64
	for _, c := range o.Footprint {
		p := c.Center()
		sx += p.X
		sy += p.Y
	}
	n := float64(len(o.Footprint))
	return Point{X: sx / n, Y: sy / n}
}
