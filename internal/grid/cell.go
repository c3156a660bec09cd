// Package grid provides the cell grid, terrain queries, and map sources.
// Cells use integer (x, y) coordinates with y growing downward.
package grid

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// Cell is a single discrete grid unit.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Point is a continuous map position. Cell (x, y) covers [x, x+1) × [y, y+1).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Cell returns the cell containing the point.
func (p Point) Cell() Cell {
	return Cell{X: int(math.Floor(p.X)), Y: int(math.Floor(p.Y))}
}

// Distance returns the Euclidean distance between two points.
func (p Point) Distance(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Center returns the point at the middle of the cell.
func (c Cell) Center() Point {
	return Point{X: float64(c.X) + 0.5, Y: float64(c.Y) + 0.5}
}

// Add offsets a cell by another cell treated as a vector.
func (c Cell) Add(d Cell) Cell {
	return Cell{X: c.X + d.X, Y: c.Y + d.Y}
}

// Less orders cells by row, then column.
func (c Cell) Less(o Cell) bool {
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.X < o.X
}

// Compare is Less as a three-way comparison, for slices.SortFunc.
func (c Cell) Compare(o Cell) int {
	switch {
	case c == o:
		return 0
	case c.Less(o):
		return -1
	default:
		return 1
	}
}

// Distance returns the Euclidean distance between two cells.
func (c Cell) Distance(o Cell) float64 {
	return math.Hypot(float64(c.X-o.X), float64(c.Y-o.Y))
}

// Chebyshev returns the king-move distance between two cells.
func (c Cell) Chebyshev(o Cell) int {
	return max(Abs(c.X-o.X), Abs(c.Y-o.Y))
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Orthogonal offsets: N, E, S, W.
var Orthogonal = [4]Cell{
	{X: 0, Y: -1},
	{X: 1, Y: 0},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
}

// Ring lists the eight neighbor offsets clockwise starting at north.
var Ring = [8]Cell{
	{X: 0, Y: -1},
	{X: 1, Y: -1},
	{X: 1, Y: 0},
	{X: 1, Y: 1},
	{X: 0, Y: 1},
	{X: -1, Y: 1},
	{X: -1, Y: 0},
	{X: -1, Y: -1},
}

// Neighbors4 returns the four orthogonally adjacent cells.
func (c Cell) Neighbors4() [4]Cell {
	var result [4]Cell
	for i, d := range Orthogonal {
		result[i] = c.Add(d)
	}
	return result
}

// Neighbors8 returns the eight surrounding cells, clockwise from north.
func (c Cell) Neighbors8() [8]Cell {
	var result [8]Cell
	for i, d := range Ring {
		result[i] = c.Add(d)
	}
	return result
}

// Abs returns the absolute value of v.
func Abs[T constraints.Signed | constraints.Float](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

// Sign returns -1, 0 or 1.
func Sign[T constraints.Signed | constraints.Float](v T) T {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}

// Line returns the cells on the Bresenham line from a to b, inclusive.
func Line(a, b Cell) []Cell {
	dx := Abs(b.X - a.X)
	dy := -Abs(b.Y - a.Y)
	sx, sy := Sign(b.X-a.X), Sign(b.Y-a.Y)
	e := dx + dy

	cells := make([]Cell, 0, max(dx, -dy)+1)
	c := a
	for {
		cells = append(cells, c)
		if c == b {
			return cells
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			c.X += sx
		}
		if e2 <= dx {
			e += dx
			c.Y += sy
		}
	}
}
