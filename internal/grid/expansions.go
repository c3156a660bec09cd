// Expansion placement: finds open buildable ground suitable for bases.
package grid

import (
	"cmp"
	"math"
	"slices"
)

// PlaceExpansions picks up to count expansion locations on m, best first,
// at least minDist apart. Placement is deterministic for a given map.
func PlaceExpansions(m *Map, count, minDist int) []Cell {
	if count <= 0 {
		return nil
	}

	type scored struct {
		cell  Cell
		score float64
	}
	var candidates []scored
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			c := Cell{X: x, Y: y}
			if s := expansionScore(m, c); s > 0 {
				candidates = append(candidates, scored{c, s})
			}
		}
	}

	// Sort by score descending.
	slices.SortFunc(candidates, func(a, b scored) int {
		return cmp.Or(cmp.Compare(b.score, a.score), a.cell.Compare(b.cell))
	})

	var placed []Cell
	for _, c := range candidates {
		if len(placed) >= count {
			break
		}
		if tooClose(c.cell, placed, float64(minDist)) {
			continue
		}
		placed = append(placed, c.cell)
	}
	return placed
}

// expansionScore evaluates how desirable c is for a base. The footprint
// around it must be clear buildable ground; open space and nearby
// non-buildable walkable ground (ramps, paths) raise the score.
func expansionScore(m *Map, c Cell) float64 {
	const footprint, reach = 2, 6

	for dy := -footprint; dy <= footprint; dy++ {
		for dx := -footprint; dx <= footprint; dx++ {
			n := Cell{X: c.X + dx, Y: c.Y + dy}
			if !m.Buildable(n) || m.Obstructed(n) || m.Height(n) != m.Height(c) {
				return 0
			}
		}
	}

	open, access := 0, 0
	for dy := -reach; dy <= reach; dy++ {
		for dx := -reach; dx <= reach; dx++ {
			n := Cell{X: c.X + dx, Y: c.Y + dy}
			switch {
			case m.Buildable(n) && m.Height(n) == m.Height(c):
				open++
			case m.Walkable(n):
				access++
			}
		}
	}

	score := 3.0 * float64(open) / float64((2*reach+1)*(2*reach+1))
	if access > 0 {
		score += 0.5
	}
	score += math.Log1p(float64(open+access)) * 0.2
	return score
}
