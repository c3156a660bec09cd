package pathing

import (
	"container/heap"
	"math"
	"time"

	"github.com/talgya/regionmap/internal/grid"
)

// search runs A* from start to goal over 8-connected passable cells.
//
// Costs are 1 for orthogonal and √2 for diagonal steps; the heuristic is
// the straight-line distance, which is admissible and consistent for
// these costs. A diagonal step is refused when both orthogonal cells
// beside it are impassable, matching the game's corner-cutting rule.
// Equal f-scores pop in insertion order so results are reproducible.
func (pf *Pathfinder) search(start, goal grid.Cell) ([]grid.Cell, bool) {
	pf.searches.Add(1)
	began := time.Now()
	defer func() { searchDuration.Observe(time.Since(began).Seconds()) }()

	w, h := pf.terrain.Size()
	if !pf.terrain.InBounds(start) || !pf.terrain.InBounds(goal) {
		return nil, false
	}
	index := func(c grid.Cell) int { return c.Y*w + c.X }

	g := make([]float64, w*h)
	for i := range g {
		g[i] = math.Inf(1)
	}
	prev := make([]int32, w*h)
	closed := make([]bool, w*h)

	goalCenter := goal.Center()
	heuristic := func(c grid.Cell) float64 { return c.Center().Distance(goalCenter) }

	var open openSet
	seq := 0
	g[index(start)] = 0
	prev[index(start)] = -1
	heap.Push(&open, &openItem{cell: start, f: heuristic(start), seq: seq})

	for open.Len() > 0 {
		cur := heap.Pop(&open).(*openItem)
		ci := index(cur.cell)
		if closed[ci] {
			continue // stale entry
		}
		if cur.cell == goal {
			return reconstruct(prev, ci, w), true
		}
		closed[ci] = true

		for _, d := range grid.Ring {
			n := cur.cell.Add(d)
			if !grid.Passable(pf.terrain, n) {
				continue
			}
			ni := index(n)
			if closed[ni] {
				continue
			}
			cost := 1.0
			if d.X != 0 && d.Y != 0 {
				sideA := grid.Cell{X: cur.cell.X + d.X, Y: cur.cell.Y}
				sideB := grid.Cell{X: cur.cell.X, Y: cur.cell.Y + d.Y}
				if !grid.Passable(pf.terrain, sideA) && !grid.Passable(pf.terrain, sideB) {
					continue
				}
				cost = math.Sqrt2
			}
			ng := g[ci] + cost
			if ng >= g[ni] {
				continue
			}
			g[ni] = ng
			prev[ni] = int32(ci)
			seq++
			heap.Push(&open, &openItem{cell: n, f: ng + heuristic(n), seq: seq})
		}
	}
	return nil, false
}

func reconstruct(prev []int32, last, width int) []grid.Cell {
	var cells []grid.Cell
	for i := last; i >= 0; i = int(prev[i]) {
		cells = append(cells, grid.Cell{X: i % width, Y: i / width})
	}
	for l, r := 0, len(cells)-1; l < r; l, r = l+1, r-1 {
		cells[l], cells[r] = cells[r], cells[l]
	}
	return cells
}

type openItem struct {
	cell grid.Cell
	f    float64
	seq  int
}

// openSet is a min-heap on (f, seq) with lazy decrease-key: improved
// entries are pushed again and stale ones skipped when popped.
type openSet []*openItem

func (o openSet) Len() int { return len(o) }

func (o openSet) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	return o[i].seq < o[j].seq
}

func (o openSet) Swap(i, j int) { o[i], o[j] = o[j], o[i] }

func (o *openSet) Push(x any) { *o = append(*o, x.(*openItem)) }

func (o *openSet) Pop() any {
	old := *o
	n := len(old)
	item := old[n-1]
	*o = old[:n-1]
	return item
}
