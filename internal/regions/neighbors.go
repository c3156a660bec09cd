package regions

import (
	"slices"

	"github.com/zyedidia/generic/mapset"

	"github.com/talgya/regionmap/internal/grid"
)

// assignNeighbors links regions that share a 4-adjacent border. The
// frontier of a pair is every cell of either region touching the other.
// A cut choke cell lies on the seam itself, so its 4-neighbors on its own
// side join the frontier as well.
func assignNeighbors(g *Graph) {
	type pair struct{ a, b int }
	frontiers := make(map[pair]mapset.Set[grid.Cell])
	for _, r := range g.Regions {
		for _, c := range r.Cells {
			for _, n := range c.Neighbors4() {
				o, ok := g.Owner(n)
				if !ok || o == r.ID {
					continue
				}
				key := pair{min(r.ID, o), max(r.ID, o)}
				f, ok := frontiers[key]
				if !ok {
					f = mapset.New[grid.Cell]()
					frontiers[key] = f
				}
				f.Put(c)
				f.Put(n)
			}
		}
	}

	for _, i := range g.UsedChokes {
		for _, c := range g.Chokes[i].Cells {
			own, ok := g.Owner(c)
			if !ok {
				continue
			}
			for key, f := range frontiers {
				if (key.a != own && key.b != own) || !f.Has(c) {
					continue
				}
				for _, n := range c.Neighbors4() {
					if o, ok := g.Owner(n); ok && o == own {
						f.Put(n)
					}
				}
			}
		}
	}

	for _, r := range g.Regions {
		r.Neighbors = nil
	}
	for key, f := range frontiers {
		cells := sortedCells(f)
		a, b := g.Regions[key.a], g.Regions[key.b]
		a.Neighbors = append(a.Neighbors, Neighbor{RegionID: b.ID, Frontier: cells})
		b.Neighbors = append(b.Neighbors, Neighbor{RegionID: a.ID, Frontier: cells})
	}
	for _, r := range g.Regions {
		slices.SortFunc(r.Neighbors, func(x, y Neighbor) int { return x.RegionID - y.RegionID })
	}
}

// assignColors gives ramps color 0 and every other region the lowest
// palette color not used by an already colored neighbor.
func assignColors(g *Graph, palette int) {
	if palette < 2 {
		palette = 2
	}
	colored := make([]bool, len(g.Regions))
	for _, r := range g.Regions {
		if r.Type == Ramp {
			r.Color = 0
			colored[r.ID] = true
		}
	}
	for _, r := range g.Regions {
		if colored[r.ID] {
			continue
		}
		taken := make([]bool, palette)
		for _, nb := range r.Neighbors {
			if colored[nb.RegionID] {
				taken[g.Regions[nb.RegionID].Color] = true
			}
		}
		r.Color = 1 + r.ID%(palette-1)
		for c := 1; c < palette; c++ {
			if !taken[c] {
				r.Color = c
				break
			}
		}
		colored[r.ID] = true
	}
}
