package regions

import (
	"context"
	"log/slog"

	"github.com/zyedidia/generic/mapset"

	"github.com/talgya/regionmap/internal/cluster"
	"github.com/talgya/regionmap/internal/grid"
)

// Obstruction decides whether regions are currently impassable.
type Obstruction struct {
	Terrain grid.Terrain
	Paths   CellPather
	// InsideRatio is the share of a bypass path that must lie inside the
	// region for the region to count as passable.
	InsideRatio float64
	Logger      *slog.Logger
}

// RefreshObstruction recomputes the obstructed flag of every region. It
// is the only mutation a Graph allows after construction; callers must
// invalidate their path cache first when terrain changed.
func (g *Graph) RefreshObstruction(o Obstruction) {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	for _, r := range g.Regions {
		r.Obstructed = g.obstructed(r, o)
	}
}

func (g *Graph) obstructed(r *Region, o Obstruction) bool {
	passable := 0
	for _, c := range r.Cells {
		if grid.Passable(o.Terrain, c) {
			passable++
		}
	}
	if passable == 0 {
		return true
	}

	// Cells just outside the region where traffic enters or leaves it.
	inRegion := setOf(r.Cells)
	outside := mapset.New[grid.Cell]()
	for _, nb := range r.Neighbors {
		for _, c := range nb.Frontier {
			if !inRegion.Has(c) {
				outside.Put(c)
			}
		}
	}
	sides := cluster.Components(sortedCells(outside), neighbors8)
	if len(sides) != 2 {
		level := slog.LevelDebug
		if r.Type == Ramp || r.Barrier {
			level = slog.LevelWarn
		}
		o.Logger.Log(context.Background(), level, "obstruction not evaluable",
			"region", r.ID, "type", r.Type, "frontier_clusters", len(sides))
		return false
	}

	var ends [2]grid.Cell
	for i, side := range sides {
		found := false
		for _, c := range sortedCells(setOf(side)) {
			if grid.Passable(o.Terrain, c) {
				ends[i], found = c, true
				break
			}
		}
		if !found {
			return true
		}
	}

	path, err := o.Paths.FindCellPath(ends[0], ends[1])
	if err != nil || len(path) == 0 {
		return true
	}
	inside := 0
	for _, c := range path {
		if inRegion.Has(c) {
			inside++
		}
	}
	return float64(inside)/float64(len(path)) <= o.InsideRatio
}
