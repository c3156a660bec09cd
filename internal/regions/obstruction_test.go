package regions

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/regionmap/internal/grid"
	"github.com/talgya/regionmap/internal/pathing"
)

// corridorMap has a three-cell corridor through a wall with rocks in its
// middle and an open detour around both ends of the wall.
func corridorMap(t *testing.T) *grid.Map {
	return mustMap(t,
		".......",
		".#####.",
		"...X...",
		".#####.",
		".......",
	)
}

func corridorRegion(typ Type, neighbors ...Neighbor) *Region {
	return &Region{
		ID:        0,
		Type:      typ,
		Cells:     []grid.Cell{{X: 2, Y: 2}, {X: 3, Y: 2}, {X: 4, Y: 2}},
		Neighbors: neighbors,
	}
}

var (
	westSide = Neighbor{RegionID: 1, Frontier: []grid.Cell{{X: 1, Y: 2}, {X: 2, Y: 2}}}
	eastSide = Neighbor{RegionID: 2, Frontier: []grid.Cell{{X: 4, Y: 2}, {X: 5, Y: 2}}}
)

func TestRefreshObstruction_BypassRatio(t *testing.T) {
	m := corridorMap(t)
	require.Len(t, m.Obstacles, 1)
	pf := pathing.New(m, pathing.DefaultConfig())
	r := corridorRegion(Ramp, westSide, eastSide)
	g := &Graph{Regions: []*Region{r}}
	g.Reindex()

	// The rocks force the shortest path around the wall, entirely outside
	// the corridor.
	g.RefreshObstruction(Obstruction{Terrain: m, Paths: pf, InsideRatio: 0.5})
	assert.True(t, r.Obstructed)

	require.NoError(t, m.ClearObstacle(0))
	pf.Invalidate()
	g.RefreshObstruction(Obstruction{Terrain: m, Paths: pf, InsideRatio: 0.5})
	assert.False(t, r.Obstructed, "the direct path runs mostly through the corridor")

	g.RefreshObstruction(Obstruction{Terrain: m, Paths: pf, InsideRatio: 0.8})
	assert.True(t, r.Obstructed, "a stricter ratio rejects the same path")
}

func TestRefreshObstruction_NotEvaluable(t *testing.T) {
	m := corridorMap(t)
	pf := pathing.New(m, pathing.DefaultConfig())

	tests := []struct {
		name string
		typ  Type
		warn bool
	}{
		{"ramp warns", Ramp, true},
		{"open area stays quiet", OpenArea, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			r := corridorRegion(tt.typ, westSide)
			g := &Graph{Regions: []*Region{r}}
			g.Reindex()

			g.RefreshObstruction(Obstruction{
				Terrain:     m,
				Paths:       pf,
				InsideRatio: 0.5,
				Logger:      slog.New(slog.NewTextHandler(&buf, nil)),
			})

			assert.False(t, r.Obstructed)
			if tt.warn {
				assert.Equal(t, 1, strings.Count(buf.String(), "level=WARN"))
				assert.Contains(t, buf.String(), "obstruction not evaluable")
				assert.Contains(t, buf.String(), "frontier_clusters=1")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestRefreshObstruction_NoPassableCells(t *testing.T) {
	m := mustMap(t,
		".......",
		".#####.",
		"..XXX..",
		".#####.",
		".......",
	)
	pf := pathing.New(m, pathing.DefaultConfig())
	r := corridorRegion(Ramp, westSide, eastSide)
	g := &Graph{Regions: []*Region{r}}
	g.Reindex()

	g.RefreshObstruction(Obstruction{Terrain: m, Paths: pf, InsideRatio: 0.5})
	assert.True(t, r.Obstructed)
}
