package regions

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/regionmap/internal/cluster"
	"github.com/talgya/regionmap/internal/grid"
	"github.com/talgya/regionmap/internal/pathing"
	"github.com/talgya/regionmap/internal/terrain"
)

func mustMap(t *testing.T, rows ...string) *grid.Map {
	t.Helper()
	m, err := grid.ParseMap(strings.Join(rows, "\n"))
	require.NoError(t, err)
	return m
}

func decompose(t *testing.T, m *grid.Map) (*Graph, *pathing.Pathfinder) {
	t.Helper()
	pf := pathing.New(m, pathing.DefaultConfig())
	d := NewDecomposer(DefaultConfig(),
		terrain.NewRampFinder(terrain.DefaultRampConfig()),
		terrain.NewChokeFinder(terrain.DefaultChokeConfig()),
		pf, nil)
	g := d.Decompose(InputFromMap(m))
	assertInvariants(t, m, g)
	return g, pf
}

func wallWithGap(t *testing.T) *grid.Map {
	return mustMap(t,
		".....#....",
		".....#....",
		".....#....",
		".....#....",
		".....#....",
		".....#....",
		".....#....",
		".....#....",
		".....#....",
		"..........",
	)
}

// rampMap has a low plateau on top and a high plateau below, joined by a
// two-cell ramp at height 1.
func rampMap(t *testing.T) *grid.Map {
	return mustMap(t,
		"############",
		"#..........#",
		"#..........#",
		"#..........#",
		"#####bb#####",
		"#2222222222#",
		"#2222222222#",
		"#2222222222#",
		"############",
	)
}

func arena(t *testing.T) *grid.Map {
	return mustMap(t,
		"; name: Test Arena",
		"########################",
		"#......................#",
		"#...E..........#.......#",
		"#..............#.......#",
		"#..............#.......#",
		"#######..#######.......#",
		"#......................#",
		"#......................#",
		"#######bb###############",
		"#2222222222222222222222#",
		"#2222222222E22222222222#",
		"#2222222222222222222222#",
		"#22222XXX22222222222222#",
		"#2222222222222222222222#",
		"#2222222222222222222222#",
		"########################",
	)
}

// assertInvariants checks the structural guarantees every graph holds.
func assertInvariants(t *testing.T, m *grid.Map, g *Graph) {
	t.Helper()

	seen := make(map[grid.Cell]string)
	claim := func(c grid.Cell, by string) {
		prev, dup := seen[c]
		require.False(t, dup, "cell %v claimed by %s and %s", c, prev, by)
		seen[c] = by
	}
	for _, r := range g.Regions {
		for _, c := range r.Cells {
			claim(c, "region")
		}
	}
	for _, c := range g.Noise {
		claim(c, "noise")
	}
	walkable := grid.WalkableCells(m)
	require.Len(t, seen, len(walkable), "regions and noise must cover every walkable cell")
	for _, c := range walkable {
		_, ok := seen[c]
		require.True(t, ok, "cell %v unassigned", c)
	}

	for i, r := range g.Regions {
		require.Equal(t, i, r.ID)
		require.NotEmpty(t, r.Cells)
		comps := cluster.Components(r.Cells, neighbors4)
		require.Len(t, comps, 1, "region %d is not 4-connected", r.ID)
		require.Contains(t, r.Cells, r.Center)
		if i > 0 {
			require.Equal(t, -1, g.Regions[i-1].Center.Compare(r.Center), "ids follow center order")
		}
		for _, nb := range r.Neighbors {
			other := g.Regions[nb.RegionID]
			back, ok := other.Frontier(r.ID)
			require.True(t, ok, "neighbor %d of %d is not symmetric", other.ID, r.ID)
			require.Equal(t, nb.Frontier, back)
		}
	}
}

func TestDecompose_WallWithGap(t *testing.T) {
	m := wallWithGap(t)
	g, pf := decompose(t, m)

	require.Len(t, g.Regions, 2)
	assert.Empty(t, g.Noise)
	assert.Equal(t, []int{0}, g.UsedChokes)

	left, right := g.Regions[0], g.Regions[1]
	assert.Equal(t, OpenArea, left.Type)
	assert.Equal(t, OpenArea, right.Type)
	assert.Equal(t, []int{1}, left.NeighborIDs())
	assert.Equal(t, []int{0}, right.NeighborIDs())

	frontier, ok := left.Frontier(1)
	require.True(t, ok)
	assert.Equal(t, []grid.Cell{{X: 4, Y: 9}, {X: 5, Y: 9}, {X: 6, Y: 9}}, frontier)
	assert.Equal(t, []grid.Cell{{X: 5, Y: 9}}, g.Chokes[0].Cells)
	assert.Len(t, left.Cells, 50)
	assert.NotEqual(t, left.Color, right.Color)
	assert.False(t, left.Obstructed)
	assert.False(t, right.Obstructed)

	p, err := pf.FindPath(grid.Cell{}.Center(), grid.Cell{X: 9}.Center())
	require.NoError(t, err)
	assert.Contains(t, p, grid.Cell{X: 5, Y: 9}.Center())
}

func TestDecompose_Ramp(t *testing.T) {
	g, _ := decompose(t, rampMap(t))

	require.Len(t, g.Regions, 3)
	upper, ramp, lower := g.Regions[0], g.Regions[1], g.Regions[2]

	assert.Equal(t, OpenArea, upper.Type)
	assert.Equal(t, Ramp, ramp.Type)
	assert.Equal(t, OpenArea, lower.Type)
	assert.Equal(t, 10, ramp.Size())
	assert.Equal(t, grid.Cell{X: 5, Y: 4}, ramp.Center)
	assert.Equal(t, []RampInfo{{RegionID: 1, Lower: 0, Upper: 2}}, g.Ramps)

	assert.Equal(t, []int{1}, upper.NeighborIDs())
	assert.Equal(t, []int{0, 2}, ramp.NeighborIDs())
	assert.Equal(t, []int{1}, lower.NeighborIDs())

	assert.Equal(t, 0, ramp.Color)
	assert.Equal(t, 1, upper.Color)
	assert.Equal(t, 1, lower.Color)
	assert.False(t, ramp.Obstructed)
}

func TestDecompose_BarrierObstacle(t *testing.T) {
	m := mustMap(t,
		"..........",
		"..........",
		"..........",
		"###XXXX###",
		"..........",
		"..........",
		"..........",
	)
	g, _ := decompose(t, m)

	require.Len(t, g.Regions, 3)
	barrier := g.Regions[1]
	assert.True(t, barrier.Barrier)
	assert.Equal(t, OpenArea, barrier.Type)
	assert.Equal(t, 4, barrier.Size())
	assert.True(t, barrier.Obstructed, "every cell is covered by rocks")
	assert.False(t, g.Regions[0].Obstructed)
	assert.Equal(t, []int{1}, g.Regions[0].NeighborIDs())
	assert.Equal(t, []int{1}, g.Regions[2].NeighborIDs())
}

func TestRefreshObstruction_RocksOnRamp(t *testing.T) {
	m := rampMap(t)
	g, pf := decompose(t, m)
	ramp := g.Regions[1]
	require.False(t, ramp.Obstructed)

	rocks := m.AddObstacle("rocks", []grid.Cell{{X: 5, Y: 4}, {X: 6, Y: 4}})
	pf.Invalidate()
	g.RefreshObstruction(Obstruction{Terrain: m, Paths: pf, InsideRatio: 0.5})
	assert.True(t, ramp.Obstructed)
	assert.Empty(t, g.GetReachableNeighbors(0, pf))

	require.NoError(t, m.ClearObstacle(rocks))
	pf.Invalidate()
	g.RefreshObstruction(Obstruction{Terrain: m, Paths: pf, InsideRatio: 0.5})
	assert.False(t, ramp.Obstructed)
}

func TestDecompose_ExpandRegion(t *testing.T) {
	m := mustMap(t,
		"..........",
		"..........",
		"..........",
		"......E...",
		"..........",
	)
	g, _ := decompose(t, m)

	require.Len(t, g.Regions, 1)
	r := g.Regions[0]
	assert.Equal(t, Expand, r.Type)
	assert.Equal(t, grid.Cell{X: 6, Y: 3}, r.Center)

	assert.True(t, g.IsBlockingExpand(grid.Point{X: 6.5, Y: 3.5}))
	assert.True(t, g.IsBlockingExpand(grid.Point{X: 2, Y: 2}))
	assert.False(t, g.IsBlockingExpand(grid.Point{X: 0.5, Y: 0.5}))
	assert.False(t, g.IsBlockingExpand(grid.Point{X: 20, Y: 20}))
}

func TestDecompose_IsolatedCellsAreNoise(t *testing.T) {
	m := mustMap(t,
		"#######",
		"#.#####",
		"##.....",
		"#......",
		"#......",
		"#......",
	)
	g, _ := decompose(t, m)

	assert.Contains(t, g.Noise, grid.Cell{X: 1, Y: 1})
	_, ok := g.GetRegion(grid.Point{X: 1.5, Y: 1.5})
	assert.False(t, ok)
}

func TestDecompose_SmallAreaIsNoise(t *testing.T) {
	m := mustMap(t,
		"##########",
		"#..#######",
		"#..#######",
		"##########",
	)
	g, _ := decompose(t, m)

	assert.Empty(t, g.Regions)
	assert.Len(t, g.Noise, 4)
}

func TestDecompose_NothingPlayable(t *testing.T) {
	m := mustMap(t,
		"####",
		"####",
	)
	g, _ := decompose(t, m)

	assert.Empty(t, g.Regions)
	assert.Empty(t, g.Noise)
	assert.NotEmpty(t, g.AnalysisID)
}

func TestDecompose_Deterministic(t *testing.T) {
	m := arena(t)
	a, _ := decompose(t, m)
	b, _ := decompose(t, m)

	assert.Equal(t, a.Regions, b.Regions)
	assert.Equal(t, a.Noise, b.Noise)
	assert.Equal(t, a.Chokes, b.Chokes)
	assert.Equal(t, a.UsedChokes, b.UsedChokes)
	assert.NotEqual(t, a.AnalysisID, b.AnalysisID)
}

func TestDecompose_SequentialMatchesParallel(t *testing.T) {
	m := arena(t)
	parallel, _ := decompose(t, m)

	cfg := DefaultConfig()
	cfg.Parallel = false
	pf := pathing.New(m, pathing.DefaultConfig())
	d := NewDecomposer(cfg,
		terrain.NewRampFinder(terrain.DefaultRampConfig()),
		terrain.NewChokeFinder(terrain.DefaultChokeConfig()),
		pf, nil)
	sequential := d.Decompose(InputFromMap(m))

	assert.Equal(t, parallel.Regions, sequential.Regions)
}

func TestDecompose_Arena(t *testing.T) {
	g, _ := decompose(t, arena(t))

	assert.Equal(t, "Test Arena", g.MapName)
	assert.NotEmpty(t, g.RegionsOfType(Ramp))
	assert.Len(t, g.RegionsOfType(Expand), 2)
	for _, r := range g.Regions {
		if r.Type != Ramp {
			assert.GreaterOrEqual(t, r.Size(), DefaultConfig().MinRegionSize)
		}
	}
}
