package persistence

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/regionmap/internal/grid"
	"github.com/talgya/regionmap/internal/pathing"
	"github.com/talgya/regionmap/internal/regions"
	"github.com/talgya/regionmap/internal/terrain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "regions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testGraph(t *testing.T) *regions.Graph {
	t.Helper()
	m, err := grid.ParseMap(strings.Join([]string{
		"; name: Lost Temple LE",
		"############",
		"#..........#",
		"#.....E....#",
		"#..........#",
		"#####bb#####",
		"#2222222222#",
		"#2222222222#",
		"#2222222222#",
		"############",
	}, "\n"))
	require.NoError(t, err)

	pf := pathing.New(m, pathing.DefaultConfig())
	d := regions.NewDecomposer(regions.DefaultConfig(),
		terrain.NewRampFinder(terrain.DefaultRampConfig()),
		terrain.NewChokeFinder(terrain.DefaultChokeConfig()),
		pf, nil)
	return d.Decompose(regions.InputFromMap(m))
}

func TestNormalizeMapName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Lost Temple LE", "losttemplele"},
		{"lost-temple_le", "losttemplele"},
		{"Map 2.0", "map20"},
	}
	for _, tt := range tests {
		got, err := NormalizeMapName(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := NormalizeMapName(" -- ")
	assert.ErrorIs(t, err, ErrEmptyMapName)
}

func TestSaveLoadGraph(t *testing.T) {
	db := openTestDB(t)
	g := testGraph(t)
	require.NotEmpty(t, g.Regions)

	require.NoError(t, db.SaveGraph(g))

	loaded, err := db.LoadGraph("losttemple-le")
	require.NoError(t, err)

	assert.Equal(t, g.MapName, loaded.MapName)
	assert.Equal(t, g.Width, loaded.Width)
	assert.Equal(t, g.Height, loaded.Height)
	assert.Equal(t, g.AnalysisID, loaded.AnalysisID)
	assert.True(t, g.CreatedAt.Equal(loaded.CreatedAt))
	assert.Equal(t, g.Regions, loaded.Regions)
	assert.Equal(t, g.Ramps, loaded.Ramps)
	assert.Equal(t, g.Noise, loaded.Noise)
	assert.Equal(t, g.Chokes, loaded.Chokes)
	assert.Equal(t, g.Expansions, loaded.Expansions)
	assert.Equal(t, g.ExpandBlockRadius, loaded.ExpandBlockRadius)

	r, ok := loaded.GetRegion(grid.Point{X: 6.5, Y: 2.5})
	require.True(t, ok)
	assert.Equal(t, regions.Expand, r.Type)
}

func TestSaveGraph_Replaces(t *testing.T) {
	db := openTestDB(t)
	g := testGraph(t)
	require.NoError(t, db.SaveGraph(g))

	again := testGraph(t)
	require.NoError(t, db.SaveGraph(again))

	loaded, err := db.LoadGraph(g.MapName)
	require.NoError(t, err)
	assert.Equal(t, again.AnalysisID, loaded.AnalysisID)
	assert.Len(t, loaded.Regions, len(again.Regions))

	names, err := db.ListMaps()
	require.NoError(t, err)
	assert.Equal(t, []string{"losttemplele"}, names)

	history, err := db.RecentAnalyses(10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, again.AnalysisID, history[0].AnalysisID)
}

func TestLoadGraph_NotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := db.LoadGraph("nowhere")
	assert.ErrorIs(t, err, ErrGraphNotFound)

	ok, err := db.HasGraph("nowhere")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadGraph_StaleVersion(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveGraph(testGraph(t)))

	_, err := db.conn.Exec("UPDATE region_graphs SET analyzer_version = ?", regions.AnalyzerVersion+1)
	require.NoError(t, err)

	_, err = db.LoadGraph("Lost Temple LE")
	assert.ErrorIs(t, err, ErrGraphNotFound)
	ok, err := db.HasGraph("Lost Temple LE")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteGraph(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveGraph(testGraph(t)))

	ok, err := db.HasGraph("LOST TEMPLE LE")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, db.DeleteGraph("Lost Temple LE"))
	_, err = db.LoadGraph("Lost Temple LE")
	assert.ErrorIs(t, err, ErrGraphNotFound)
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveMeta("last_map", "losttemplele"))
	require.NoError(t, db.SaveMeta("last_map", "ruins"))

	v, err := db.GetMeta("last_map")
	require.NoError(t, err)
	assert.Equal(t, "ruins", v)

	_, err = db.GetMeta("missing")
	assert.Error(t, err)
}
