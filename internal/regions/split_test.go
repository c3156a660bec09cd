package regions

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zyedidia/generic/mapset"

	"github.com/talgya/regionmap/internal/grid"
	"github.com/talgya/regionmap/internal/terrain"
)

func rect(w, h int) []grid.Cell {
	var cells []grid.Cell
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cells = append(cells, grid.Cell{X: x, Y: y})
		}
	}
	return cells
}

func column(x, h int) terrain.ChokePoint {
	var cells []grid.Cell
	for y := 0; y < h; y++ {
		cells = append(cells, grid.Cell{X: x, Y: y})
	}
	return terrain.ChokePoint{Cells: cells, Length: float64(h)}
}

func TestSplit_RejectsSmallHalves(t *testing.T) {
	// A 6×6 area cut by a 6-cell choke leaves two 18-cell halves, which
	// do not exceed the cut-length limit of 18.
	s := newSplitter(DefaultConfig(), []terrain.ChokePoint{column(3, 6)}, slog.Default())

	pieces := s.split(rect(6, 6), mapset.New[int]())

	require.Len(t, pieces, 1)
	assert.Len(t, pieces[0], 36)
	assert.Empty(t, s.used)
}

func TestSplit_RejectsBelowMinimumSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinRegionSize = 24
	s := newSplitter(cfg, []terrain.ChokePoint{column(5, 4)}, slog.Default())

	pieces := s.split(rect(10, 4), mapset.New[int]())

	assert.Len(t, pieces, 1)
}

func TestSplit_CutsAlongChoke(t *testing.T) {
	s := newSplitter(DefaultConfig(), []terrain.ChokePoint{column(5, 4)}, slog.Default())

	pieces := s.split(rect(10, 4), mapset.New[int]())

	require.Len(t, pieces, 2)
	assert.Len(t, pieces[0], 20)
	assert.Len(t, pieces[1], 20)
	assert.Contains(t, pieces[1], grid.Cell{X: 5, Y: 0}, "cut cells stay with the second side")
	assert.Equal(t, []int{0}, s.used)
}

func TestSplit_Recursive(t *testing.T) {
	chokes := []terrain.ChokePoint{column(10, 4), column(5, 4), column(15, 4)}
	s := newSplitter(DefaultConfig(), chokes, slog.Default())

	pieces := s.split(rect(20, 4), mapset.New[int]())

	require.Len(t, pieces, 4)
	total := 0
	for _, p := range pieces {
		total += len(p)
		assert.GreaterOrEqual(t, len(p), 16)
	}
	assert.Equal(t, 80, total)
	assert.ElementsMatch(t, []int{0, 1, 2}, s.used)
}

func TestSplit_IgnoresCutThatDoesNotDisconnect(t *testing.T) {
	// The choke stops short of the bottom row.
	s := newSplitter(DefaultConfig(), []terrain.ChokePoint{column(5, 3)}, slog.Default())

	pieces := s.split(rect(10, 4), mapset.New[int]())

	assert.Len(t, pieces, 1)
}

func TestSplit_SkipsUsedChokes(t *testing.T) {
	s := newSplitter(DefaultConfig(), []terrain.ChokePoint{column(5, 4)}, slog.Default())
	used := mapset.New[int]()
	used.Put(0)

	pieces := s.split(rect(10, 4), used)

	assert.Len(t, pieces, 1)
}

func TestSplit_CombinedChokes(t *testing.T) {
	// A ring-shaped area only separates when both bands are cut.
	var cells []grid.Cell
	for _, c := range rect(12, 7) {
		if c.Y == 3 && c.X >= 3 && c.X <= 8 {
			continue
		}
		cells = append(cells, c)
	}
	top := terrain.ChokePoint{Cells: []grid.Cell{{X: 6, Y: 0}, {X: 6, Y: 1}, {X: 6, Y: 2}}, Length: 3}
	bottom := terrain.ChokePoint{Cells: []grid.Cell{{X: 6, Y: 4}, {X: 6, Y: 5}, {X: 6, Y: 6}}, Length: 3}
	s := newSplitter(DefaultConfig(), []terrain.ChokePoint{top, bottom}, slog.Default())

	pieces := s.split(cells, mapset.New[int]())

	require.Len(t, pieces, 2)
	assert.ElementsMatch(t, []int{0, 1}, s.used)
}

func TestSplit_CombinationBudget(t *testing.T) {
	// Single interior cells never disconnect an open area, so every
	// combination fails and the search runs until the budget is spent.
	var chokes []terrain.ChokePoint
	for y := 1; y <= 8; y += 2 {
		for x := 1; x <= 8; x += 2 {
			chokes = append(chokes, terrain.ChokePoint{Cells: []grid.Cell{{X: x, Y: y}}, Length: 1})
		}
	}
	cfg := DefaultConfig()
	cfg.ComboWarnThreshold = 50
	var buf bytes.Buffer
	s := newSplitter(cfg, chokes, slog.New(slog.NewTextHandler(&buf, nil)))

	pieces := s.split(rect(10, 10), mapset.New[int]())

	require.Len(t, pieces, 1)
	assert.Len(t, pieces[0], 100)
	assert.Empty(t, s.used)
	assert.Equal(t, 50, s.combos)
	assert.Equal(t, 1, strings.Count(buf.String(), "level=WARN"))
	assert.Contains(t, buf.String(), "choke combination search truncated")
}

func TestSplit_NoSizeCapByDefault(t *testing.T) {
	// All five bands must be cut before the area falls apart.
	var cells []grid.Cell
	for _, c := range rect(20, 9) {
		if c.X == 10 && c.Y%2 == 1 {
			continue
		}
		cells = append(cells, c)
	}
	var chokes []terrain.ChokePoint
	for y := 0; y < 9; y += 2 {
		chokes = append(chokes, terrain.ChokePoint{Cells: []grid.Cell{{X: 10, Y: y}}, Length: 1})
	}
	s := newSplitter(DefaultConfig(), chokes, slog.Default())

	pieces := s.split(cells, mapset.New[int]())

	require.Len(t, pieces, 2)
	assert.Len(t, s.used, 5)

	capped := DefaultConfig()
	capped.MaxComboSize = 3
	s = newSplitter(capped, chokes, slog.Default())
	assert.Len(t, s.split(cells, mapset.New[int]()), 1)
}

func TestForEachCombination(t *testing.T) {
	var got [][]int
	forEachCombination(4, 2, func(idx []int) bool {
		got = append(got, append([]int(nil), idx...))
		return false
	})
	assert.Equal(t, [][]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}, got)

	calls := 0
	forEachCombination(5, 3, func([]int) bool {
		calls++
		return calls == 2
	})
	assert.Equal(t, 2, calls)
}

func TestBinomial(t *testing.T) {
	assert.Equal(t, 10, binomial(5, 2, 100))
	assert.Equal(t, 1, binomial(5, 0, 100))
	assert.Equal(t, 0, binomial(3, 4, 100))
	assert.Equal(t, 101, binomial(100, 50, 100))
}
