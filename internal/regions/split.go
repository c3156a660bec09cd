package regions

import (
	"log/slog"
	"slices"

	"github.com/zyedidia/generic/mapset"

	"github.com/talgya/regionmap/internal/cluster"
	"github.com/talgya/regionmap/internal/grid"
	"github.com/talgya/regionmap/internal/terrain"
)

// splitter recursively cuts one potential region along choke points.
// A splitter is not safe for concurrent use; the decomposer creates one
// per potential region.
type splitter struct {
	cfg    Config
	chokes []terrain.ChokePoint
	log    *slog.Logger

	used   []int // choke indices that produced a cut
	combos int
	warned bool
}

func newSplitter(cfg Config, chokes []terrain.ChokePoint, log *slog.Logger) *splitter {
	return &splitter{cfg: cfg, chokes: chokes, log: log}
}

// split returns the pieces of cells after cutting along the cheapest valid
// choke combination, recursively. used holds chokes already spent on an
// enclosing cut.
func (s *splitter) split(cells []grid.Cell, used mapset.Set[int]) [][]grid.Cell {
	region := setOf(cells)
	var candidates []int
	for i, ch := range s.chokes {
		if !used.Has(i) && slices.ContainsFunc(ch.Cells, region.Has) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return [][]grid.Cell{cells}
	}

	maxK := len(candidates)
	if s.cfg.MaxComboSize > 0 {
		maxK = min(maxK, s.cfg.MaxComboSize)
	}
	for k := 1; k <= maxK; k++ {
		budget := s.cfg.ComboWarnThreshold - s.combos
		truncated := binomial(len(candidates), k, max(budget, 0)) > budget
		if truncated && !s.warned {
			s.log.Warn("choke combination search truncated",
				"candidates", len(candidates), "size", k, "tried", s.combos)
			s.warned = true
		}

		var a, b []grid.Cell
		var combo []int
		forEachCombination(len(candidates), k, func(idx []int) bool {
			if s.combos >= s.cfg.ComboWarnThreshold {
				return true
			}
			s.combos++
			combo = combo[:0]
			for _, i := range idx {
				combo = append(combo, candidates[i])
			}
			var ok bool
			a, b, ok = s.try(cells, region, combo)
			return ok
		})
		if a != nil {
			next := copySet(used)
			for _, i := range combo {
				next.Put(i)
				s.used = append(s.used, i)
			}
			return append(s.split(a, next), s.split(b, next)...)
		}
		if truncated {
			break
		}
	}
	return [][]grid.Cell{cells}
}

// try cuts region along the chokes in combo. The first side is the flood
// fill from the first uncut cell; the second side keeps the cut cells.
// Both sides must be big enough and the second must stay connected.
func (s *splitter) try(cells []grid.Cell, region mapset.Set[grid.Cell], combo []int) ([]grid.Cell, []grid.Cell, bool) {
	cut := mapset.New[grid.Cell]()
	var cutLen float64
	for _, i := range combo {
		ch := s.chokes[i]
		cutLen += ch.Length
		for _, c := range ch.Cells {
			if region.Has(c) {
				cut.Put(c)
			}
		}
	}

	rest := copySet(region)
	cut.Each(rest.Remove)
	start := -1
	for i, c := range cells {
		if !cut.Has(c) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, nil, false
	}

	side := cluster.FloodFill(rest, cells[start], neighbors4)
	if len(side) == rest.Size() {
		return nil, nil, false
	}

	limit := max(10, int(cutLen*cutLen/2))
	if len(side) < s.cfg.MinRegionSize || len(side) <= limit {
		return nil, nil, false
	}
	inSide := setOf(side)
	other := make([]grid.Cell, 0, len(cells)-len(side))
	for _, c := range cells {
		if !inSide.Has(c) {
			other = append(other, c)
		}
	}
	if len(other) < s.cfg.MinRegionSize || len(other) <= limit {
		return nil, nil, false
	}
	if len(components4(other)) != 1 {
		return nil, nil, false
	}

	slices.SortFunc(side, grid.Cell.Compare)
	return side, other, true
}

func copySet[T comparable](s mapset.Set[T]) mapset.Set[T] {
	out := mapset.New[T]()
	s.Each(out.Put)
	return out
}

// forEachCombination calls fn with every k-subset of [0, n) in
// lexicographic order until fn returns true.
func forEachCombination(n, k int, fn func(idx []int) bool) {
	if k <= 0 || k > n {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		if fn(idx) {
			return
		}
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// binomial returns C(n, k), saturating just above limit.
func binomial(n, k, limit int) int {
	if k < 0 || k > n {
		return 0
	}
	k = min(k, n-k)
	r := 1
	for i := 1; i <= k; i++ {
		r = r * (n - k + i) / i
		if r > limit {
			return limit + 1
		}
	}
	return r
}
