// Package pathing answers shortest-path queries over a terrain grid with a
// process-lifetime cache keyed by unordered endpoint pairs.
//
// The cache must be invalidated by the caller (Invalidate) whenever terrain
// obstruction changes, e.g. after an obstacle is cleared.
package pathing

import (
	"errors"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/talgya/regionmap/internal/grid"
)

// ErrNoPath is returned when no route exists between the endpoints, or an
// endpoint cannot be snapped to a passable cell.
var ErrNoPath = errors.New("pathing: no path")

// Path is a sequence of cell centers. It excludes the origin and ends at
// the destination; it is empty (non-nil) when both endpoints snap to the
// same cell.
type Path []grid.Point

// Config holds pathfinder parameters.
type Config struct {
	// SnapRadius bounds the ring search for a passable cell when an
	// endpoint lands on blocked terrain.
	SnapRadius int
}

// DefaultConfig returns the standard pathfinder parameters.
func DefaultConfig() Config {
	return Config{SnapRadius: 4}
}

type pairKey struct {
	a, b grid.Cell // a.Less(b) or a == b
}

type cacheEntry struct {
	cells []grid.Cell // from key.a to key.b, inclusive
	found bool
}

// Pathfinder runs cached A* searches over a terrain. It is safe for
// concurrent use.
type Pathfinder struct {
	terrain grid.Terrain
	cfg     Config

	mu    sync.Mutex
	cache map[pairKey]cacheEntry

	searches atomic.Int64
}

// New creates a pathfinder over t.
func New(t grid.Terrain, cfg Config) *Pathfinder {
	return &Pathfinder{
		terrain: t,
		cfg:     cfg,
		cache:   make(map[pairKey]cacheEntry),
	}
}

// FindPath returns the shortest path between two map positions. Endpoints
// are snapped to the nearest passable cell.
func (pf *Pathfinder) FindPath(origin, destination grid.Point) (Path, error) {
	from, ok := pf.snap(origin)
	if !ok {
		pathQueries.WithLabelValues(resultNoPath).Inc()
		return nil, ErrNoPath
	}
	to, ok := pf.snap(destination)
	if !ok {
		pathQueries.WithLabelValues(resultNoPath).Inc()
		return nil, ErrNoPath
	}

	cells, err := pf.route(from, to)
	if err != nil {
		return nil, err
	}
	path := make(Path, 0, len(cells)-1)
	for _, c := range cells[1:] {
		path = append(path, c.Center())
	}
	return path, nil
}

// FindCellPath is FindPath over cells. The result includes both snapped
// endpoints.
func (pf *Pathfinder) FindCellPath(from, to grid.Cell) ([]grid.Cell, error) {
	a, ok := pf.snap(from.Center())
	if !ok {
		pathQueries.WithLabelValues(resultNoPath).Inc()
		return nil, ErrNoPath
	}
	b, ok := pf.snap(to.Center())
	if !ok {
		pathQueries.WithLabelValues(resultNoPath).Inc()
		return nil, ErrNoPath
	}
	return pf.route(a, b)
}

// Invalidate drops every cached result.
func (pf *Pathfinder) Invalidate() {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	pf.cache = make(map[pairKey]cacheEntry)
}

// Searches returns how many A* searches have run.
func (pf *Pathfinder) Searches() int64 {
	return pf.searches.Load()
}

// CacheSize returns the number of cached endpoint pairs.
func (pf *Pathfinder) CacheSize() int {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	return len(pf.cache)
}

func (pf *Pathfinder) route(from, to grid.Cell) ([]grid.Cell, error) {
	if from == to {
		pathQueries.WithLabelValues(resultTrivial).Inc()
		return []grid.Cell{from}, nil
	}

	key := pairKey{a: from, b: to}
	if to.Less(from) {
		key = pairKey{a: to, b: from}
	}

	pf.mu.Lock()
	entry, hit := pf.cache[key]
	pf.mu.Unlock()

	if hit {
		cacheHits.Inc()
	} else {
		cacheMisses.Inc()
		cells, found := pf.search(key.a, key.b)
		entry = cacheEntry{cells: cells, found: found}
		pf.mu.Lock()
		pf.cache[key] = entry
		pf.mu.Unlock()
	}

	if !entry.found {
		pathQueries.WithLabelValues(resultNoPath).Inc()
		return nil, ErrNoPath
	}
	pathQueries.WithLabelValues(resultFound).Inc()

	cells := slices.Clone(entry.cells)
	if from != key.a {
		slices.Reverse(cells)
	}
	return cells, nil
}

// snap returns the cell containing p if passable, otherwise the passable
// cell closest to p within SnapRadius rings (ties by row, then column).
func (pf *Pathfinder) snap(p grid.Point) (grid.Cell, bool) {
	c := p.Cell()
	if grid.Passable(pf.terrain, c) {
		return c, true
	}

	var best grid.Cell
	bestDist := math.Inf(1)
	for r := 1; r <= pf.cfg.SnapRadius; r++ {
		// Cells in ring r are at least r-1 away; once that exceeds the
		// best found, no outer ring can win.
		if float64(r-1) > bestDist {
			break
		}
		for y := c.Y - r; y <= c.Y+r; y++ {
			for x := c.X - r; x <= c.X+r; x++ {
				n := grid.Cell{X: x, Y: y}
				if c.Chebyshev(n) != r || !grid.Passable(pf.terrain, n) {
					continue
				}
				d := p.Distance(n.Center())
				if d < bestDist || (d == bestDist && n.Less(best)) {
					best, bestDist = n, d
				}
			}
		}
	}
	return best, !math.IsInf(bestDist, 1)
}
