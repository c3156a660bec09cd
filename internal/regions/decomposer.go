package regions

import (
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/iter"
	"github.com/zyedidia/generic/mapset"

	"github.com/talgya/regionmap/internal/cluster"
	"github.com/talgya/regionmap/internal/grid"
	"github.com/talgya/regionmap/internal/terrain"
)

// Config holds decomposition parameters.
type Config struct {
	RegionEpsilon   float64 // DBSCAN radius for region clustering
	RegionMinPoints int
	HeightScale     float64 // z-axis scale that keeps height levels apart
	MinRegionSize   int
	RampMinSize     int
	ObstacleMinSize int

	MaxComboSize       int // largest number of chokes cut at once; 0 means no cap
	ComboWarnThreshold int

	ObstructionInsideRatio float64
	PaletteSize            int
	ExpandBlockRadius      float64

	// Parallel splits potential regions concurrently. Results are
	// identical either way.
	Parallel bool
}

// DefaultConfig returns the standard decomposition parameters.
func DefaultConfig() Config {
	return Config{
		RegionEpsilon:          1.5,
		RegionMinPoints:        3,
		HeightScale:            1000,
		MinRegionSize:          16,
		RampMinSize:            4,
		ObstacleMinSize:        4,
		MaxComboSize:           0,
		ComboWarnThreshold:     20000,
		ObstructionInsideRatio: 0.5,
		PaletteSize:            8,
		ExpandBlockRadius:      6,
		Parallel:               true,
	}
}

// Input is everything the decomposer needs to know about one map.
type Input struct {
	Name       string
	Terrain    grid.Terrain
	Obstacles  []grid.Obstacle
	Expansions []grid.Cell
}

// InputFromMap builds an Input from a concrete map.
func InputFromMap(m *grid.Map) Input {
	return Input{
		Name:       m.Name,
		Terrain:    m,
		Obstacles:  m.ActiveObstacles(),
		Expansions: m.Expansions,
	}
}

// Decomposer builds region graphs. Its collaborators are injected so a
// single pathfinder cache can serve both decomposition and later queries.
type Decomposer struct {
	cfg    Config
	ramps  *terrain.RampFinder
	chokes *terrain.ChokeFinder
	paths  CellPather
	log    *slog.Logger
}

// NewDecomposer creates a decomposer. A nil logger uses slog.Default().
func NewDecomposer(cfg Config, ramps *terrain.RampFinder, chokes *terrain.ChokeFinder, paths CellPather, logger *slog.Logger) *Decomposer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decomposer{cfg: cfg, ramps: ramps, chokes: chokes, paths: paths, log: logger}
}

// part is a region under construction.
type part struct {
	cells   []grid.Cell
	typ     Type
	barrier bool
	lower   int // ramps only
	upper   int
}

// Decompose analyzes the terrain and returns its region graph. Local
// anomalies are logged and never abort the analysis.
func (d *Decomposer) Decompose(in Input) *Graph {
	began := time.Now()
	t := in.Terrain
	w, h := t.Size()

	g := &Graph{
		MapName:           in.Name,
		Width:             w,
		Height:            h,
		AnalysisID:        uuid.NewString(),
		CreatedAt:         began.UTC(),
		Expansions:        slices.SortedFunc(slices.Values(in.Expansions), grid.Cell.Compare),
		ExpandBlockRadius: d.cfg.ExpandBlockRadius,
	}
	log := d.log.With("map", in.Name, "analysis_id", g.AnalysisID)

	playable := grid.WalkableCells(t)
	pool := setOf(playable)
	noise := mapset.New[grid.Cell]()

	// Isolated cells cannot take part in a flood fill.
	for _, c := range playable {
		if !hasNeighbor4(pool, c) {
			noise.Put(c)
		}
	}
	noise.Each(pool.Remove)

	var parts []part

	rampParts := d.rampParts(t, pool)
	rampCells := mapset.New[grid.Cell]()
	for _, p := range rampParts {
		for _, c := range p.cells {
			rampCells.Put(c)
			pool.Remove(c)
		}
	}
	parts = append(parts, rampParts...)

	barriers := d.barrierParts(t, in.Obstacles, pool, rampCells)
	for _, p := range barriers {
		for _, c := range p.cells {
			pool.Remove(c)
		}
	}
	parts = append(parts, barriers...)

	potential, stray := d.potentialRegions(t, pool)
	for _, c := range stray {
		noise.Put(c)
	}

	g.Chokes = d.chokes.Find(t)
	pieces, used := d.splitAll(potential, g.Chokes, log)
	g.UsedChokes = used
	for _, cells := range pieces {
		if len(cells) < d.cfg.MinRegionSize {
			for _, c := range cells {
				noise.Put(c)
			}
			continue
		}
		parts = append(parts, part{cells: cells, typ: OpenArea})
	}

	d.assemble(g, parts)
	g.Noise = sortedCells(noise)

	assignNeighbors(g)
	assignColors(g, d.cfg.PaletteSize)
	g.RefreshObstruction(d.obstruction(t))

	log.Info("map decomposed",
		"regions", len(g.Regions),
		"ramps", len(g.Ramps),
		"chokes", len(g.Chokes),
		"chokes_used", len(g.UsedChokes),
		"playable_cells", humanize.Comma(int64(len(playable))),
		"noise_cells", humanize.Comma(int64(len(g.Noise))),
		"elapsed", time.Since(began).Round(time.Millisecond),
	)
	return g
}

func (d *Decomposer) obstruction(t grid.Terrain) Obstruction {
	return Obstruction{
		Terrain:     t,
		Paths:       d.paths,
		InsideRatio: d.cfg.ObstructionInsideRatio,
		Logger:      d.log,
	}
}

// rampParts returns the 4-connected pieces of each ramp large enough to
// stand as a region; smaller pieces stay in the pool.
func (d *Decomposer) rampParts(t grid.Terrain, pool mapset.Set[grid.Cell]) []part {
	var out []part
	for _, r := range d.ramps.Find(t) {
		var cells []grid.Cell
		for _, c := range r.Cells {
			if pool.Has(c) {
				cells = append(cells, c)
			}
		}
		for _, comp := range components4(cells) {
			if len(comp) < d.cfg.RampMinSize {
				continue
			}
			p := part{cells: comp, typ: Ramp, lower: math.MaxInt, upper: math.MinInt}
			for _, c := range comp {
				p.lower = min(p.lower, t.Height(c))
				p.upper = max(p.upper, t.Height(c))
			}
			out = append(out, p)
		}
	}
	return out
}

// barrierParts finds obstacles that bisect traffic. An obstacle cluster
// whose border has walkable ground on at least two separate sides and
// unwalkable ground on at least two separate sides sits in a passage and
// becomes a region of its own.
func (d *Decomposer) barrierParts(t grid.Terrain, obstacles []grid.Obstacle, pool, rampCells mapset.Set[grid.Cell]) []part {
	footprint := mapset.New[grid.Cell]()
	for _, o := range obstacles {
		if o.Cleared || slices.ContainsFunc(o.Footprint, rampCells.Has) {
			continue
		}
		for _, c := range o.Footprint {
			footprint.Put(c)
		}
	}
	if footprint.Size() == 0 {
		return nil
	}

	var out []part
	for _, group := range cluster.Components(sortedCells(footprint), neighbors8) {
		inGroup := setOf(group)
		border := mapset.New[grid.Cell]()
		for _, c := range group {
			for _, n := range c.Neighbors8() {
				if t.InBounds(n) && !inGroup.Has(n) {
					border.Put(n)
				}
			}
		}
		var open, closed []grid.Cell
		for _, c := range sortedCells(border) {
			if t.Walkable(c) {
				open = append(open, c)
			} else {
				closed = append(closed, c)
			}
		}
		if len(cluster.Components(open, neighbors8)) < 2 || len(cluster.Components(closed, neighbors8)) < 2 {
			continue
		}

		var cells []grid.Cell
		for _, c := range group {
			if pool.Has(c) {
				cells = append(cells, c)
			}
		}
		slices.SortFunc(cells, grid.Cell.Compare)
		for _, comp := range components4(cells) {
			if len(comp) >= d.cfg.ObstacleMinSize {
				out = append(out, part{cells: comp, typ: OpenArea, barrier: true})
			}
		}
	}
	return out
}

// potentialRegions clusters the pool with the height trick, re-absorbs
// noise touching a cluster on the same level, and splits clusters into
// 4-connected pieces. Unabsorbed noise is returned separately.
func (d *Decomposer) potentialRegions(t grid.Terrain, pool mapset.Set[grid.Cell]) ([][]grid.Cell, []grid.Cell) {
	cells := sortedCells(pool)
	if len(cells) == 0 {
		return nil, nil
	}
	points := make([]cluster.Point, len(cells))
	for i, c := range cells {
		points[i] = cluster.Point{
			X:  float64(c.X),
			Y:  float64(c.Y),
			Z:  float64(t.Height(c)) * d.cfg.HeightScale,
			ID: i,
		}
	}
	clusters, noisePts := cluster.DBSCAN(points, d.cfg.RegionEpsilon, d.cfg.RegionMinPoints)

	owner := make(map[grid.Cell]int)
	members := make([][]grid.Cell, len(clusters))
	for ci, cl := range clusters {
		for _, p := range cl {
			c := cells[p.ID]
			owner[c] = ci
			members[ci] = append(members[ci], c)
		}
	}

	noiseCells := make([]grid.Cell, len(noisePts))
	for i, p := range noisePts {
		noiseCells[i] = cells[p.ID]
	}
	slices.SortFunc(noiseCells, grid.Cell.Compare)

	var stray []grid.Cell
	for _, c := range noiseCells {
		best := -1
		for _, n := range c.Neighbors4() {
			if ci, ok := owner[n]; ok && t.Height(n) == t.Height(c) && (best < 0 || ci < best) {
				best = ci
			}
		}
		if best < 0 {
			stray = append(stray, c)
			continue
		}
		owner[c] = best
		members[best] = append(members[best], c)
	}

	var out [][]grid.Cell
	for _, m := range members {
		slices.SortFunc(m, grid.Cell.Compare)
		out = append(out, components4(m)...)
	}
	return out, stray
}

// splitAll runs the choke search on every potential region, concurrently
// when configured. Pieces keep the order of their potential regions.
func (d *Decomposer) splitAll(potential [][]grid.Cell, chokes []terrain.ChokePoint, log *slog.Logger) ([][]grid.Cell, []int) {
	type result struct {
		pieces [][]grid.Cell
		used   []int
	}
	run := func(cells *[]grid.Cell) result {
		s := newSplitter(d.cfg, chokes, log)
		pieces := s.split(*cells, mapset.New[int]())
		return result{pieces: pieces, used: s.used}
	}

	var results []result
	if d.cfg.Parallel {
		results = iter.Map(potential, run)
	} else {
		results = make([]result, len(potential))
		for i := range potential {
			results[i] = run(&potential[i])
		}
	}

	var pieces [][]grid.Cell
	usedSet := mapset.New[int]()
	for _, r := range results {
		pieces = append(pieces, r.pieces...)
		for _, u := range r.used {
			usedSet.Put(u)
		}
	}
	used := make([]int, 0, usedSet.Size())
	usedSet.Each(func(i int) { used = append(used, i) })
	slices.Sort(used)
	return pieces, used
}

// assemble classifies parts, picks centers, and assigns ids in
// (center.y, center.x) order.
func (d *Decomposer) assemble(g *Graph, parts []part) {
	type placed struct {
		part
		center grid.Cell
	}
	all := make([]placed, len(parts))
	for i, p := range parts {
		slices.SortFunc(p.cells, grid.Cell.Compare)
		pl := placed{part: p, center: centroidCell(p.cells)}
		if p.typ == OpenArea {
			set := setOf(p.cells)
			for _, e := range g.Expansions {
				if set.Has(e) {
					pl.typ = Expand
					pl.center = e
					break
				}
			}
		}
		all[i] = pl
	}
	slices.SortStableFunc(all, func(a, b placed) int {
		return a.center.Compare(b.center)
	})

	g.Regions = make([]*Region, len(all))
	for id, p := range all {
		g.Regions[id] = &Region{
			ID:      id,
			Center:  p.center,
			Cells:   p.cells,
			Type:    p.typ,
			Barrier: p.barrier,
		}
		if p.typ == Ramp {
			g.Ramps = append(g.Ramps, RampInfo{RegionID: id, Lower: p.lower, Upper: p.upper})
		}
	}
	g.Reindex()
}

// centroidCell returns the cell closest to the mean of cells, ties broken
// by (y, x). cells must be sorted and non-empty.
func centroidCell(cells []grid.Cell) grid.Cell {
	var sx, sy float64
	for _, c := range cells {
		sx += float64(c.X)
		sy += float64(c.Y)
	}
	n := float64(len(cells))
	mean := grid.Point{X: sx/n + 0.5, Y: sy/n + 0.5}

	best := cells[0]
	bestDist := mean.Distance(best.Center())
	for _, c := range cells[1:] {
		if dist := mean.Distance(c.Center()); dist < bestDist {
			best, bestDist = c, dist
		}
	}
	return best
}

func setOf(cells []grid.Cell) mapset.Set[grid.Cell] {
	s := mapset.New[grid.Cell]()
	for _, c := range cells {
		s.Put(c)
	}
	return s
}

func sortedCells(s mapset.Set[grid.Cell]) []grid.Cell {
	out := make([]grid.Cell, 0, s.Size())
	s.Each(func(c grid.Cell) { out = append(out, c) })
	slices.SortFunc(out, grid.Cell.Compare)
	return out
}

func hasNeighbor4(s mapset.Set[grid.Cell], c grid.Cell) bool {
	for _, n := range c.Neighbors4() {
		if s.Has(n) {
			return true
		}
	}
	return false
}

func neighbors4(c grid.Cell) []grid.Cell {
	n := c.Neighbors4()
	return n[:]
}

func neighbors8(c grid.Cell) []grid.Cell {
	n := c.Neighbors8()
	return n[:]
}

// components4 splits sorted cells into 4-connected components, each sorted.
func components4(cells []grid.Cell) [][]grid.Cell {
	comps := cluster.Components(cells, neighbors4)
	for _, c := range comps {
		slices.SortFunc(c, grid.Cell.Compare)
	}
	return comps
}
