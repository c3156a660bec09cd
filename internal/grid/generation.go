// Map generation using layered simplex noise.
// Elevation is quantized into height levels separated by unwalkable cliff
// bands; ramps are then carved through the cliffs and rocks scattered on
// open ground.
package grid

import (
	"math"
	"math/rand"
	"slices"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds map generation parameters.
type GenConfig struct {
	Name   string
	Width  int
	Height int
	Seed   int64 // 0 = random

	Levels     int     // number of height levels
	WaterLevel float64 // elevation below which terrain is unwalkable (0.0–1.0)
	Frequency  float64
	Octaves    int

	RampsPerLevel int // ramps carved between each pair of adjacent levels
	RampSpacing   int // minimum distance between ramps
	Rocks         int // destructible rock obstacles
	Expansions    int // expansion locations to place
}

// DefaultGenConfig returns a medium-sized map configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Name:          "generated",
		Width:         96,
		Height:        96,
		Levels:        3,
		WaterLevel:    0.18,
		Frequency:     0.035,
		Octaves:       4,
		RampsPerLevel: 4,
		RampSpacing:   12,
		Rocks:         6,
		Expansions:    8,
	}
}

// SmallTestConfig returns a tiny map for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Name:          "small test",
		Width:         40,
		Height:        32,
		Seed:          42,
		Levels:        2,
		WaterLevel:    0.2,
		Frequency:     0.06,
		Octaves:       3,
		RampsPerLevel: 2,
		RampSpacing:   8,
		Rocks:         2,
		Expansions:    3,
	}
}

// Generate creates a complete map with height levels, cliffs, ramps,
// rocks, and expansion locations.
func Generate(cfg GenConfig) *Map {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed + 100))
	noise := opensimplex.NewNormalized(seed)
	levels := max(cfg.Levels, 1)

	m := NewMap(cfg.Name, cfg.Width, cfg.Height)
	level := make([]int, cfg.Width*cfg.Height) // -1 = water

	cx, cy := float64(cfg.Width)/2, float64(cfg.Height)/2
	radius := math.Min(cx, cy)
	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			elev := octaveNoise(noise, float64(x), float64(y), cfg.Octaves, cfg.Frequency, 0.5)

			// Border shaping: push elevation down towards the map edge.
			dist := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy) / radius
			elev *= max(1.0-math.Pow(dist, 4), 0)

			i := y*cfg.Width + x
			if elev < cfg.WaterLevel {
				level[i] = -1
				continue
			}
			scaled := (elev - cfg.WaterLevel) / (1 - cfg.WaterLevel)
			level[i] = min(int(scaled*float64(levels)), levels-1)
		}
	}

	at := func(c Cell) int {
		if !m.InBounds(c) {
			return -1
		}
		return level[c.Y*cfg.Width+c.X]
	}

	// The higher side of every level change becomes a cliff band.
	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			c := Cell{X: x, Y: y}
			l := at(c)
			if l < 0 || x == 0 || y == 0 || x == cfg.Width-1 || y == cfg.Height-1 {
				continue
			}
			cliff := false
			for _, n := range c.Neighbors8() {
				if nl := at(n); nl >= 0 && nl < l {
					cliff = true
					break
				}
			}
			if !cliff {
				m.Set(c, true, true, l)
			}
		}
	}

	carveRamps(m, at, cfg, rng)
	placeRocks(m, cfg.Rocks, rng)
	m.Expansions = PlaceExpansions(m, cfg.Expansions, max(cfg.Width, cfg.Height)/6)
	return m
}

// carveRamps opens cliff cells that sit straight between a walkable cell of
// one level and a walkable cell of the next level up.
func carveRamps(m *Map, at func(Cell) int, cfg GenConfig, rng *rand.Rand) {
	type site struct {
		c     Cell
		dir   Cell // towards the lower level
		lower int
	}
	var sites []site
	for y := 1; y < cfg.Height-1; y++ {
		for x := 1; x < cfg.Width-1; x++ {
			c := Cell{X: x, Y: y}
			if m.Walkable(c) {
				continue
			}
			for _, d := range Orthogonal {
				lo, hi := c.Add(d), Cell{X: c.X - d.X, Y: c.Y - d.Y}
				if !m.Walkable(lo) || !m.Walkable(hi) || m.Height(hi) != m.Height(lo)+1 {
					continue
				}
				sites = append(sites, site{c: c, dir: d, lower: m.Height(lo)})
				break
			}
		}
	}
	rng.Shuffle(len(sites), func(i, j int) { sites[i], sites[j] = sites[j], sites[i] })

	carved := make(map[int][]Cell)
	for _, s := range sites {
		if len(carved[s.lower]) >= cfg.RampsPerLevel || tooClose(s.c, carved[s.lower], float64(cfg.RampSpacing)) {
			continue
		}
		carved[s.lower] = append(carved[s.lower], s.c)

		// Three cells wide across the cliff.
		side := Cell{X: s.dir.Y, Y: s.dir.X}
		for _, k := range [3]int{-1, 0, 1} {
			c := Cell{X: s.c.X + k*side.X, Y: s.c.Y + k*side.Y}
			interior := c.X > 0 && c.Y > 0 && c.X < m.width-1 && c.Y < m.height-1
			if interior && !m.Walkable(c) && at(c) >= 0 {
				m.Set(c, true, false, s.lower)
			}
		}
	}
}

// placeRocks drops 2×2 rock obstacles on open buildable ground.
func placeRocks(m *Map, count int, rng *rand.Rand) {
	for tries := 0; count > 0 && tries < count*50; tries++ {
		c := Cell{X: 1 + rng.Intn(max(m.width-3, 1)), Y: 1 + rng.Intn(max(m.height-3, 1))}
		footprint := []Cell{c, {X: c.X + 1, Y: c.Y}, {X: c.X, Y: c.Y + 1}, {X: c.X + 1, Y: c.Y + 1}}
		if !slices.ContainsFunc(footprint, func(f Cell) bool {
			return !m.Buildable(f) || m.Obstructed(f)
		}) {
			for _, f := range footprint {
				m.Set(f, true, false, m.Height(f))
			}
			m.AddObstacle(obstacleKind, footprint)
			count--
		}
	}
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < max(octaves, 1); i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

func tooClose(c Cell, existing []Cell, minDist float64) bool {
	for _, e := range existing {
		if c.Distance(e) < minDist {
			return true
		}
	}
	return false
}
