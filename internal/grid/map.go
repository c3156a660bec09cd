package grid

import "fmt"

// Map is a rectangular terrain grid with obstacles and expansion locations.
// It implements Terrain.
type Map struct {
	Name string

	width, height int

	walkable  []bool
	buildable []bool
	heights   []int
	blocked   []int // number of uncleared obstacles covering each cell

	Obstacles  []Obstacle
	Expansions []Cell
}

// NewMap creates a map of the given size with every cell unwalkable.
func NewMap(name string, width, height int) *Map {
	n := width * height
	return &Map{
		Name:      name,
		width:     width,
		height:    height,
		walkable:  make([]bool, n),
		buildable: make([]bool, n),
		heights:   make([]int, n),
		blocked:   make([]int, n),
	}
}

func (m *Map) index(c Cell) int {
	return c.Y*m.width + c.X
}

// Size returns the map dimensions.
func (m *Map) Size() (int, int) {
	return m.width, m.height
}

// InBounds returns true if the cell lies inside the map.
func (m *Map) InBounds(c Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < m.width && c.Y < m.height
}

func (m *Map) Walkable(c Cell) bool {
	return m.InBounds(c) && m.walkable[m.index(c)]
}

func (m *Map) Buildable(c Cell) bool {
	return m.InBounds(c) && m.buildable[m.index(c)]
}

func (m *Map) Height(c Cell) int {
	if !m.InBounds(c) {
		return 0
	}
	return m.heights[m.index(c)]
}

func (m *Map) Obstructed(c Cell) bool {
	return m.InBounds(c) && m.blocked[m.index(c)] > 0
}

// Set writes the terrain attributes of one cell. Out-of-bounds writes are ignored.
func (m *Map) Set(c Cell, walkable, buildable bool, height int) {
	if !m.InBounds(c) {
		return
	}
	i := m.index(c)
	m.walkable[i] = walkable
	m.buildable[i] = buildable && walkable
	m.heights[i] = height
}

// AddObstacle registers a blocking object and returns its index.
// Footprint cells outside the map are dropped.
func (m *Map) AddObstacle(kind string, footprint []Cell) int {
	o := Obstacle{Kind: kind}
	for _, c := range footprint {
		if m.InBounds(c) {
			o.Footprint = append(o.Footprint, c)
			m.blocked[m.index(c)]++
		}
	}
	m.Obstacles = append(m.Obstacles, o)
	return len(m.Obstacles) - 1
}

// ClearObstacle removes a blocking object, e.g. once rocks are destroyed.
// Clearing an already cleared obstacle is a no-op. Callers holding a path
// cache must invalidate it afterwards.
func (m *Map) ClearObstacle(i int) error {
	if i < 0 || i >= len(m.Obstacles) {
		return fmt.Errorf("clear obstacle %d: %w", i, ErrObstacleIndex)
	}
	o := &m.Obstacles[i]
	if o.Cleared {
		return nil
	}
	for _, c := range o.Footprint {
		m.blocked[m.index(c)]--
	}
	o.Cleared = true
	return nil
}

// ActiveObstacles returns the obstacles that still block terrain.
func (m *Map) ActiveObstacles() []Obstacle {
	var active []Obstacle
	for _, o := range m.Obstacles {
		if !o.Cleared {
			active = append(active, o)
		}
	}
	return active
}

// WalkableCount returns the number of walkable cells.
func (m *Map) WalkableCount() int {
	n := 0
	for _, w := range m.walkable {
		if w {
			n++
		}
	}
	return n
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(%s, %dx%d, walkable=%d, obstacles=%d, expansions=%d)",
		m.Name, m.width, m.height, m.WalkableCount(), len(m.Obstacles), len(m.Expansions))
}
