// Package regions decomposes the walkable area of a map into a graph of
// connected regions separated by ramps, choke points, and blocking
// obstacles, and answers spatial queries against that graph.
//
// Regions live in an arena indexed by id; neighbor edges are stored as
// (id, frontier) pairs rather than references, so a Graph serializes as
// plain data and has no reference cycles.
package regions

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/talgya/regionmap/internal/grid"
	"github.com/talgya/regionmap/internal/terrain"
)

// AnalyzerVersion identifies the decomposition algorithm. Stored graphs
// from another version are re-analyzed.
const AnalyzerVersion = 1

// Type classifies a region.
type Type uint8

const (
	Unknown  Type = iota
	OpenArea      // plain walkable ground
	Ramp          // sloped transition between height levels
	Expand        // open area holding an expansion location
)

var typeNames = map[Type]string{
	Unknown:  "unknown",
	OpenArea: "open_area",
	Ramp:     "ramp",
	Expand:   "expand",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// MarshalText encodes the type by name.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a type name; unrecognized names become Unknown.
func (t *Type) UnmarshalText(b []byte) error {
	for k, v := range typeNames {
		if v == string(b) {
			*t = k
			return nil
		}
	}
	*t = Unknown
	return nil
}

// Neighbor is an edge to an adjacent region. Frontier holds the cells of
// both regions that touch the other one; the same set is stored on both
// sides of the edge.
type Neighbor struct {
	RegionID int         `json:"region_id"`
	Frontier []grid.Cell `json:"frontier"`
}

// Region is a 4-connected set of cells.
type Region struct {
	ID         int         `json:"id"`
	Center     grid.Cell   `json:"center"`
	Cells      []grid.Cell `json:"cells"` // sorted by (y, x)
	Type       Type        `json:"type"`
	Obstructed bool        `json:"obstructed"`
	Barrier    bool        `json:"barrier"` // formed from an obstacle footprint
	Neighbors  []Neighbor  `json:"neighbors"`
	Color      int         `json:"color"`
}

// Size returns the number of cells in the region.
func (r *Region) Size() int {
	return len(r.Cells)
}

// NeighborIDs returns the ids of adjacent regions in ascending order.
func (r *Region) NeighborIDs() []int {
	ids := make([]int, len(r.Neighbors))
	for i, n := range r.Neighbors {
		ids[i] = n.RegionID
	}
	return ids
}

// Frontier returns the shared boundary with region id, if adjacent.
func (r *Region) Frontier(id int) ([]grid.Cell, bool) {
	for _, n := range r.Neighbors {
		if n.RegionID == id {
			return n.Frontier, true
		}
	}
	return nil, false
}

// RampInfo links a ramp region to the height levels it joins.
type RampInfo struct {
	RegionID int `json:"region_id"`
	Lower    int `json:"lower"`
	Upper    int `json:"upper"`
}

// Graph is the decomposition of one map. It is built once, optionally
// persisted, and read thereafter; only Region.Obstructed may change
// (RefreshObstruction).
type Graph struct {
	MapName    string    `json:"map_name"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	AnalysisID string    `json:"analysis_id"`
	CreatedAt  time.Time `json:"created_at"`

	Regions    []*Region            `json:"regions"` // Regions[i].ID == i
	Ramps      []RampInfo           `json:"ramps"`
	Noise      []grid.Cell          `json:"noise"`
	Chokes     []terrain.ChokePoint `json:"chokes"`
	UsedChokes []int                `json:"used_chokes"` // indices into Chokes that split a region
	Expansions []grid.Cell          `json:"expansions"`

	ExpandBlockRadius float64 `json:"expand_block_radius"`

	owner map[grid.Cell]int
}

// UnmarshalJSON decodes a graph and builds its cell index, so a decoded
// Graph is ready for concurrent readers.
func (g *Graph) UnmarshalJSON(b []byte) error {
	type plain Graph
	if err := json.Unmarshal(b, (*plain)(g)); err != nil {
		return err
	}
	g.Reindex()
	return nil
}

// Reindex rebuilds the cell → region lookup. It must be called after a
// Graph is assembled by hand, before any query.
func (g *Graph) Reindex() {
	g.owner = make(map[grid.Cell]int)
	for _, r := range g.Regions {
		for _, c := range r.Cells {
			g.owner[c] = r.ID
		}
	}
}

// Owner returns the id of the region containing c. It never writes to
// the graph, so concurrent queries are safe once the index is built.
func (g *Graph) Owner(c grid.Cell) (int, bool) {
	id, ok := g.owner[c]
	return id, ok
}

// Region returns the region with the given id.
func (g *Graph) Region(id int) (*Region, bool) {
	if id < 0 || id >= len(g.Regions) {
		return nil, false
	}
	return g.Regions[id], true
}

// GetRegion returns the region containing p, or false for noise and
// unplayable positions.
func (g *Graph) GetRegion(p grid.Point) (*Region, bool) {
	id, ok := g.Owner(p.Cell())
	if !ok {
		return nil, false
	}
	return g.Regions[id], true
}

// CellPather finds cell paths; *pathing.Pathfinder implements it.
type CellPather interface {
	FindCellPath(from, to grid.Cell) ([]grid.Cell, error)
}

// GetReachableNeighbors returns the neighbors of region id that can be
// entered directly from it: neither side is obstructed, and the path
// between the two centers enters that neighbor first after leaving id.
func (g *Graph) GetReachableNeighbors(id int, paths CellPather) []*Region {
	r, ok := g.Region(id)
	if !ok || r.Obstructed {
		return nil
	}
	var out []*Region
	for _, nb := range r.Neighbors {
		n := g.Regions[nb.RegionID]
		if n.Obstructed {
			continue
		}
		path, err := paths.FindCellPath(r.Center, n.Center)
		if err != nil {
			continue
		}
		if g.firstEntered(path, id) == n.ID {
			out = append(out, n)
		}
	}
	return out
}

// firstEntered returns the first region other than from that path visits,
// or -1.
func (g *Graph) firstEntered(path []grid.Cell, from int) int {
	for _, c := range path {
		if o, ok := g.Owner(c); ok && o != from {
			return o
		}
	}
	return -1
}

// IsBlockingExpand reports whether p lies close enough to an expansion
// location that building there would block it.
func (g *Graph) IsBlockingExpand(p grid.Point) bool {
	for _, e := range g.Expansions {
		if p.Distance(e.Center()) <= g.ExpandBlockRadius {
			return true
		}
	}
	return false
}

// RegionsOfType returns the regions of the given type in id order.
func (g *Graph) RegionsOfType(t Type) []*Region {
	var out []*Region
	for _, r := range g.Regions {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

// CellCount returns the number of cells assigned to regions.
func (g *Graph) CellCount() int {
	n := 0
	for _, r := range g.Regions {
		n += len(r.Cells)
	}
	return n
}

func (g *Graph) String() string {
	return fmt.Sprintf("Graph(%s, regions=%d, ramps=%d, noise=%d, chokes=%d)",
		g.MapName, len(g.Regions), len(g.Ramps), len(g.Noise), len(g.Chokes))
}
