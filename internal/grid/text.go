// Text map codec. One character per cell:
//
//	#        unwalkable
//	. 0-9    walkable, buildable, at height 0 (.) or the digit
//	a-j      walkable, not buildable, at height 0-9
//	X        obstacle footprint (8-connected X cells form one obstacle)
//	E        expansion location
//
// Lines starting with ';' are comments; "; name: <name>" sets the map name.
package grid

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/zyedidia/generic/mapset"

	"github.com/talgya/regionmap/internal/cluster"
)

const obstacleKind = "rocks"

// ParseMap parses a map from its text form.
func ParseMap(text string) (*Map, error) {
	return ReadMap(strings.NewReader(text))
}

// ReadMap reads a map in text form.
func ReadMap(r io.Reader) (*Map, error) {
	var (
		name string
		rows []string
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ";") {
			meta := strings.TrimSpace(strings.TrimPrefix(line, ";"))
			if v, ok := strings.CutPrefix(meta, "name:"); ok {
				name = strings.TrimSpace(v)
			}
			continue
		}
		rows = append(rows, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read map: %w", err)
	}
	return fromRows(name, rows)
}

func fromRows(name string, rows []string) (*Map, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyMap
	}
	width := len(rows[0])
	for _, row := range rows {
		if len(row) != width {
			return nil, ErrNonRectangular
		}
	}

	m := NewMap(name, width, len(rows))
	var rocks, expansions []Cell

	for y, row := range rows {
		for x := 0; x < len(row); x++ {
			c := Cell{X: x, Y: y}
			switch g := row[x]; {
			case g == '#':
				// already unwalkable
			case g == '.':
				m.Set(c, true, true, 0)
			case g >= '0' && g <= '9':
				m.Set(c, true, true, int(g-'0'))
			case g >= 'a' && g <= 'j':
				m.Set(c, true, false, int(g-'a'))
			case g == 'X':
				rocks = append(rocks, c)
			case g == 'E':
				expansions = append(expansions, c)
			default:
				return nil, fmt.Errorf("cell %v %q: %w", c, g, ErrUnknownGlyph)
			}
		}
	}

	// Special cells take the prevailing height of the terrain around them,
	// so they are resolved after every plain cell is known.
	special := mapset.New[Cell]()
	for _, c := range rocks {
		special.Put(c)
	}
	for _, c := range expansions {
		special.Put(c)
	}

	groups := cluster.Components(rocks, func(c Cell) []Cell {
		n := c.Neighbors8()
		return n[:]
	})
	for _, group := range groups {
		h := surroundingHeight(m, group, special)
		for _, c := range group {
			m.Set(c, true, false, h)
		}
		m.AddObstacle(obstacleKind, group)
	}
	for _, c := range expansions {
		m.Set(c, true, true, surroundingHeight(m, []Cell{c}, special))
		m.Expansions = append(m.Expansions, c)
	}

	return m, nil
}

// surroundingHeight returns the most common height among plain walkable
// cells bordering group, preferring the lowest on ties.
func surroundingHeight(m *Map, group []Cell, special mapset.Set[Cell]) int {
	counts := make(map[int]int)
	for _, c := range group {
		for _, n := range c.Neighbors8() {
			if special.Has(n) || !m.Walkable(n) {
				continue
			}
			counts[m.Height(n)]++
		}
	}
	best, bestCount := 0, 0
	for h, n := range counts {
		if n > bestCount || (n == bestCount && h < best) {
			best, bestCount = h, n
		}
	}
	return best
}

// Text renders the map in the format accepted by ParseMap.
func (m *Map) Text() string {
	expansions := mapset.New[Cell]()
	for _, c := range m.Expansions {
		expansions.Put(c)
	}

	var b strings.Builder
	if m.Name != "" {
		fmt.Fprintf(&b, "; name: %s\n", m.Name)
	}
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			b.WriteByte(m.glyph(Cell{X: x, Y: y}, expansions))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (m *Map) glyph(c Cell, expansions mapset.Set[Cell]) byte {
	h := min(max(m.Height(c), 0), 9)
	switch {
	case expansions.Has(c):
		return 'E'
	case m.Obstructed(c):
		return 'X'
	case !m.Walkable(c):
		return '#'
	case !m.Buildable(c):
		return byte('a' + h)
	case h == 0:
		return '.'
	default:
		return byte('0' + h)
	}
}
