// Package render draws a region graph over its map for terminals.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/zyedidia/generic/mapset"

	"github.com/talgya/regionmap/internal/grid"
	"github.com/talgya/regionmap/internal/regions"
)

// Glyphs used in the map view.
const (
	glyphWall     = '#'
	glyphNoise    = ','
	glyphObstacle = 'X'
	glyphChoke    = '='
	glyphCenter   = '@'
	glyphOpen     = '.'
	glyphRamp     = '/'
	glyphExpand   = '$'
)

// palette holds one background per region color. Index 0 is reserved for
// ramps.
var palette = []lipgloss.Color{"8", "1", "2", "3", "4", "5", "6", "13", "9", "10", "11", "12"}

// Options controls rendering.
type Options struct {
	Color   bool // style cells with region colors
	Chokes  bool // mark cells of chokes that split a region
	Centers bool // mark region centers
}

// Map renders the map one glyph per cell, rows top to bottom.
func Map(m *grid.Map, g *regions.Graph, opts Options) string {
	chokeCells := mapset.New[grid.Cell]()
	if opts.Chokes {
		for _, i := range g.UsedChokes {
			for _, c := range g.Chokes[i].Cells {
				chokeCells.Put(c)
			}
		}
	}
	centers := mapset.New[grid.Cell]()
	if opts.Centers {
		for _, r := range g.Regions {
			centers.Put(r.Center)
		}
	}

	var sb strings.Builder
	w, h := m.Size()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := grid.Cell{X: x, Y: y}
			id, owned := g.Owner(c)
			glyph := cellGlyph(m, g, c, id, owned)
			switch {
			case centers.Has(c):
				glyph = glyphCenter
			case chokeCells.Has(c):
				glyph = glyphChoke
			}
			if opts.Color && owned {
				sb.WriteString(regionStyle(g.Regions[id]).Render(string(glyph)))
				continue
			}
			sb.WriteByte(glyph)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func cellGlyph(m *grid.Map, g *regions.Graph, c grid.Cell, id int, owned bool) byte {
	switch {
	case m.Obstructed(c):
		return glyphObstacle
	case !m.Walkable(c):
		return glyphWall
	case !owned:
		return glyphNoise
	}
	switch g.Regions[id].Type {
	case regions.Ramp:
		return glyphRamp
	case regions.Expand:
		return glyphExpand
	default:
		return glyphOpen
	}
}

func regionStyle(r *regions.Region) lipgloss.Style {
	style := lipgloss.NewStyle().
		Background(palette[r.Color%len(palette)]).
		Foreground(lipgloss.Color("0"))
	if r.Obstructed {
		style = style.Strikethrough(true)
	}
	return style
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

// Legend lists every region with its size, center, and neighbors.
func Legend(g *regions.Graph, color bool) string {
	var sb strings.Builder
	header := fmt.Sprintf("%s: %d regions, %s cells, %d noise, %d/%d chokes used",
		g.MapName, len(g.Regions), humanize.Comma(int64(g.CellCount())),
		len(g.Noise), len(g.UsedChokes), len(g.Chokes))
	if color {
		header = headerStyle.Render(header)
	}
	sb.WriteString(header)
	sb.WriteByte('\n')

	for _, r := range g.Regions {
		flags := ""
		if r.Barrier {
			flags += " barrier"
		}
		if r.Obstructed {
			flags += " obstructed"
		}
		swatch := fmt.Sprintf("%3d", r.ID)
		if color {
			swatch = regionStyle(r).Render(swatch)
		}
		line := fmt.Sprintf("%s %-9s %6s cells  center (%d,%d)  neighbors %v%s",
			swatch, r.Type, humanize.Comma(int64(r.Size())), r.Center.X, r.Center.Y, r.NeighborIDs(), flags)
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	keys := "# wall  , noise  X obstacle  = choke  @ center  . open  / ramp  $ expand"
	if color {
		keys = dimStyle.Render(keys)
	}
	sb.WriteString(keys)
	sb.WriteByte('\n')
	return sb.String()
}
