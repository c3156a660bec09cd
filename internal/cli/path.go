package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talgya/regionmap/internal/grid"
	"github.com/talgya/regionmap/internal/pathing"
)

var pathCmd = &cobra.Command{
	Use:   "path MAPFILE FROM TO",
	Short: "Find a path between two positions given as x,y",
	Example: `  regionmap path maps/arena.txt 2.5,1.5 20.5,7.5`,
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parsePoint(args[1])
		if err != nil {
			return fmt.Errorf("from: %w", err)
		}
		to, err := parsePoint(args[2])
		if err != nil {
			return fmt.Errorf("to: %w", err)
		}

		s, err := openSession(args[0], false, false)
		if err != nil {
			return err
		}
		defer s.Close()

		out := cmd.OutOrStdout()
		path, err := s.Paths.FindPath(from, to)
		if errors.Is(err, pathing.ErrNoPath) {
			fmt.Fprintln(out, "no path")
			return nil
		}
		if err != nil {
			return err
		}

		length := 0.0
		prev := from
		seen := -1
		var crossed []int
		for _, p := range path {
			length += prev.Distance(p)
			prev = p
			if id, ok := s.Graph.Owner(p.Cell()); ok && id != seen {
				crossed = append(crossed, id)
				seen = id
			}
		}
		fmt.Fprintf(out, "%d steps, length %.2f, regions %v\n", len(path), length, crossed)
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			for _, p := range path {
				fmt.Fprintf(out, "  %.1f,%.1f\n", p.X, p.Y)
			}
		}
		return nil
	},
}

func init() {
	pathCmd.Flags().BoolP("verbose", "v", false, "print every step")
}

// parsePoint parses "x,y".
func parsePoint(v string) (grid.Point, error) {
	xs, ys, ok := strings.Cut(v, ",")
	if !ok {
		return grid.Point{}, fmt.Errorf("want x,y, got %q", v)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return grid.Point{}, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return grid.Point{}, err
	}
	return grid.Point{X: x, Y: y}, nil
}
