package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talgya/regionmap/internal/render"
)

var renderCmd = &cobra.Command{
	Use:   "render MAPFILE",
	Short: "Draw a map colored by region",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0], false, false)
		if err != nil {
			return err
		}
		defer s.Close()

		plain, _ := cmd.Flags().GetBool("plain")
		opts := render.Options{Color: !plain}
		opts.Chokes, _ = cmd.Flags().GetBool("chokes")
		opts.Centers, _ = cmd.Flags().GetBool("centers")

		out := cmd.OutOrStdout()
		fmt.Fprint(out, render.Map(s.Map, s.Graph, opts))
		fmt.Fprint(out, render.Legend(s.Graph, !plain))
		return nil
	},
}

func init() {
	renderCmd.Flags().Bool("plain", false, "disable colors")
	renderCmd.Flags().Bool("chokes", true, "mark chokes that split a region")
	renderCmd.Flags().Bool("centers", false, "mark region centers")
}
