package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/regionmap/internal/render"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze MAPFILE",
	Short: "Decompose a map into regions and store the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		noSave, _ := cmd.Flags().GetBool("no-save")

		s, err := openSession(args[0], force, noSave)
		if err != nil {
			return err
		}
		defer s.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, s.Graph)
		fmt.Fprintf(out, "analysis %s, %s\n", s.Graph.AnalysisID, humanize.Time(s.Graph.CreatedAt))
		fmt.Fprint(out, render.Legend(s.Graph, false))
		return nil
	},
}

var mapsCmd = &cobra.Command{
	Use:   "maps",
	Short: "List maps with stored region graphs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		history, err := s.RecentAnalyses(20)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		names, err := s.ListMaps()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
		if len(history) > 0 {
			fmt.Fprintln(out, "\nrecent analyses:")
		}
		for _, a := range history {
			fmt.Fprintf(out, "  %-24s %3d regions %5d noise  %s  %s\n",
				a.MapName, a.Regions, a.Noise, a.AnalysisID, a.CreatedAt)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolP("force", "f", false, "reanalyze even if a stored graph exists")
	analyzeCmd.Flags().Bool("no-save", false, "do not store the result")
}
