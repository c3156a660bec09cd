package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/regionmap/internal/grid"
)

var generateCmd = &cobra.Command{
	Use:   "generate NAME",
	Short: "Generate a random map in text form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gen := cfg.GenConfig(args[0])
		if small, _ := cmd.Flags().GetBool("small"); small {
			gen = grid.SmallTestConfig()
			gen.Name = args[0]
		}
		if cmd.Flags().Changed("seed") {
			gen.Seed, _ = cmd.Flags().GetInt64("seed")
		}

		m := grid.Generate(gen)
		slog.Info("map generated", "map", m.Name, "walkable", m.WalkableCount(),
			"rocks", len(m.Obstacles), "expansions", len(m.Expansions))

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			_, err := fmt.Fprint(cmd.OutOrStdout(), m.Text())
			return err
		}
		return os.WriteFile(out, []byte(m.Text()), 0o644)
	},
}

func init() {
	generateCmd.Flags().StringP("out", "o", "", "write the map to this file instead of stdout")
	generateCmd.Flags().Int64("seed", 0, "noise seed (0 = random)")
	generateCmd.Flags().Bool("small", false, "generate a small test map")
}
