// Package cli implements the regionmap command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/talgya/regionmap/internal/config"
	"github.com/talgya/regionmap/internal/logging"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "regionmap",
	Short: "Decompose game maps into connected regions",
	Long: `regionmap analyzes a tile map and partitions its walkable terrain into
regions separated by chokepoints and ramps. Results are cached per map name
in a SQLite database and can be queried from the command line or over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(cfgFile); err != nil {
			return err
		}
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format)
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default ./regionmap.yaml or $HOME/.config/regionmap/regionmap.yaml)")
	flags.String("db", "", "region graph database path")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")

	_ = viper.BindPFlag("database.path", flags.Lookup("db"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))

	rootCmd.AddCommand(generateCmd, analyzeCmd, renderCmd, pathCmd, serveCmd, mapsCmd)
}
