package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/talgya/regionmap/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve MAPFILE",
	Short: "Serve region queries for a map over HTTP",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0], false, false)
		if err != nil {
			return err
		}
		defer s.Close()

		server := &api.Server{
			Map:         s.Map,
			Graph:       s.Graph,
			Paths:       s.Paths,
			DB:          s.DB,
			Port:        cfg.Server.Port,
			AdminKey:    cfg.Server.AdminKey,
			InsideRatio: cfg.Decompose.ObstructionInsideRatio,
			PathRate:    cfg.Server.PathRatePerMinute,
		}
		httpServer := server.Start()

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d regions\nAPI: http://localhost:%d/api/v1/status\n",
			s.Graph.MapName, len(s.Graph.Regions), cfg.Server.Port)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(ctx)
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "listen port")
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
