package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mkettering/foreman/internal/dashboard"
)

func newDashboardCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the HTTP status API",
		Long:  "Serves queue summaries, project and request listings, and loop controls over HTTP. Runs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gdb, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return dashboard.Start(ctx, dashboard.StartOpts{
				DB:   gdb,
				Cfg:  cfg,
				Port: port,
				Out:  cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config)")
	return cmd
}
