package commands

import (
	"fmt"
	"time"

	"fastestcars/internal/dashboard"
	"fastestcars/lib/chrono"
	"fastestcars/lib/serviceutil"
	"fastestcars/lib/telemetry"

	"github.com/spf13/cobra"
)

var servePort *int

func init() {
	servePort = serveCmd.Flags().IntP("port", "p", 0, "The port to listen on, defaults to dashboard.port.")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [--port N]",
	Short: "Serves the dashboard.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		tel := telemetry.SlogAPI{}

		s, err := openStore(ctx, cfg.Store, tel)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		telemetry.InstrumentPerfStats(ctx, tel, 15*time.Second)

		server := dashboard.NewServer(s, dashboard.Options{
			LatestLimit: cfg.Dashboard.LatestLimit,
			CacheTTL:    time.Duration(cfg.Dashboard.CacheTtlSeconds) * time.Second,
			Clock:       chrono.NewStandardTime(),
		}, tel)

		port := cfg.Dashboard.Port
		if *servePort > 0 {
			port = *servePort
		}
		err = serviceutil.StartHttpServer(ctx, port, server.Router())
		if err != nil {
			return fmt.Errorf("failed to serve dashboard: %w", err)
		}
		return nil
	},
}
