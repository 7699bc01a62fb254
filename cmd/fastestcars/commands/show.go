package commands

import (
	"fmt"

	"fastestcars/lib/telemetry"

	"github.com/spf13/cobra"
)

var showLimit *int

func init() {
	showLimit = showCmd.Flags().IntP("limit", "n", 0, "The number of rows to show, defaults to dashboard.latest_limit.")
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show [--limit N]",
	Short: "Prints the most recently stored rows.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		s, err := openStore(ctx, cfg.Store, telemetry.SlogAPI{})
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		limit := cfg.Dashboard.LatestLimit
		if *showLimit > 0 {
			limit = *showLimit
		}
		rows, err := s.Latest(ctx, limit)
		if err != nil {
			return fmt.Errorf("failed to read rows: %w", err)
		}
		renderRows(cmd.OutOrStdout(), rows)
		return nil
	},
}
