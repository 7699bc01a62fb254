package commands

import (
	"fmt"
	"os"

	"fastestcars/internal/artifacts"
	"fastestcars/internal/ingest"
	"fastestcars/lib/telemetry"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loadCmd)
}

var loadCmd = &cobra.Command{
	Use:   "load [path/to/fastest_cars_data.json]",
	Short: "Stores the records of a previously written records file.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		tel := telemetry.SlogAPI{}

		dir, err := openArtifacts(cfg.Artifacts)
		if err != nil {
			return err
		}
		path := dir.Path(artifacts.RecordsFile)
		if len(args) > 0 {
			path = args[0]
		}
		contents, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read records file: %w", err)
		}

		s, err := openStore(ctx, cfg.Store, tel)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		pipeline := ingest.Pipeline{
			Artifacts: dir,
			Inserter:  s,
			BatchSize: cfg.Store.BatchSize,
			Tel:       tel,
		}
		logResult(ctx, pipeline.Load(ctx, string(contents)))
		return nil
	},
}
