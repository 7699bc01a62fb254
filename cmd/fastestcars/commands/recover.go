package commands

import (
	"fmt"
	"os"

	"fastestcars/internal/artifacts"
	"fastestcars/internal/ingest"
	"fastestcars/internal/recovery"
	"fastestcars/lib/telemetry"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(recoverCmd)
}

var recoverCmd = &cobra.Command{
	Use:   "recover [path/to/fastest_cars_response.txt]",
	Short: "Runs recovery and normalization on a saved model response and prints the result.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var path string
		if len(args) > 0 {
			path = args[0]
		} else {
			cfg, err := readConfig()
			if err != nil {
				return err
			}
			dir, err := openArtifacts(cfg.Artifacts)
			if err != nil {
				return err
			}
			path = dir.Path(artifacts.RawResponseFile)
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read response file: %w", err)
		}

		outcome, records := ingest.Interpret(string(raw), telemetry.SlogAPI{})
		fmt.Printf("candidate: %s", outcome.Kind)
		if outcome.Lenient {
			fmt.Print(" (json5)")
		}
		if outcome.Dropped > 0 {
			fmt.Printf(", %d non-object elements dropped", outcome.Dropped)
		}
		fmt.Println()
		if outcome.Kind == recovery.RecoveredEmpty {
			fmt.Println(outcome.Err)
		}
		printRecords(records)
		return nil
	},
}
