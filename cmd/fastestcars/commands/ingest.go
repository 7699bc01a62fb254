package commands

import (
	"context"
	"fmt"
	"log/slog"

	"fastestcars/internal/extraction"
	"fastestcars/internal/ingest"
	"fastestcars/internal/source"
	"fastestcars/lib/telemetry"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(extractCmd)
}

func newPipeline(cfg Config, tel telemetry.API) (ingest.Pipeline, error) {
	fetcher, err := source.NewFetcher(cfg.Source.Url, tel)
	if err != nil {
		return ingest.Pipeline{}, fmt.Errorf("failed to create fetcher: %w", err)
	}
	dir, err := openArtifacts(cfg.Artifacts)
	if err != nil {
		return ingest.Pipeline{}, err
	}
	extractor := extraction.NewClient(extraction.Options{
		BaseURL: cfg.Model.BaseUrl,
		APIKey:  cfg.Model.ApiKey,
		Model:   cfg.Model.Model,
	}, tel)

	return ingest.Pipeline{
		Fetcher:   fetcher,
		Extractor: extractor,
		Artifacts: dir,
		BatchSize: cfg.Store.BatchSize,
		Tel:       tel,
	}, nil
}

func logResult(ctx context.Context, result ingest.Result) {
	params := []any{
		"run_id", result.RunID,
		"records", len(result.Records),
		"degraded", result.Degraded,
	}
	if result.Persist != nil {
		params = append(params, "inserted", result.Persist.Inserted, "failed", result.Persist.Failed)
	}
	slog.InfoContext(ctx, "run finished", params...)
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetches the source page, extracts the cars in it and stores them.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		tel := telemetry.SlogAPI{}

		pipeline, err := newPipeline(cfg, tel)
		if err != nil {
			return err
		}
		s, err := openStore(ctx, cfg.Store, tel)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()
		pipeline.Inserter = s

		result, err := pipeline.Run(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch source page: %w", err)
		}
		logResult(ctx, result)
		return nil
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Fetches the source page and extracts the cars in it without storing them.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		pipeline, err := newPipeline(cfg, telemetry.SlogAPI{})
		if err != nil {
			return err
		}

		result, err := pipeline.Extract(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch source page: %w", err)
		}
		printRecords(result.Records)
		logResult(ctx, result)
		return nil
	},
}
