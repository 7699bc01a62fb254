package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fastestcars/internal/cars"
	"fastestcars/lib/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("fastestcars/store")

const (
	report_persister_batch    = "persister.batch"
	report_persister_inserted = "persister.inserted"
)

const DefaultBatchSize = 500

// BatchResult is the outcome of one insert call, Index is 1-based.
type BatchResult struct {
	Index int
	Size  int
	Err   error
}

type Report struct {
	Batches  []BatchResult
	Inserted int
	Failed   int
}

// Err joins the errors of every failed batch, nil when all batches landed.
func (r Report) Err() error {
	var errs []error
	for _, b := range r.Batches {
		if b.Err != nil {
			errs = append(errs, fmt.Errorf("batch %d (%d records): %w", b.Index, b.Size, b.Err))
		}
	}
	return errors.Join(errs...)
}

// Persist splits records into contiguous chunks of at most batchSize and hands
// them to the inserter one after another, in order. A failed chunk is recorded
// and the remaining chunks are still attempted, nothing is retried or rolled back.
func Persist(ctx context.Context, ins Inserter, records []cars.Record, batchSize int, tel telemetry.API) Report {
	ctx, span := tracer.Start(ctx, "Persist")
	defer span.End()

	tel = telemetry.NewScopedAPI("store", tel)
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	span.SetAttributes(
		attribute.Int("records", len(records)),
		attribute.Int("batch_size", batchSize),
	)

	var report Report
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		batch := records[start:end]
		result := BatchResult{
			Index: len(report.Batches) + 1,
			Size:  len(batch),
		}

		result.Err = ins.InsertBatch(ctx, batch)
		if result.Err != nil {
			span.RecordError(result.Err)
			tel.ReportBroken(report_persister_batch, result.Err, "batch", result.Index, "size", result.Size)
			report.Failed += result.Size
		} else {
			slog.InfoContext(ctx, fmt.Sprintf("inserted batch %d, count=%d", result.Index, result.Size))
			report.Inserted += result.Size
		}
		report.Batches = append(report.Batches, result)
	}

	if report.Failed > 0 {
		span.SetStatus(codes.Error, "one or more batches failed")
	}
	tel.ReportCount(report_persister_inserted, int64(report.Inserted))
	return report
}
