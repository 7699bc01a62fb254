// Package ingest runs the fetch, extract, recover, normalize and persist
// stages one after another.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"fastestcars/internal/artifacts"
	"fastestcars/internal/cars"
	"fastestcars/internal/recovery"
	"fastestcars/internal/source"
	"fastestcars/internal/store"
	"fastestcars/lib/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("fastestcars/ingest")

const (
	report_pipeline_extract  = "pipeline.extract"
	report_pipeline_recover  = "pipeline.recover"
	report_pipeline_artifact = "pipeline.artifact"
	report_pipeline_persist  = "pipeline.persist"
)

const previewCount = 3

type Fetcher interface {
	Fetch(ctx context.Context) (source.Page, error)
}

type Extractor interface {
	Extract(ctx context.Context, text string) (string, error)
}

// Pipeline holds the collaborators of an ingestion run. Inserter may be nil,
// in which case records are only written to the artifact directory.
type Pipeline struct {
	Fetcher   Fetcher
	Extractor Extractor
	Artifacts artifacts.Dir
	Inserter  store.Inserter
	BatchSize int
	Tel       telemetry.API
}

// Result describes what a run produced.
type Result struct {
	RunID    string
	Raw      string
	Outcome  recovery.Outcome
	Records  []cars.Record
	Degraded bool
	// Persist is nil when nothing was persisted.
	Persist *store.Report
}

func (p Pipeline) tel() telemetry.API {
	tel := p.Tel
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	return telemetry.NewScopedAPI("ingest", tel)
}

// Run executes the whole pipeline. The only error it returns is a failure to
// fetch the source page, every later failure degrades to an empty or partial
// result and is reported through telemetry.
func (p Pipeline) Run(ctx context.Context) (Result, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	result, err := p.extract(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch source")
		return result, err
	}
	p.persist(ctx, &result)
	return result, nil
}

// Extract runs the pipeline up to and including the records artifact.
func (p Pipeline) Extract(ctx context.Context) (Result, error) {
	ctx, span := tracer.Start(ctx, "Extract")
	defer span.End()

	result, err := p.extract(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch source")
	}
	return result, err
}

// Load reads a previously written records artifact (or any JSON array of
// records) and persists it.
func (p Pipeline) Load(ctx context.Context, contents string) Result {
	ctx, span := tracer.Start(ctx, "Load")
	defer span.End()

	tel := p.tel()
	result := Result{RunID: uuid.NewString(), Raw: contents}
	span.SetAttributes(attribute.String("run_id", result.RunID))

	result.Outcome, result.Records = Interpret(contents, tel)
	result.Degraded = result.Outcome.Kind == recovery.RecoveredEmpty
	p.persist(ctx, &result)
	return result
}

// brokenParams lays out report params as the error followed by key-value pairs.
func brokenParams(err error, params []any, extra ...any) []any {
	out := make([]any, 0, 1+len(params)+len(extra))
	out = append(out, err)
	out = append(out, params...)
	return append(out, extra...)
}

func (p Pipeline) extract(ctx context.Context) (Result, error) {
	tel := p.tel()
	result := Result{RunID: uuid.NewString()}
	params := []any{"run_id", result.RunID}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("run_id", result.RunID))

	page, fetchErr := p.Fetcher.Fetch(ctx)
	// an error page is still worth keeping for diagnosis
	if len(page.HTML) > 0 {
		_, err := p.Artifacts.WritePage(page.HTML)
		if err != nil {
			tel.ReportBroken(report_pipeline_artifact, brokenParams(err, params, "artifact", artifacts.PageFile)...)
		}
	}
	if fetchErr != nil {
		return result, fetchErr
	}
	slog.InfoContext(ctx, fmt.Sprintf("successfully scraped %d characters from the website", len(page.Text)), params...)

	raw, err := p.Extractor.Extract(ctx, page.Text)
	if err != nil {
		tel.ReportBroken(report_pipeline_extract, brokenParams(err, params)...)
		result.Degraded = true
		raw = ""
	}
	result.Raw = raw

	rawPath, err := p.Artifacts.WriteRawResponse(raw)
	if err != nil {
		tel.ReportBroken(report_pipeline_artifact, brokenParams(err, params, "artifact", artifacts.RawResponseFile)...)
	}

	result.Outcome, result.Records = Interpret(raw, tel)
	if result.Outcome.Kind == recovery.RecoveredEmpty {
		result.Degraded = true
		tel.ReportBroken(
			report_pipeline_recover,
			brokenParams(result.Outcome.Err, params, "raw_artifact", rawPath)...,
		)
	}

	_, err = p.Artifacts.WriteRecords(result.Records)
	if err != nil {
		tel.ReportBroken(report_pipeline_artifact, brokenParams(err, params, "artifact", artifacts.RecordsFile)...)
	}
	slog.InfoContext(ctx, fmt.Sprintf("extracted %d records", len(result.Records)), params...)
	preview(ctx, result.Records)

	return result, nil
}

func (p Pipeline) persist(ctx context.Context, result *Result) {
	if p.Inserter == nil || len(result.Records) == 0 {
		return
	}
	report := store.Persist(ctx, p.Inserter, result.Records, p.BatchSize, p.tel())
	result.Persist = &report
	if err := report.Err(); err != nil {
		p.tel().ReportBroken(report_pipeline_persist, err, "run_id", result.RunID, "failed", report.Failed)
	}
	slog.InfoContext(ctx, fmt.Sprintf("uploaded %d rows to table", report.Inserted), "run_id", result.RunID, "failed", report.Failed)
}

// Interpret turns a raw model response into canonical records. It never fails:
// anything that cannot be recovered, including a panic in a later stage,
// yields a RecoveredEmpty outcome and no records.
func Interpret(raw string, tel telemetry.API) (outcome recovery.Outcome, records []cars.Record) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		outcome = recovery.Outcome{
			Kind:    recovery.RecoveredEmpty,
			Records: []recovery.Candidate{},
			Err:     fmt.Errorf("recovering response: %v", r),
		}
		records = []cars.Record{}
	}()

	_, outcome = recovery.Process(raw)
	if outcome.Lenient {
		tel.ReportWarning(report_pipeline_recover, "response was only valid json5")
	}
	if outcome.Dropped > 0 {
		tel.ReportWarning(report_pipeline_recover, fmt.Sprintf("dropped %d non-object elements", outcome.Dropped))
	}
	records = cars.NewNormalizer(tel).Normalize(outcome.Records)
	return outcome, records
}

func preview(ctx context.Context, records []cars.Record) {
	for i, r := range records {
		if i >= previewCount {
			break
		}
		serialized, err := json.Marshal(r)
		if err != nil {
			continue
		}
		slog.InfoContext(ctx, fmt.Sprintf("record %d", i+1), "record", string(serialized))
	}
}
