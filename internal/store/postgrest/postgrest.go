// Package postgrest stores records through a Supabase style PostgREST endpoint.
package postgrest

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"fastestcars/internal/cars"
	"fastestcars/internal/store"
	"fastestcars/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("fastestcars/store/postgrest")

type Options struct {
	// Url is the project url, the /rest/v1 suffix is added when missing.
	Url    string
	APIKey string
	Table  string
}

type Store struct {
	http  *resty.Client
	table string
}

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func NewStore(opts Options, tel telemetry.API) (Store, error) {
	if opts.Url == "" {
		return Store{}, fmt.Errorf("postgrest url is required")
	}
	if opts.Table == "" {
		opts.Table = store.DefaultTable
	}

	base := strings.TrimSuffix(opts.Url, "/")
	if !strings.HasSuffix(base, "/rest/v1") {
		base += "/rest/v1"
	}

	client := resty.New()
	client.SetBaseURL(base)
	client.SetHeader("apikey", opts.APIKey)
	client.SetAuthToken(opts.APIKey)
	client.SetHeader("content-type", "application/json")
	client.SetError(&apiError{})
	telemetry.InstrumentResty(client, telemetry.NewScopedAPI("postgrest", tel))

	return Store{http: client, table: opts.Table}, nil
}

func (s Store) Close() error {
	return nil
}

func responseError(res *resty.Response) error {
	if failure, ok := res.Error().(*apiError); ok && failure.Message != "" {
		return fmt.Errorf("postgrest returned %s: %s", res.Status(), failure.Message)
	}
	return fmt.Errorf("postgrest returned %s", res.Status())
}

// InsertBatch posts the records as a single JSON array, PostgREST inserts a
// bulk payload in one statement.
func (s Store) InsertBatch(ctx context.Context, records []cars.Record) error {
	ctx, span := tracer.Start(ctx, "InsertBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("size", len(records)))

	res, err := s.http.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=minimal").
		SetBody(records).
		Post("/" + s.table)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make request")
		return err
	}
	if res.IsError() {
		err = responseError(res)
		span.RecordError(err)
		span.SetStatus(codes.Error, "non-2xx status code")
		return err
	}
	return nil
}

func (s Store) query(ctx context.Context, params map[string]string) ([]store.Row, error) {
	var rows []store.Row
	res, err := s.http.R().
		SetContext(ctx).
		SetQueryParam("select", "*").
		SetQueryParams(params).
		SetResult(&rows).
		Get("/" + s.table)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, responseError(res)
	}
	if rows == nil {
		rows = []store.Row{}
	}
	return rows, nil
}

func (s Store) All(ctx context.Context) ([]store.Row, error) {
	ctx, span := tracer.Start(ctx, "All")
	defer span.End()

	rows, err := s.query(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read rows")
		return nil, err
	}
	return rows, nil
}

func (s Store) Latest(ctx context.Context, n int) ([]store.Row, error) {
	ctx, span := tracer.Start(ctx, "Latest")
	defer span.End()
	span.SetAttributes(attribute.Int("limit", n))

	rows, err := s.query(ctx, map[string]string{
		"order": "scraped_at.desc",
		"limit": strconv.Itoa(n),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read rows")
		return nil, err
	}
	return rows, nil
}
