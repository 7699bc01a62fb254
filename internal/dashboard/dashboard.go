// Package dashboard serves the stored records as an html page and a small
// JSON api.
package dashboard

import (
	"context"
	_ "embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"fastestcars/internal/cars"
	"fastestcars/internal/store"
	"fastestcars/lib/chrono"
	"fastestcars/lib/telemetry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("fastestcars/dashboard")

const (
	report_server_latest = "server.latest"
	report_server_all    = "server.all"
	report_server_render = "server.render"
)

const (
	DefaultLatestLimit = 10
	MaxLatestLimit     = 100
	DefaultCacheTTL    = 30 * time.Second
)

//go:embed templates/index.html.tmpl
var indexTemplateText string

var indexTemplate = template.Must(template.New("index").Parse(indexTemplateText))

type Options struct {
	LatestLimit int
	CacheTTL    time.Duration
	Clock       chrono.TimeAPI
}

type Server struct {
	reader      store.Reader
	cache       *latestCache
	latestLimit int
	tel         telemetry.API
}

func NewServer(reader store.Reader, opts Options, tel telemetry.API) *Server {
	if opts.LatestLimit <= 0 {
		opts.LatestLimit = DefaultLatestLimit
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Clock == nil {
		opts.Clock = chrono.NewStandardTime()
	}
	return &Server{
		reader:      reader,
		cache:       newLatestCache(opts.CacheTTL, opts.Clock),
		latestLimit: opts.LatestLimit,
		tel:         telemetry.NewScopedAPI("dashboard", tel),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Route("/api/cars", func(r chi.Router) {
		r.Get("/", s.handleAll)
		r.Get("/latest", s.handleLatest)
	})
	return r
}

func (s *Server) latest(ctx context.Context, n int) ([]store.Row, error) {
	ctx, span := tracer.Start(ctx, "latest")
	defer span.End()

	rows, err := s.cache.Latest(ctx, s.reader, n)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read latest rows")
		s.tel.ReportBroken(report_server_latest, err, n)
		return nil, err
	}
	return rows, nil
}

func (s *Server) all(ctx context.Context) ([]store.Row, error) {
	ctx, span := tracer.Start(ctx, "all")
	defer span.End()

	rows, err := s.reader.All(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read rows")
		s.tel.ReportBroken(report_server_all, err)
		return nil, err
	}
	return rows, nil
}

type indexPage struct {
	LatestLimit int
	Columns     []string
	Latest      [][]string
	LatestErr   string
	Plot        *scatter
	PlotErr     string
}

func tableRow(row store.Row) []string {
	return []string{
		row.ScrapedAt.Format(time.RFC3339),
		formatOptional(row.Year),
		formatOptional(row.MakeModel),
		formatOptional(row.Horsepower),
		formatOptional(row.TopSpeedKmh),
		formatOptional(row.EngineDisplacementL),
		formatOptional(row.EngineType),
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := indexPage{
		LatestLimit: s.latestLimit,
		Columns:     cars.Columns,
	}

	latest, err := s.latest(ctx, s.latestLimit)
	if err != nil {
		page.LatestErr = err.Error()
	}
	for _, row := range latest {
		page.Latest = append(page.Latest, tableRow(row))
	}

	all, err := s.all(ctx)
	if err != nil {
		page.PlotErr = err.Error()
	} else {
		page.Plot = buildScatter(all)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = indexTemplate.Execute(w, page)
	if err != nil {
		s.tel.ReportBroken(report_server_render, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleAll(w http.ResponseWriter, r *http.Request) {
	rows, err := s.all(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	limit := s.latestLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	limit = min(limit, MaxLatestLimit)

	rows, err := s.latest(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
