package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"fastestcars/internal/cars"
	"fastestcars/internal/store"
	"fastestcars/lib/chrono"
	"fastestcars/lib/telemetry"

	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mutex       sync.Mutex
	rows        []store.Row
	latestErr   error
	allCalls    int
	latestCalls []int
}

func (f *fakeReader) All(ctx context.Context) ([]store.Row, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.allCalls++
	return f.rows, nil
}

func (f *fakeReader) Latest(ctx context.Context, n int) ([]store.Row, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.latestCalls = append(f.latestCalls, n)
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	return f.rows[:min(n, len(f.rows))], nil
}

var scrapedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

var sampleRows = []store.Row{
	{
		ID:        2,
		ScrapedAt: scrapedAt,
		Record: cars.Record{
			Year:                cars.Int64(1988),
			MakeModel:           cars.String("Ferrari F40"),
			Horsepower:          cars.Int64(471),
			TopSpeedKmh:         cars.Int64(324),
			EngineDisplacementL: cars.Float64(2.9),
			EngineType:          cars.String("V8"),
		},
	},
	{
		ID:        1,
		ScrapedAt: scrapedAt,
		Record: cars.Record{
			Year:        cars.Int64(1949),
			MakeModel:   cars.String("Jaguar XK120"),
			TopSpeedKmh: cars.Int64(200),
		},
	},
	{
		ID:        3,
		ScrapedAt: scrapedAt,
		Record: cars.Record{
			MakeModel: cars.String("Mystery car"),
		},
	},
}

func setup(reader store.Reader) (http.Handler, *chrono.ManualTime) {
	clock := chrono.NewManualTime(scrapedAt)
	server := NewServer(reader, Options{Clock: clock}, &telemetry.RecordingAPI{})
	return server.Router(), clock
}

func get(t testing.TB, handler http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestLatestIsCachedForTTL(t *testing.T) {
	reader := &fakeReader{rows: sampleRows}
	handler, clock := setup(reader)

	for i := 0; i < 3; i++ {
		rec := get(t, handler, "/api/cars/latest")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Equal(t, []int{DefaultLatestLimit}, reader.latestCalls)

	// stale rows are served inside the window even if the store changed
	reader.rows = nil
	clock.Advance(29 * time.Second)
	rec := get(t, handler, "/api/cars/latest")
	var rows []store.Row
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, len(sampleRows))
	require.Len(t, reader.latestCalls, 1)

	clock.Advance(time.Second)
	rec = get(t, handler, "/api/cars/latest")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 0)
	require.Len(t, reader.latestCalls, 2)

	// different limits are cached separately
	get(t, handler, "/api/cars/latest?limit=2")
	require.Equal(t, []int{DefaultLatestLimit, DefaultLatestLimit, 2}, reader.latestCalls)
}

func TestLatestLimit(t *testing.T) {
	testCases := []struct {
		name   string
		query  string
		status int
		limit  int
	}{
		{name: "default", query: "", status: http.StatusOK, limit: DefaultLatestLimit},
		{name: "explicit", query: "?limit=2", status: http.StatusOK, limit: 2},
		{name: "clamped", query: "?limit=500", status: http.StatusOK, limit: MaxLatestLimit},
		{name: "not a number", query: "?limit=abc", status: http.StatusBadRequest},
		{name: "zero", query: "?limit=0", status: http.StatusBadRequest},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			reader := &fakeReader{rows: sampleRows}
			handler, _ := setup(reader)

			rec := get(t, handler, "/api/cars/latest"+test.query)
			require.Equal(t, test.status, rec.Code)
			if test.status == http.StatusOK {
				require.Equal(t, []int{test.limit}, reader.latestCalls)
			} else {
				require.Len(t, reader.latestCalls, 0)
			}
		})
	}
}

func TestLatestReadErrorIsNotCached(t *testing.T) {
	reader := &fakeReader{rows: sampleRows, latestErr: errors.New("database is locked")}
	handler, _ := setup(reader)

	rec := get(t, handler, "/api/cars/latest")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "database is locked")

	reader.latestErr = nil
	rec = get(t, handler, "/api/cars/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, reader.latestCalls, 2)
}

func TestAll(t *testing.T) {
	reader := &fakeReader{rows: sampleRows}
	handler, _ := setup(reader)

	for i := 0; i < 2; i++ {
		rec := get(t, handler, "/api/cars")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var rows []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
		require.Len(t, rows, 3)
		require.Contains(t, rows[2], "engine_type")
		require.Nil(t, rows[2]["engine_type"])
	}
	require.Equal(t, 2, reader.allCalls, "the full read should not be cached")
}

func TestIndex(t *testing.T) {
	reader := &fakeReader{rows: sampleRows}
	handler, _ := setup(reader)

	rec := get(t, handler, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	require.Contains(t, body, "<table>")
	require.Contains(t, body, "<th>scraped_at</th>")
	require.NotContains(t, body, "<th>id</th>")
	require.Contains(t, body, "<td>Jaguar XK120</td>")
	require.Contains(t, body, "<svg")
	// two plottable rows, the third has no year or top speed
	require.Equal(t, 2+2, strings.Count(body, "<circle"), "two points plus two legend entries")
	require.Contains(t, body, "Ferrari F40\nYear: 1988\nTop speed: 324 km/h\nHorsepower: 471\nDisplacement: 2.9 L\nEngine: V8")
	require.Contains(t, body, ">Unknown</text>")
}

func TestIndexEmpty(t *testing.T) {
	handler, _ := setup(&fakeReader{rows: []store.Row{}})

	rec := get(t, handler, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "No rows found.")
	require.Contains(t, rec.Body.String(), "No data found.")
	require.NotContains(t, rec.Body.String(), "<svg")
}

func TestIndexLatestFailure(t *testing.T) {
	reader := &fakeReader{rows: sampleRows, latestErr: errors.New("timeout")}
	handler, _ := setup(reader)

	rec := get(t, handler, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Could not load the latest rows: timeout")
	require.Contains(t, rec.Body.String(), "<svg", "the rest of the page should still render")
}

func TestHealth(t *testing.T) {
	handler, _ := setup(&fakeReader{})
	rec := get(t, handler, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestBuildScatter(t *testing.T) {
	require.Nil(t, buildScatter(nil))
	require.Nil(t, buildScatter(sampleRows[2:]))

	plot := buildScatter(sampleRows)
	require.NotNil(t, plot)
	require.Len(t, plot.Points, 2)
	require.Len(t, plot.Legend, 2)
	require.Equal(t, "Unknown", plot.Legend[0].Label)
	require.Equal(t, "V8", plot.Legend[1].Label)

	ferrari, jaguar := plot.Points[0], plot.Points[1]
	require.Greater(t, ferrari.X, jaguar.X, "later years are further right")
	require.Less(t, ferrari.Y, jaguar.Y, "faster cars are higher up")
	for _, p := range plot.Points {
		require.GreaterOrEqual(t, p.X, plot.Left)
		require.LessOrEqual(t, p.X, plot.Right)
		require.GreaterOrEqual(t, p.Y, plot.Top)
		require.LessOrEqual(t, p.Y, plot.Bottom)
	}
	require.NotEqual(t, plot.Legend[0].Color, plot.Legend[1].Color)
}
