package pgstore

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"testing"
	"time"

	"fastestcars/internal/cars"
	"fastestcars/internal/store"
	"fastestcars/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setup(t *testing.T) Store {
	if testing.Short() {
		t.Skip("skipping postgres container in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		Started: true,
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "cars",
				"POSTGRES_PASSWORD": "cars",
				"POSTGRES_DB":       "cars",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
	})
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		postgres.Terminate(context.Background())
	})

	host, err := postgres.Host(ctx)
	require.NoError(t, err)
	port, err := postgres.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://cars:cars@%s:%s/cars?sslmode=disable", host, port.Port())
	s, err := Open(ctx, dsn, "")
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestStore(t *testing.T) {
	s := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	records := []cars.Record{
		{
			Year:                cars.Int64(2017),
			MakeModel:           cars.String("Koenigsegg Agera RS"),
			Horsepower:          cars.Int64(1160),
			TopSpeedKmh:         cars.Int64(447),
			EngineDisplacementL: cars.Float64(5),
			EngineType:          cars.String("V8"),
		},
		{MakeModel: cars.String("Bugatti Veyron")},
		{},
	}

	report := store.Persist(ctx, s, records, 2, &telemetry.RecordingAPI{})
	require.NoError(t, report.Err())
	require.Len(t, report.Batches, 2)

	rows, err := s.All(ctx)
	require.NoError(t, err)
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ID < rows[j].ID
	})
	got := make([]cars.Record, len(rows))
	for i, r := range rows {
		got[i] = r.Record
	}
	if diff := cmp.Diff(records, got); diff != "" {
		t.Fatal(diff)
	}

	latest, err := s.Latest(ctx, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	require.Equal(t, rows[2].ID, latest[0].ID)
}
