package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"fastestcars/internal/cars"
	"fastestcars/internal/store"
	"fastestcars/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	err := os.WriteFile(path, []byte(`{
		// only override what differs from the defaults
		model: { api_key: "${FASTESTCARS_TEST_KEY}" },
		store: { kind: "postgrest", url: "https://project.supabase.co" },
	}`), 0644)
	require.NoError(t, err)
	t.Setenv("FASTESTCARS_TEST_KEY", "sk-test")

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "sk-test", cfg.Model.ApiKey)
	require.Equal(t, defaultConfig.Model.Model, cfg.Model.Model)
	require.Equal(t, "postgrest", cfg.Store.Kind)
	require.Equal(t, store.DefaultTable, cfg.Store.Table)
	require.Equal(t, store.DefaultBatchSize, cfg.Store.BatchSize)
	require.Equal(t, 30, cfg.Dashboard.CacheTtlSeconds)
}

func TestLoadConfigMissing(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)
	require.Equal(t, defaultConfig, cfg)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	tel := &telemetry.RecordingAPI{}

	s, err := openStore(ctx, StoreConfig{Kind: "sqlite", File: ":memory:"}, tel)
	require.NoError(t, err)
	defer s.Close()

	err = s.InsertBatch(ctx, []cars.Record{{MakeModel: cars.String("SSC Tuatara")}})
	require.NoError(t, err)
	rows, err := s.Latest(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	testCases := []struct {
		name string
		cfg  StoreConfig
	}{
		{name: "unknown kind", cfg: StoreConfig{Kind: "mongodb"}},
		{name: "libsql without url", cfg: StoreConfig{Kind: "libsql"}},
		{name: "postgres without url", cfg: StoreConfig{Kind: "postgres"}},
		{name: "postgrest without url", cfg: StoreConfig{Kind: "postgrest"}},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			_, err := openStore(ctx, test.cfg, tel)
			require.Error(t, err)
		})
	}
}

func TestRenderRecords(t *testing.T) {
	var buff bytes.Buffer
	renderRecords(&buff, []cars.Record{
		{Year: cars.Int64(2020), MakeModel: cars.String("SSC Tuatara"), TopSpeedKmh: cars.Int64(455)},
	})
	out := buff.String()
	for _, column := range cars.Columns {
		require.Contains(t, out, column)
	}
	require.Contains(t, out, "SSC Tuatara")
	require.Contains(t, out, "455")
	require.Contains(t, out, "1 records")
	require.NotContains(t, out, "MAKE_MODEL")
}

// execute runs the cli with a config file holding the given store section.
func execute(t *testing.T, storeSection string, args ...string) (string, error) {
	path := filepath.Join(t.TempDir(), "config.json5")
	err := os.WriteFile(path, []byte(fmt.Sprintf("{ store: %s }", storeSection)), 0644)
	require.NoError(t, err)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append(args, "--config", path))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		configPath = "config.json5"
		*showLimit = 0
	})

	err = rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestShow(t *testing.T) {
	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "cars.db")

	s, err := openStore(ctx, StoreConfig{Kind: "sqlite", File: file, Table: store.DefaultTable}, &telemetry.RecordingAPI{})
	require.NoError(t, err)
	err = s.InsertBatch(ctx, []cars.Record{
		{Year: cars.Int64(1993), MakeModel: cars.String("McLaren F1"), TopSpeedKmh: cars.Int64(386)},
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	out, err := execute(t, fmt.Sprintf(`{ kind: "sqlite", file: %q }`, file), "show", "--limit", "5")
	require.NoError(t, err)
	require.Contains(t, out, "scraped_at")
	require.Contains(t, out, "make_model")
	require.Contains(t, out, "McLaren F1")
	require.NotContains(t, out, "SCRAPED_AT")
}

func TestCommandErrorsAreReturned(t *testing.T) {
	_, err := execute(t, `{ kind: "mongodb" }`, "show")
	require.ErrorContains(t, err, `unknown store kind "mongodb"`)
}
