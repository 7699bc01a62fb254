package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"fastestcars/internal/artifacts"
	"fastestcars/internal/dashboard"
	"fastestcars/internal/extraction"
	"fastestcars/internal/source"
	"fastestcars/internal/store"
	"fastestcars/internal/store/pgstore"
	"fastestcars/internal/store/postgrest"
	"fastestcars/internal/store/sqlstore"
	"fastestcars/lib/configutil"
	"fastestcars/lib/telemetry"
)

type SourceConfig struct {
	Url string `json:"url"`
}

type ModelConfig struct {
	BaseUrl string `json:"base_url"`
	ApiKey  string `json:"api_key"`
	Model   string `json:"model"`
}

type ArtifactsConfig struct {
	Dir string `json:"dir"`
}

type StoreConfig struct {
	// Kind is one of sqlite, libsql, postgres or postgrest.
	Kind      string `json:"kind"`
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
	ApiKey    string `json:"api_key"`
	Table     string `json:"table"`
	BatchSize int    `json:"batch_size"`
}

type DashboardConfig struct {
	Port            int `json:"port"`
	LatestLimit     int `json:"latest_limit"`
	CacheTtlSeconds int `json:"cache_ttl_seconds"`
}

type Config struct {
	Source    SourceConfig    `json:"source"`
	Model     ModelConfig     `json:"model"`
	Artifacts ArtifactsConfig `json:"artifacts"`
	Store     StoreConfig     `json:"store"`
	Dashboard DashboardConfig `json:"dashboard"`
}

var defaultConfig = Config{
	Source: SourceConfig{Url: source.DefaultURL},
	Model: ModelConfig{
		BaseUrl: extraction.DefaultBaseURL,
		Model:   "gpt-4o",
	},
	Artifacts: ArtifactsConfig{Dir: "."},
	Store: StoreConfig{
		Kind:      "sqlite",
		File:      "fastest_cars.db",
		Table:     store.DefaultTable,
		BatchSize: store.DefaultBatchSize,
	},
	Dashboard: DashboardConfig{
		Port:            8000,
		LatestLimit:     dashboard.DefaultLatestLimit,
		CacheTtlSeconds: int(dashboard.DefaultCacheTTL / time.Second),
	},
}

func loadConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("no config file found, using defaults", "path", path)
	} else if err != nil {
		return Config{}, err
	}
	return configutil.WithDefaults(cfg, defaultConfig)
}

func readConfig() (Config, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg StoreConfig, tel telemetry.API) (store.Store, error) {
	switch cfg.Kind {
	case "sqlite":
		return sqlstore.Open(ctx, sqlstore.Config{File: cfg.File, Table: cfg.Table})
	case "libsql":
		if cfg.Url == "" {
			return nil, fmt.Errorf("store.url is required for libsql")
		}
		return sqlstore.Open(ctx, sqlstore.Config{Url: cfg.Url, AuthToken: cfg.AuthToken, Table: cfg.Table})
	case "postgres":
		if cfg.Url == "" {
			return nil, fmt.Errorf("store.url is required for postgres")
		}
		return pgstore.Open(ctx, cfg.Url, cfg.Table)
	case "postgrest":
		return postgrest.NewStore(postgrest.Options{
			Url:    cfg.Url,
			APIKey: cfg.ApiKey,
			Table:  cfg.Table,
		}, tel)
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}

func openArtifacts(cfg ArtifactsConfig) (artifacts.Dir, error) {
	dir, err := artifacts.NewDir(cfg.Dir)
	if err != nil {
		return artifacts.Dir{}, fmt.Errorf("failed to open artifact directory: %w", err)
	}
	return dir, nil
}
