// Package config loads service configuration from a YAML file with
// optional .env overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"lossmine/internal/domain"
)

// Config is the complete service configuration.
type Config struct {
	Contest   ContestConfig   `yaml:"contest"`
	Providers ProvidersConfig `yaml:"providers"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// ContestConfig holds the competition rules.
type ContestConfig struct {
	// CycleInterval is how often the server runs a settlement cycle.
	CycleInterval time.Duration `yaml:"cycle_interval"`
	// MinimumHolding is the smallest balance allowed to compete.
	MinimumHolding string `yaml:"minimum_holding"`
	// MinLossThresholdPct gates entry relative to the pool balance.
	MinLossThresholdPct string `yaml:"min_loss_threshold_pct"`
	// MinHoldDuration is the minimum age of the first qualifying buy.
	MinHoldDuration time.Duration `yaml:"min_hold_duration"`
	// WinnerCooldown is the disqualification window opened on a win.
	WinnerCooldown time.Duration `yaml:"winner_cooldown"`
	// Split is the pool share per rank, first entry is rank 1.
	Split []string `yaml:"split"`
	// TopN bounds the ranked list retained per snapshot.
	TopN int `yaml:"top_n"`
}

// ProvidersConfig points at the market data sources.
type ProvidersConfig struct {
	IndexerURL   string  `yaml:"indexer_url"`
	PriceFeedURL string  `yaml:"price_feed_url"`
	FetchWorkers int     `yaml:"fetch_workers"`
	RequestsPerS float64 `yaml:"requests_per_second"`
}

// StorageConfig holds database connection strings.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"` // optional, disables history when empty
}

// ServerConfig controls the HTTP surfaces.
type ServerConfig struct {
	ListenAddr  string `yaml:"listen_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // console | json
}

// Load reads the YAML file at path and applies .env overrides. Values
// from the environment win over the file for the keys they cover.
func Load(path string) (*Config, error) {
	// Load .env if present; missing file is not an error
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if _, err := cfg.ContestParams(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// ContestParams converts the contest section into validated engine
// parameters.
func (c *Config) ContestParams() (domain.ContestParams, error) {
	minHolding, err := decimal.NewFromString(c.Contest.MinimumHolding)
	if err != nil {
		return domain.ContestParams{}, fmt.Errorf("minimum_holding: %w", err)
	}
	threshold, err := decimal.NewFromString(c.Contest.MinLossThresholdPct)
	if err != nil {
		return domain.ContestParams{}, fmt.Errorf("min_loss_threshold_pct: %w", err)
	}

	split := make([]decimal.Decimal, 0, len(c.Contest.Split))
	for i, s := range c.Contest.Split {
		share, err := decimal.NewFromString(s)
		if err != nil {
			return domain.ContestParams{}, fmt.Errorf("split rank %d: %w", i+1, err)
		}
		split = append(split, share)
	}

	params := domain.ContestParams{
		MinimumHolding:      minHolding,
		MinLossThresholdPct: threshold,
		MinHoldDuration:     c.Contest.MinHoldDuration,
		WinnerCooldown:      c.Contest.WinnerCooldown,
		Split:               split,
		TopN:                c.Contest.TopN,
	}
	if err := params.Validate(); err != nil {
		return domain.ContestParams{}, err
	}
	return params, nil
}

// applyEnvOverrides overrides values from environment variables when set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOSSMINE_POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv("LOSSMINE_CLICKHOUSE_DSN"); v != "" {
		cfg.Storage.ClickhouseDSN = v
	}
	if v := os.Getenv("LOSSMINE_INDEXER_URL"); v != "" {
		cfg.Providers.IndexerURL = v
	}
	if v := os.Getenv("LOSSMINE_PRICE_FEED_URL"); v != "" {
		cfg.Providers.PriceFeedURL = v
	}
	if v := os.Getenv("LOSSMINE_LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults fills in sensible values for anything the file left out.
func setDefaults(cfg *Config) {
	if cfg.Contest.CycleInterval <= 0 {
		cfg.Contest.CycleInterval = time.Hour
	}
	if cfg.Contest.MinimumHolding == "" {
		cfg.Contest.MinimumHolding = "0"
	}
	if cfg.Contest.MinLossThresholdPct == "" {
		cfg.Contest.MinLossThresholdPct = "0"
	}
	if len(cfg.Contest.Split) == 0 {
		cfg.Contest.Split = []string{"0.80", "0.15", "0.05"}
	}
	if cfg.Contest.TopN <= 0 {
		cfg.Contest.TopN = 25
	}
	if cfg.Providers.FetchWorkers <= 0 {
		cfg.Providers.FetchWorkers = 8
	}
	if cfg.Providers.RequestsPerS <= 0 {
		cfg.Providers.RequestsPerS = 20
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.MetricsAddr == "" {
		cfg.Server.MetricsAddr = ":9090"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}
