package game

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zappabad/coinsim/internal/admin"
	"github.com/zappabad/coinsim/internal/api"
	"github.com/zappabad/coinsim/internal/market"
	marketservice "github.com/zappabad/coinsim/internal/market/service"
	"github.com/zappabad/coinsim/internal/storage"
	"github.com/zappabad/coinsim/internal/trader/runner"
)

// Environment variables that override the loaded configuration.
const (
	EnvDB            = "COINSIM_DB"
	EnvAddr          = "COINSIM_ADDR"
	EnvLogLevel      = "COINSIM_LOG_LEVEL"
	EnvSeed          = "COINSIM_SEED"
	EnvAdminPassword = "COINSIM_ADMIN_PASSWORD"
)

// Config holds configuration for the game.
type Config struct {
	// Assets is the ordered asset registry.
	Assets market.Registry `yaml:"assets"`
	// Market is the configuration for the market service.
	Market marketservice.Config `yaml:"market"`
	// Runner is the configuration for the tick runner.
	Runner runner.Config `yaml:"runner"`
	// API is the configuration for the HTTP server.
	API api.Config `yaml:"api"`
	// Admin holds the admin credentials.
	Admin admin.Config `yaml:"admin"`
	// DBPath is the sqlite file holding the saved game. Empty disables persistence.
	DBPath string `yaml:"db_path"`
	// SnapshotKey is the row key of the saved game.
	SnapshotKey string `yaml:"snapshot_key"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Assets:      market.DefaultRegistry(),
		Market:      marketservice.DefaultConfig(),
		Runner:      runner.DefaultConfig(),
		API:         api.DefaultConfig(),
		Admin:       admin.DefaultConfig(),
		DBPath:      "coinsim.db",
		SnapshotKey: storage.DefaultKey,
		LogLevel:    "info",
	}
}

// LoadConfig reads path on top of DefaultConfig and applies environment
// overrides. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDB); ok {
		c.DBPath = v
	}
	if v, ok := lookup(EnvAddr); ok {
		c.API.Addr = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvSeed); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeed, err)
		}
		c.Market.Seed = seed
	}
	if v, ok := lookup(EnvAdminPassword); ok {
		c.Admin = admin.Config{Password: v}
	}
	return nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Assets.Validate(); err != nil {
		return fmt.Errorf("assets: %w", err)
	}
	if c.Runner.TickInterval <= 0 {
		return errors.New("runner: tick_interval must be positive")
	}
	if c.Market.StartingCash < 0 {
		return errors.New("market: starting_cash must not be negative")
	}
	if c.DBPath != "" && c.SnapshotKey == "" {
		return errors.New("snapshot_key is required when db_path is set")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel maps a level name onto a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
