package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Project-Sylos/Canopy/internal/types"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv
const (
	EnvDBPath     = "CANOPY_DB_PATH"
	EnvAPIHost    = "CANOPY_API_HOST"
	EnvAPIPort    = "CANOPY_API_PORT"
	EnvBaseURL    = "CANOPY_BASE_URL"
	EnvLogLevel   = "CANOPY_LOG_LEVEL"
	EnvLogFormat  = "CANOPY_LOG_FORMAT"
	EnvServeStale = "CANOPY_SERVE_STALE"
)

// DefaultConfig returns a default configuration
func DefaultConfig() types.Config {
	return types.Config{
		Store: types.StoreConfig{
			DBPath:   "./canopy.db",
			PageSize: types.DefaultPageSize,
		},
		API: types.APIConfig{
			Host: "localhost",
			Port: 8086,
		},
		Client: types.ClientConfig{
			BaseURL: "http://localhost:8086",
			Timeout: types.Duration{Duration: 30 * time.Second},
		},
		Cache: types.CacheConfig{
			MaxEntries:        1024,
			PageStaleTime:     types.Duration{Duration: 5 * time.Minute},
			AncestorStaleTime: types.Duration{Duration: 30 * time.Minute},
			ListStaleTime:     types.Duration{Duration: 0},
			ServeStale:        false,
		},
		Seed: types.SeedConfig{
			MaxDepth:    3,
			MinChildren: 1,
			MaxChildren: 4,
			RootPages:   5,
			Seed:        42,
		},
		Log: types.LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromFile loads configuration from a JSON or YAML file. Missing sections
// keep their default values.
func LoadFromFile(configPath string) (*types.Config, error) {
	// Check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	if err := finalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load builds the configuration from configPath (defaults when empty), then
// applies envFile and CANOPY_* overrides.
func Load(configPath, envFile string) (*types.Config, error) {
	var cfg *types.Config
	if configPath != "" {
		loaded, err := LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		defaults := DefaultConfig()
		cfg = &defaults
	}

	if err := ApplyEnv(cfg, envFile); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv loads an optional .env file and overrides cfg with CANOPY_* variables.
// A missing envFile is not an error.
func ApplyEnv(cfg *types.Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.Store.DBPath = v
	}
	if v := os.Getenv(EnvAPIHost); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv(EnvAPIPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvAPIPort, err)
		}
		cfg.API.Port = port
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.Client.BaseURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv(EnvServeStale); v != "" {
		serveStale, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvServeStale, err)
		}
		cfg.Cache.ServeStale = serveStale
	}

	return finalize(cfg)
}

// finalize validates cfg and resolves derived values
func finalize(cfg *types.Config) error {
	if err := Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Set default DB path if not specified
	if cfg.Store.DBPath == "" {
		cfg.Store.DBPath = "./canopy.db"
	}

	// Ensure DB path is absolute; ":memory:" and empty DuckDB paths stay as-is
	if cfg.Store.DBPath != ":memory:" && !filepath.IsAbs(cfg.Store.DBPath) {
		absPath, err := filepath.Abs(cfg.Store.DBPath)
		if err != nil {
			return fmt.Errorf("failed to resolve DB path: %w", err)
		}
		cfg.Store.DBPath = absPath
	}

	if cfg.API.Host == "" {
		cfg.API.Host = "localhost"
	}
	if cfg.Store.PageSize == 0 {
		cfg.Store.PageSize = types.DefaultPageSize
	}
	if cfg.Client.BaseURL == "" {
		cfg.Client.BaseURL = fmt.Sprintf("http://%s:%d", cfg.API.Host, cfg.API.Port)
	}

	return nil
}

// Validate checks that the configuration parameters are valid
func Validate(cfg *types.Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if cfg.Store.PageSize < 0 || cfg.Store.PageSize > types.MaxPageSize {
		return fmt.Errorf("page_size must be between 0 and %d, got %d", types.MaxPageSize, cfg.Store.PageSize)
	}

	// Validate API config
	if cfg.API.Port < 1 || cfg.API.Port > 65535 {
		return fmt.Errorf("API port must be between 1 and 65535, got %d", cfg.API.Port)
	}

	if cfg.Client.Timeout.Duration < 0 {
		return fmt.Errorf("client timeout must be non-negative, got %s", cfg.Client.Timeout)
	}

	// Validate cache config
	if cfg.Cache.MaxEntries < 1 {
		return fmt.Errorf("max_entries must be at least 1, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.Cache.PageStaleTime.Duration < 0 || cfg.Cache.AncestorStaleTime.Duration < 0 || cfg.Cache.ListStaleTime.Duration < 0 {
		return fmt.Errorf("stale times must be non-negative")
	}

	// Validate seed config
	if cfg.Seed.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be non-negative, got %d", cfg.Seed.MaxDepth)
	}
	if cfg.Seed.MinChildren < 0 {
		return fmt.Errorf("min_children must be non-negative, got %d", cfg.Seed.MinChildren)
	}
	if cfg.Seed.MaxChildren < cfg.Seed.MinChildren {
		return fmt.Errorf("max_children (%d) must be >= min_children (%d)", cfg.Seed.MaxChildren, cfg.Seed.MinChildren)
	}
	if cfg.Seed.RootPages < 0 {
		return fmt.Errorf("root_pages must be non-negative, got %d", cfg.Seed.RootPages)
	}

	switch cfg.Log.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("log format must be json or console, got %q", cfg.Log.Format)
	}

	return nil
}

// SaveToFile saves configuration to a JSON or YAML file, chosen by extension
func SaveToFile(cfg *types.Config, configPath string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
	default:
		data, err = json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
