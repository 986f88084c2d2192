package testsupport

import (
	"path/filepath"
	"testing"

	"spyglass/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per
// test. It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ReportDir = filepath.Join(base, "reports")
	cfg.Store.ConnectRetries = 0
	cfg.Workers.PoolSize = 2
	cfg.Workers.QueueDepth = 4
	// One millisecond keeps the limiter wired without pacing tests;
	// zero would fall back to the production default.
	cfg.Scraper.HostSpacingMS = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cfg
}

// WithDatabaseURL points the store at an external backend.
func WithDatabaseURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Store.DatabaseURL = url
	}
}

// WithScraperBinary overrides the scraper binary on the test config.
func WithScraperBinary(path string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Scraper.Binary = path
	}
}
