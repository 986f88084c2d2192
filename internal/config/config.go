package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	ReportDir string `toml:"report_dir"`
}

// Store contains persistence configuration. DatabaseURL selects the
// Postgres backend when set; otherwise the embedded SQLite store is used
// at data_dir/spyglass.db.
type Store struct {
	DatabaseURL    string `toml:"database_url"`
	BatchSize      int    `toml:"batch_size"`
	ConnectRetries int    `toml:"connect_retries"`
}

// Scraper contains settings for the external scraper subprocess.
type Scraper struct {
	Binary          string `toml:"binary"`
	Region          string `toml:"region"`
	SearchTimeout   int    `toml:"search_timeout"`
	DetailTimeout   int    `toml:"detail_timeout"`
	ChannelTimeout  int    `toml:"channel_timeout"`
	CommentTimeout  int    `toml:"comment_timeout"`
	HostSpacingMS   int    `toml:"host_spacing_ms"`
	TimeoutRetries  int    `toml:"timeout_retries"`
	MaxPerKeyword   int    `toml:"max_per_keyword"`
	CommentsEnabled bool   `toml:"comments_enabled"`
}

// Workers contains worker pool sizing.
type Workers struct {
	PoolSize     int `toml:"pool_size"`
	QueueDepth   int `toml:"queue_depth"`
	StopGraceSec int `toml:"stop_grace_seconds"`
}

// Monitor contains growth monitoring thresholds. The viral thresholds
// default to the values the detector was tuned with; they are exposed
// here so operators can loosen or tighten detection without a rebuild.
type Monitor struct {
	SweepLimit      int     `toml:"sweep_limit"`
	SnapshotWindow  int     `toml:"snapshot_window"`
	ViralGrowthMin  float64 `toml:"viral_growth_min"`
	ViralStepMin    float64 `toml:"viral_step_min"`
	ViralMinSamples int     `toml:"viral_min_samples"`
}

// Analysis contains centrality analyzer knobs.
type Analysis struct {
	BetweennessSampleSize int      `toml:"betweenness_sample_size"`
	BetweennessSampleSeed int64    `toml:"betweenness_sample_seed"`
	MinWordCount          int      `toml:"min_word_count"`
	StopWords             []string `toml:"stop_words"`
}

// Collect contains acquisition defaults.
type Collect struct {
	DetailMinViews int `toml:"detail_min_views"`
	DetailLimit    int `toml:"detail_limit"`
}

// Schedule contains daemon trigger timing.
type Schedule struct {
	SnapshotSweepMinutes int    `toml:"snapshot_sweep_minutes"`
	DigestAt             string `toml:"digest_at"`
	ReportWeekday        string `toml:"report_weekday"`
	EnrichEveryDays      int    `toml:"enrich_every_days"`
	EnrichMinViews       int    `toml:"enrich_min_views"`
	WatchPollMinutes     int    `toml:"watch_poll_minutes"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Spyglass.
//
// Sections by subsystem:
//   - Paths: data, log, and report directories
//   - Store: backend selection, batch sizing, retry budget
//   - Scraper: external scraper binary, timeouts, pacing
//   - Workers: worker pool sizing and stop grace
//   - Collect: phase B acquisition defaults
//   - Monitor: snapshot sweep sizing and viral thresholds
//   - Analysis: centrality sampling and tokenizer knobs
//   - Schedule: daemon trigger timing
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Store    Store    `toml:"store"`
	Scraper  Scraper  `toml:"scraper"`
	Workers  Workers  `toml:"workers"`
	Collect  Collect  `toml:"collect"`
	Monitor  Monitor  `toml:"monitor"`
	Analysis Analysis `toml:"analysis"`
	Schedule Schedule `toml:"schedule"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/spyglass/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. It returns the
// resolved path and whether a file was found there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("spyglass.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.ReportDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the embedded store location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "spyglass.db")
}

// UsesPostgres reports whether the remote backend is selected.
func (c *Config) UsesPostgres() bool {
	url := strings.TrimSpace(c.Store.DatabaseURL)
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			return home, nil
		}
		if strings.HasPrefix(pathValue, "~/") {
			return filepath.Join(home, pathValue[2:]), nil
		}
	}
	return filepath.Abs(pathValue)
}
