package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateScraper(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateMonitor(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	url := strings.TrimSpace(c.Store.DatabaseURL)
	if url != "" && !c.UsesPostgres() {
		return fmt.Errorf("store.database_url must be a postgres:// URL, got %q", url)
	}
	if c.Store.BatchSize > 1000 {
		return errors.New("store.batch_size must not exceed 1000")
	}
	return nil
}

func (c *Config) validateScraper() error {
	if c.Scraper.Binary == "" {
		return errors.New("scraper.binary must be set")
	}
	if c.Scraper.HostSpacingMS < 500 {
		return errors.New("scraper.host_spacing_ms must be at least 500")
	}
	if c.Scraper.Region != "" && len(c.Scraper.Region) != 2 {
		return fmt.Errorf("scraper.region must be a two-letter code, got %q", c.Scraper.Region)
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if c.Workers.PoolSize > 32 {
		return errors.New("workers.pool_size must not exceed 32")
	}
	if c.Workers.QueueDepth < c.Workers.PoolSize {
		return errors.New("workers.queue_depth must be at least workers.pool_size")
	}
	return nil
}

func (c *Config) validateMonitor() error {
	if c.Monitor.ViralGrowthMin >= 10 {
		return errors.New("monitor.viral_growth_min is a fraction, not a percentage")
	}
	if c.Monitor.SnapshotWindow < 2 {
		return errors.New("monitor.snapshot_window must be at least 2")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if _, err := time.Parse("15:04", c.Schedule.DigestAt); err != nil {
		return fmt.Errorf("schedule.digest_at must be HH:MM, got %q", c.Schedule.DigestAt)
	}
	if _, ok := ParseWeekday(c.Schedule.ReportWeekday); !ok {
		return fmt.Errorf("schedule.report_weekday: unknown weekday %q", c.Schedule.ReportWeekday)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// ParseWeekday maps a lowercase weekday name to time.Weekday.
func ParseWeekday(name string) (time.Weekday, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sunday":
		return time.Sunday, true
	case "monday":
		return time.Monday, true
	case "tuesday":
		return time.Tuesday, true
	case "wednesday":
		return time.Wednesday, true
	case "thursday":
		return time.Thursday, true
	case "friday":
		return time.Friday, true
	case "saturday":
		return time.Saturday, true
	}
	return time.Sunday, false
}
