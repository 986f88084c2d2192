package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStore()
	c.normalizeScraper()
	c.normalizeWorkers()
	c.normalizeCollect()
	c.normalizeMonitor()
	c.normalizeAnalysis()
	c.normalizeSchedule()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ReportDir) == "" {
		c.Paths.ReportDir = defaultReportDir
	}
	if c.Paths.ReportDir, err = expandPath(c.Paths.ReportDir); err != nil {
		return fmt.Errorf("paths.report_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() {
	if c.Store.DatabaseURL == "" {
		if value, ok := os.LookupEnv("DATABASE_URL"); ok {
			c.Store.DatabaseURL = strings.TrimSpace(value)
		}
	}
	if c.Store.BatchSize <= 0 {
		c.Store.BatchSize = defaultBatchSize
	}
	if c.Store.ConnectRetries <= 0 {
		c.Store.ConnectRetries = defaultConnectRetries
	}
}

func (c *Config) normalizeScraper() {
	c.Scraper.Binary = strings.TrimSpace(c.Scraper.Binary)
	if c.Scraper.Binary == "" {
		c.Scraper.Binary = defaultScraperBinary
	}
	if c.Scraper.SearchTimeout <= 0 {
		c.Scraper.SearchTimeout = defaultSearchTimeout
	}
	if c.Scraper.DetailTimeout <= 0 {
		c.Scraper.DetailTimeout = defaultDetailTimeout
	}
	if c.Scraper.ChannelTimeout <= 0 {
		c.Scraper.ChannelTimeout = defaultChannelTimeout
	}
	if c.Scraper.CommentTimeout <= 0 {
		c.Scraper.CommentTimeout = defaultCommentTimeout
	}
	if c.Scraper.HostSpacingMS <= 0 {
		c.Scraper.HostSpacingMS = defaultHostSpacingMS
	}
	if c.Scraper.TimeoutRetries < 0 {
		c.Scraper.TimeoutRetries = defaultTimeoutRetries
	}
	if c.Scraper.MaxPerKeyword <= 0 {
		c.Scraper.MaxPerKeyword = defaultMaxPerKeyword
	}
	c.Scraper.Region = strings.ToUpper(strings.TrimSpace(c.Scraper.Region))
}

func (c *Config) normalizeWorkers() {
	if c.Workers.PoolSize <= 0 {
		c.Workers.PoolSize = defaultPoolSize
	}
	if c.Workers.QueueDepth <= 0 {
		c.Workers.QueueDepth = 2 * c.Workers.PoolSize
	}
	if c.Workers.StopGraceSec <= 0 {
		c.Workers.StopGraceSec = defaultStopGraceSec
	}
}

func (c *Config) normalizeCollect() {
	if c.Collect.DetailMinViews < 0 {
		c.Collect.DetailMinViews = defaultDetailMinViews
	}
	if c.Collect.DetailLimit <= 0 {
		c.Collect.DetailLimit = defaultDetailLimit
	}
}

func (c *Config) normalizeMonitor() {
	if c.Monitor.SweepLimit <= 0 {
		c.Monitor.SweepLimit = defaultSweepLimit
	}
	if c.Monitor.SnapshotWindow <= 0 {
		c.Monitor.SnapshotWindow = defaultSnapshotWindow
	}
	if c.Monitor.ViralGrowthMin <= 0 {
		c.Monitor.ViralGrowthMin = defaultViralGrowthMin
	}
	if c.Monitor.ViralStepMin <= 0 {
		c.Monitor.ViralStepMin = defaultViralStepMin
	}
	if c.Monitor.ViralMinSamples <= 0 {
		c.Monitor.ViralMinSamples = defaultViralMinSamples
	}
}

func (c *Config) normalizeAnalysis() {
	if c.Analysis.BetweennessSampleSize <= 0 {
		c.Analysis.BetweennessSampleSize = defaultBetweennessSampleSize
	}
	if c.Analysis.BetweennessSampleSeed == 0 {
		c.Analysis.BetweennessSampleSeed = defaultBetweennessSampleSeed
	}
	if c.Analysis.MinWordCount <= 0 {
		c.Analysis.MinWordCount = defaultMinWordCount
	}
	if len(c.Analysis.StopWords) == 0 {
		c.Analysis.StopWords = append([]string(nil), defaultStopWords...)
	}
}

func (c *Config) normalizeSchedule() {
	if c.Schedule.SnapshotSweepMinutes <= 0 {
		c.Schedule.SnapshotSweepMinutes = defaultSnapshotSweepMinutes
	}
	if strings.TrimSpace(c.Schedule.DigestAt) == "" {
		c.Schedule.DigestAt = defaultDigestAt
	}
	c.Schedule.ReportWeekday = strings.ToLower(strings.TrimSpace(c.Schedule.ReportWeekday))
	if c.Schedule.ReportWeekday == "" {
		c.Schedule.ReportWeekday = defaultReportWeekday
	}
	if c.Schedule.EnrichEveryDays <= 0 {
		c.Schedule.EnrichEveryDays = defaultEnrichEveryDays
	}
	if c.Schedule.EnrichMinViews < 0 {
		c.Schedule.EnrichMinViews = defaultEnrichMinViews
	}
	if c.Schedule.WatchPollMinutes <= 0 {
		c.Schedule.WatchPollMinutes = defaultWatchPollMinutes
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
