package config

const (
	defaultDataDir   = "~/.local/share/spyglass"
	defaultLogDir    = "~/.local/share/spyglass/logs"
	defaultReportDir = "~/.local/share/spyglass/reports"

	defaultBatchSize      = 100
	defaultConnectRetries = 5

	defaultScraperBinary  = "yt-dlp"
	defaultSearchTimeout  = 30
	defaultDetailTimeout  = 30
	defaultChannelTimeout = 15
	defaultCommentTimeout = 120
	defaultHostSpacingMS  = 2000
	defaultTimeoutRetries = 2
	defaultMaxPerKeyword  = 50

	defaultPoolSize     = 6
	defaultStopGraceSec = 5

	defaultDetailMinViews = 1000
	defaultDetailLimit    = 50

	defaultSweepLimit      = 100
	defaultSnapshotWindow  = 5
	defaultViralGrowthMin  = 0.30
	defaultViralStepMin    = 0.10
	defaultViralMinSamples = 3

	defaultBetweennessSampleSize = 100
	defaultBetweennessSampleSeed = 42
	defaultMinWordCount          = 3

	defaultSnapshotSweepMinutes = 60
	defaultDigestAt             = "08:00"
	defaultReportWeekday        = "monday"
	defaultEnrichEveryDays      = 3
	defaultEnrichMinViews       = 10000
	defaultWatchPollMinutes     = 30

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// defaultStopWords covers common particles in the corpora the analyzer
// typically sees (Chinese content plus English filler).
var defaultStopWords = []string{
	"的", "了", "是", "在", "我", "你", "他", "她", "它", "这", "那",
	"and", "the", "for", "with", "you", "your", "how", "what", "why",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			ReportDir: defaultReportDir,
		},
		Store: Store{
			BatchSize:      defaultBatchSize,
			ConnectRetries: defaultConnectRetries,
		},
		Scraper: Scraper{
			Binary:         defaultScraperBinary,
			SearchTimeout:  defaultSearchTimeout,
			DetailTimeout:  defaultDetailTimeout,
			ChannelTimeout: defaultChannelTimeout,
			CommentTimeout: defaultCommentTimeout,
			HostSpacingMS:  defaultHostSpacingMS,
			TimeoutRetries: defaultTimeoutRetries,
			MaxPerKeyword:  defaultMaxPerKeyword,
		},
		Workers: Workers{
			PoolSize:     defaultPoolSize,
			StopGraceSec: defaultStopGraceSec,
		},
		Collect: Collect{
			DetailMinViews: defaultDetailMinViews,
			DetailLimit:    defaultDetailLimit,
		},
		Monitor: Monitor{
			SweepLimit:      defaultSweepLimit,
			SnapshotWindow:  defaultSnapshotWindow,
			ViralGrowthMin:  defaultViralGrowthMin,
			ViralStepMin:    defaultViralStepMin,
			ViralMinSamples: defaultViralMinSamples,
		},
		Analysis: Analysis{
			BetweennessSampleSize: defaultBetweennessSampleSize,
			BetweennessSampleSeed: defaultBetweennessSampleSeed,
			MinWordCount:          defaultMinWordCount,
			StopWords:             append([]string(nil), defaultStopWords...),
		},
		Schedule: Schedule{
			SnapshotSweepMinutes: defaultSnapshotSweepMinutes,
			DigestAt:             defaultDigestAt,
			ReportWeekday:        defaultReportWeekday,
			EnrichEveryDays:      defaultEnrichEveryDays,
			EnrichMinViews:       defaultEnrichMinViews,
			WatchPollMinutes:     defaultWatchPollMinutes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
