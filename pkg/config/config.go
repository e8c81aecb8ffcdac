package config

import "time"

// EnvPrefix is prepended to every environment variable the crawler reads.
const EnvPrefix = "IGCRAWLER_"

// Config is the full crawler configuration. See Load for how the sources
// are layered.
type Config struct {
	Browser       BrowserConfig      `yaml:"browser" json:"browser"`
	Navigation    NavigationConfig   `yaml:"navigation" json:"navigation"`
	Crawl         CrawlConfig        `yaml:"crawl" json:"crawl"`
	Database      DatabaseConfig     `yaml:"database" json:"database"`
	RateLimit     RateLimitConfig    `yaml:"rate_limit" json:"rate_limit"`
	Output        OutputConfig       `yaml:"output" json:"output"`
	Download      DownloadConfig     `yaml:"download" json:"download"`
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`
	Logging       LoggingConfig      `yaml:"logging" json:"logging"`
}

// BrowserConfig controls the chrome instance driven by the crawler.
type BrowserConfig struct {
	Headless     bool          `yaml:"headless" json:"headless"`
	ExecPath     string        `yaml:"exec_path" json:"exec_path"`
	UserAgent    string        `yaml:"user_agent" json:"user_agent"`
	WindowWidth  int           `yaml:"window_width" json:"window_width"`
	WindowHeight int           `yaml:"window_height" json:"window_height"`
	PageTimeout  time.Duration `yaml:"page_timeout" json:"page_timeout"`
}

// NavigationConfig holds the page load protocol bounds.
type NavigationConfig struct {
	ReadyTimeout     time.Duration `yaml:"ready_timeout" json:"ready_timeout"`
	SettleDelay      time.Duration `yaml:"settle_delay" json:"settle_delay"`
	MaxAttempts      int           `yaml:"max_attempts" json:"max_attempts"`
	PostLoadAttempts int           `yaml:"post_load_attempts" json:"post_load_attempts"`
}

// CrawlConfig holds listing and post walk settings.
type CrawlConfig struct {
	MaxPosts     int           `yaml:"max_posts" json:"max_posts"`
	ScrollPause  time.Duration `yaml:"scroll_pause" json:"scroll_pause"`
	HeightDelta  int           `yaml:"height_delta" json:"height_delta"`
	MaxScrolls   int           `yaml:"max_scrolls" json:"max_scrolls"`
	ClickPause   time.Duration `yaml:"click_pause" json:"click_pause"`
	DataTabDelay time.Duration `yaml:"data_tab_delay" json:"data_tab_delay"`
	Stories      bool          `yaml:"stories" json:"stories"`
	Login        string        `yaml:"login" json:"login"`
}

// DatabaseConfig holds the sqlite location.
type DatabaseConfig struct {
	Path string `yaml:"path" json:"path"`
}

// RateLimitConfig paces page loads and the web API client. MaxRetries and
// BackoffMultiplier drive API retries.
type RateLimitConfig struct {
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int           `yaml:"burst_size" json:"burst_size"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" json:"backoff_multiplier"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay" json:"retry_delay"`
}

// OutputConfig places downloaded media.
type OutputConfig struct {
	BaseDirectory     string `yaml:"base_directory" json:"base_directory"`
	OverwriteExisting bool   `yaml:"overwrite_existing" json:"overwrite_existing"`
	SaveMetadata      bool   `yaml:"save_metadata" json:"save_metadata"`
}

type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
}

// NotificationConfig decides whether and how a finished run is announced.
type NotificationConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	OnComplete       bool   `yaml:"on_complete" json:"on_complete"`
	OnError          bool   `yaml:"on_error" json:"on_error"`
	NotificationType string `yaml:"notification_type" json:"notification_type"`
}

type LoggingConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Level   string `yaml:"level" json:"level"`
	File    string `yaml:"file" json:"file"`
	Console bool   `yaml:"console" json:"console"`
}

// DefaultConfig returns the built-in defaults. MaxPosts starts effectively
// unbounded.
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:     true,
			UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
			WindowWidth:  1280,
			WindowHeight: 1024,
			PageTimeout:  30 * time.Second,
		},
		Navigation: NavigationConfig{
			ReadyTimeout:     10 * time.Second,
			SettleDelay:      3 * time.Second,
			MaxAttempts:      6,
			PostLoadAttempts: 3,
		},
		Crawl: CrawlConfig{
			MaxPosts:     1_000_000_000,
			ScrollPause:  500 * time.Millisecond,
			HeightDelta:  25,
			ClickPause:   time.Second,
			DataTabDelay: 2 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "./downloads/igcrawler.db",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         10,
			BackoffMultiplier: 2.0,
			MaxRetries:        5,
			RetryDelay:        100 * time.Millisecond,
		},
		Output: OutputConfig{
			BaseDirectory: "./downloads",
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 3,
			DownloadTimeout:     30 * time.Second,
		},
		Notifications: NotificationConfig{
			Enabled:          false,
			OnComplete:       true,
			OnError:          true,
			NotificationType: "terminal",
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			File:    "",
			Console: true,
		},
	}
}

