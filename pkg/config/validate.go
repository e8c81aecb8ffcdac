package config

import (
	"errors"
	"strings"

	"github.com/samber/lo"
)

const maxConcurrentDownloads = 10

var (
	logLevels         = []string{"debug", "info", "warn", "error"}
	notificationTypes = []string{"terminal", "desktop", "none"}
)

type rule struct {
	broken bool
	msg    string
}

// Validate reports every problem in c at once.
func (c *Config) Validate() error {
	rules := []rule{
		{c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0, "browser window size must be positive"},
		{c.Navigation.ReadyTimeout <= 0, "navigation ready timeout must be positive"},
		{c.Navigation.SettleDelay < 0, "navigation settle delay cannot be negative"},
		{c.Navigation.MaxAttempts < 1, "navigation attempts must be at least 1"},
		{c.Navigation.PostLoadAttempts < 1, "post load attempts must be at least 1"},

		{c.Crawl.MaxPosts < 0, "max posts cannot be negative"},
		{c.Crawl.HeightDelta < 0, "scroll height delta cannot be negative"},
		{c.Database.Path == "", "database path is required"},
		{c.Output.BaseDirectory == "", "output directory is required"},

		{c.RateLimit.RequestsPerMinute <= 0, "requests per minute must be positive"},
		{c.RateLimit.BurstSize <= 0, "rate limit burst size must be positive"},
		{c.RateLimit.MaxRetries < 0, "max retries cannot be negative"},

		{c.Download.ConcurrentDownloads <= 0, "concurrent downloads must be positive"},
		{c.Download.ConcurrentDownloads > maxConcurrentDownloads, "concurrent downloads cannot exceed 10"},
		{c.Download.DownloadTimeout <= 0, "download timeout must be positive"},

		{!lo.Contains(logLevels, strings.ToLower(c.Logging.Level)), "invalid log level " + c.Logging.Level},
		{!lo.Contains(notificationTypes, strings.ToLower(c.Notifications.NotificationType)),
			"invalid notification type " + c.Notifications.NotificationType},
	}

	var errs []error
	for _, r := range rules {
		if r.broken {
			errs = append(errs, errors.New(r.msg))
		}
	}
	return errors.Join(errs...)
}
