package logger

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LogNavigation records a page load outcome.
func LogNavigation(log Logger, url string, attempt int, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"url":         url,
		"attempt":     attempt,
		"duration_ms": duration.Milliseconds(),
	}
	if err != nil {
		log.WithError(err).WarnWithFields("Page load failed", fields)
		return
	}
	log.DebugWithFields("Page loaded", fields)
}

// LogRequest logs HTTP request information
func LogRequest(log Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 500:
		log.ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		log.WarnWithFields("HTTP request client error", fields)
	default:
		log.DebugWithFields("HTTP request completed", fields)
	}
}

// LogDownload logs the outcome of saving one media file into dir.
func LogDownload(log Logger, url, dir string, err error) {
	fields := map[string]interface{}{
		"url": url,
		"dir": dir,
	}
	if err != nil {
		log.WithError(err).ErrorWithFields("Download failed", fields)
		return
	}
	log.DebugWithFields("Download completed", fields)
}

// LogCrawlProgress logs per-entity progress
func LogCrawlProgress(log Logger, entity string, attempted, total int) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(attempted) / float64(total) * 100
	}

	log.WithFields(map[string]interface{}{
		"entity":     entity,
		"attempted":  attempted,
		"total":      total,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	}).Info("Crawl progress")
}

// LogComponentStart logs when a component starts
func LogComponentStart(log Logger, component string, config map[string]interface{}) {
	l := log.WithField("component", component)
	if len(config) > 0 {
		l = l.WithFields(config)
	}
	l.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(log Logger, component string, reason string) {
	log.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
