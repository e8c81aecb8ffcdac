// Package logger provides the structured logging interface used across the
// crawler, backed by zerolog.
//
// There is no package-level logger. A Logger is built once at startup from
// config.LoggingConfig and handed to each component:
//
//	log, err := logger.New(&cfg.Logging)
//	nav := navigator.New(b, navCfg, log.WithField("component", "navigator"))
//
// Setting logging.enabled to false yields a no-op logger. Tests use
// NewTestLogger to capture and assert on messages.
package logger
