// Package navigator loads pages in the crawl's browsing session and recovers
// from the site's transient failure pages by reloading a bounded number of
// times.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"igcrawler/pkg/browser"
	errs "igcrawler/pkg/errors"
	"igcrawler/pkg/instagram"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/ratelimit"
	"igcrawler/pkg/retry"
)

// ErrPageLoadTimeout is wrapped by every navigation failure.
var ErrPageLoadTimeout = errors.New("page load timeout")

// Config bounds a single navigation.
type Config struct {
	// ReadyTimeout is how long to wait for the document-ready signal.
	ReadyTimeout time.Duration
	// SettleDelay is the fixed pause after ready for client-side rendering.
	SettleDelay time.Duration
	// MaxAttempts is the number of loads before giving up.
	MaxAttempts int
	// Limiter paces page loads. Nil means unpaced.
	Limiter ratelimit.Limiter
}

// DefaultConfig returns the bounds used by the CLI.
func DefaultConfig() Config {
	return Config{
		ReadyTimeout: 10 * time.Second,
		SettleDelay:  3 * time.Second,
		MaxAttempts:  6,
	}
}

type navOptions struct {
	force       bool
	maxAttempts int
}

// Option adjusts one Navigate call.
type Option func(*navOptions)

// Force reloads the target even when it is already the current page.
func Force() Option {
	return func(o *navOptions) { o.force = true }
}

// WithMaxAttempts overrides the load bound for one call.
func WithMaxAttempts(n int) Option {
	return func(o *navOptions) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// Navigator owns page loads for one browsing session. It is not safe for
// concurrent use; the session is driven by a single flow.
type Navigator struct {
	browser          browser.Browser
	cfg              Config
	logger           logger.Logger
	cookiesDismissed bool
}

// New creates a Navigator driving b.
func New(b browser.Browser, cfg Config, log logger.Logger) *Navigator {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.Unlimited{}
	}
	return &Navigator{
		browser: b,
		cfg:     cfg,
		logger:  log.WithField("component", "navigator"),
	}
}

// Browser returns the session this navigator drives.
func (n *Navigator) Browser() browser.Browser {
	return n.browser
}

func normalize(url string) string {
	return strings.TrimRight(url, "/")
}

// Navigate loads url and waits for it to render. A page showing the reload
// prompt or the temporary error page is loaded again, up to the attempt
// bound. Exhausting the bound, or a driver failure, returns a navigation
// error wrapping ErrPageLoadTimeout; callers treat it as fatal to the run.
func (n *Navigator) Navigate(ctx context.Context, url string, opts ...Option) error {
	o := navOptions{maxAttempts: n.cfg.MaxAttempts}
	for _, opt := range opts {
		opt(&o)
	}

	if !o.force {
		current, err := n.browser.CurrentURL(ctx)
		if err == nil && normalize(current) == normalize(url) {
			return nil
		}
	}

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		if err := n.cfg.Limiter.Wait(ctx); err != nil {
			return err
		}

		start := time.Now()
		transient, err := n.load(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.LogNavigation(n.logger, url, attempt, time.Since(start), err)
			return errs.Wrap(errs.ErrorTypeNavigation,
				fmt.Errorf("%w: %w", ErrPageLoadTimeout, err), "load "+url)
		}
		if transient {
			logger.LogNavigation(n.logger, url, attempt, time.Since(start),
				errors.New("transient error page"))
			continue
		}

		logger.LogNavigation(n.logger, url, attempt, time.Since(start), nil)
		n.dismissCookies(ctx)
		return nil
	}

	return errs.Wrap(errs.ErrorTypeNavigation, ErrPageLoadTimeout,
		fmt.Sprintf("load %s: gave up after %d attempts", url, o.maxAttempts))
}

// load issues one page load and reports whether a transient failure marker
// is showing afterwards.
func (n *Navigator) load(ctx context.Context, url string) (bool, error) {
	if err := n.browser.Navigate(ctx, url); err != nil {
		return false, err
	}
	if err := n.browser.WaitUntil(ctx, browser.DocumentReady, n.cfg.ReadyTimeout); err != nil {
		return false, err
	}
	if err := retry.Wait(ctx, n.cfg.SettleDelay); err != nil {
		return false, err
	}

	transient := browser.Exists(ctx, n.browser, instagram.SelectorReloadButton) ||
		browser.Exists(ctx, n.browser, instagram.SelectorErrorPage)
	return transient, nil
}

// dismissCookies accepts the cookie banner the first time it shows up.
// Failures are only logged.
func (n *Navigator) dismissCookies(ctx context.Context) {
	if n.cookiesDismissed {
		return
	}
	button, err := n.browser.Find(ctx, instagram.SelectorAcceptCookies)
	if err != nil {
		return
	}
	if err := button.Click(ctx); err != nil {
		n.logger.WithError(err).Debug("could not dismiss cookie banner")
		return
	}
	n.cookiesDismissed = true
	n.logger.Debug("cookie banner dismissed")
}
