// Package collector harvests post links from an infinitely scrolling listing
// such as a profile grid or a tag's explore page.
package collector

import (
	"context"
	"time"

	"github.com/samber/lo"
	"igcrawler/pkg/browser"
	"igcrawler/pkg/instagram"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/navigator"
	"igcrawler/pkg/retry"
)

// Navigator loads listing pages.
type Navigator interface {
	Navigate(ctx context.Context, url string, opts ...navigator.Option) error
}

// Config tunes the scroll loop.
type Config struct {
	// ScrollPause is the wait after each scroll for lazy-loaded posts.
	ScrollPause time.Duration
	// HeightDelta is the window height jitter applied between scrolls.
	HeightDelta int
	// MaxScrolls stops a listing that never runs out. Zero means no limit.
	MaxScrolls int
}

// DefaultConfig returns the values used by the CLI.
func DefaultConfig() Config {
	return Config{
		ScrollPause: 500 * time.Millisecond,
		HeightDelta: 25,
	}
}

// Collector scrolls listings in the shared browsing session.
type Collector struct {
	nav     Navigator
	browser browser.Browser
	cfg     Config
	logger  logger.Logger
}

// New creates a Collector.
func New(nav Navigator, b browser.Browser, cfg Config, log logger.Logger) *Collector {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Collector{
		nav:     nav,
		browser: b,
		cfg:     cfg,
		logger:  log.WithField("component", "collector"),
	}
}

// Collect returns up to max unique post links from listingURL in the order
// they were first seen. When scope is set only links inside the first
// element it matches are read. An empty listing yields an empty slice. The
// error is non-nil only when the listing could not be loaded or ctx ended.
func (c *Collector) Collect(ctx context.Context, listingURL string, max int, scope string) ([]string, error) {
	links := []string{}
	if max <= 0 {
		return links, nil
	}

	if err := c.nav.Navigate(ctx, listingURL); err != nil {
		return links, err
	}

	log := c.logger.WithFields(map[string]interface{}{
		"listing": listingURL,
		"max":     max,
	})

	original, sizeErr := c.browser.WindowSize(ctx)
	jittered := false
	defer func() {
		if jittered && sizeErr == nil {
			if err := c.browser.SetWindowSize(context.WithoutCancel(ctx), original); err != nil {
				log.WithError(err).Debug("could not restore window size")
			}
		}
	}()

	current := original
	grow := true
	for scrolls := 0; ; scrolls++ {
		if err := ctx.Err(); err != nil {
			return links, err
		}

		links = c.harvest(ctx, scope, links)
		if len(links) >= max {
			log.InfoWithFields("link cap reached", map[string]interface{}{"links": max, "scrolls": scrolls})
			return links[:max], nil
		}

		if err := c.browser.ExecuteScript(ctx, browser.ScrollToBottom, nil); err != nil {
			if ctx.Err() != nil {
				return links, ctx.Err()
			}
			log.WithError(err).Warn("scroll failed, keeping links found so far")
			return c.finish(ctx, scope, links, max), nil
		}
		if err := retry.Wait(ctx, c.cfg.ScrollPause); err != nil {
			return links, err
		}
		c.clickShowMore(ctx, log)

		if !browser.Exists(ctx, c.browser, instagram.SelectorScrollLoad) {
			links = c.finish(ctx, scope, links, max)
			log.InfoWithFields("listing exhausted", map[string]interface{}{"links": len(links), "scrolls": scrolls + 1})
			return links, nil
		}

		if c.cfg.MaxScrolls > 0 && scrolls+1 >= c.cfg.MaxScrolls {
			log.WarnWithFields("scroll limit reached", map[string]interface{}{"scrolls": c.cfg.MaxScrolls})
			return c.finish(ctx, scope, links, max), nil
		}

		if sizeErr == nil && c.cfg.HeightDelta != 0 {
			next, err := c.jitter(ctx, current, grow)
			if err != nil {
				log.WithError(err).Debug("window jitter failed")
			} else {
				current = next
				jittered = true
			}
			grow = !grow
		}
	}
}

// finish runs the last extraction pass and applies the cap.
func (c *Collector) finish(ctx context.Context, scope string, links []string, max int) []string {
	links = c.harvest(ctx, scope, links)
	if len(links) > max {
		links = links[:max]
	}
	return links
}

// harvest appends the currently rendered post links to links, keeping the
// first occurrence of each.
func (c *Collector) harvest(ctx context.Context, scope string, links []string) []string {
	var (
		anchors []browser.Element
		err     error
	)
	if scope != "" {
		root, findErr := c.browser.Find(ctx, scope)
		if findErr != nil {
			c.logger.WithField("scope", scope).Debug("listing section not present")
			return links
		}
		anchors, err = root.FindAll(ctx, instagram.SelectorPostLinks)
	} else {
		anchors, err = c.browser.FindAll(ctx, instagram.SelectorPostLinks)
	}
	if err != nil {
		c.logger.WithError(err).Debug("could not read post links")
		return links
	}

	for _, a := range anchors {
		href, ok, err := a.Attribute(ctx, "href")
		if err != nil || !ok {
			continue
		}
		if link, ok := instagram.CanonicalPostURL(href); ok {
			links = append(links, link)
		}
	}
	return lo.Uniq(links)
}

func (c *Collector) clickShowMore(ctx context.Context, log logger.Logger) {
	button, err := c.browser.Find(ctx, instagram.SelectorShowMore)
	if err != nil {
		return
	}
	if err := button.Click(ctx); err != nil {
		log.WithError(err).Debug("show more click failed")
	}
}

// jitter nudges the window height up or down by the configured delta. The
// site's lazy loader sometimes stalls until the viewport changes.
func (c *Collector) jitter(ctx context.Context, from browser.Size, grow bool) (browser.Size, error) {
	size := from
	if grow {
		size.Height += c.cfg.HeightDelta
	} else {
		size.Height -= c.cfg.HeightDelta
	}
	return size, c.browser.SetWindowSize(ctx, size)
}
