package browser

import (
	"time"

	"github.com/chromedp/chromedp"
	"igcrawler/pkg/config"
)

// Options configures the chrome instance.
type Options struct {
	Headless     bool
	ExecPath     string
	UserAgent    string
	WindowWidth  int
	WindowHeight int
	// PageTimeout bounds a single page load.
	PageTimeout time.Duration
	// DocumentDelay is waited in an auxiliary tab before its HTML is read.
	DocumentDelay time.Duration
}

// OptionsFromConfig maps the browser section of the config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Headless:      cfg.Browser.Headless,
		ExecPath:      cfg.Browser.ExecPath,
		UserAgent:     cfg.Browser.UserAgent,
		WindowWidth:   cfg.Browser.WindowWidth,
		WindowHeight:  cfg.Browser.WindowHeight,
		PageTimeout:   cfg.Browser.PageTimeout,
		DocumentDelay: cfg.Crawl.DataTabDelay,
	}
}

// BuildAllocatorOptions creates the chrome flags for opts.
func BuildAllocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("lang", "en-US"),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
	)

	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	return allocOpts
}
