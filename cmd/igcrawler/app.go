package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"igcrawler/internal/downloader"
	"igcrawler/pkg/auth"
	"igcrawler/pkg/browser"
	"igcrawler/pkg/collector"
	"igcrawler/pkg/config"
	"igcrawler/pkg/crawler"
	"igcrawler/pkg/extractor"
	"igcrawler/pkg/instagram"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/navigator"
	"igcrawler/pkg/ratelimit"
	"igcrawler/pkg/retry"
	"igcrawler/pkg/storage"
	"igcrawler/pkg/store"
	"igcrawler/pkg/ui"
	"igcrawler/pkg/ui/tui"
)

// defaultAccount as the --login value picks the account "auth list" marks
// as default.
const defaultAccount = "default"

// crawlFunc is one crawl command's walk.
type crawlFunc func(ctx context.Context, c *crawler.Crawler) (crawler.Summary, error)

// runCrawl builds the crawler from cfg, logs in when an account is
// configured and runs walk. Ctrl-C stops the walk; what was recorded so far
// stays recorded and the process exits normally.
func runCrawl(cfg *config.Config, useTUI bool, walk crawlFunc) error {
	if useTUI {
		cfg.Logging.Console = false
	}
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var c *crawler.Crawler
	var reporter ui.Reporter = ui.NewConsoleReporter(quiet)
	var dashboard *tui.Dashboard
	if useTUI {
		dashboard = tui.NewDashboard(func() { c.Stop() })
		reporter = dashboard
	}

	c, err = buildCrawler(ctx, cfg, reporter, log)
	if err != nil {
		return exitError(ctx, err)
	}
	defer func() {
		if err := c.Close(context.Background()); err != nil {
			log.WithError(err).Error("shutdown failed")
		}
	}()

	var (
		summary crawler.Summary
		runErr  error
	)
	if dashboard == nil {
		summary, runErr = walk(ctx, c)
	} else {
		done := make(chan struct{})
		go func() {
			defer close(done)
			summary, runErr = walk(ctx, c)
			dashboard.Finish()
		}()
		go func() {
			select {
			case <-ctx.Done():
				dashboard.Stop()
			case <-done:
			}
		}()
		if err := dashboard.Run(); err != nil {
			log.WithError(err).Error("dashboard failed")
			c.Stop()
		}
		<-done
	}

	if cfg.Notifications.Enabled {
		notifier := ui.NewNotifier(cfg.Notifications.NotificationType)
		switch {
		case runErr != nil && !errors.Is(runErr, crawler.ErrStopped):
			if cfg.Notifications.OnError {
				notifier.RunFailed(runErr)
			}
		case cfg.Notifications.OnComplete:
			notifier.RunFinished(summary.Results)
		}
	}
	if summary.NotFound > 0 {
		ui.PrintWarning(fmt.Sprintf("%d user(s) could not be found", summary.NotFound))
	}

	return exitError(ctx, runErr)
}

// exitError is the command's result for err. A run stopped by the operator,
// including an interrupt during login, exits normally.
func exitError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, crawler.ErrStopped) || ctx.Err() != nil {
		ui.PrintWarning("crawl stopped, progress so far is saved")
		return nil
	}
	return err
}

// buildCrawler wires every collaborator of a crawl. The browser is closed
// again when anything after it fails.
func buildCrawler(ctx context.Context, cfg *config.Config, reporter ui.Reporter, log logger.Logger) (_ *crawler.Crawler, err error) {
	layout, err := storage.New(cfg.Output.BaseDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare output directory: %w", err)
	}
	st, err := store.Open(cfg.Database.Path, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	b, err := browser.NewChrome(browser.OptionsFromConfig(cfg), log)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if err != nil {
			b.Close()
			st.Close()
		}
	}()

	pace := ratelimit.NewPerMinute(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize)
	nav := navigator.New(b, navigator.Config{
		ReadyTimeout: cfg.Navigation.ReadyTimeout,
		SettleDelay:  cfg.Navigation.SettleDelay,
		MaxAttempts:  cfg.Navigation.MaxAttempts,
		Limiter:      pace,
	}, log)

	client := instagram.NewClient(cfg.Download.DownloadTimeout, cfg.Browser.UserAgent, log,
		instagram.WithLimiter(ratelimit.NewPerMinute(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize)),
		instagram.WithRetry(retryConfig(cfg)),
	)

	session, err := login(ctx, cfg, nav, b, log)
	if err != nil {
		return nil, err
	}

	var (
		data     extractor.StructuredDataSource = client
		identity crawler.IdentityResolver       = client
	)
	if session != nil {
		cookies, cerr := session.Cookies(ctx)
		if cerr != nil {
			log.WithError(cerr).Warn("could not read session cookies")
		} else {
			client.SetCookies(cookies)
		}
		tab := instagram.NewTabSource(b, log)
		data = tab
		identity = crawler.CombineIdentity(tab, client)
	}

	fetcher := downloader.NewFetcher(client, layout, cfg.Output.OverwriteExisting, log)
	perHost := ratelimit.NewKeyed(cfg.RateLimit.BurstSize, time.Minute/time.Duration(cfg.RateLimit.RequestsPerMinute))

	return crawler.New(crawler.Deps{
		Browser:   b,
		Navigator: nav,
		Collector: collector.New(nav, b, collector.Config{
			ScrollPause: cfg.Crawl.ScrollPause,
			HeightDelta: cfg.Crawl.HeightDelta,
			MaxScrolls:  cfg.Crawl.MaxScrolls,
		}, log),
		Extractor: extractor.New(nav, b, data, extractor.Config{
			PageLoadAttempts: cfg.Navigation.PostLoadAttempts,
			ClickPause:       cfg.Crawl.ClickPause,
		}, log),
		Store:        st,
		Layout:       layout,
		Downloader:   downloader.New(fetcher, cfg.Download.ConcurrentDownloads, perHost, log),
		Identity:     identity,
		Reachability: client,
		Session:      session,
		Reporter:     reporter,
	}, crawler.Options{
		MaxPosts:     cfg.Crawl.MaxPosts,
		Stories:      cfg.Crawl.Stories,
		ClickPause:   cfg.Crawl.ClickPause,
		SaveMetadata: cfg.Output.SaveMetadata,
	}, log), nil
}

// login returns nil when no account is configured.
func login(ctx context.Context, cfg *config.Config, nav crawler.Navigator, b browser.Browser, log logger.Logger) (*crawler.Session, error) {
	if cfg.Crawl.Login == "" {
		return nil, nil
	}

	account := auth.Account{Username: cfg.Crawl.Login}
	if manager, err := auth.NewManager(); err == nil {
		retrieve := func() (*auth.Account, error) { return manager.Retrieve(cfg.Crawl.Login) }
		if cfg.Crawl.Login == defaultAccount {
			retrieve = manager.RetrieveDefault
		}
		if stored, err := retrieve(); err == nil {
			account = *stored
		} else if cfg.Crawl.Login == defaultAccount {
			return nil, fmt.Errorf("no default account: %w", err)
		}
	} else {
		log.WithError(err).Warn("credential store unavailable")
	}

	session := crawler.NewSession(nav, b, account, auth.NewTerminalPrompter(), log)
	ui.PrintInfo("Logging in", account.Username)
	if err := session.Login(ctx); err != nil {
		return nil, err
	}
	ui.PrintSuccess("Logged in as " + account.Username)
	return session, nil
}

func retryConfig(cfg *config.Config) *retry.Config {
	rc := retry.DefaultConfig()
	rc.MaxAttempts = cfg.RateLimit.MaxRetries + 1
	if eb, ok := rc.Backoff.(*retry.ExponentialBackoff); ok {
		backoff := *eb
		backoff.BaseDelay = cfg.RateLimit.RetryDelay
		backoff.Multiplier = cfg.RateLimit.BackoffMultiplier
		rc.Backoff = &backoff
	}
	return rc
}
