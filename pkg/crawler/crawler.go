package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"igcrawler/internal/downloader"
	"igcrawler/pkg/browser"
	errs "igcrawler/pkg/errors"
	"igcrawler/pkg/extractor"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/metadata"
	"igcrawler/pkg/models"
	"igcrawler/pkg/navigator"
	"igcrawler/pkg/retry"
	"igcrawler/pkg/storage"
	"igcrawler/pkg/store"
	"igcrawler/pkg/ui"
)

// ErrStopped is returned when Stop ended a run early. It is a normal way for
// a run to end.
var ErrStopped = errors.New("crawl stopped")

// Navigator loads pages in the browsing session.
type Navigator interface {
	Navigate(ctx context.Context, url string, opts ...navigator.Option) error
}

// LinkCollector reads post links from a listing.
type LinkCollector interface {
	Collect(ctx context.Context, listingURL string, max int, scope string) ([]string, error)
}

// PostExtractor reads the media of one post.
type PostExtractor interface {
	Extract(ctx context.Context, link string) (*models.PostContent, error)
}

// MediaDownloader stores media files. FetchAll returns one result per job,
// in job order.
type MediaDownloader interface {
	FetchAll(ctx context.Context, jobs []downloader.Job) []downloader.Result
}

// ReachabilityChecker tells whether the site still serves anonymous
// requests from this address.
type ReachabilityChecker interface {
	CheckReachable(ctx context.Context) error
}

// Deps are the collaborators of a Crawler. Browser, Store and Layout are
// owned by the Crawler once passed in and released by Close.
type Deps struct {
	Browser      browser.Browser
	Navigator    Navigator
	Collector    LinkCollector
	Extractor    PostExtractor
	Store        *store.Store
	Layout       *storage.Layout
	Downloader   MediaDownloader
	Identity     IdentityResolver
	Reachability ReachabilityChecker
	// Session is nil for anonymous runs.
	Session  *Session
	Reporter ui.Reporter
}

// Options tune a run.
type Options struct {
	// MaxPosts bounds the posts crawled per entity.
	MaxPosts int
	// Stories downloads each user's stories. Requires a logged in session.
	Stories bool
	// ClickPause is the wait after opening or advancing a story.
	ClickPause time.Duration
	// SaveMetadata writes a JSON sidecar next to every saved post.
	SaveMetadata bool
}

// Summary is the outcome of a run.
type Summary struct {
	Results []models.EntityResult
	// NotFound counts users whose id could not be resolved.
	NotFound int
}

// Complete reports whether every entity was crawled without a failed post.
func (s Summary) Complete() bool {
	return s.NotFound == 0 && lo.EveryBy(s.Results, models.EntityResult.Complete)
}

// Crawler walks users and tags one at a time through a single browsing
// session. It is not safe for concurrent runs; Stop may be called from any
// goroutine.
type Crawler struct {
	deps   Deps
	opts   Options
	logger logger.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	stopped   bool
	closeOnce sync.Once
}

// New creates a Crawler.
func New(deps Deps, opts Options, log logger.Logger) *Crawler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if deps.Reporter == nil {
		deps.Reporter = ui.NopReporter{}
	}
	if opts.MaxPosts <= 0 {
		opts.MaxPosts = 1e9
	}
	return &Crawler{
		deps:   deps,
		opts:   opts,
		logger: log.WithField("component", "crawler"),
	}
}

func (c *Crawler) loggedIn() bool {
	return c.deps.Session != nil && c.deps.Session.LoggedIn()
}

// Stop abandons the running crawl after the current step. Work already
// recorded stays recorded.
func (c *Crawler) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	if c.cancel != nil {
		c.cancel()
	}
}

// run executes walk with a context Stop can cancel.
func (c *Crawler) run(ctx context.Context, op string, walk func(ctx context.Context, summary *Summary) error) (Summary, error) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return Summary{}, ErrStopped
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.cancel = nil
		c.mu.Unlock()
		cancel()
	}()

	logger.LogComponentStart(c.logger, op, map[string]interface{}{
		"max_posts": c.opts.MaxPosts,
		"logged_in": c.loggedIn(),
		"stories":   c.opts.Stories,
	})

	var summary Summary
	err := walk(ctx, &summary)
	switch {
	case err == nil:
		logger.LogComponentStop(c.logger, op, "finished")
	case errors.Is(err, context.Canceled):
		logger.LogComponentStop(c.logger, op, "stopped")
		err = ErrStopped
	default:
		c.logger.WithError(err).Error("crawl halted")
		logger.LogComponentStop(c.logger, op, "halted")
	}
	return summary, err
}

// CrawlUsers crawls each user's display photo, stories when enabled, and
// posts. A user that cannot be resolved, is private or has no posts is
// skipped. The error is non-nil only when the run had to halt.
func (c *Crawler) CrawlUsers(ctx context.Context, usernames []string) (Summary, error) {
	return c.run(ctx, "crawl users", func(ctx context.Context, summary *Summary) error {
		for _, name := range normalizeNames(usernames) {
			if err := c.crawlUser(ctx, name, summary); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateUsers crawls every stored user again, picking up posts that were
// not recorded yet.
func (c *Crawler) UpdateUsers(ctx context.Context) (Summary, error) {
	usernames := c.deps.Store.Usernames(ctx)
	if len(usernames) == 0 {
		c.deps.Reporter.Info("database has no users to update")
		return Summary{}, nil
	}
	return c.CrawlUsers(ctx, usernames)
}

// CrawlTags crawls the top or recent listing of each tag.
func (c *Crawler) CrawlTags(ctx context.Context, tags []string, mode models.ListingMode) (Summary, error) {
	if !mode.Valid() {
		return Summary{}, fmt.Errorf("unknown listing mode %q", mode)
	}
	return c.run(ctx, "crawl tags", func(ctx context.Context, summary *Summary) error {
		for _, tag := range normalizeNames(tags) {
			if err := c.crawlTag(ctx, tag, mode, summary); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close logs out, closes the browser and then the database. It is safe to
// call more than once.
func (c *Crawler) Close(ctx context.Context) error {
	var errList []error
	c.closeOnce.Do(func() {
		ctx = context.WithoutCancel(ctx)
		if c.loggedIn() {
			if err := c.deps.Session.Logout(ctx); err != nil {
				c.logger.WithError(err).Warn("logout failed")
				c.deps.Reporter.Warn("logout failed")
			}
		}
		if c.deps.Browser != nil {
			if err := c.deps.Browser.Close(); err != nil {
				errList = append(errList, fmt.Errorf("close browser: %w", err))
			}
		}
		if c.deps.Store != nil {
			if err := c.deps.Store.Close(); err != nil {
				errList = append(errList, fmt.Errorf("close database: %w", err))
			}
		}
	})
	return errors.Join(errList...)
}

// checkReachable halts anonymous runs once the site stops answering.
func (c *Crawler) checkReachable(ctx context.Context) error {
	if c.loggedIn() || c.deps.Reachability == nil {
		return nil
	}
	err := c.deps.Reachability.CheckReachable(ctx)
	if err != nil && ctx.Err() == nil {
		c.deps.Reporter.Error("unable to load profiles at this time, try to login with a dummy account", err)
	}
	return err
}

// entity tracks the result of one user or tag while it is crawled.
type entity struct {
	models.EntityResult
	log logger.Logger
}

func (c *Crawler) startEntity(kind models.EntityKind, name string) *entity {
	c.deps.Reporter.EntityStarted(kind, name)
	return &entity{
		EntityResult: models.EntityResult{Kind: kind, Name: name},
		log: c.logger.WithFields(map[string]interface{}{
			"kind":   string(kind),
			"entity": name,
		}),
	}
}

func (c *Crawler) finishEntity(e *entity, summary *Summary) {
	summary.Results = append(summary.Results, e.EntityResult)
	e.log.InfoWithFields("entity finished", map[string]interface{}{
		"total":     e.Total,
		"attempted": e.Attempted,
		"succeeded": e.Succeeded,
		"skipped":   e.SkipReason,
	})
	c.deps.Reporter.EntityFinished(e.EntityResult)
}

func (c *Crawler) skip(e *entity, reason string) {
	e.SkipReason = reason
	e.log.WithField("reason", reason).Warn("entity skipped")
}

// crawlPosts extracts and downloads each link into dir, calling record for
// every post that was saved. Only a halting error is returned; a failed post
// is logged and counted.
func (c *Crawler) crawlPosts(ctx context.Context, e *entity, links []string, dir string, record func(content *models.PostContent)) error {
	e.Total = len(links)
	c.deps.Reporter.PostsFound(e.Name, e.Total)

	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return err
		}

		content, err := c.crawlPost(ctx, e, link, dir)
		if err != nil {
			return err
		}
		e.Attempted++
		if content != nil {
			e.Succeeded++
			record(content)
			c.saveMetadata(e, content, dir)
		}
		c.deps.Reporter.PostDone(e.Name, link, content != nil)
		logger.LogCrawlProgress(e.log, e.Name, e.Attempted, e.Total)
	}
	return nil
}

// crawlPost returns the saved post, or nil when the post failed.
func (c *Crawler) crawlPost(ctx context.Context, e *entity, link, dir string) (*models.PostContent, error) {
	log := e.log.WithField("link", link)

	content, err := c.deps.Extractor.Extract(ctx, link)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errs.IsFatal(err) {
			return nil, err
		}
		if errors.Is(err, extractor.ErrPostUnavailable) {
			log.Warn("post not available, skipping")
		} else {
			log.WithError(err).Error("could not extract post")
		}
		return nil, nil
	}

	if len(content.Items) == 0 {
		log.Warn("post has no downloadable media")
		return nil, nil
	}

	jobs := lo.Map(content.Items, func(item models.MediaItem, _ int) downloader.Job {
		return downloader.Job{URL: item.URL, Dir: dir, Filename: item.Filename, Entity: e.Name}
	})
	results := c.deps.Downloader.FetchAll(ctx, jobs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	saved := downloader.Succeeded(results)
	for _, r := range results {
		if !r.Success {
			log.WithError(r.Error).WithField("media", r.Job.URL).Error("media not saved")
		}
	}
	if saved == 0 {
		log.Error("no media of the post was saved")
		return nil, nil
	}
	if saved < len(results) {
		log.WarnWithFields("post partially saved", map[string]interface{}{
			"saved": saved,
			"items": len(results),
		})
	}
	return content, nil
}

func (c *Crawler) saveMetadata(e *entity, content *models.PostContent, dir string) {
	if !c.opts.SaveMetadata {
		return
	}
	if err := metadata.FromPost(content, e.Kind, e.Name).Save(dir); err != nil {
		e.log.WithError(err).WithField("link", content.Link).Warn("could not save post metadata")
	}
}

// pause waits d unless ctx ends first.
func pause(ctx context.Context, d time.Duration) error {
	return retry.Wait(ctx, d)
}

// normalizeNames lowercases names and drops empty and repeated ones,
// keeping the order given.
func normalizeNames(names []string) []string {
	out := lo.FilterMap(names, func(name string, _ int) (string, bool) {
		name = strings.ToLower(strings.TrimSpace(name))
		return name, name != ""
	})
	return lo.Uniq(out)
}
