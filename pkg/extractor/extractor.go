// Package extractor reads the media URLs of a single post page, walking the
// carousel item by item for multi-content posts.
package extractor

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
	"igcrawler/pkg/models"
	"igcrawler/pkg/navigator"
	"igcrawler/pkg/retry"
)

// ErrPostUnavailable means the post page never rendered its owner header,
// usually because the post was deleted. The post is skipped.
var ErrPostUnavailable = errors.New("post not available")

// Navigator loads post pages.
type Navigator interface {
	Navigate(ctx context.Context, url string, opts ...navigator.Option) error
}

// StructuredDataSource returns the structured-data document of a post. It is
// the fallback for media the rendered page does not expose directly.
type StructuredDataSource interface {
	PostInfo(ctx context.Context, shortcode string) (*instagram.ShortcodeMedia, error)
}

// Config tunes extraction.
type Config struct {
	// PageLoadAttempts bounds forced reloads while the post header is missing.
	PageLoadAttempts int
	// ClickPause is the wait after advancing the carousel.
	ClickPause time.Duration
}

// DefaultConfig returns the values used by the CLI.
func DefaultConfig() Config {
	return Config{
		PageLoadAttempts: 3,
		ClickPause:       time.Second,
	}
}

// Extractor reads posts in the shared browsing session.
type Extractor struct {
	nav     Navigator
	browser browser.Browser
	data    StructuredDataSource
	cfg     Config
	logger  logger.Logger
}

// New creates an Extractor.
func New(nav Navigator, b browser.Browser, data StructuredDataSource, cfg Config, log logger.Logger) *Extractor {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if cfg.PageLoadAttempts <= 0 {
		cfg.PageLoadAttempts = DefaultConfig().PageLoadAttempts
	}
	return &Extractor{
		nav:     nav,
		browser: b,
		data:    data,
		cfg:     cfg,
		logger:  log.WithField("component", "extractor"),
	}
}

// Extract loads link and returns the media it holds, in carousel order.
//
// Navigation errors are returned unchanged and are fatal to the run. A post
// that never renders returns ErrPostUnavailable. A missing carousel
// structure or a failed carousel click fails the post with an extraction
// error. A carousel item with no media is skipped and counted in
// PostContent.Skipped.
func (e *Extractor) Extract(ctx context.Context, link string) (*models.PostContent, error) {
	log := e.logger.WithField("link", link)

	if err := e.load(ctx, link); err != nil {
		return nil, err
	}

	content := &models.PostContent{
		Link:      link,
		Shortcode: instagram.ShortcodeFromURL(link),
	}
	content.PublishedAt = e.publishTime(ctx)

	p := &post{Extractor: e, content: content, log: log}

	if !browser.Exists(ctx, e.browser, instagram.SelectorNextControl) {
		return content, p.single(ctx)
	}

	indicators, err := e.browser.FindAll(ctx, instagram.SelectorIndicator)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeExtraction, err, "count carousel items")
	}
	if len(indicators) == 0 {
		log.Debug("next control without indicators, reading as single content")
		return content, p.single(ctx)
	}

	content.HasMultiple = true
	if err := p.carousel(ctx, len(indicators)); err != nil {
		return nil, err
	}
	return content, nil
}

// load opens the post, reloading while the owner header is absent.
func (e *Extractor) load(ctx context.Context, link string) error {
	for attempt := 1; attempt <= e.cfg.PageLoadAttempts; attempt++ {
		var opts []navigator.Option
		if attempt > 1 {
			opts = append(opts, navigator.Force())
		}
		if err := e.nav.Navigate(ctx, link, opts...); err != nil {
			return err
		}
		if browser.Exists(ctx, e.browser, instagram.SelectorPageUsername) {
			return nil
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return errs.Wrap(errs.ErrorTypeExtraction, ErrPostUnavailable, link)
}

func (e *Extractor) publishTime(ctx context.Context) *time.Time {
	el, err := e.browser.Find(ctx, instagram.SelectorPostTime)
	if err != nil {
		return nil
	}
	value, ok, err := el.Attribute(ctx, "datetime")
	if err != nil || !ok {
		return nil
	}
	t, err := instagram.ParsePublishTime(value)
	if err != nil {
		e.logger.WithError(err).Debug("unparseable post time")
		return nil
	}
	return &t
}

// post carries the per-post state of one extraction.
type post struct {
	*Extractor
	content *models.PostContent
	log     logger.Logger

	info    *instagram.ShortcodeMedia
	infoErr error
	loaded  bool
}

func (p *post) single(ctx context.Context) error {
	var url string
	var kind models.MediaKind
	if box, err := p.browser.Find(ctx, instagram.SelectorPostBox); err == nil {
		url, kind = mediaSource(ctx, box)
	}
	if url == "" {
		url, kind = p.structuredVideo(ctx, 0), models.MediaVideo
	}
	if url == "" {
		p.log.Warn("post shows neither image nor video")
		return nil
	}
	p.add(url, kind, 0)
	return nil
}

func (p *post) carousel(ctx context.Context, count int) error {
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		list, err := p.browser.Find(ctx, instagram.SelectorCarouselList)
		if err != nil {
			return errs.Wrap(errs.ErrorTypeExtraction, err, fmt.Sprintf("carousel list for item %d", i))
		}
		items, err := list.FindAll(ctx, instagram.SelectorCarouselItem)
		if err != nil {
			return errs.Wrap(errs.ErrorTypeExtraction, err, fmt.Sprintf("carousel items for item %d", i))
		}
		pos := SlotForIndex(i, count).Position(len(items))
		if pos < 0 || pos >= len(items) {
			return errs.New(errs.ErrorTypeExtraction,
				fmt.Sprintf("carousel item %d: slot %d of %d rendered", i, pos, len(items)))
		}

		url, kind := mediaSource(ctx, items[pos])
		if url == "" {
			url, kind = p.structuredVideo(ctx, i), models.MediaVideo
		}
		if url != "" {
			p.add(url, kind, i)
		} else {
			p.content.Skipped++
			p.log.WithField("index", i).Warn("carousel item has neither image nor video, skipping")
		}

		if i < count-1 {
			if err := p.next(ctx); err != nil {
				return errs.Wrap(errs.ErrorTypeExtraction, err, fmt.Sprintf("advance carousel past item %d", i))
			}
		}
	}
	return nil
}

func (p *post) next(ctx context.Context) error {
	control, err := p.browser.Find(ctx, instagram.SelectorNextControl)
	if err != nil {
		return err
	}
	if err := control.Click(ctx); err != nil {
		return err
	}
	return retry.Wait(ctx, p.cfg.ClickPause)
}

func (p *post) add(url string, kind models.MediaKind, index int) {
	p.content.Items = append(p.content.Items, models.MediaItem{
		URL:      url,
		Kind:     kind,
		Index:    index,
		Filename: instagram.MediaFilename(url, p.content.PublishedAt),
	})
}

// structuredVideo reads the video URL of item index from the post's
// structured data, loading the document at most once per post.
func (p *post) structuredVideo(ctx context.Context, index int) string {
	if p.data == nil || p.content.Shortcode == "" {
		return ""
	}
	if !p.loaded {
		p.info, p.infoErr = p.data.PostInfo(ctx, p.content.Shortcode)
		p.loaded = true
		if p.infoErr != nil {
			p.log.WithError(p.infoErr).Warn("could not load post structured data")
		}
	}
	if p.infoErr != nil {
		return ""
	}
	url, err := p.info.VideoURLAt(index)
	if err != nil {
		p.log.WithError(err).WithField("index", index).Debug("no video url in structured data")
		return ""
	}
	return url
}

// mediaSource prefers the image of scope, then its video.
func mediaSource(ctx context.Context, scope browser.Element) (string, models.MediaKind) {
	if url := imageSource(ctx, scope); url != "" {
		return url, models.MediaImage
	}
	if url := videoSource(ctx, scope); url != "" {
		return url, models.MediaVideo
	}
	return "", ""
}

func imageSource(ctx context.Context, scope browser.Element) string {
	img, err := scope.Find(ctx, instagram.SelectorImage)
	if err != nil {
		return ""
	}
	return attr(ctx, img, "src")
}

// videoSource returns a directly downloadable video URL. Streams served as
// blob: URLs cannot be fetched outside the page and count as absent.
func videoSource(ctx context.Context, scope browser.Element) string {
	for _, sel := range []string{instagram.SelectorVideo, instagram.SelectorVideoSource} {
		el, err := scope.Find(ctx, sel)
		if err != nil {
			continue
		}
		if src := attr(ctx, el, "src"); src != "" && !strings.HasPrefix(src, "blob:") {
			return src
		}
	}
	return ""
}

func attr(ctx context.Context, el browser.Element, name string) string {
	v, ok, err := el.Attribute(ctx, name)
	if err != nil || !ok {
		return ""
	}
	return strings.TrimSpace(v)
}
