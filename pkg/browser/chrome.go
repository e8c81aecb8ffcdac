package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	errs "igcrawler/pkg/errors"
	"igcrawler/pkg/logger"
)

// Chrome drives a chrome instance through the DevTools protocol.
type Chrome struct {
	ctx         context.Context
	cancel      context.CancelFunc
	cancelAlloc context.CancelFunc
	opts        Options
	logger      logger.Logger
}

// NewChrome launches chrome and opens the main tab. A launch failure is a
// browser error, fatal to the run.
func NewChrome(opts Options, log logger.Logger) (*Chrome, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), BuildAllocatorOptions(opts)...)
	ctx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			log.Debug(fmt.Sprintf(format, args...))
		}),
	)

	// first Run starts the browser
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		cancelAlloc()
		return nil, errs.Wrap(errs.ErrorTypeBrowser, err, "start browser session")
	}

	logger.LogComponentStart(log, "browser", map[string]interface{}{
		"headless": opts.Headless,
		"width":    opts.WindowWidth,
		"height":   opts.WindowHeight,
	})

	return &Chrome{
		ctx:         ctx,
		cancel:      cancel,
		cancelAlloc: cancelAlloc,
		opts:        opts,
		logger:      log,
	}, nil
}

// run executes actions on the main tab, aborting when either ctx or the
// session is done.
func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, timeout)
		defer cancelTimeout()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	if err := c.run(ctx, c.opts.PageTimeout, chromedp.Navigate(url)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errs.Wrap(errs.ErrorTypeBrowser, err, "navigate to "+url)
	}
	return nil
}

func (c *Chrome) CurrentURL(ctx context.Context) (string, error) {
	var location string
	if err := c.run(ctx, 0, chromedp.Location(&location)); err != nil {
		return "", errs.Wrap(errs.ErrorTypeBrowser, err, "read location")
	}
	return location, nil
}

func (c *Chrome) Find(ctx context.Context, selector string) (Element, error) {
	return first(c.FindAll(ctx, selector))
}

func (c *Chrome) FindAll(ctx context.Context, selector string) ([]Element, error) {
	return c.queryAll(ctx, selector)
}

func (c *Chrome) queryAll(ctx context.Context, selector string, opts ...chromedp.QueryOption) ([]Element, error) {
	var nodes []*cdp.Node
	opts = append([]chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}, opts...)
	if err := c.run(ctx, 0, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}

	elements := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, &chromeElement{chrome: c, node: n})
	}
	return elements, nil
}

func (c *Chrome) ExecuteScript(ctx context.Context, js string, result interface{}) error {
	if err := c.run(ctx, 0, chromedp.Evaluate(js, result)); err != nil {
		return fmt.Errorf("evaluate script: %w", err)
	}
	return nil
}

func (c *Chrome) WindowSize(ctx context.Context) (Size, error) {
	var size Size
	err := c.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		_, bounds, err := cdpbrowser.GetWindowForTarget().Do(ctx)
		if err != nil {
			return err
		}
		size = Size{Width: int(bounds.Width), Height: int(bounds.Height)}
		return nil
	}))
	if err != nil {
		return Size{}, fmt.Errorf("read window size: %w", err)
	}
	return size, nil
}

func (c *Chrome) SetWindowSize(ctx context.Context, size Size) error {
	err := c.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		windowID, _, err := cdpbrowser.GetWindowForTarget().Do(ctx)
		if err != nil {
			return err
		}
		return cdpbrowser.SetWindowBounds(windowID, &cdpbrowser.Bounds{
			Width:       int64(size.Width),
			Height:      int64(size.Height),
			WindowState: cdpbrowser.WindowStateNormal,
		}).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("set window size: %w", err)
	}
	return nil
}

func (c *Chrome) WaitUntil(ctx context.Context, predicate string, timeout time.Duration) error {
	var ok bool
	err := c.run(ctx, 0, chromedp.Poll(predicate, &ok,
		chromedp.WithPollingTimeout(timeout),
		chromedp.WithPollingInterval(100*time.Millisecond),
	))
	if err != nil {
		if errors.Is(err, chromedp.ErrPollingTimeout) {
			return ErrWaitTimeout
		}
		return fmt.Errorf("wait for %q: %w", predicate, err)
	}
	return nil
}

// FetchDocument opens url in a new tab of the same browser, so it shares the
// session cookies, and closes the tab before returning.
func (c *Chrome) FetchDocument(ctx context.Context, url string) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(c.ctx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(c.opts.DocumentDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("fetch document %s: %w", url, err)
	}
	return html, nil
}

func (c *Chrome) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	var cookies []*network.Cookie
	err := c.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}

	out := make([]*http.Cookie, 0, len(cookies))
	for _, ck := range cookies {
		out = append(out, &http.Cookie{
			Name:     ck.Name,
			Value:    ck.Value,
			Domain:   ck.Domain,
			Path:     ck.Path,
			Secure:   ck.Secure,
			HttpOnly: ck.HTTPOnly,
		})
	}
	return out, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (c *Chrome) Close() error {
	err := chromedp.Cancel(c.ctx)
	c.cancel()
	c.cancelAlloc()
	logger.LogComponentStop(c.logger, "browser", "closed")
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}

type chromeElement struct {
	chrome *Chrome
	node   *cdp.Node
}

func (e *chromeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	value, ok := e.node.Attribute(name)
	return value, ok, nil
}

func (e *chromeElement) Click(ctx context.Context) error {
	if err := e.chrome.run(ctx, 0, chromedp.MouseClickNode(e.node)); err != nil {
		return fmt.Errorf("click %s: %w", e.node.LocalName, err)
	}
	return nil
}

func (e *chromeElement) SendKeys(ctx context.Context, text string) error {
	ids := []cdp.NodeID{e.node.NodeID}
	if err := e.chrome.run(ctx, 0, chromedp.SendKeys(ids, text, chromedp.ByNodeID)); err != nil {
		return fmt.Errorf("send keys: %w", err)
	}
	return nil
}

func (e *chromeElement) Find(ctx context.Context, selector string) (Element, error) {
	return first(e.FindAll(ctx, selector))
}

func (e *chromeElement) FindAll(ctx context.Context, selector string) ([]Element, error) {
	return e.chrome.queryAll(ctx, selector, chromedp.FromNode(e.node))
}

func first(elements []Element, err error) (Element, error) {
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, ErrElementNotFound
	}
	return elements[0], nil
}
