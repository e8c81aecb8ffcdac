// Package browsertest provides an in-memory browser.Browser for exercising
// crawl logic without chrome. Tests script the DOM per page and react to
// navigations, scripts and clicks through hooks.
package browsertest

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"igcrawler/pkg/browser"
)

// Element is a scripted DOM node.
type Element struct {
	mu       sync.Mutex
	attrs    map[string]string
	children map[string][]*Element

	// ClickErr is returned by Click when set.
	ClickErr error
	// OnClick runs after a successful click.
	OnClick func()
	// SendKeysErr is returned by SendKeys when set.
	SendKeysErr error

	clicks int
	typed  strings.Builder
}

// NewElement creates an element with attribute pairs: key, value, key, value...
func NewElement(attrs ...string) *Element {
	e := &Element{
		attrs:    make(map[string]string),
		children: make(map[string][]*Element),
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		e.attrs[attrs[i]] = attrs[i+1]
	}
	return e
}

// With registers children returned for selector and returns e.
func (e *Element) With(selector string, children ...*Element) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.children[selector] = children
	return e
}

// SetAttribute changes an attribute.
func (e *Element) SetAttribute(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attrs[name] = value
}

// Clicks returns how often the element was clicked.
func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

// Typed returns everything sent with SendKeys.
func (e *Element) Typed() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.typed.String()
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.attrs[name]
	return v, ok, nil
}

func (e *Element) Click(ctx context.Context) error {
	e.mu.Lock()
	if e.ClickErr != nil {
		err := e.ClickErr
		e.mu.Unlock()
		return err
	}
	e.clicks++
	hook := e.OnClick
	e.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (e *Element) SendKeys(ctx context.Context, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.SendKeysErr != nil {
		return e.SendKeysErr
	}
	e.typed.WriteString(text)
	return nil
}

func (e *Element) Find(ctx context.Context, selector string) (browser.Element, error) {
	all, _ := e.FindAll(ctx, selector)
	if len(all) == 0 {
		return nil, browser.ErrElementNotFound
	}
	return all[0], nil
}

func (e *Element) FindAll(ctx context.Context, selector string) ([]browser.Element, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return toElements(e.children[selector]), nil
}

func toElements(in []*Element) []browser.Element {
	out := make([]browser.Element, 0, len(in))
	for _, el := range in {
		out = append(out, el)
	}
	return out
}

// Browser is a scripted browser.Browser. The zero value is not usable; use New.
type Browser struct {
	mu sync.Mutex

	url  string
	dom  map[string][]*Element
	size browser.Size

	navigations []string
	loads       map[string]int
	scripts     []string
	sizes       []browser.Size
	closed      bool

	// OnNavigate runs after every load with the number of times url has
	// been loaded so far, 1-based. Returning an error fails Navigate.
	OnNavigate func(b *Browser, url string, n int) error
	// OnScript runs for every ExecuteScript call.
	OnScript func(b *Browser, js string) error
	// WaitErr is returned by WaitUntil when set.
	WaitErr error
	// Documents answers FetchDocument.
	Documents map[string]string
	// DocumentErr is returned by FetchDocument when set.
	DocumentErr error
	// CookieJar answers Cookies.
	CookieJar []*http.Cookie
}

// New creates an empty browser with a 1280x1024 window.
func New() *Browser {
	return &Browser{
		dom:       make(map[string][]*Element),
		loads:     make(map[string]int),
		size:      browser.Size{Width: 1280, Height: 1024},
		Documents: make(map[string]string),
	}
}

// SetDOM makes selector match els on the current page. No elements removes
// the selector.
func (b *Browser) SetDOM(selector string, els ...*Element) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(els) == 0 {
		delete(b.dom, selector)
		return
	}
	b.dom[selector] = els
}

// Navigations returns every URL passed to Navigate, in order.
func (b *Browser) Navigations() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.navigations...)
}

// Loads returns how often url was loaded.
func (b *Browser) Loads(url string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loads[url]
}

// Scripts returns every evaluated script, in order.
func (b *Browser) Scripts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.scripts...)
}

// SizeHistory returns every size passed to SetWindowSize.
func (b *Browser) SizeHistory() []browser.Size {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]browser.Size(nil), b.sizes...)
}

// Closed reports whether Close was called.
func (b *Browser) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	b.url = url
	b.navigations = append(b.navigations, url)
	b.loads[url]++
	n := b.loads[url]
	hook := b.OnNavigate
	b.mu.Unlock()

	if hook != nil {
		return hook(b, url, n)
	}
	return nil
}

func (b *Browser) CurrentURL(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.url, nil
}

func (b *Browser) Find(ctx context.Context, selector string) (browser.Element, error) {
	all, err := b.FindAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, browser.ErrElementNotFound
	}
	return all[0], nil
}

func (b *Browser) FindAll(ctx context.Context, selector string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return toElements(b.dom[selector]), nil
}

func (b *Browser) ExecuteScript(ctx context.Context, js string, result interface{}) error {
	b.mu.Lock()
	b.scripts = append(b.scripts, js)
	hook := b.OnScript
	b.mu.Unlock()

	if hook != nil {
		return hook(b, js)
	}
	return nil
}

func (b *Browser) WindowSize(ctx context.Context) (browser.Size, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size, nil
}

func (b *Browser) SetWindowSize(ctx context.Context, size browser.Size) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.size = size
	b.sizes = append(b.sizes, size)
	return nil
}

func (b *Browser) WaitUntil(ctx context.Context, predicate string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.WaitErr
}

func (b *Browser) FetchDocument(ctx context.Context, url string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.DocumentErr != nil {
		return "", b.DocumentErr
	}
	return b.Documents[url], nil
}

func (b *Browser) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.CookieJar, nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

var _ browser.Browser = (*Browser)(nil)
var _ browser.Element = (*Element)(nil)
