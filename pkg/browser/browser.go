package browser

import (
	"context"
	"errors"
	"net/http"
	"time"
)

var (
	// ErrElementNotFound is returned by Find when no element matches.
	ErrElementNotFound = errors.New("element not found")

	// ErrWaitTimeout is returned by WaitUntil when the predicate never held.
	ErrWaitTimeout = errors.New("wait condition timed out")
)

// Size is a browser window size in CSS pixels.
type Size struct {
	Width  int
	Height int
}

// Element is a handle to a rendered DOM node. Handles go stale when the page
// re-renders; operations on a stale handle return an error.
type Element interface {
	// Attribute returns the attribute value and whether it is set.
	Attribute(ctx context.Context, name string) (string, bool, error)
	Click(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	// Find returns the first descendant matching selector or ErrElementNotFound.
	Find(ctx context.Context, selector string) (Element, error)
	// FindAll returns every descendant matching selector, possibly none.
	FindAll(ctx context.Context, selector string) ([]Element, error)
}

// Browser is the browsing session the crawler drives. A single Browser is
// owned by the crawl run; components receive it but never close it.
//
// Find and FindAll never wait for elements to appear.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	Find(ctx context.Context, selector string) (Element, error)
	FindAll(ctx context.Context, selector string) ([]Element, error)
	// ExecuteScript evaluates js in the page; result may be nil.
	ExecuteScript(ctx context.Context, js string, result interface{}) error
	WindowSize(ctx context.Context) (Size, error)
	SetWindowSize(ctx context.Context, size Size) error
	// WaitUntil polls the JS predicate until it is true or timeout elapses.
	WaitUntil(ctx context.Context, predicate string, timeout time.Duration) error
	// FetchDocument opens url in an auxiliary tab and returns its rendered
	// HTML. The main tab is left untouched.
	FetchDocument(ctx context.Context, url string) (string, error)
	Cookies(ctx context.Context) ([]*http.Cookie, error)
	Close() error
}

// DocumentReady is the predicate for a fully loaded document.
const DocumentReady = `document.readyState === "complete"`

// ScrollToBottom scrolls the viewport to the end of the document.
const ScrollToBottom = `window.scrollTo(0, document.body.scrollHeight);`

// Exists reports whether selector matches anything on the current page.
// Lookup errors count as absent.
func Exists(ctx context.Context, b Browser, selector string) bool {
	_, err := b.Find(ctx, selector)
	return err == nil
}
