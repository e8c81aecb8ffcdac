package instagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	errs "igcrawler/pkg/errors"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/ratelimit"
	"igcrawler/pkg/retry"
)

// Client performs the anonymous HTTP requests of a crawl: structured-data
// lookups and media downloads. Browser-driven work does not go through it.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	cookies    []*http.Cookie
	limiter    ratelimit.Limiter
	retry      *retry.Config
	logger     logger.Logger
	mu         sync.RWMutex
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLimiter paces every request through l.
func WithLimiter(l ratelimit.Limiter) ClientOption {
	return func(c *Client) { c.limiter = l }
}

// WithRetry overrides the retry policy for retryable failures.
func WithRetry(cfg *retry.Config) ClientOption {
	return func(c *Client) { c.retry = cfg }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a new client
func NewClient(timeout time.Duration, userAgent string, log logger.Logger, opts ...ClientOption) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers: map[string]string{
			"User-Agent":      userAgent,
			"Accept":          "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
			"Cache-Control":   "no-cache",
		},
		limiter: ratelimit.Unlimited{},
		retry:   retry.DefaultConfig(),
		logger:  log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.Logger == nil {
		rc := *c.retry
		rc.Logger = log
		c.retry = &rc
	}
	return c
}

// SetCookies forwards browser session cookies with every request.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cookies = cookies
}

func (c *Client) newRequest(ctx context.Context, url string, extra map[string]string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "create request")
	}

	c.mu.RLock()
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	c.mu.RUnlock()

	for key, value := range extra {
		req.Header.Set(key, value)
	}
	return req, nil
}

// doRequest performs one attempt and maps the status onto a typed error.
// On success the caller owns the response body.
func (c *Client) doRequest(ctx context.Context, url string, extra map[string]string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, url, extra)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":      url,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "request "+url)
	}
	logger.LogRequest(c.logger, req.Method, url, resp.StatusCode, time.Since(start))

	if err := checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// Open performs a GET with retry on 429 and 5xx responses.
func (c *Client) Open(ctx context.Context, url string, extra map[string]string) (*http.Response, error) {
	return retry.DoWithResult(ctx, c.retry, func(ctx context.Context) (*http.Response, error) {
		return c.doRequest(ctx, url, extra)
	})
}

// GetBytes performs a GET with retry and returns the whole body.
func (c *Client) GetBytes(ctx context.Context, url string, extra map[string]string) ([]byte, error) {
	return retry.DoWithResult(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		resp, err := c.doRequest(ctx, url, extra)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "read response body")
		}
		return body, nil
	})
}

// checkResponseStatus maps an HTTP status onto the error taxonomy
func checkResponseStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &errs.Error{Type: errs.ErrorTypeAuth, Message: "authentication required", Code: code}
	case code == http.StatusNotFound:
		return &errs.Error{Type: errs.ErrorTypeNotFound, Message: "resource not found", Code: code}
	case code == http.StatusTooManyRequests:
		return &errs.Error{Type: errs.ErrorTypeRateLimit, Message: "rate limit exceeded", Code: code}
	case code >= 500:
		return &errs.Error{Type: errs.ErrorTypeServerError, Message: "server error", Code: code}
	default:
		return &errs.Error{Type: errs.ErrorTypeUnknown, Message: fmt.Sprintf("unexpected status code: %d", code), Code: code}
	}
}

// UserInfo fetches the structured-data document of a profile.
func (c *Client) UserInfo(ctx context.Context, username string) (*UserInfo, error) {
	body, err := c.GetBytes(ctx, UserInfoURL(username), nil)
	if err != nil {
		return nil, err
	}
	return ParseUserInfo(body)
}

// UserID resolves a username to its numeric id.
func (c *Client) UserID(ctx context.Context, username string) (string, error) {
	info, err := c.UserInfo(ctx, username)
	if err != nil {
		c.logger.WithError(err).WarnWithFields("could not retrieve user id", map[string]interface{}{
			"username": username,
		})
		return "", err
	}
	return info.ID, nil
}

// PostInfo fetches the structured-data document of a post.
func (c *Client) PostInfo(ctx context.Context, shortcode string) (*ShortcodeMedia, error) {
	body, err := c.GetBytes(ctx, PostInfoURL(shortcode), nil)
	if err != nil {
		return nil, err
	}
	return ParsePostInfo(body)
}

// Username resolves a numeric id to the account's current username via the
// mobile API.
func (c *Client) Username(ctx context.Context, userID string) (string, error) {
	body, err := c.GetBytes(ctx, MobileUserInfoURL(userID), map[string]string{
		"User-Agent": MobileUserAgent,
	})
	if err != nil {
		return "", err
	}
	return ParseMobileUser(body)
}

// CheckReachable probes a stable public profile. Failure means the site is
// refusing anonymous requests from this address.
func (c *Client) CheckReachable(ctx context.Context) error {
	if _, err := c.UserID(ctx, ReachabilityProbe); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errs.Wrap(errs.ErrorTypeAccessRestricted, err,
			"site is not reachable anonymously, the address may be rate limited")
	}
	return nil
}
