package instagram

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	errs "igcrawler/pkg/errors"
	"igcrawler/pkg/logger"
)

// ExtractJSON pulls the JSON payload out of a page rendered by the browser.
// Chrome wraps raw JSON responses in a <pre> element; anything else falls
// back to the document's text.
func ExtractJSON(html string) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, err, "parse rendered document")
	}

	text := strings.TrimSpace(doc.Find("pre").First().Text())
	if text == "" {
		text = strings.TrimSpace(doc.Find("body").Text())
	}
	if text == "" || (text[0] != '{' && text[0] != '[') {
		return nil, errs.New(errs.ErrorTypeParsing, "rendered document holds no JSON payload")
	}
	return []byte(text), nil
}

// DocumentFetcher opens a URL in a separate browsing context and returns the
// rendered HTML once the page has settled. The browser package implements it.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, url string) (string, error)
}

// TabSource reads structured data through the logged-in browser session,
// used when the anonymous HTTP endpoint is not available.
type TabSource struct {
	fetcher DocumentFetcher
	logger  logger.Logger
}

// NewTabSource creates a TabSource.
func NewTabSource(fetcher DocumentFetcher, log logger.Logger) *TabSource {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &TabSource{fetcher: fetcher, logger: log}
}

func (s *TabSource) fetchJSON(ctx context.Context, url string) ([]byte, error) {
	html, err := s.fetcher.FetchDocument(ctx, url)
	if err != nil {
		return nil, err
	}
	return ExtractJSON(html)
}

// UserID resolves a username to its numeric id.
func (s *TabSource) UserID(ctx context.Context, username string) (string, error) {
	data, err := s.fetchJSON(ctx, UserInfoURL(username))
	if err != nil {
		s.logger.WithError(err).WarnWithFields("could not retrieve user id", map[string]interface{}{
			"username": username,
		})
		return "", err
	}
	info, err := ParseUserInfo(data)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

// PostInfo loads the structured data of a post.
func (s *TabSource) PostInfo(ctx context.Context, shortcode string) (*ShortcodeMedia, error) {
	data, err := s.fetchJSON(ctx, PostInfoURL(shortcode))
	if err != nil {
		return nil, err
	}
	return ParsePostInfo(data)
}
