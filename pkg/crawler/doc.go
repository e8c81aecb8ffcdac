// Package crawler walks Instagram users and hashtags through one browser
// session and saves their media.
//
// A Crawler ties the pieces together: the navigator loads pages, the
// collector reads post links from a profile or tag listing, the extractor
// turns each link into media URLs, and the downloader writes the files under
// the storage layout. Every saved post is recorded in the store, so a later
// update only fetches posts that were not recorded yet.
//
// Entities are crawled one at a time. A user that is private, has no posts
// or cannot be resolved is skipped with a reason; a post that fails is
// counted and the walk moves on. Navigation, auth and browser failures halt
// the run and are returned.
//
// Usage:
//
//	c := crawler.New(crawler.Deps{
//	    Browser:    b,
//	    Navigator:  nav,
//	    Collector:  collector.New(nav, b, collector.Config{}, log),
//	    Extractor:  extractor.New(nav, b, nil, extractor.Config{}, log),
//	    Store:      st,
//	    Layout:     layout,
//	    Downloader: dl,
//	    Identity:   client,
//	}, crawler.Options{MaxPosts: 20}, log)
//	defer c.Close(ctx)
//
//	summary, err := c.CrawlUsers(ctx, []string{"natgeo"})
//
// Logged in runs:
//
// A Session logs a dedicated account in through the login form. Stories are
// only available to logged in runs, and Close logs the account out before
// the browser shuts down.
package crawler
