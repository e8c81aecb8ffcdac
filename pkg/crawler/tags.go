package crawler

import (
	"context"

	"igcrawler/pkg/browser"
	errs "igcrawler/pkg/errors"
	"igcrawler/pkg/instagram"
	"igcrawler/pkg/models"
)

// listingScope is the section of the explore page holding mode's posts.
func listingScope(mode models.ListingMode) string {
	if mode == models.ListingTop {
		return instagram.SelectorTopPostsBox
	}
	return instagram.SelectorRecentPostsBox
}

func (c *Crawler) crawlTag(ctx context.Context, tag string, mode models.ListingMode, summary *Summary) error {
	if err := c.checkReachable(ctx); err != nil {
		return err
	}

	e := c.startEntity(models.EntityTag, tag)
	e.log = e.log.WithField("listing", string(mode))
	defer c.finishEntity(e, summary)

	if err := c.deps.Layout.EnsureTagDirs(tag); err != nil {
		e.log.WithError(err).Error("could not create tag directories")
		c.skip(e, reasonOutputDir)
		return nil
	}
	if c.deps.Store.TagExists(ctx, tag) {
		e.log.WithField("recorded", c.deps.Store.TagPostCount(ctx, tag, mode)).Debug("tag crawled before")
	}
	if _, err := c.deps.Store.UpsertTag(ctx, tag); err != nil {
		e.log.WithError(err).Error("could not store tag")
	}

	listing := instagram.ExploreTagURL(tag)
	scope := listingScope(mode)
	if err := c.deps.Navigator.Navigate(ctx, listing); err != nil {
		return err
	}
	if !browser.Exists(ctx, c.deps.Browser, scope) {
		c.skip(e, reasonNoPosts)
		return nil
	}

	links, err := c.deps.Collector.Collect(ctx, listing, c.opts.MaxPosts, scope)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errs.IsFatal(err) {
			return err
		}
		e.log.WithError(err).Error("could not collect post links")
		c.skip(e, reasonListing)
		return nil
	}
	if len(links) == 0 {
		c.skip(e, reasonNoPosts)
		return nil
	}

	dir := c.deps.Layout.TagListingDir(tag, mode)
	return c.crawlPosts(ctx, e, links, dir, func(content *models.PostContent) {
		if c.deps.Store.RecordPost(ctx, content.Link, content.HasMultiple, "") {
			c.deps.Store.RecordTagPost(ctx, content.Link, tag, mode)
		}
	})
}
