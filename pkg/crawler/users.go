package crawler

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"igcrawler/internal/downloader"
	"igcrawler/pkg/browser"
	errs "igcrawler/pkg/errors"
	"igcrawler/pkg/instagram"
	"igcrawler/pkg/models"
)

// Reasons a user is skipped.
const (
	reasonNotFound  = "could not load user profile"
	reasonPrivate   = "account is private"
	reasonNoPosts   = "no posts found"
	reasonListing   = "could not read post links"
	reasonOutputDir = "could not create output directories"
)

func (c *Crawler) crawlUser(ctx context.Context, name string, summary *Summary) error {
	if err := c.checkReachable(ctx); err != nil {
		return err
	}

	name = c.reconcile(ctx, name)
	e := c.startEntity(models.EntityUser, name)
	defer c.finishEntity(e, summary)

	if err := c.deps.Layout.EnsureUserDirs(name); err != nil {
		e.log.WithError(err).Error("could not create user directories")
		c.skip(e, reasonOutputDir)
		return nil
	}

	userID, err := c.deps.Identity.UserID(ctx, name)
	if err != nil || userID == "" {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.log.WithError(err).Warn("user id not resolved")
		summary.NotFound++
		c.skip(e, reasonNotFound)
		return nil
	}
	e.log = e.log.WithField("user_id", userID)

	recrawl := c.adopt(ctx, userID, name)
	if err := c.displayPhoto(ctx, e); err != nil {
		return err
	}
	if !recrawl {
		if _, err := c.deps.Store.UpsertUser(ctx, userID, name); err != nil {
			e.log.WithError(err).Error("could not store user")
		}
	}

	if c.opts.Stories {
		if c.loggedIn() {
			if err := c.stories(ctx, e); err != nil {
				return err
			}
		} else {
			e.log.Warn("stories need a logged in session")
		}
	}

	profile := instagram.ProfileURL(name)
	if err := c.deps.Navigator.Navigate(ctx, profile); err != nil {
		return err
	}
	if browser.Exists(ctx, c.deps.Browser, instagram.SelectorUserPrivate) {
		c.skip(e, reasonPrivate)
		return nil
	}
	if !browser.Exists(ctx, c.deps.Browser, instagram.SelectorPostLinks) {
		c.skip(e, reasonNoPosts)
		return nil
	}

	links, err := c.deps.Collector.Collect(ctx, profile, c.opts.MaxPosts, "")
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
	if recrawl {
		links = lo.Reject(links, func(link string, _ int) bool {
			return c.deps.Store.PostRecordedForUser(ctx, name, link)
		})
	}
	if len(links) == 0 {
		c.deps.Reporter.Info(fmt.Sprintf("@%s: no new posts to download", name))
	}

	dir := c.deps.Layout.UserPostsDir(name)
	return c.crawlPosts(ctx, e, links, dir, func(content *models.PostContent) {
		c.deps.Store.RecordPost(ctx, content.Link, content.HasMultiple, userID)
	})
}

// reconcile follows a rename of a stored user: the row and the download
// directory move to the account's current username. Lookup failures keep
// the name given.
func (c *Crawler) reconcile(ctx context.Context, name string) string {
	userID, ok := c.deps.Store.UserIDByUsername(ctx, name)
	if !ok {
		return name
	}
	current, err := c.deps.Identity.Username(ctx, userID)
	if err != nil || current == "" || current == name {
		if err != nil {
			c.logger.WithError(err).WithField("username", name).Debug("could not check for rename")
		}
		return name
	}

	if !c.moveUser(ctx, userID, name, current) {
		return name
	}
	return current
}

// adopt reports whether userID is already stored. A row stored under
// another username is moved to name along with its downloads.
func (c *Crawler) adopt(ctx context.Context, userID, name string) bool {
	stored, ok := c.deps.Store.UsernameByID(ctx, userID)
	if !ok {
		return false
	}
	if stored != name {
		c.moveUser(ctx, userID, stored, name)
	}
	return true
}

func (c *Crawler) moveUser(ctx context.Context, userID, from, to string) bool {
	log := c.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"from":    from,
		"to":      to,
	})
	if !c.deps.Store.RenameUser(ctx, userID, to) {
		return false
	}
	if err := c.deps.Layout.RenameUserDir(from, to); err != nil {
		log.WithError(err).Error("user renamed but directory was not moved")
	}
	log.Info("user renamed")
	c.deps.Reporter.Info(fmt.Sprintf("@%s is now @%s", from, to))
	return true
}

// displayPhoto downloads the profile picture. A missing picture is logged;
// only a halting navigation error is returned.
func (c *Crawler) displayPhoto(ctx context.Context, e *entity) error {
	if err := c.deps.Navigator.Navigate(ctx, instagram.ProfileURL(e.Name)); err != nil {
		return err
	}

	var src string
	for _, sel := range []string{instagram.SelectorDisplayPicPublic, instagram.SelectorDisplayPicPrivate} {
		if url := source(ctx, c.deps.Browser, sel); url != "" {
			src = url
		}
	}
	if src == "" {
		e.log.Warn("display photo not found")
		return nil
	}

	results := c.deps.Downloader.FetchAll(ctx, []downloader.Job{{
		URL:      src,
		Dir:      c.deps.Layout.UserDisplayPhotoDir(e.Name),
		Filename: instagram.MediaFileName(src),
		Entity:   e.Name,
	}})
	if downloader.Succeeded(results) == 0 {
		e.log.WithError(results[0].Error).Error("error downloading display photo")
	}
	return ctx.Err()
}

// stories downloads every story of the user, oldest first.
func (c *Crawler) stories(ctx context.Context, e *entity) error {
	b := c.deps.Browser
	if err := c.deps.Navigator.Navigate(ctx, instagram.StoriesURL(e.Name)); err != nil {
		return err
	}
	if err := pause(ctx, c.opts.ClickPause); err != nil {
		return err
	}

	bars, err := b.FindAll(ctx, instagram.SelectorStoriesBar)
	if err != nil || len(bars) == 0 {
		c.deps.Reporter.Info(fmt.Sprintf("@%s: no stories found", e.Name))
		return nil
	}
	count := len(bars)
	c.deps.Reporter.Info(fmt.Sprintf("@%s: %d stories will be downloaded", e.Name, count))

	if view, err := b.Find(ctx, instagram.SelectorStoriesView); err == nil {
		if err := view.Click(ctx); err != nil {
			e.log.WithError(err).Error("could not open stories")
			return nil
		}
		if err := pause(ctx, c.opts.ClickPause); err != nil {
			return err
		}
	}

	dir := c.deps.Layout.UserStoriesDir(e.Name)
	var jobs []downloader.Job
	for i := 0; i < count; i++ {
		src := source(ctx, b, instagram.SelectorStoryVideo)
		if src == "" {
			src = source(ctx, b, instagram.SelectorStoryImage)
		}
		if src != "" {
			jobs = append(jobs, downloader.Job{
				URL:      src,
				Dir:      dir,
				Filename: instagram.MediaFileName(src),
				Entity:   e.Name,
			})
		} else {
			e.log.WithField("index", i).Warn("story has neither image nor video")
		}

		if i == count-1 {
			break
		}
		next, err := b.Find(ctx, instagram.SelectorStoriesNext)
		if err != nil {
			e.log.WithError(err).Error("error scraping stories")
			break
		}
		if err := next.Click(ctx); err != nil {
			e.log.WithError(err).Error("error scraping stories")
			break
		}
		if err := pause(ctx, c.opts.ClickPause); err != nil {
			return err
		}
	}

	results := c.deps.Downloader.FetchAll(ctx, jobs)
	e.log.InfoWithFields("stories downloaded", map[string]interface{}{
		"stories": count,
		"saved":   downloader.Succeeded(results),
	})
	return ctx.Err()
}

// source returns the src attribute of the first element matching sel.
func source(ctx context.Context, b browser.Browser, sel string) string {
	el, err := b.Find(ctx, sel)
	if err != nil {
		return ""
	}
	src, ok, err := el.Attribute(ctx, "src")
	if err != nil || !ok {
		return ""
	}
	return src
}
