package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"igcrawler/pkg/config"
	"igcrawler/pkg/crawler"
	"igcrawler/pkg/instagram"
	"igcrawler/pkg/models"
	"igcrawler/pkg/ui"
)

var (
	maxPosts   int
	stories    bool
	loginUser  string
	useTUI     bool
	topPosts   bool
	recentPost bool
)

var errMaxZero = errors.New("--max 0 downloads nothing; leave --max out to crawl every post")

// usersCmd represents the users command
var usersCmd = &cobra.Command{
	Use:   "users <username>...",
	Short: "Crawl the posts of one or more profiles",
	Long: `Crawl each profile's display photo and posts, and its stories when logged in.

Posts already recorded for a user that was crawled before are not downloaded
again. Private profiles and profiles without posts are skipped.`,
	Example: `  # Every post of two profiles
  igcrawler users natgeo nasa

  # The latest 20 posts and the stories, logged in
  igcrawler users natgeo --max 20 --stories --login my.crawler.account`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := crawlConfig(cmd)
		if err != nil {
			return err
		}
		names, err := usernames(args)
		if err != nil {
			return err
		}
		return runCrawl(cfg, useTUI, func(ctx context.Context, c *crawler.Crawler) (crawler.Summary, error) {
			return c.CrawlUsers(ctx, names)
		})
	},
}

// tagsCmd represents the tags command
var tagsCmd = &cobra.Command{
	Use:   "tags <tag>...",
	Short: "Crawl the top or recent posts of one or more hashtags",
	Example: `  igcrawler tags sunset --top
  igcrawler tags sunset beach --recent --max 50`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if topPosts == recentPost {
			return errors.New("choose exactly one of --top or --recent")
		}
		mode := models.ListingRecent
		if topPosts {
			mode = models.ListingTop
		}
		cfg, err := crawlConfig(cmd)
		if err != nil {
			return err
		}
		tags := make([]string, 0, len(args))
		for _, arg := range args {
			tags = append(tags, instagram.SanitizeTag(arg))
		}
		return runCrawl(cfg, useTUI, func(ctx context.Context, c *crawler.Crawler) (crawler.Summary, error) {
			return c.CrawlTags(ctx, tags, mode)
		})
	},
}

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Download new posts of every stored user",
	Long: `Crawl every user in the database again. Accounts renamed since the last
crawl are followed by id; their records and download directory move to the
new name.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := crawlConfig(cmd)
		if err != nil {
			return err
		}
		return runCrawl(cfg, useTUI, func(ctx context.Context, c *crawler.Crawler) (crawler.Summary, error) {
			return c.UpdateUsers(ctx)
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{usersCmd, tagsCmd, updateCmd} {
		cmd.Flags().IntVarP(&maxPosts, "max", "m", 0, "maximum number of posts per user or tag (default: all)")
		cmd.Flags().StringVarP(&loginUser, "login", "l", "", "log in with this stored account before crawling (\"default\" picks the default one)")
		cmd.Flags().BoolVar(&useTUI, "tui", false, "show a full-screen dashboard")
		rootCmd.AddCommand(cmd)
	}
	usersCmd.Flags().BoolVarP(&stories, "stories", "s", false, "also download stories (needs --login)")
	tagsCmd.Flags().BoolVar(&topPosts, "top", false, "crawl the top posts")
	tagsCmd.Flags().BoolVar(&recentPost, "recent", false, "crawl the most recent posts")
}

// crawlConfig loads the configuration with the crawl flags applied.
func crawlConfig(cmd *cobra.Command) (*config.Config, error) {
	extra := map[string]interface{}{
		"stories": stories,
		"login":   loginUser,
	}
	if cmd.Flags().Changed("max") {
		if maxPosts <= 0 {
			return nil, errMaxZero
		}
		extra["max"] = maxPosts
	}

	cfg, err := loadConfig(extra)
	if err != nil {
		return nil, err
	}
	if cfg.Crawl.Stories && cfg.Crawl.Login == "" {
		return nil, errors.New("--stories needs a logged in session, add --login <account>")
	}
	return cfg, nil
}

// usernames drops invalid names with a warning.
func usernames(args []string) ([]string, error) {
	names := make([]string, 0, len(args))
	for _, arg := range args {
		name := instagram.SanitizeUsername(arg)
		if !instagram.IsValidUsername(name) {
			ui.PrintWarning("skipping invalid username", arg)
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, errors.New("no valid usernames given")
	}
	return names, nil
}
