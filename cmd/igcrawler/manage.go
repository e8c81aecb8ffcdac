package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"igcrawler/pkg/instagram"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/models"
	"igcrawler/pkg/storage"
	"igcrawler/pkg/store"
	"igcrawler/pkg/ui"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:       "list users|tags",
	Short:     "List the users or tags in the database",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"users", "tags"},
	Run:       runList,
}

// removeCmd represents the remove command
var removeCmd = &cobra.Command{
	Use:   "remove users|tags <name>...",
	Short: "Remove users or tags with their records and downloads",
	Long: `Remove users or tags from the database and delete their download
directories. Posts still tagged by a remaining tag are kept.

  igcrawler remove all    removes every user and tag`,
	Example: `  igcrawler remove users natgeo nasa
  igcrawler remove tags sunset
  igcrawler remove all`,
	Args: cobra.MinimumNArgs(1),
	Run:  runRemove,
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(removeCmd)
}

// openState opens the database and the download layout without a browser.
func openState() (*store.Store, *storage.Layout) {
	cfg, err := loadConfig(nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}

	layout, err := storage.New(cfg.Output.BaseDirectory)
	if err != nil {
		ui.PrintError("Failed to prepare output directory", err.Error())
		os.Exit(1)
	}
	st, err := store.Open(cfg.Database.Path, log)
	if err != nil {
		ui.PrintError("Failed to open database", err.Error())
		os.Exit(1)
	}
	return st, layout
}

func runList(cmd *cobra.Command, args []string) {
	st, _ := openState()
	defer st.Close()
	ctx := context.Background()

	switch args[0] {
	case "users":
		users := st.Users(ctx)
		if len(users) == 0 {
			ui.PrintInfo("No stored users", "Use 'igcrawler users <username>' to crawl one")
			return
		}
		ui.PrintHighlight(fmt.Sprintf("Users (%d), %d posts recorded in total", len(users), st.PostCount(ctx)))
		for _, u := range users {
			fmt.Printf("  @%-30s %6d posts  id %s\n", u.Username, st.UserPostCount(ctx, u.Username), u.ID)
		}
	case "tags":
		tags := st.Tagnames(ctx)
		if len(tags) == 0 {
			ui.PrintInfo("No stored tags", "Use 'igcrawler tags <tag> --top' to crawl one")
			return
		}
		ui.PrintHighlight(fmt.Sprintf("Tags (%d)", len(tags)))
		for _, tag := range tags {
			fmt.Printf("  #%-30s %6d top  %6d recent\n", tag,
				st.TagPostCount(ctx, tag, models.ListingTop),
				st.TagPostCount(ctx, tag, models.ListingRecent))
		}
	}
}

func runRemove(cmd *cobra.Command, args []string) {
	kind, names := args[0], args[1:]
	switch {
	case kind == "all" && len(names) == 0:
	case (kind == "users" || kind == "tags") && len(names) > 0:
	default:
		ui.PrintError("Usage: igcrawler remove users|tags <name>... or igcrawler remove all")
		os.Exit(1)
	}

	st, layout := openState()
	defer st.Close()
	ctx := context.Background()

	failed := false
	switch kind {
	case "all":
		if !st.RemoveAllUsers(ctx) || !st.RemoveAllTags(ctx) {
			ui.PrintError("Failed to clear the database")
			os.Exit(1)
		}
		for _, k := range []models.EntityKind{models.EntityUser, models.EntityTag} {
			if err := layout.RemoveAll(k); err != nil {
				ui.PrintWarning("Failed to delete downloads", err)
			}
		}
		ui.PrintSuccess("Removed every user and tag")
	case "users":
		for _, name := range names {
			name = strings.ToLower(instagram.SanitizeUsername(name))
			if !st.RemoveUser(ctx, name) {
				ui.PrintWarning("User not in database", name)
				failed = true
				continue
			}
			if err := layout.RemoveUserDir(name); err != nil {
				ui.PrintWarning("Failed to delete downloads of "+name, err)
			}
			ui.PrintSuccess("Removed @" + name)
		}
	case "tags":
		for _, tag := range names {
			tag = instagram.SanitizeTag(tag)
			if !st.RemoveTag(ctx, tag) {
				ui.PrintWarning("Tag not in database", tag)
				failed = true
				continue
			}
			if err := layout.RemoveTagDir(tag); err != nil {
				ui.PrintWarning("Failed to delete downloads of #"+tag, err)
			}
			ui.PrintSuccess("Removed #" + tag)
		}
	}
	if failed {
		os.Exit(1)
	}
}
