package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"igcrawler/pkg/config"
	"igcrawler/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	logFile    string
	quiet      bool
	headful    bool
	dbPath     string
	outputDir  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "igcrawler",
	Short: "Crawl Instagram profiles and hashtags through a headless browser",
	Long: `igcrawler drives a headless chrome through Instagram profiles and hashtag
listings and saves every post's images and videos.

Features:
  - Profiles, display photos and stories (stories need a login)
  - Top or recent posts of hashtags
  - Download state kept in SQLite, so updates only fetch new posts
  - Renamed accounts are followed by id
  - Optional login with a dedicated account stored in the system keychain`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			ui.SetQuiet(true)
		}
		if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "completion" {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.igcrawler.yaml or $HOME/.config/igcrawler/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&headful, "headful", false, "show the browser window")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path of the download state database")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "directory downloads are saved under")

	rootCmd.SetVersionTemplate(`igcrawler {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges the global flags and extra over the file and
// environment configuration.
func loadConfig(extra map[string]interface{}) (*config.Config, error) {
	flags := map[string]interface{}{
		"log-level": logLevel,
		"log-file":  logFile,
		"quiet":     quiet,
		"headful":   headful,
		"db":        dbPath,
		"output":    outputDir,
	}
	for k, v := range extra {
		flags[k] = v
	}
	return config.Load(configFile, flags)
}
