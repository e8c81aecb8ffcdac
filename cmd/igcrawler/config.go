package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igcrawler/pkg/config"
	"igcrawler/pkg/ui"
)

const defaultConfigFile = ".igcrawler.yaml"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Inspect and create igcrawler configuration.

Sources, strongest first: command line flags, IGCRAWLER_* environment
variables (also read from .env), the configuration file, built-in defaults.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to a file",
	Long: `Write every option with its default value to ./` + defaultConfigFile + `,
or to the path given with --config. An existing file is never overwritten.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFile
		if path == "" {
			path = defaultConfigFile
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, remove it first", path)
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}

		ui.PrintSuccess("Configuration file created: " + path)
		fmt.Println("Check it with 'igcrawler config validate', then run 'igcrawler users <username>'.")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to format configuration: %w", err)
		}

		source := configFile
		if source == "" {
			source = "searched in the standard locations"
		}
		ui.PrintHighlight("Effective configuration")
		ui.PrintInfo("File", source)
		fmt.Print("\n" + string(data))
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and the paths it names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}

		if problems := checkPaths(cfg); len(problems) > 0 {
			for _, p := range problems {
				ui.PrintError("Invalid", p)
			}
			return errors.New("configuration has errors")
		}
		if cfg.Crawl.Stories && cfg.Crawl.Login == "" {
			ui.PrintWarning("crawl.stories is set but crawl.login is empty; stories will be refused")
		}

		ui.PrintSuccess("Configuration is valid")
		ui.PrintInfo("Output directory", cfg.Output.BaseDirectory)
		ui.PrintInfo("Database", cfg.Database.Path)
		ui.PrintInfo("Headless", fmt.Sprint(cfg.Browser.Headless))
		ui.PrintInfo("Navigation attempts", fmt.Sprint(cfg.Navigation.MaxAttempts))
		ui.PrintInfo("Rate limit", fmt.Sprintf("%d page loads/minute", cfg.RateLimit.RequestsPerMinute))
		ui.PrintInfo("Log level", cfg.Logging.Level)
		return nil
	},
}

// checkPaths creates the directories cfg writes into and checks the chrome
// binary.
func checkPaths(cfg *config.Config) []string {
	dirs := []string{cfg.Output.BaseDirectory, filepath.Dir(cfg.Database.Path)}
	if cfg.Logging.File != "" {
		dirs = append(dirs, filepath.Dir(cfg.Logging.File))
	}

	var problems []string
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create %s: %v", dir, err))
		}
	}
	if p := cfg.Browser.ExecPath; p != "" {
		if _, err := os.Stat(p); err != nil {
			problems = append(problems, "chrome not found at "+p)
		}
	}
	return problems
}

func init() {
	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
