package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load builds the effective configuration. Later sources win:
// defaults, config file, .env files, environment, flags.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	home, _ := os.UserHomeDir()
	// godotenv never overrides variables that are already set.
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(home, ".igcrawler.env"))

	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg.MergeCommandLineFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFromFile overlays the YAML file at path. An empty path searches the
// usual locations and is a no-op when none exists.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		if path = findConfigFile(); path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func findConfigFile() string {
	candidates := []string{".igcrawler.yaml", ".igcrawler.yml"}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(dir, "igcrawler", "config.yaml"),
			filepath.Join(dir, "igcrawler", "config.yml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".igcrawler.yaml"))
	}

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envBindings maps variable names, without EnvPrefix, onto fields.
func (c *Config) envBindings() map[string]interface{} {
	return map[string]interface{}{
		"HEADLESS":              &c.Browser.Headless,
		"CHROME_PATH":           &c.Browser.ExecPath,
		"USER_AGENT":            &c.Browser.UserAgent,
		"READY_TIMEOUT":         &c.Navigation.ReadyTimeout,
		"SETTLE_DELAY":          &c.Navigation.SettleDelay,
		"NAVIGATION_ATTEMPTS":   &c.Navigation.MaxAttempts,
		"MAX_POSTS":             &c.Crawl.MaxPosts,
		"LOGIN":                 &c.Crawl.Login,
		"DB_PATH":               &c.Database.Path,
		"REQUESTS_PER_MINUTE":   &c.RateLimit.RequestsPerMinute,
		"OUTPUT_DIR":            &c.Output.BaseDirectory,
		"SAVE_METADATA":         &c.Output.SaveMetadata,
		"CONCURRENT_DOWNLOADS":  &c.Download.ConcurrentDownloads,
		"NOTIFICATIONS_ENABLED": &c.Notifications.Enabled,
		"LOG_ENABLED":           &c.Logging.Enabled,
		"LOG_LEVEL":             &c.Logging.Level,
		"LOG_FILE":              &c.Logging.File,
	}
}

// LoadFromEnv overlays the IGCRAWLER_* variables that are set. Every
// malformed value is reported, not just the first.
func (c *Config) LoadFromEnv() error {
	var errs []error
	for name, dst := range c.envBindings() {
		raw, ok := os.LookupEnv(EnvPrefix + name)
		if !ok || raw == "" {
			continue
		}
		if err := assign(dst, raw); err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		}
	}
	return errors.Join(errs...)
}

func assign(dst interface{}, raw string) error {
	switch p := dst.(type) {
	case *string:
		*p = raw
	case *bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		*p = v
	case *int:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*p = v
	case *time.Duration:
		v, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		*p = v
	default:
		return fmt.Errorf("unsupported field type %T", dst)
	}
	return nil
}

// MergeCommandLineFlags applies flags that were given a value. A "max" of
// zero is kept so the caller can reject it.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	setString := func(key string, dst *string) {
		if v, _ := flags[key].(string); v != "" {
			*dst = v
		}
	}
	isSet := func(key string) bool {
		v, _ := flags[key].(bool)
		return v
	}

	setString("output", &c.Output.BaseDirectory)
	setString("db", &c.Database.Path)
	setString("log-level", &c.Logging.Level)
	setString("log-file", &c.Logging.File)
	setString("login", &c.Crawl.Login)

	if v, ok := flags["max"].(int); ok && v >= 0 {
		c.Crawl.MaxPosts = v
	}
	if isSet("headful") {
		c.Browser.Headless = false
	}
	if isSet("stories") {
		c.Crawl.Stories = true
	}
	if isSet("quiet") {
		c.Logging.Console = false
	}
}

// Save writes c as YAML to path, creating its directory.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
