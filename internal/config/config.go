package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the config file lives relative to the working directory.
const DefaultPath = ".vitrine/config.yaml"

// Config holds all vitrine configuration.
type Config struct {
	// Storefront connection
	Storefront StorefrontConfig `yaml:"storefront"`

	// Transient notifications
	Notifications NotificationsConfig `yaml:"notifications"`

	// Product search
	Search SearchConfig `yaml:"search"`

	// Live browser binding
	Browser BrowserConfig `yaml:"browser"`

	// Action journal
	Journal JournalConfig `yaml:"journal"`

	// Terminal UI
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// StorefrontConfig configures the storefront the controller talks to.
type StorefrontConfig struct {
	Name           string `yaml:"name"`
	BaseURL        string `yaml:"base_url"`
	Currency       string `yaml:"currency"`
	RequestTimeout string `yaml:"request_timeout"`
	CartPath       string `yaml:"cart_path"`
	CookieFile     string `yaml:"cookie_file"` // empty = cart lives only as long as the process
}

// NotificationsConfig configures transient notifications.
type NotificationsConfig struct {
	Duration string `yaml:"duration"`
}

// SearchConfig configures debounced search.
type SearchConfig struct {
	Debounce string `yaml:"debounce"`
	Timeout  string `yaml:"timeout"`
}

// BrowserConfig configures the Chrome DevTools connection.
type BrowserConfig struct {
	DevToolsURL   string `yaml:"devtools_url"` // empty = launch a local Chrome
	Headless      bool   `yaml:"headless"`
	LaunchTimeout string `yaml:"launch_timeout"`
}

// JournalConfig configures the SQLite action journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Storefront: StorefrontConfig{
			Name:           "Vitrine",
			BaseURL:        "http://localhost:8000",
			Currency:       "EGP",
			RequestTimeout: "15s",
			CartPath:       "/cart",
			CookieFile:     ".vitrine/cookies.json",
		},
		Notifications: NotificationsConfig{
			Duration: "3s",
		},
		Search: SearchConfig{
			Debounce: "300ms",
			Timeout:  "10s",
		},
		Browser: BrowserConfig{
			Headless:      true,
			LaunchTimeout: "30s",
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    ".vitrine/journal.db",
		},
		UI: UIConfig{
			Theme: "auto",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Dir:    ".vitrine/logs",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("VITRINE_BASE_URL"); v != "" {
		c.Storefront.BaseURL = v
	}
	if v := os.Getenv("VITRINE_CURRENCY"); v != "" {
		c.Storefront.Currency = strings.ToUpper(v)
	}
	if v := os.Getenv("VITRINE_DEVTOOLS_URL"); v != "" {
		c.Browser.DevToolsURL = v
	}
	if v := os.Getenv("VITRINE_JOURNAL"); v != "" {
		if v == "off" {
			c.Journal.Enabled = false
		} else {
			c.Journal.Enabled = true
			c.Journal.Path = v
		}
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetRequestTimeout returns the per-request storefront timeout.
func (c *Config) GetRequestTimeout() time.Duration {
	return parseDuration(c.Storefront.RequestTimeout, 15*time.Second)
}

// GetNotificationDuration returns how long notifications stay visible.
func (c *Config) GetNotificationDuration() time.Duration {
	return parseDuration(c.Notifications.Duration, 3*time.Second)
}

// GetSearchDebounce returns the search input debounce delay.
func (c *Config) GetSearchDebounce() time.Duration {
	return parseDuration(c.Search.Debounce, 300*time.Millisecond)
}

// GetSearchTimeout returns the per-search request timeout.
func (c *Config) GetSearchTimeout() time.Duration {
	return parseDuration(c.Search.Timeout, 10*time.Second)
}

// GetBrowserLaunchTimeout returns how long to wait for Chrome to start.
func (c *Config) GetBrowserLaunchTimeout() time.Duration {
	return parseDuration(c.Browser.LaunchTimeout, 30*time.Second)
}

// ValidThemes lists the accepted ui.theme values.
var ValidThemes = []string{"auto", "light", "dark"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Storefront.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("storefront.base_url must be an absolute http(s) url, got %q", c.Storefront.BaseURL)
	}
	if strings.TrimSpace(c.Storefront.Currency) == "" {
		return fmt.Errorf("storefront.currency is required")
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}

	validTheme := false
	for _, t := range ValidThemes {
		if c.UI.Theme == t {
			validTheme = true
			break
		}
	}
	if !validTheme {
		return fmt.Errorf("invalid ui.theme: %s (valid: %v)", c.UI.Theme, ValidThemes)
	}

	return c.Logging.validate()
}
