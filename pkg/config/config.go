// Package config loads browser-mcp configuration from a YAML file with
// sane defaults and environment overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration for a browser-mcp process.
type Config struct {
	Browser BrowserSection `yaml:"browser"`
	Search  SearchSection  `yaml:"search"`
}

// BrowserSection configures the browser engine and session store.
type BrowserSection struct {
	// Headless controls whether Chromium runs without a visible window
	Headless bool `yaml:"headless"`

	// MaxSessions bounds the LRU session store capacity
	MaxSessions int `yaml:"max_sessions"`

	// ViewportWidth and ViewportHeight set the context viewport
	ViewportWidth  int `yaml:"viewport_width"`
	ViewportHeight int `yaml:"viewport_height"`

	// DownloadDir is where force_download writes files
	DownloadDir string `yaml:"download_dir"`
}

// SearchSection configures the web search clients.
type SearchSection struct {
	// SearxURL is the base URL of a SearxNG instance
	SearxURL string `yaml:"searxng_url"`

	// TavilyAPIKey enables the Tavily fallback; also read from the
	// TAVILY_API_KEY environment variable
	TavilyAPIKey string `yaml:"tavily_api_key"`

	// MaxResults caps the number of results returned per query
	MaxResults int `yaml:"max_results"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Browser: BrowserSection{
			Headless:       true,
			MaxSessions:    16,
			ViewportWidth:  1920,
			ViewportHeight: 1080,
			DownloadDir:    "downloads",
		},
		Search: SearchSection{
			MaxResults: 5,
		},
	}
}

// Load reads configuration from path, layering file values over defaults.
// An empty path means the default location (~/.browser-mcp/config.yaml); a
// missing file is not an error and yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return cfg, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".browser-mcp", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config from %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config from %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

// applyDefaults backfills zero values a partial file left unset.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Browser.MaxSessions <= 0 {
		c.Browser.MaxSessions = def.Browser.MaxSessions
	}
	if c.Browser.ViewportWidth <= 0 {
		c.Browser.ViewportWidth = def.Browser.ViewportWidth
	}
	if c.Browser.ViewportHeight <= 0 {
		c.Browser.ViewportHeight = def.Browser.ViewportHeight
	}
	if c.Browser.DownloadDir == "" {
		c.Browser.DownloadDir = def.Browser.DownloadDir
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = def.Search.MaxResults
	}
}

// applyEnv overlays secret material from the environment.
func (c *Config) applyEnv() {
	if key := os.Getenv("TAVILY_API_KEY"); key != "" {
		c.Search.TavilyAPIKey = key
	}
}
