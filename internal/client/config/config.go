package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/instanthost/internal/common"
)

// Config holds runtime settings for the instanthost CLI.
//
// Units: RetryBackoff, APITimeout and UploadTimeout are time.Duration values.
type Config struct {
	BaseURL         string
	StateFile       string
	CredentialsFile string
	DotEnvFile      string
	APIKeyEnv       string
	Concurrency     int
	UploadRetries   int
	RetryBackoff    time.Duration
	APITimeout      time.Duration
	UploadTimeout   time.Duration
	LogLevel        string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BaseURL = "https://instanthost.site"
	c.StateFile = ".instanthost/state.json"
	c.CredentialsFile = "~/.instanthost/credentials"
	c.DotEnvFile = ".env"
	c.APIKeyEnv = common.APIKeyEnvVar
	c.Concurrency = 5
	c.UploadRetries = 2
	c.RetryBackoff = 500 * time.Millisecond
	c.APITimeout = 30 * time.Second
	c.UploadTimeout = 10 * time.Minute
	c.LogLevel = "warn"
}

// ApplyEnv overlays values taken from the environment. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(common.BaseURLEnvVar); ok && v != "" {
		c.BaseURL = v
	}
}

// Validate rejects settings no component can work with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base url %q", c.BaseURL)
	}
	if c.Concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}
	if c.UploadRetries < 0 {
		return errors.New("upload retries must not be negative")
	}
	if c.StateFile == "" {
		return errors.New("state file path is empty")
	}
	return nil
}

// LoadConfig builds a Config from defaults, the optional JSON file at
// jsonPath and the environment. Flags are applied afterwards by the caller,
// so later sources take precedence over earlier ones.
func LoadConfig(jsonPath string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if jsonPath != "" {
		if err := cfg.LoadJSON(jsonPath); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(lookup)
	return cfg, nil
}
