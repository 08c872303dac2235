package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "https://instanthost.site", c.BaseURL)
	assert.Equal(t, ".instanthost/state.json", c.StateFile)
	assert.Equal(t, "~/.instanthost/credentials", c.CredentialsFile)
	assert.Equal(t, "INSTANTHOST_API_KEY", c.APIKeyEnv)
	assert.Equal(t, 5, c.Concurrency)
	assert.Equal(t, 2, c.UploadRetries)
	assert.Equal(t, 500*time.Millisecond, c.RetryBackoff)
	assert.Equal(t, 30*time.Second, c.APITimeout)
	assert.Equal(t, 10*time.Minute, c.UploadTimeout)
	assert.Equal(t, "warn", c.LogLevel)
	require.NoError(t, c.Validate())
}

func TestLoadConfig_EnvOverridesBaseURL(t *testing.T) {
	env := map[string]string{"INSTANTHOST_API_BASE": "http://localhost:8080"}
	cfg, err := LoadConfig("", func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
}

func TestLoadConfig_EmptyEnvIgnored(t *testing.T) {
	cfg, err := LoadConfig("", func(string) (string, bool) { return "", true })
	require.NoError(t, err)
	assert.Equal(t, "https://instanthost.site", cfg.BaseURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "bad scheme", mutate: func(c *Config) { c.BaseURL = "ftp://x" }},
		{name: "no host", mutate: func(c *Config) { c.BaseURL = "https://" }},
		{name: "zero concurrency", mutate: func(c *Config) { c.Concurrency = 0 }},
		{name: "negative retries", mutate: func(c *Config) { c.UploadRetries = -1 }},
		{name: "empty state path", mutate: func(c *Config) { c.StateFile = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
