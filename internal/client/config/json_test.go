package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadJSON_OverlaysOnlyPresentKeys(t *testing.T) {
	path := writeTempJSON(t, `{
		// local API
		"base_url": "http://127.0.0.1:9000",
		"concurrency": 3,
		"retry_backoff": "250ms",
		"upload_timeout": 60000000000,
	}`)

	var c Config
	c.LoadDefaults()
	require.NoError(t, c.LoadJSON(path))

	assert.Equal(t, "http://127.0.0.1:9000", c.BaseURL)
	assert.Equal(t, 3, c.Concurrency)
	assert.Equal(t, 250*time.Millisecond, c.RetryBackoff)
	assert.Equal(t, time.Minute, c.UploadTimeout)

	assert.Equal(t, ".instanthost/state.json", c.StateFile, "absent keys keep their value")
	assert.Equal(t, 30*time.Second, c.APITimeout)
}

func TestLoadJSON_Errors(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Error(t, c.LoadJSON(filepath.Join(t.TempDir(), "missing.json")))
	assert.Error(t, c.LoadJSON(writeTempJSON(t, `{ this is not valid json`)))
	assert.Error(t, c.LoadJSON(writeTempJSON(t, `{"api_timeout": "soon"}`)))
}

func TestLoadConfig_JSONThenEnv(t *testing.T) {
	path := writeTempJSON(t, `{"base_url": "http://from-file", "log_level": "debug"}`)
	cfg, err := LoadConfig(path, func(k string) (string, bool) {
		if k == "INSTANTHOST_API_BASE" {
			return "http://from-env", true
		}
		return "", false
	})
	require.NoError(t, err)
	assert.Equal(t, "http://from-env", cfg.BaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "nope.json"), noEnv)
	assert.Error(t, err)
}
