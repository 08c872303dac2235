package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/instanthost/internal/timex"
	"github.com/tidwall/jsonc"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Fields are
// pointers so that keys absent from the file leave the current value alone.
// Durations accept strings like "500ms" or integer nanoseconds.
type JsonConfig struct {
	BaseURL         *string         `json:"base_url"`
	StateFile       *string         `json:"state_file"`
	CredentialsFile *string         `json:"credentials_file"`
	DotEnvFile      *string         `json:"dotenv_file"`
	APIKeyEnv       *string         `json:"api_key_env"`
	Concurrency     *int            `json:"concurrency"`
	UploadRetries   *int            `json:"upload_retries"`
	RetryBackoff    *timex.Duration `json:"retry_backoff"`
	APITimeout      *timex.Duration `json:"api_timeout"`
	UploadTimeout   *timex.Duration `json:"upload_timeout"`
	LogLevel        *string         `json:"log_level"`
}

// LoadJSON overlays c with the values found in a JSON file. Comments and
// trailing commas are allowed.
func (c *Config) LoadJSON(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&c.BaseURL, jc.BaseURL)
	setString(&c.StateFile, jc.StateFile)
	setString(&c.CredentialsFile, jc.CredentialsFile)
	setString(&c.DotEnvFile, jc.DotEnvFile)
	setString(&c.APIKeyEnv, jc.APIKeyEnv)
	setString(&c.LogLevel, jc.LogLevel)
	if jc.Concurrency != nil {
		c.Concurrency = *jc.Concurrency
	}
	if jc.UploadRetries != nil {
		c.UploadRetries = *jc.UploadRetries
	}
	setDuration(&c.RetryBackoff, jc.RetryBackoff)
	setDuration(&c.APITimeout, jc.APITimeout)
	setDuration(&c.UploadTimeout, jc.UploadTimeout)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
