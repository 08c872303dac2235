// Package config loads runtime configuration for the instanthost CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or --config (see (*Config).LoadJSON).
//  3. Environment: INSTANTHOST_API_BASE overrides the base URL.
//  4. Command-line flags (see RegisterFlags), which override earlier values.
//
// # JSON schema
//
// The file may contain comments. Durations use timex.Duration, so values can
// be strings like "500ms" or integer nanoseconds:
//
//	{
//	  // staging API
//	  "base_url": "https://staging.instanthost.site",
//	  "state_file": ".instanthost/state.json",
//	  "credentials_file": "~/.instanthost/credentials",
//	  "concurrency": 5,
//	  "upload_retries": 2,
//	  "retry_backoff": "500ms",
//	  "api_timeout": "30s",
//	  "upload_timeout": "10m",
//	  "log_level": "info"
//	}
//
// The API key itself is never read from the config file; see package
// credentials.
package config
