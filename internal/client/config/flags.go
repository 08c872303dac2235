package config

import (
	"github.com/spf13/pflag"
)

// Flags holds the values of the persistent command-line flags. Only flags
// the user actually set override the loaded configuration.
type Flags struct {
	ConfigFile  string
	BaseURL     string
	APIKey      string
	StateFile   string
	Concurrency int
	LogLevel    string

	fs *pflag.FlagSet
}

// RegisterFlags declares the global flags on fs.
//
//	-c, --config string      JSON config file
//	    --base-url string    API base URL
//	    --api-key string     API key override
//	    --state-file string  publish state file
//	    --concurrency int    parallel uploads
//	    --log-level string   debug|info|warn|error
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVarP(&f.ConfigFile, "config", "c", "", "path to a JSON config file")
	fs.StringVar(&f.BaseURL, "base-url", "", "API base URL")
	fs.StringVar(&f.APIKey, "api-key", "", "API key (overrides environment and credentials file)")
	fs.StringVar(&f.StateFile, "state-file", "", "where publish results are recorded")
	fs.IntVar(&f.Concurrency, "concurrency", 0, "maximum parallel uploads")
	fs.StringVar(&f.LogLevel, "log-level", "", "log level: debug, info, warn or error")
	return f
}

// Apply copies explicitly set flags into cfg.
func (f *Flags) Apply(cfg *Config) {
	if f.fs.Changed("base-url") {
		cfg.BaseURL = f.BaseURL
	}
	if f.fs.Changed("state-file") {
		cfg.StateFile = f.StateFile
	}
	if f.fs.Changed("concurrency") {
		cfg.Concurrency = f.Concurrency
	}
	if f.fs.Changed("log-level") {
		cfg.LogLevel = f.LogLevel
	}
}
