package config

import "time"

// Config holds runtime settings for the webtoz CLI.
//
// Fields:
//   - APIBaseURL: base URL of the REST API, including the /api prefix.
//   - RequestTimeout: upper bound for a single API call.
//   - StorePath: SQLite file that keeps the session between runs.
type Config struct {
	APIBaseURL     string
	RequestTimeout time.Duration
	StorePath      string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:5000/api"
	c.RequestTimeout = 10 * time.Second
	c.StorePath = ".webtoz/session.db"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment, JSON (if present) and command-line flags (if present).
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
