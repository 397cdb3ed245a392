package config

import "os"

// parseEnv lets WEBTOZ_API_URL point the CLI at another server without
// a config file.
func parseEnv(cfg *Config) {
	if v, ok := os.LookupEnv("WEBTOZ_API_URL"); ok && v != "" {
		cfg.APIBaseURL = v
	}
}
