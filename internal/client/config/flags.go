package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/webtoz/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     base URL of the REST API
//	-t duration   request timeout ("10s", "1m")
//	-f string     path of the local session store
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the API")
	flagx.DurationVar(fs, &cfg.RequestTimeout, "t", cfg.RequestTimeout, "request timeout")
	fs.StringVar(&cfg.StorePath, "f", cfg.StorePath, "session store file")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
