// Package config loads runtime configuration for the webtoz CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. WEBTOZ_API_URL environment variable.
//  3. Optional JSON file selected via flags: -c or -config.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string     base URL of the REST API
//	-t duration   request timeout
//	-f string     path of the local session store
//
// # JSON schema
//
//	{
//	  "api_base_url": "http://localhost:5000/api",
//	  "request_timeout": "10s",
//	  "store_path": ".webtoz/session.db"
//	}
package config
