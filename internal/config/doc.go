// Package config loads the cityguide TOML configuration.
//
// # Resolution
//
// Load follows this order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/cityguide/config.toml
//  3. If the file doesn't exist, start from Default()
//  4. Empty or missing fields keep their defaults
//  5. CITYGUIDE_API_URL and CITYGUIDE_AUTH_TOKEN override the file
//
// A missing file is not an error. A missing API URL or token is, but only
// once Validate runs, so tooling can still inspect a partial config.
//
// # TOML Format
//
//	api_url = "https://api.example.com/graphql"
//	auth_token = "secret"
//	log_path = "~/.local/share/cityguide/cityguide.log"
//	log_level = "debug"
//	metrics_addr = "127.0.0.1:9464"
//	requests_per_second = 5
//	probe_interval_seconds = 10
//
// Tilde expansion is applied to the config path and log_path.
package config
