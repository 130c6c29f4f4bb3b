// Package config loads, normalizes, and validates the TOML configuration
// shared by the daemon and the CLI. Paths are expanded to absolute form
// during load; provider API keys fall back to environment variables.
package config
