// Package config loads, normalizes, and validates tarmac's TOML configuration.
package config
