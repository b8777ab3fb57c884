// Package config loads, normalizes, and validates the TOML configuration
// that drives the card build engine: directory layout, renderer settings,
// workflow concurrency, the global settings layer, and logging options.
package config
