// Package config handles configuration loading and management for openit.
//
// It provides functionality for:
//   - Loading configuration from .openit.json, .openit.yaml or .openit.toml
//   - Default configuration values
//   - Seeding a request builder with default headers and options
package config
