// Package config provides the shadowhome-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default values
//   - verify.go: validation before start-up
//   - sanitize.go: copy safe for logging (secrets masked)
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// SHADOWHOME_* environment variables and flags.
package config
