// Package config provides shadowhome-cli configuration.
//
//   - spec.go: CLIConfig struct (~/.shadowhome/cli.yaml)
//   - loader.go: loading, saving and merging with env and flags
//
// The file holds named connection profiles. Environment variables
// (SHADOWHOME_CLI_*) override the active profile and flags override both.
package config
