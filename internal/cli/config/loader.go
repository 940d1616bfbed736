package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment variables read by Merge.
const (
	EnvServer   = "SHADOWHOME_CLI_SERVER"
	EnvToken    = "SHADOWHOME_CLI_TOKEN"
	EnvCAFile   = "SHADOWHOME_CLI_CA_FILE"
	EnvInsecure = "SHADOWHOME_CLI_INSECURE"
	EnvOutput   = "SHADOWHOME_CLI_OUTPUT"
)

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".shadowhome", "cli.yaml")
}

// Load loads CLI configuration from file. A missing file yields Default().
func Load(path string) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cli config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse cli config %s: %w", path, err)
	}
	if cfg.Connections == nil {
		cfg.Connections = make(map[string]ConnectionConfig)
	}
	if cfg.CurrentConnection != "" {
		if _, ok := cfg.Connections[cfg.CurrentConnection]; !ok {
			return nil, fmt.Errorf("current_connection %q is not defined", cfg.CurrentConnection)
		}
	}
	return cfg, nil
}

// Save writes the configuration with owner-only permissions; it may hold
// API tokens.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode cli config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Merge resolves the effective settings. Precedence from lowest to highest:
// the active profile, SHADOWHOME_CLI_* environment variables, then flags.
// Empty env and flag values are ignored.
func Merge(cfg *CLIConfig, env map[string]string, flags map[string]string) Settings {
	active := cfg.Active()
	s := Settings{
		Server:   active.Server,
		Token:    active.Token,
		CAFile:   active.CAFile,
		Insecure: active.Insecure,
		Output:   cfg.DefaultOutput,
	}

	apply := func(src map[string]string, keys map[string]string) {
		for field, key := range keys {
			v, ok := src[key]
			if !ok || v == "" {
				continue
			}
			switch field {
			case "server":
				s.Server = v
			case "token":
				s.Token = v
			case "ca_file":
				s.CAFile = v
			case "output":
				s.Output = v
			case "insecure":
				if b, err := strconv.ParseBool(v); err == nil {
					s.Insecure = b
				}
			}
		}
	}

	apply(env, map[string]string{
		"server":   EnvServer,
		"token":    EnvToken,
		"ca_file":  EnvCAFile,
		"insecure": EnvInsecure,
		"output":   EnvOutput,
	})
	apply(flags, map[string]string{
		"server":   "server",
		"token":    "token",
		"ca_file":  "ca-file",
		"insecure": "insecure",
		"output":   "output",
	})
	return s
}

// Environ returns the SHADOWHOME_CLI_* variables of the process environment.
func Environ() map[string]string {
	env := make(map[string]string)
	for _, key := range []string{EnvServer, EnvToken, EnvCAFile, EnvInsecure, EnvOutput} {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	return env
}
