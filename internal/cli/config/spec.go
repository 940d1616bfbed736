package config

// CLIConfig is the configuration for shadowhome-cli.
type CLIConfig struct {
	DefaultServer string `yaml:"default_server"`
	DefaultOutput string `yaml:"default_output"` // table, json, yaml

	// Saved connections
	Connections map[string]ConnectionConfig `yaml:"connections"`

	// Current active connection
	CurrentConnection string `yaml:"current_connection"`
}

// ConnectionConfig stores saved connection details.
type ConnectionConfig struct {
	Server   string `yaml:"server"`
	Token    string `yaml:"token,omitempty"`
	CAFile   string `yaml:"ca_file,omitempty"`
	Insecure bool   `yaml:"insecure,omitempty"`
}

// Settings is the effective connection after merging file, env and flags.
type Settings struct {
	Server   string
	Token    string
	CAFile   string
	Insecure bool
	Output   string
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		DefaultServer: "http://localhost:5380",
		DefaultOutput: "table",
		Connections:   make(map[string]ConnectionConfig),
	}
}

// Active returns the current connection profile, falling back to
// DefaultServer when none is selected.
func (c *CLIConfig) Active() ConnectionConfig {
	if conn, ok := c.Connections[c.CurrentConnection]; ok {
		if conn.Server == "" {
			conn.Server = c.DefaultServer
		}
		return conn
	}
	return ConnectionConfig{Server: c.DefaultServer}
}
