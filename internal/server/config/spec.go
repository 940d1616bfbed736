package config

import "time"

// ServerConfig is the root configuration for shadowhome-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server" yaml:"server"`
	Wallet  WalletSection  `koanf:"wallet" yaml:"wallet"`
	Journal JournalSection `koanf:"journal" yaml:"journal"`
	Log     LogSection     `koanf:"log" yaml:"log"`
	Metrics MetricsSection `koanf:"metrics" yaml:"metrics"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP            HTTPConfig    `koanf:"http" yaml:"http"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr        string `koanf:"addr" yaml:"addr"`
	TLSCertFile string `koanf:"tls_cert_file" yaml:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file" yaml:"tls_key_file"`

	// AuthToken, when set, is required as a bearer token on /v1 routes.
	AuthToken string `koanf:"auth_token" yaml:"auth_token"`

	CORSAllowedOrigins []string        `koanf:"cors_allowed_origins" yaml:"cors_allowed_origins"`
	RateLimit          RateLimitConfig `koanf:"rate_limit" yaml:"rate_limit"`
}

// RateLimitConfig configures per-client request limiting.
type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled" yaml:"enabled"`
	RPS     float64 `koanf:"rps" yaml:"rps"`
	Burst   int     `koanf:"burst" yaml:"burst"`
}

// Wallet provider kinds.
const (
	ProviderSoftware = "software"
	ProviderBridge   = "bridge"
	ProviderNone     = "none"
)

// WalletSection configures the wallet session and its provider.
type WalletSection struct {
	// Provider selects where the wallet lives: software, bridge or none.
	Provider          string        `koanf:"provider" yaml:"provider"`
	CallTimeout       time.Duration `koanf:"call_timeout" yaml:"call_timeout"`
	ChallengeGreeting string        `koanf:"challenge_greeting" yaml:"challenge_greeting"`

	Software SoftwareConfig `koanf:"software" yaml:"software"`
	Bridge   BridgeConfig   `koanf:"bridge" yaml:"bridge"`
}

// SoftwareConfig configures the in-process wallet.
type SoftwareConfig struct {
	// KeystoreFile holds the encrypted seeds. Empty generates a throwaway
	// account at start-up.
	KeystoreFile string `koanf:"keystore_file" yaml:"keystore_file"`
	Passphrase   string `koanf:"passphrase" yaml:"passphrase"`

	// AutoApprove answers every prompt with yes; otherwise every prompt is
	// refused.
	AutoApprove bool `koanf:"auto_approve" yaml:"auto_approve"`

	SignRate  float64 `koanf:"sign_rate" yaml:"sign_rate"`
	SignBurst int     `koanf:"sign_burst" yaml:"sign_burst"`
}

// BridgeConfig configures the browser bridge.
type BridgeConfig struct {
	OriginAllowlist []string      `koanf:"origin_allowlist" yaml:"origin_allowlist"`
	RequestTimeout  time.Duration `koanf:"request_timeout" yaml:"request_timeout"`
}

// JournalSection configures the transition journal.
type JournalSection struct {
	Enabled bool `koanf:"enabled" yaml:"enabled"`

	// DataDir selects the Badger journal. Empty keeps the journal in memory.
	DataDir    string `koanf:"data_dir" yaml:"data_dir"`
	MaxEntries int    `koanf:"max_entries" yaml:"max_entries"`
}

// LogSection configures logging.
type LogSection struct {
	Level        string `koanf:"level" yaml:"level"`
	Format       string `koanf:"format" yaml:"format"`
	IdentityMask bool   `koanf:"identity_mask" yaml:"identity_mask"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Path    string `koanf:"path" yaml:"path"`
}
