package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:5380"
	DefaultShutdownTimeout = 15 * time.Second
	DefaultRateLimitRPS    = 20
	DefaultRateLimitBurst  = 40

	DefaultProvider       = ProviderSoftware
	DefaultCallTimeout    = 2 * time.Minute
	DefaultSignRate       = 2
	DefaultSignBurst      = 5
	DefaultBridgeTimeout  = 2 * time.Minute
	DefaultJournalEntries = 1000

	DefaultLogLevel    = "info"
	DefaultLogFormat   = "json"
	DefaultMetricsPath = "/metrics"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr: DefaultHTTPAddr,
				RateLimit: RateLimitConfig{
					Enabled: true,
					RPS:     DefaultRateLimitRPS,
					Burst:   DefaultRateLimitBurst,
				},
			},
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Wallet: WalletSection{
			Provider:    DefaultProvider,
			CallTimeout: DefaultCallTimeout,
			Software: SoftwareConfig{
				SignRate:  DefaultSignRate,
				SignBurst: DefaultSignBurst,
			},
			Bridge: BridgeConfig{
				RequestTimeout: DefaultBridgeTimeout,
			},
		},
		Journal: JournalSection{
			Enabled:    true,
			MaxEntries: DefaultJournalEntries,
		},
		Log: LogSection{
			Level:        DefaultLogLevel,
			Format:       DefaultLogFormat,
			IdentityMask: true,
		},
		Metrics: MetricsSection{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
	}
}
