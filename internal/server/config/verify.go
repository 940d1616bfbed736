package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

// Verify validates the configuration. All problems are reported together.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifyWallet(&cfg.Wallet),
		verifyJournal(&cfg.Journal),
		verifyLog(&cfg.Log),
		verifyMetrics(&cfg.Metrics),
	)
}

func verifyServer(cfg *ServerSection) error {
	var errs []error

	if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
		errs = append(errs, fmt.Errorf("server.http.addr %q: %w", cfg.HTTP.Addr, err))
	}

	cert, key := cfg.HTTP.TLSCertFile, cfg.HTTP.TLSKeyFile
	switch {
	case (cert == "") != (key == ""):
		errs = append(errs, errors.New("server.http.tls_cert_file and tls_key_file must be set together"))
	case cert != "":
		for _, f := range []string{cert, key} {
			if _, err := os.Stat(f); err != nil {
				errs = append(errs, fmt.Errorf("server.http tls file: %w", err))
			}
		}
	}

	if rl := cfg.HTTP.RateLimit; rl.Enabled && (rl.RPS <= 0 || rl.Burst < 1) {
		errs = append(errs, errors.New("server.http.rate_limit needs rps > 0 and burst >= 1"))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	return errors.Join(errs...)
}

func verifyWallet(cfg *WalletSection) error {
	var errs []error

	switch cfg.Provider {
	case ProviderSoftware:
		if cfg.Software.KeystoreFile != "" {
			if _, err := os.Stat(cfg.Software.KeystoreFile); err != nil {
				errs = append(errs, fmt.Errorf("wallet.software.keystore_file: %w", err))
			}
		}
		if cfg.Software.SignRate <= 0 || cfg.Software.SignBurst < 1 {
			errs = append(errs, errors.New("wallet.software needs sign_rate > 0 and sign_burst >= 1"))
		}
	case ProviderBridge:
		if cfg.Bridge.RequestTimeout < 0 {
			errs = append(errs, errors.New("wallet.bridge.request_timeout must not be negative"))
		}
		for _, o := range cfg.Bridge.OriginAllowlist {
			if !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
				errs = append(errs, fmt.Errorf("wallet.bridge.origin_allowlist: %q is not an http(s) origin", o))
			}
		}
	case ProviderNone:
	default:
		errs = append(errs, fmt.Errorf("wallet.provider %q: want software, bridge or none", cfg.Provider))
	}

	if cfg.CallTimeout < 0 {
		errs = append(errs, errors.New("wallet.call_timeout must not be negative"))
	}
	return errors.Join(errs...)
}

func verifyJournal(cfg *JournalSection) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.MaxEntries < 1 {
		return errors.New("journal.max_entries must be at least 1")
	}
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
			return errors.New("cannot create journal directory: " + err.Error())
		}
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q: want debug, info, warn or error", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
	default:
		return fmt.Errorf("log.format %q: want json or text", cfg.Format)
	}
	return nil
}

func verifyMetrics(cfg *MetricsSection) error {
	if cfg.Enabled && !strings.HasPrefix(cfg.Path, "/") {
		return fmt.Errorf("metrics.path %q must start with /", cfg.Path)
	}
	return nil
}
