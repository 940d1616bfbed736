package config

import "strings"

// Sanitize returns a copy of the config with secrets masked, for logging
// and the CLI's config view.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	sanitized.Server.HTTP.AuthToken = maskSecret(cfg.Server.HTTP.AuthToken)
	sanitized.Wallet.Software.Passphrase = maskSecret(cfg.Wallet.Software.Passphrase)

	// Slices are shared with cfg; copy the ones callers might edit.
	sanitized.Server.HTTP.CORSAllowedOrigins = append([]string(nil), cfg.Server.HTTP.CORSAllowedOrigins...)
	sanitized.Wallet.Bridge.OriginAllowlist = append([]string(nil), cfg.Wallet.Bridge.OriginAllowlist...)

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
