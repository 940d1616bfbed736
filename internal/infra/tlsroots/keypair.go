package tlsroots

import (
	"crypto/tls"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/yndnr/shadowhome-go/internal/infra/confloader"
	"github.com/yndnr/shadowhome-go/internal/telemetry/logger"
)

// KeyPair holds the server certificate and swaps it when the files change.
type KeyPair struct {
	certFile string
	keyFile  string
	logger   logger.Logger

	mu   sync.RWMutex
	cert *tls.Certificate
}

// LoadKeyPair loads the certificate and key.
func LoadKeyPair(certFile, keyFile string, l logger.Logger) (*KeyPair, error) {
	if l == nil {
		l = logger.Default()
	}
	kp := &KeyPair{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   l.With("component", "tls"),
	}
	if err := kp.Reload(); err != nil {
		return nil, fmt.Errorf("tlsroots: initial load: %w", err)
	}
	return kp, nil
}

// Reload reads the files again. On failure the previous pair stays active.
func (kp *KeyPair) Reload() error {
	cert, err := tls.LoadX509KeyPair(kp.certFile, kp.keyFile)
	if err != nil {
		return fmt.Errorf("load key pair: %w", err)
	}

	kp.mu.Lock()
	kp.cert = &cert
	kp.mu.Unlock()

	kp.logger.Info("certificate loaded", "cert_file", kp.certFile)
	return nil
}

// Watch reloads the pair whenever w reports a change of either file.
func (kp *KeyPair) Watch(w *confloader.Watcher) error {
	if err := w.Watch(kp.certFile); err != nil {
		return err
	}
	if err := w.Watch(kp.keyFile); err != nil {
		return err
	}

	certAbs, _ := filepath.Abs(kp.certFile)
	keyAbs, _ := filepath.Abs(kp.keyFile)
	w.OnChange(func(path string) {
		if path != certAbs && path != keyAbs {
			return
		}
		if err := kp.Reload(); err != nil {
			kp.logger.Error("certificate reload failed", "cert_file", kp.certFile, "error", err)
		}
	})
	return nil
}

// GetCertificate implements tls.Config.GetCertificate.
func (kp *KeyPair) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	kp.mu.RLock()
	defer kp.mu.RUnlock()
	return kp.cert, nil
}

// ServerConfig returns a TLS configuration serving the current pair.
func (kp *KeyPair) ServerConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: kp.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
}
