package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"ucraft/trafficlogger/pkg/config"
)

// expiryWarning is how close to NotAfter a loaded certificate is logged as
// expiring.
const expiryWarning = 30 * 24 * time.Hour

// certReloader serves the proxy certificate and swaps it when the files on
// disk change, so renewed certificates apply without a restart.
type certReloader struct {
	certFile string
	keyFile  string
	interval time.Duration
	logger   *slog.Logger

	mu      sync.RWMutex
	cert    *tls.Certificate
	certMod time.Time
	keyMod  time.Time
}

func newCertReloader(cfg *config.TLSConfig, logger *slog.Logger) (*certReloader, error) {
	r := &certReloader{
		certFile: cfg.CertFile,
		keyFile:  cfg.KeyFile,
		interval: cfg.ReloadInterval,
		logger:   logger,
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

// run polls the files every interval until ctx is done.
func (r *certReloader) run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := r.reloadIfChanged(); err != nil {
				r.logger.Error("failed to reload certificate",
					"cert_file", r.certFile,
					"key_file", r.keyFile,
					"error", err,
				)
			}
		case <-ctx.Done():
			return
		}
	}
}

// reloadIfChanged loads the pair again when either file is newer than the
// loaded copy. A failed reload keeps the previous certificate.
func (r *certReloader) reloadIfChanged() (bool, error) {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return false, err
	}
	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return false, err
	}

	r.mu.RLock()
	changed := certInfo.ModTime().After(r.certMod) || keyInfo.ModTime().After(r.keyMod)
	r.mu.RUnlock()
	if !changed {
		return false, nil
	}
	return true, r.load()
}

func (r *certReloader) load() error {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return fmt.Errorf("certificate file: %w", err)
	}
	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return fmt.Errorf("key file: %w", err)
	}

	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load certificate: %w", err)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return fmt.Errorf("failed to parse certificate: %w", err)
	}
	now := time.Now()
	if now.Before(leaf.NotBefore) {
		return fmt.Errorf("certificate is not yet valid (valid from %s)", leaf.NotBefore.Format(time.RFC3339))
	}
	if now.After(leaf.NotAfter) {
		return fmt.Errorf("certificate expired on %s", leaf.NotAfter.Format(time.RFC3339))
	}
	cert.Leaf = leaf

	r.mu.Lock()
	r.cert = &cert
	r.certMod = certInfo.ModTime()
	r.keyMod = keyInfo.ModTime()
	r.mu.Unlock()

	attrs := []any{
		"subject", leaf.Subject.CommonName,
		"expires_at", leaf.NotAfter.Format(time.RFC3339),
	}
	if leaf.NotAfter.Sub(now) < expiryWarning {
		r.logger.Warn("certificate expiring soon", attrs...)
	} else {
		r.logger.Info("certificate loaded", attrs...)
	}
	return nil
}

func (r *certReloader) getCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert, nil
}

// newTLSConfig builds the listener configuration around the reloader.
func newTLSConfig(cfg *config.TLSConfig, r *certReloader) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: r.getCertificate,
	}
	if cfg.MinVersion == "1.3" {
		tlsConfig.MinVersion = tls.VersionTLS13
	}

	if cfg.ClientCAFile != "" {
		pem, err := os.ReadFile(cfg.ClientCAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read client CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in client CA file %s", cfg.ClientCAFile)
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return tlsConfig, nil
}
