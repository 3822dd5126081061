package transport

import (
	"crypto/tls"
	"fmt"

	"github.com/wmbusgo/wmbusdecode/internal/mlog"
	"go.uber.org/zap"
)

// NewTLSConfig loads a TLS configuration from a certificate/key file pair.
func NewTLSConfig(certPath, keyPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	mlog.Info("TLS configuration created from files",
		zap.String("cert", certPath),
		zap.String("key", keyPath),
	)

	return buildTLSConfig(cert), nil
}

// NewTLSConfigFromMemory builds a TLS configuration from an in-memory
// PEM-encoded certificate and key, as produced by generateSelfSignedCert.
func NewTLSConfigFromMemory(certPEM, keyPEM []byte) (*tls.Config, error) {
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate from memory: %w", err)
	}

	mlog.Info("TLS configuration created from in-memory certificate",
		zap.String("source", "self-signed"),
	)

	return buildTLSConfig(cert), nil
}

func buildTLSConfig(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
}

// GetTLSInfo returns human-readable TLS configuration information for
// startup logging.
func GetTLSInfo(config *tls.Config) map[string]any {
	return map[string]any{
		"min_version": "TLS 1.2",
		"num_certs":   len(config.Certificates),
	}
}
