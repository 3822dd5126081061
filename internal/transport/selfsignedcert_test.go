package transport

import (
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"
)

func TestGenerateSelfSignedCert(t *testing.T) {
	params := defaultSelfSignedCertParams()
	certPEM, keyPEM, err := generateSelfSignedCert(params)
	if err != nil {
		t.Fatalf("generateSelfSignedCert() error = %v", err)
	}

	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil || certBlock.Type != "CERTIFICATE" {
		t.Fatalf("certPEM did not decode to a CERTIFICATE block")
	}
	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil || keyBlock.Type != "RSA PRIVATE KEY" {
		t.Fatalf("keyPEM did not decode to an RSA PRIVATE KEY block")
	}

	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		t.Fatalf("failed to parse generated certificate: %v", err)
	}
	if cert.Subject.CommonName != params.CommonName {
		t.Errorf("CommonName = %v, want %v", cert.Subject.CommonName, params.CommonName)
	}
	if !cert.NotBefore.Before(time.Now()) {
		t.Errorf("NotBefore = %v, should be before now", cert.NotBefore)
	}
	if !cert.NotAfter.After(time.Now()) {
		t.Errorf("NotAfter = %v, should be after now", cert.NotAfter)
	}

	if _, err := NewTLSConfigFromMemory(certPEM, keyPEM); err != nil {
		t.Errorf("NewTLSConfigFromMemory() error = %v", err)
	}
}
