package transport

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"time"
)

// selfSignedCertParams controls the generated certificate's identity and
// validity window.
type selfSignedCertParams struct {
	CommonName string
	SANs       []string
	ValidDays  int
}

func defaultSelfSignedCertParams() selfSignedCertParams {
	return selfSignedCertParams{
		CommonName: "wmbusdecode",
		SANs:       []string{"localhost", "127.0.0.1"},
		ValidDays:  365,
	}
}

// generateAndLoadCert generates a self-signed server certificate and
// returns a ready-to-use TLS configuration. The certificate is kept in
// memory only and never written to disk.
func generateAndLoadCert() (*tls.Config, error) {
	params := defaultSelfSignedCertParams()

	certPEM, keyPEM, err := generateSelfSignedCert(params)
	if err != nil {
		return nil, fmt.Errorf("failed to generate self-signed certificate: %w", err)
	}

	return NewTLSConfigFromMemory(certPEM, keyPEM)
}

// generateSelfSignedCert creates an RSA key pair and a self-signed X.509
// certificate over it, returning both PEM-encoded.
func generateSelfSignedCert(params selfSignedCertParams) (certPEM, keyPEM []byte, err error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   params.CommonName,
			Organization: []string{"wmbusdecode"},
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().AddDate(0, 0, params.ValidDays),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	for _, san := range params.SANs {
		if ip := net.ParseIP(san); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, san)
		}
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: derBytes})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	return certPEM, keyPEM, nil
}
