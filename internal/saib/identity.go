package saib

import (
	"crypto/tls"
	"fmt"
	"os"

	"payroll-gateway/internal/config"
)

// identity is the scoped TLS client-identity resource for one bank call.
// The configured certificate and key are copied to ephemeral temp files for
// the duration of the call; Close removes the copies on every exit path so
// no key material outlives the request.
type identity struct {
	certificate tls.Certificate
	tempFiles   []string
}

func acquireIdentity(cfg *config.BankConfig) (*identity, error) {
	certPEM, err := os.ReadFile(cfg.CertPath)
	if err != nil {
		return nil, &config.ConfigError{Field: "bank.cert_path", Reason: err.Error()}
	}
	keyPEM, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, &config.ConfigError{Field: "bank.key_path", Reason: err.Error()}
	}

	id := &identity{}
	certTmp, err := id.writeTemp("saib-cert-*.pem", certPEM)
	if err != nil {
		id.Close()
		return nil, err
	}
	keyTmp, err := id.writeTemp("saib-key-*.pem", keyPEM)
	if err != nil {
		id.Close()
		return nil, err
	}

	cert, err := tls.LoadX509KeyPair(certTmp, keyTmp)
	if err != nil {
		id.Close()
		return nil, &TransportError{
			Kind: "ssl",
			Hint: "the client certificate and key do not form a valid pair",
			Err:  err,
		}
	}
	id.certificate = cert
	return id, nil
}

func (id *identity) writeTemp(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp credential file: %w", err)
	}
	id.tempFiles = append(id.tempFiles, f.Name())
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write temp credential file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp credential file: %w", err)
	}
	return f.Name(), nil
}

// TLSConfig builds the mutual-TLS client config for this identity.
func (id *identity) TLSConfig() *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{id.certificate},
		MinVersion:   tls.VersionTLS12,
	}
}

// Close removes the temp credential copies. Safe to call more than once.
func (id *identity) Close() {
	for _, path := range id.tempFiles {
		os.Remove(path)
	}
	id.tempFiles = nil
}
