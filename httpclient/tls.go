package httpclient

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TLSConfig holds transport TLS settings.
type TLSConfig struct {
	// SkipVerify disables server certificate verification.
	// Only meant for sandbox gateways with self-signed certificates.
	SkipVerify bool `yaml:"skip_verify" mapstructure:"skip_verify"`

	// CAFile is the path to the CA certificate file for verifying the server.
	CAFile string `yaml:"ca_file" mapstructure:"ca_file"`

	// CertFile is the path to the client TLS certificate file (for mTLS).
	CertFile string `yaml:"cert_file" mapstructure:"cert_file" validate:"required_with=KeyFile"`

	// KeyFile is the path to the client TLS key file (for mTLS).
	KeyFile string `yaml:"key_file" mapstructure:"key_file" validate:"required_with=CertFile"`

	// ServerName overrides the server name used for certificate verification.
	ServerName string `yaml:"server_name" mapstructure:"server_name"`

	// MinVersion is the minimum TLS version (e.g., tls.VersionTLS12).
	// Defaults to TLS 1.2 if not set.
	MinVersion uint16 `yaml:"min_version" mapstructure:"min_version"`
}

// Build creates a *tls.Config from the configuration.
// Returns nil if no TLS settings are configured.
func (c *TLSConfig) Build() (*tls.Config, error) {
	if !c.IsEnabled() {
		return nil, nil
	}

	minVersion := c.MinVersion
	if minVersion == 0 {
		minVersion = tls.VersionTLS12
	}

	cfg := &tls.Config{
		InsecureSkipVerify: c.SkipVerify, //nolint:gosec // opt-in for sandbox gateways
		ServerName:         c.ServerName,
		MinVersion:         minVersion,
	}

	if c.CAFile != "" {
		ca, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, fmt.Errorf("httpclient/tls: failed to read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(ca) {
			return nil, fmt.Errorf("httpclient/tls: failed to parse CA certificate")
		}
		cfg.RootCAs = pool
	}

	if c.CertFile != "" && c.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("httpclient/tls: failed to load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}

// IsEnabled returns true if any TLS setting is configured.
func (c *TLSConfig) IsEnabled() bool {
	if c == nil {
		return false
	}
	return c.SkipVerify || c.CAFile != "" || c.CertFile != "" || c.ServerName != "" || c.MinVersion != 0
}
