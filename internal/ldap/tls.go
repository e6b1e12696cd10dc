package ldap

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/hashicorp/go-secure-stdlib/tlsutil"
)

// NewTLSConfig builds the TLS configuration used for ldaps:// dialing and
// StartTLS upgrades.
func NewTLSConfig(cfg *ConnectionConfig, serverName string) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         serverName,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	if cfg.TLSMinVersion != "" {
		minVersion, ok := tlsutil.TLSLookup[cfg.TLSMinVersion]
		if !ok {
			return nil, fmt.Errorf("%w: invalid TLS minimum version %q", ErrInvalidConfig, cfg.TLSMinVersion)
		}
		tlsConfig.MinVersion = minVersion
	}

	if cfg.TLSMaxVersion != "" {
		maxVersion, ok := tlsutil.TLSLookup[cfg.TLSMaxVersion]
		if !ok {
			return nil, fmt.Errorf("%w: invalid TLS maximum version %q", ErrInvalidConfig, cfg.TLSMaxVersion)
		}
		if maxVersion < tlsConfig.MinVersion {
			return nil, fmt.Errorf("%w: TLS maximum version %q is below the minimum", ErrInvalidConfig, cfg.TLSMaxVersion)
		}
		tlsConfig.MaxVersion = maxVersion
	}

	if cfg.TLSCACertFile != "" {
		pemBytes, err := os.ReadFile(cfg.TLSCACertFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA certificate file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pemBytes) {
			return nil, fmt.Errorf("no certificates found in CA certificate file: %s", cfg.TLSCACertFile)
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.TLSClientCertFile != "" && cfg.TLSClientKeyFile != "" {
		certificate, err := tls.LoadX509KeyPair(cfg.TLSClientCertFile, cfg.TLSClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = append(tlsConfig.Certificates, certificate)
	}

	return tlsConfig, nil
}
