package ldap

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// defaultKrb5ConfPath is used when no krb5.conf is configured.
var defaultKrb5ConfPath = "/etc/krb5.conf"

// resolveKrb5Conf returns the krb5.conf path to load. An explicit path must
// exist. Without one the system file is used, and when that is missing too a
// minimal configuration relying on DNS KDC discovery is written to a
// temporary file. cleanup removes any generated file.
func resolveKrb5Conf(ctx context.Context, cfg *ConnectionConfig) (path string, cleanup func(), err error) {
	cleanup = func() {}

	if cfg.KerberosConfig != "" {
		if !fileExists(cfg.KerberosConfig) {
			return "", cleanup, fmt.Errorf("kerberos configuration file not found at %s; "+
				"create it or point --krb5-conf at a valid krb5.conf", cfg.KerberosConfig)
		}
		return cfg.KerberosConfig, cleanup, nil
	}

	if fileExists(defaultKrb5ConfPath) {
		return defaultKrb5ConfPath, cleanup, nil
	}

	realm, domain := discoveryRealm(cfg)
	if realm == "" {
		return "", cleanup, fmt.Errorf("kerberos configuration file not found at %s and no realm "+
			"to generate one from; set --realm or --domain", defaultKrb5ConfPath)
	}

	zerolog.Ctx(ctx).Debug().
		Str("realm", realm).
		Str("domain", domain).
		Msg("Generating runtime krb5.conf")

	f, err := os.CreateTemp("", "ldap-client-krb5-*.conf")
	if err != nil {
		return "", cleanup, fmt.Errorf("failed to create runtime krb5.conf: %w", err)
	}
	cleanup = func() { _ = os.Remove(f.Name()) }

	if _, err := f.WriteString(runtimeKrb5Conf(realm, domain)); err != nil {
		_ = f.Close()
		cleanup()
		return "", func() {}, fmt.Errorf("failed to write runtime krb5.conf: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("failed to write runtime krb5.conf: %w", err)
	}

	return f.Name(), cleanup, nil
}

// discoveryRealm derives the realm and DNS domain for a generated krb5.conf.
// The realm comes from --realm, the principal, or the SRV discovery domain.
func discoveryRealm(cfg *ConnectionConfig) (realm, domain string) {
	_, realm, err := kerberosPrincipal(cfg)
	if err != nil {
		realm = ""
	}
	if realm == "" && cfg.Domain != "" {
		realm = strings.ToUpper(cfg.Domain)
	}
	if realm == "" {
		return "", ""
	}

	domain = strings.ToLower(realm)
	if cfg.Domain != "" {
		domain = strings.ToLower(cfg.Domain)
	}
	return realm, domain
}

// runtimeKrb5Conf renders a krb5.conf that locates KDCs through DNS SRV records.
func runtimeKrb5Conf(realm, domain string) string {
	return fmt.Sprintf(`[libdefaults]
    default_realm = %[1]s
    dns_lookup_kdc = true
    dns_lookup_realm = false
    rdns = false
    forwardable = true
    ticket_lifetime = 24h
    renew_lifetime = 7d

[realms]
    %[1]s = {
    }

[domain_realm]
    .%[2]s = %[1]s
    %[2]s = %[1]s
`, realm, domain)
}
