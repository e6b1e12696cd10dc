package ldap

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldap/v3/gssapi"
	krb5client "github.com/jcmturner/gokrb5/v8/client"
	"github.com/rs/zerolog"
)

// performKerberosAuth performs a GSSAPI bind on an established connection.
func performKerberosAuth(ctx context.Context, conn Conn, cfg *ConnectionConfig, serverInfo *ServerInfo) error {
	gssapiClient, err := createGSSAPIClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create GSSAPI client: %w", err)
	}
	defer func() {
		_ = gssapiClient.DeleteSecContext()
	}()

	spn, err := buildServicePrincipal(cfg, serverInfo)
	if err != nil {
		return fmt.Errorf("failed to build service principal: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("spn", spn).Msg("Performing GSSAPI bind")

	return conn.GSSAPIBind(gssapiClient, spn, "")
}

// createGSSAPIClient creates a GSSAPI client based on the configuration.
// Priority order: credential cache → keytab → password.
func createGSSAPIClient(ctx context.Context, cfg *ConnectionConfig) (ldap.GSSAPIClient, error) {
	log := zerolog.Ctx(ctx)

	krb5confPath, cleanup, err := resolveKrb5Conf(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// The configuration is parsed when the client is created.
	defer cleanup()

	if cfg.KerberosCCache != "" && fileExists(cfg.KerberosCCache) {
		log.Debug().Str("ccache", cfg.KerberosCCache).Msg("Using configured credential cache")
		return gssapi.NewClientFromCCache(cfg.KerberosCCache, krb5confPath, krb5client.DisablePAFXFAST(true))
	}

	if defaultCCache := getDefaultCCachePath(); fileExists(defaultCCache) {
		log.Debug().Str("ccache", defaultCCache).Msg("Using default credential cache")
		return gssapi.NewClientFromCCache(defaultCCache, krb5confPath, krb5client.DisablePAFXFAST(true))
	}

	username, realm, err := kerberosPrincipal(cfg)
	if err != nil {
		return nil, err
	}
	if username == "" {
		return nil, fmt.Errorf("no credential cache found and no principal configured")
	}

	if cfg.KerberosKeytab != "" && fileExists(cfg.KerberosKeytab) {
		log.Debug().Str("keytab", cfg.KerberosKeytab).Str("principal", username).Msg("Using configured keytab")
		return gssapi.NewClientWithKeytab(username, realm, cfg.KerberosKeytab, krb5confPath, krb5client.DisablePAFXFAST(true))
	}

	if defaultKeytab := getDefaultKeytabPath(); fileExists(defaultKeytab) {
		log.Debug().Str("keytab", defaultKeytab).Str("principal", username).Msg("Using default keytab")
		return gssapi.NewClientWithKeytab(username, realm, defaultKeytab, krb5confPath, krb5client.DisablePAFXFAST(true))
	}

	if cfg.Password != "" {
		return gssapi.NewClientWithPassword(username, realm, cfg.Password, krb5confPath, krb5client.DisablePAFXFAST(true))
	}

	return nil, fmt.Errorf("no suitable credentials found for Kerberos authentication")
}

// kerberosPrincipal splits the configured bind identity into a Kerberos
// username and realm. A bind identity that looks like a DN is ignored, leaving
// the credential cache as the only source. An empty username is returned
// without error in that case.
func kerberosPrincipal(cfg *ConnectionConfig) (string, string, error) {
	username := cfg.BindDN
	if strings.Contains(username, "=") {
		username = ""
	}

	realm := cfg.KerberosRealm
	if user, userRealm, ok := strings.Cut(username, "@"); ok {
		username = user
		if realm == "" {
			realm = userRealm
		}
	}

	if username != "" && realm == "" {
		return "", "", fmt.Errorf("kerberos realm is required (set --realm or use a user@REALM principal)")
	}

	return username, strings.ToUpper(realm), nil
}

// buildServicePrincipal constructs the LDAP service principal name from server info.
// If cfg.KerberosSPN is set, it overrides the automatic SPN construction.
func buildServicePrincipal(cfg *ConnectionConfig, serverInfo *ServerInfo) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("configuration is required for service principal")
	}

	if cfg.KerberosSPN != "" {
		return cfg.KerberosSPN, nil
	}

	if serverInfo == nil || serverInfo.Host == "" {
		return "", fmt.Errorf("hostname is required for service principal")
	}

	return "ldap/" + serverInfo.Host, nil
}

// getDefaultCCachePath returns the default credential cache location.
func getDefaultCCachePath() string {
	if ccache := os.Getenv("KRB5CCNAME"); ccache != "" {
		return strings.TrimPrefix(ccache, "FILE:")
	}
	return fmt.Sprintf("/tmp/krb5cc_%d", os.Getuid())
}

// getDefaultKeytabPath returns the default keytab location.
func getDefaultKeytabPath() string {
	if keytab := os.Getenv("KRB5_KTNAME"); keytab != "" {
		return strings.TrimPrefix(keytab, "FILE:")
	}
	return "/etc/krb5.keytab"
}

// fileExists checks if a file exists and is readable.
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = file.Close()
	return true
}
