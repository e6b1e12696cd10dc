package ldap

import (
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
)

// ConnectionConfig holds configuration for a single LDAP session.
type ConnectionConfig struct {
	// Connection settings
	URL     string        `default:"ldap://localhost:389"`        // Directory endpoint (ldap:// or ldaps://)
	Domain  string                                                // Domain for SRV discovery (overrides URL)
	BaseDN  string        `default:"dc=electronicpanopti,dc=com"` // Base DN for searches
	Timeout time.Duration                                         // Per-request timeout, zero keeps the library default

	// Authentication settings
	AuthMethod     AuthMethod                                                  // Bind mechanism
	BindDN         string     `default:"cn=admin,dc=electronicpanopti,dc=com"` // Bind identity (DN, or principal for Kerberos)
	Password       string                                                      // Simple bind credential
	KerberosRealm  string                                                      // Kerberos realm for GSSAPI authentication
	KerberosKeytab string                                                      // Path to Kerberos keytab file
	KerberosConfig string                                                      // Path to krb5.conf, empty for the system file or a generated one
	KerberosCCache string                                                      // Path to Kerberos credential cache
	KerberosSPN    string                                                      // Service principal override

	// TLS settings
	StartTLS           bool                     // Upgrade ldap:// connections with StartTLS
	InsecureSkipVerify bool                     // Skip server certificate verification
	TLSCACertFile      string                   // Path to PEM CA bundle
	TLSClientCertFile  string                   // Path to client certificate file
	TLSClientKeyFile   string                   // Path to client private key file
	TLSMinVersion      string `default:"tls12"` // Minimum TLS version (tls10..tls13)
	TLSMaxVersion      string                   // Maximum TLS version, empty for the library default
}

// DefaultConfig returns a configuration populated from the struct defaults.
func DefaultConfig() (*ConnectionConfig, error) {
	cfg := &ConnectionConfig{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply configuration defaults: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration before any network activity.
func (c *ConnectionConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: configuration cannot be nil", ErrInvalidConfig)
	}

	if c.URL == "" && c.Domain == "" {
		return fmt.Errorf("%w: either a URL or a domain must be set", ErrInvalidConfig)
	}

	if c.Domain == "" {
		if _, err := ParseLDAPURL(c.URL); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	if c.BaseDN != "" {
		if err := ValidateDNSyntax(c.BaseDN); err != nil {
			return fmt.Errorf("%w: base DN: %w", ErrInvalidConfig, err)
		}
	}

	if (c.TLSClientCertFile == "") != (c.TLSClientKeyFile == "") {
		return fmt.Errorf("%w: client certificate and key must be provided together", ErrInvalidConfig)
	}

	switch c.AuthMethod {
	case AuthMethodSimpleBind:
		if c.BindDN == "" {
			return fmt.Errorf("%w: bind DN is required for simple bind", ErrInvalidConfig)
		}
		if c.Password == "" {
			return fmt.Errorf("%w: password is required for simple bind", ErrInvalidConfig)
		}
	case AuthMethodKerberos:
		if _, _, err := kerberosPrincipal(c); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	case AuthMethodExternal:
		if c.TLSClientCertFile == "" {
			return fmt.Errorf("%w: external bind requires a client certificate", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown authentication method %d", ErrInvalidConfig, c.AuthMethod)
	}

	return nil
}

// ServerInfo contains information about an LDAP server.
type ServerInfo struct {
	Host     string
	Port     int
	UseTLS   bool
	Priority int
	Weight   int
	Source   string // "srv", "config", "fallback"
}

// SearchRequest encapsulates LDAP search parameters.
type SearchRequest struct {
	BaseDN       string
	Scope        SearchScope
	Filter       string
	Attributes   []string
	SizeLimit    int
	TimeLimit    time.Duration
	DerefAliases DerefAliases
}

// Entry is a normalized search result entry. Attribute order follows the
// server response; every attribute carries at least one value.
type Entry struct {
	DN         string
	Attributes []*Attribute
}

// Attribute is a named, ordered list of string values.
type Attribute struct {
	Name   string
	Values []string
}

// Get returns the values of the named attribute, matched case-insensitively.
func (e *Entry) Get(name string) []string {
	for _, attr := range e.Attributes {
		if strings.EqualFold(attr.Name, name) {
			return attr.Values
		}
	}
	return nil
}

// SearchScope defines LDAP search scope.
type SearchScope int

const (
	ScopeBaseObject SearchScope = iota
	ScopeSingleLevel
	ScopeWholeSubtree
)

// String returns the command-line token for the scope.
func (s SearchScope) String() string {
	switch s {
	case ScopeBaseObject:
		return "base"
	case ScopeSingleLevel:
		return "one"
	case ScopeWholeSubtree:
		return "sub"
	default:
		return "unknown"
	}
}

// DerefAliases defines alias dereferencing behavior.
type DerefAliases int

const (
	NeverDerefAliases DerefAliases = iota
	DerefInSearching
	DerefFindingBaseObj
	DerefAlways
)

// AuthMethod defines authentication method types.
type AuthMethod int

const (
	AuthMethodSimpleBind AuthMethod = iota // DN/password authentication
	AuthMethodKerberos                     // GSSAPI/Kerberos authentication
	AuthMethodExternal                     // SASL EXTERNAL with a TLS client certificate
)

// String returns string representation of authentication method.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodSimpleBind:
		return "simple"
	case AuthMethodKerberos:
		return "kerberos"
	case AuthMethodExternal:
		return "external"
	default:
		return "unknown"
	}
}

// ParseAuthMethod converts a method name into an AuthMethod.
func ParseAuthMethod(name string) (AuthMethod, error) {
	switch strings.ToLower(name) {
	case "simple":
		return AuthMethodSimpleBind, nil
	case "kerberos", "gssapi":
		return AuthMethodKerberos, nil
	case "external":
		return AuthMethodExternal, nil
	default:
		return 0, fmt.Errorf("%w: unknown authentication method %q (want simple, kerberos or external)", ErrInvalidConfig, name)
	}
}
