package ldap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/go-multierror"
)

// Conn is the subset of *ldap.Conn used by a session.
type Conn interface {
	StartTLS(config *tls.Config) error
	Bind(username, password string) error
	ExternalBind() error
	GSSAPIBind(client ldap.GSSAPIClient, servicePrincipal, authzid string) error
	Search(searchRequest *ldap.SearchRequest) (*ldap.SearchResult, error)
	WhoAmI(controls []ldap.Control) (*ldap.WhoAmIResult, error)
	SetTimeout(timeout time.Duration)
	Unbind() error
	Close() error
}

var _ Conn = &ldap.Conn{}

// Dialer opens a transport connection to a single LDAP URL. tlsConfig is
// used for ldaps:// URLs.
type Dialer func(ctx context.Context, url string, tlsConfig *tls.Config) (Conn, error)

// Session is an authenticated connection to a directory server.
type Session interface {
	// Search performs a single search request and returns the raw entries.
	Search(ctx context.Context, req *SearchRequest) ([]*ldap.Entry, error)

	// WhoAmI performs the "Who am I?" extended operation (RFC 4532).
	WhoAmI(ctx context.Context) (*WhoAmIResult, error)

	// Server describes the endpoint the session is connected to.
	Server() *ServerInfo

	// Close unbinds and releases the connection. It is safe to call more than once.
	Close() error
}

// WhoAmIResult holds the authorization identity reported by the server.
type WhoAmIResult struct {
	AuthzID string // Raw authorization ID, e.g. "dn:cn=admin,dc=example,dc=com"
	Format  string // "dn", "upn", "empty" or "unknown"
	DN      string
	UPN     string
}

// SessionOption configures Open.
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	dialer    Dialer
	discovery *SRVDiscovery
}

// WithDialer replaces the network dialer.
func WithDialer(d Dialer) SessionOption {
	return func(o *sessionOptions) {
		o.dialer = d
	}
}

// WithDiscovery replaces the SRV discovery used when a domain is configured.
func WithDiscovery(d *SRVDiscovery) SessionOption {
	return func(o *sessionOptions) {
		o.discovery = d
	}
}

// session implements Session over a single connection.
type session struct {
	conn   Conn
	server *ServerInfo
	closed bool
}

// Open connects to the configured directory and binds. On bind failure the
// connection is closed before returning.
func Open(ctx context.Context, cfg *ConnectionConfig, opts ...SessionOption) (Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &sessionOptions{dialer: dialURL}
	for _, opt := range opts {
		opt(o)
	}

	candidates, err := resolveCandidates(ctx, cfg, o)
	if err != nil {
		return nil, NewLDAPError(ErrConnectFailed, "connect", err)
	}

	conn, server, err := connect(ctx, cfg, o.dialer, candidates)
	if err != nil {
		return nil, NewLDAPError(ErrConnectFailed, "connect", err)
	}

	if cfg.Timeout > 0 {
		conn.SetTimeout(cfg.Timeout)
	}

	if err := authenticate(ctx, conn, cfg, server); err != nil {
		_ = conn.Close()
		return nil, NewLDAPError(ErrBindFailed, "bind", err)
	}

	return &session{
		conn:   conn,
		server: server,
	}, nil
}

// WithSession opens a session, runs fn and always closes the session. The
// returned error joins fn's error with any close error.
func WithSession(ctx context.Context, cfg *ConnectionConfig, fn func(Session) error, opts ...SessionOption) (err error) {
	s, err := Open(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	return fn(s)
}

// resolveCandidates lists the endpoints to try, in order.
func resolveCandidates(ctx context.Context, cfg *ConnectionConfig, o *sessionOptions) ([]*ServerInfo, error) {
	if cfg.Domain == "" {
		server, err := ParseLDAPURL(cfg.URL)
		if err != nil {
			return nil, err
		}
		return []*ServerInfo{server}, nil
	}

	discovery := o.discovery
	if discovery == nil {
		discovery = NewSRVDiscovery(nil)
	}
	return discovery.DiscoverServers(ctx, cfg.Domain)
}

// connect dials each candidate in order and returns the first connection
// established.
func connect(ctx context.Context, cfg *ConnectionConfig, dial Dialer, candidates []*ServerInfo) (Conn, *ServerInfo, error) {
	var result *multierror.Error

	for _, server := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		conn, err := connectServer(ctx, cfg, dial, server)
		if err == nil {
			return conn, server, nil
		}

		if len(candidates) == 1 {
			return nil, nil, err
		}
		result = multierror.Append(result, fmt.Errorf("%s: %w", ServerInfoToURL(server), err))
	}

	if result == nil {
		return nil, nil, fmt.Errorf("no LDAP servers available")
	}
	return nil, nil, result
}

// connectServer establishes one connection, upgrading with StartTLS when
// configured.
func connectServer(ctx context.Context, cfg *ConnectionConfig, dial Dialer, server *ServerInfo) (Conn, error) {
	url := ServerInfoToURL(server)
	fields := map[string]any{
		"url":    url,
		"source": server.Source,
	}
	LogConnectionEvent(ctx, "connection_attempt", fields)

	tlsConfig, err := NewTLSConfig(cfg, server.Host)
	if err != nil {
		return nil, err
	}

	var conn Conn
	err = LogOperation(ctx, "connect", fields, func() error {
		var dialErr error
		conn, dialErr = dial(ctx, url, tlsConfig)
		if dialErr != nil {
			return dialErr
		}

		if !server.UseTLS && cfg.StartTLS {
			if tlsErr := conn.StartTLS(tlsConfig); tlsErr != nil {
				_ = conn.Close()
				conn = nil
				return fmt.Errorf("StartTLS failed: %w", tlsErr)
			}
		}
		return nil
	})
	if err != nil {
		LogConnectionEvent(ctx, "connection_failed", map[string]any{"url": url, "error": err.Error()})
		return nil, err
	}

	LogConnectionEvent(ctx, "connection_established", fields)
	return conn, nil
}

// dialURL is the default Dialer.
func dialURL(_ context.Context, url string, tlsConfig *tls.Config) (Conn, error) {
	opts := []ldap.DialOpt{
		ldap.DialWithDialer(&net.Dialer{Timeout: ldap.DefaultTimeout}),
	}
	if tlsConfig != nil {
		opts = append(opts, ldap.DialWithTLSConfig(tlsConfig))
	}

	conn, err := ldap.DialURL(url, opts...)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// authenticate binds with the configured method.
func authenticate(ctx context.Context, conn Conn, cfg *ConnectionConfig, server *ServerInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fields := map[string]any{
		"auth_method": cfg.AuthMethod.String(),
		"bind_dn":     cfg.BindDN,
	}

	err := LogOperation(ctx, "bind", fields, func() error {
		switch cfg.AuthMethod {
		case AuthMethodSimpleBind:
			return conn.Bind(cfg.BindDN, cfg.Password)
		case AuthMethodKerberos:
			return performKerberosAuth(ctx, conn, cfg, server)
		case AuthMethodExternal:
			return conn.ExternalBind()
		default:
			return fmt.Errorf("unsupported authentication method: %s", cfg.AuthMethod)
		}
	})
	if err != nil {
		LogConnectionEvent(ctx, "authentication_failed", fields)
		return err
	}

	LogConnectionEvent(ctx, "authentication_success", fields)
	return nil
}

func (s *session) Server() *ServerInfo {
	return s.server
}

// Search sends a single search request. Both transport failures and
// non-success result codes are returned as ErrSearchFailed.
func (s *session) Search(ctx context.Context, req *SearchRequest) ([]*ldap.Entry, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if req == nil {
		return nil, NewLDAPError(ErrSearchFailed, "search", fmt.Errorf("search request cannot be nil"))
	}
	if err := ctx.Err(); err != nil {
		return nil, NewLDAPError(ErrSearchFailed, "search", err)
	}

	ldapReq := ldap.NewSearchRequest(
		req.BaseDN,
		int(req.Scope),
		int(req.DerefAliases),
		req.SizeLimit,
		int(req.TimeLimit.Seconds()),
		false, // TypesOnly
		req.Filter,
		req.Attributes,
		nil, // Controls
	)

	result, err := s.conn.Search(ldapReq)
	if err != nil {
		LogLDAPError(ctx, "search", err, map[string]any{
			"base_dn": req.BaseDN,
			"filter":  req.Filter,
		})
		return nil, NewLDAPError(ErrSearchFailed, "search", err)
	}
	if result == nil {
		return []*ldap.Entry{}, nil
	}

	return result.Entries, nil
}

// WhoAmI performs the LDAP Who Am I? extended operation.
func (s *session) WhoAmI(ctx context.Context) (*WhoAmIResult, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := s.conn.WhoAmI(nil)
	if err != nil {
		return nil, NewLDAPError(nil, "whoami", err)
	}
	if result == nil {
		return nil, fmt.Errorf("WhoAmI operation returned nil result")
	}

	return parseAuthzID(result.AuthzID), nil
}

// Close unbinds and releases the connection.
func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	// Unbind closes the underlying connection as well; Close is idempotent.
	err := s.conn.Unbind()
	_ = s.conn.Close()
	if err != nil {
		return NewLDAPError(ErrUnbindFailed, "unbind", err)
	}
	return nil
}

// parseAuthzID classifies an RFC 4513 authorization identity.
func parseAuthzID(authzID string) *WhoAmIResult {
	result := &WhoAmIResult{AuthzID: authzID}

	switch {
	case authzID == "":
		result.Format = "empty"
	case strings.HasPrefix(authzID, "dn:"):
		result.Format = "dn"
		result.DN = strings.TrimPrefix(authzID, "dn:")
	case strings.HasPrefix(authzID, "u:"):
		id := strings.TrimPrefix(authzID, "u:")
		if strings.Contains(id, "@") {
			result.Format = "upn"
			result.UPN = id
		} else {
			result.Format = "unknown"
		}
	default:
		result.Format = "unknown"
	}

	return result
}
