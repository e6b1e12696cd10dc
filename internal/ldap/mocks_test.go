package ldap

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/mock"
)

// MockConn is a mock implementation of Conn.
type MockConn struct {
	mock.Mock
}

func (m *MockConn) StartTLS(config *tls.Config) error {
	args := m.Called(config)
	return args.Error(0)
}

func (m *MockConn) Bind(username, password string) error {
	args := m.Called(username, password)
	return args.Error(0)
}

func (m *MockConn) ExternalBind() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockConn) GSSAPIBind(client ldap.GSSAPIClient, servicePrincipal, authzid string) error {
	args := m.Called(client, servicePrincipal, authzid)
	return args.Error(0)
}

func (m *MockConn) Search(searchRequest *ldap.SearchRequest) (*ldap.SearchResult, error) {
	args := m.Called(searchRequest)
	if result := args.Get(0); result != nil {
		return result.(*ldap.SearchResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockConn) WhoAmI(controls []ldap.Control) (*ldap.WhoAmIResult, error) {
	args := m.Called(controls)
	if result := args.Get(0); result != nil {
		return result.(*ldap.WhoAmIResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockConn) SetTimeout(timeout time.Duration) {
	m.Called(timeout)
}

func (m *MockConn) Unbind() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockConn) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockSession is a mock implementation of Session.
type MockSession struct {
	mock.Mock
}

func (m *MockSession) Search(ctx context.Context, req *SearchRequest) ([]*ldap.Entry, error) {
	args := m.Called(ctx, req)
	if entries := args.Get(0); entries != nil {
		return entries.([]*ldap.Entry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSession) WhoAmI(ctx context.Context) (*WhoAmIResult, error) {
	args := m.Called(ctx)
	if result := args.Get(0); result != nil {
		return result.(*WhoAmIResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSession) Server() *ServerInfo {
	args := m.Called()
	if server := args.Get(0); server != nil {
		return server.(*ServerInfo)
	}
	return nil
}

func (m *MockSession) Close() error {
	args := m.Called()
	return args.Error(0)
}

// dialerFor returns a Dialer that hands out conns by URL and records the
// URLs dialed.
func dialerFor(conns map[string]Conn, errs map[string]error, dialed *[]string) Dialer {
	return func(_ context.Context, url string, _ *tls.Config) (Conn, error) {
		if dialed != nil {
			*dialed = append(*dialed, url)
		}
		if err, ok := errs[url]; ok {
			return nil, err
		}
		if conn, ok := conns[url]; ok {
			return conn, nil
		}
		return nil, ldap.NewError(ldap.ErrorNetwork, context.DeadlineExceeded)
	}
}

// testConfig returns a valid simple-bind configuration.
func testConfig() *ConnectionConfig {
	cfg, err := DefaultConfig()
	if err != nil {
		panic(err)
	}
	cfg.URL = "ldap://ldap.example.com:389"
	cfg.Password = "secret"
	return cfg
}
