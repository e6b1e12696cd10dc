package cli

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"testing"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	ldapclient "github.com/isometry/ldap-client/internal/ldap"
)

// mockConn is a mock implementation of ldapclient.Conn.
type mockConn struct {
	mock.Mock
}

func (m *mockConn) StartTLS(config *tls.Config) error {
	return m.Called(config).Error(0)
}

func (m *mockConn) Bind(username, password string) error {
	return m.Called(username, password).Error(0)
}

func (m *mockConn) ExternalBind() error {
	return m.Called().Error(0)
}

func (m *mockConn) GSSAPIBind(client ldap.GSSAPIClient, servicePrincipal, authzid string) error {
	return m.Called(client, servicePrincipal, authzid).Error(0)
}

func (m *mockConn) Search(searchRequest *ldap.SearchRequest) (*ldap.SearchResult, error) {
	args := m.Called(searchRequest)
	if result := args.Get(0); result != nil {
		return result.(*ldap.SearchResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockConn) WhoAmI(controls []ldap.Control) (*ldap.WhoAmIResult, error) {
	args := m.Called(controls)
	if result := args.Get(0); result != nil {
		return result.(*ldap.WhoAmIResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockConn) SetTimeout(timeout time.Duration) {
	m.Called(timeout)
}

func (m *mockConn) Unbind() error {
	return m.Called().Error(0)
}

func (m *mockConn) Close() error {
	return m.Called().Error(0)
}

// harness runs the command tree against a mock connection.
type harness struct {
	conn   *mockConn
	env    map[string]string
	dialed []string
	dialFn func(url string) (ldapclient.Conn, error)
	prompt func(io.Writer) (string, error)
	opts   []ldapclient.SessionOption
}

func newHarness() *harness {
	h := &harness{
		conn: &mockConn{},
		env:  map[string]string{},
	}
	h.dialFn = func(string) (ldapclient.Conn, error) { return h.conn, nil }
	h.prompt = func(io.Writer) (string, error) { return "", nil }
	return h
}

// run executes the command line and returns stdout, stderr and the error.
func (h *harness) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	dialer := func(_ context.Context, url string, _ *tls.Config) (ldapclient.Conn, error) {
		h.dialed = append(h.dialed, url)
		return h.dialFn(url)
	}

	cmd, err := NewRootCommand("1.2.3",
		WithSessionOptions(ldapclient.WithDialer(dialer)),
		WithSessionOptions(h.opts...),
		WithLookupEnv(func(key string) (string, bool) {
			v, ok := h.env[key]
			return v, ok
		}),
		WithPasswordPrompt(h.prompt),
	)
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err = cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// expectSession sets up a successful simple bind and clean unbind.
func (h *harness) expectSession(bindDN, password string) {
	h.conn.On("Bind", bindDN, password).Return(nil)
	h.conn.On("Unbind").Return(nil)
	h.conn.On("Close").Return(nil)
}

const (
	defaultBindDN = "cn=admin,dc=electronicpanopti,dc=com"
	defaultBaseDN = "dc=electronicpanopti,dc=com"
)
