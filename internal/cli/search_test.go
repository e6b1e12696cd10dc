package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	ldapclient "github.com/isometry/ldap-client/internal/ldap"
	"github.com/isometry/ldap-client/internal/output"
)

func aliceEntry() *ldap.Entry {
	return &ldap.Entry{
		DN: "uid=alice,ou=people,dc=electronicpanopti,dc=com",
		Attributes: []*ldap.EntryAttribute{
			{Name: "cn", Values: []string{"Alice"}},
			{Name: "mail", Values: []string{"alice@example.com", "a@example.com"}},
		},
	}
}

func TestSearchCommand_Table(t *testing.T) {
	h := newHarness()
	h.expectSession(defaultBindDN, "secret")
	h.conn.On("Search", mock.MatchedBy(func(req *ldap.SearchRequest) bool {
		return req.BaseDN == defaultBaseDN &&
			req.Scope == ldap.ScopeWholeSubtree &&
			req.Filter == "(cn=alice)" &&
			assert.ObjectsAreEqual([]string{"cn", "mail"}, req.Attributes)
	})).Return(&ldap.SearchResult{Entries: []*ldap.Entry{aliceEntry()}}, nil)

	stdout, _, err := h.run(t, "search", "-p", "secret", "-f", "(cn=alice)", "-a", "cn, mail")
	require.NoError(t, err)

	want := strings.Join([]string{
		connectedMessage,
		"Searching with filter: (cn=alice)",
		"Base DN: " + defaultBaseDN,
		"Scope: sub",
		`Attributes: ["cn", "mail"]`,
		"",
		"Found 1 entries:",
		strings.Repeat("=", 80),
		"Entry #1: uid=alice,ou=people,dc=electronicpanopti,dc=com",
		strings.Repeat("-", 40),
		"  cn: Alice",
		"  mail:",
		"    - alice@example.com",
		"    - a@example.com",
		"",
		"",
	}, "\n")
	assert.Equal(t, want, stdout)
	assert.Equal(t, []string{"ldap://localhost:389"}, h.dialed)
	h.conn.AssertExpectations(t)
}

func TestSearchCommand_JSON(t *testing.T) {
	h := newHarness()
	h.expectSession(defaultBindDN, "secret")
	h.conn.On("Search", mock.MatchedBy(func(req *ldap.SearchRequest) bool {
		return req.Scope == ldap.ScopeSingleLevel &&
			req.Filter == ldapclient.MatchAllFilter &&
			assert.ObjectsAreEqual([]string{"*"}, req.Attributes)
	})).Return(&ldap.SearchResult{Entries: []*ldap.Entry{aliceEntry()}}, nil)

	stdout, _, err := h.run(t, "search", "-p", "secret", "-s", "one", "-o", "json")
	require.NoError(t, err)

	assert.Contains(t, stdout, `Attributes: ["*"]`)
	assert.Contains(t, stdout, `"dn": "uid=alice,ou=people,dc=electronicpanopti,dc=com"`)
	assert.Contains(t, stdout, `"mail": [`)
}

func TestSearchCommand_NoEntries(t *testing.T) {
	for _, mode := range []string{"table", "json"} {
		t.Run(mode, func(t *testing.T) {
			h := newHarness()
			h.expectSession(defaultBindDN, "secret")
			h.conn.On("Search", mock.Anything).Return(&ldap.SearchResult{}, nil)

			stdout, _, err := h.run(t, "search", "-p", "secret", "-o", mode)
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(stdout, "\nNo entries found.\n"), stdout)
		})
	}
}

func TestSearchCommand_InvalidArgumentsFailBeforeConnecting(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{
			name:    "scope",
			args:    []string{"search", "-p", "secret", "-s", "subtree"},
			wantErr: ldapclient.ErrInvalidScope,
		},
		{
			name:    "output",
			args:    []string{"search", "-p", "secret", "-o", "yaml"},
			wantErr: output.ErrInvalidOutputMode,
		},
		{
			name:    "preset output",
			args:    []string{"users", "-p", "secret", "-o", "xml"},
			wantErr: output.ErrInvalidOutputMode,
		},
		{
			name:    "auth method",
			args:    []string{"search", "-p", "secret", "--auth", "ntlm"},
			wantErr: ldapclient.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()

			_, _, err := h.run(t, tt.args...)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, h.dialed)
		})
	}
}

func TestSearchCommand_SearchFailure(t *testing.T) {
	h := newHarness()
	h.expectSession(defaultBindDN, "secret")
	h.conn.On("Search", mock.Anything).
		Return(nil, ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("no such object")))

	_, stderr, err := h.run(t, "search", "-p", "secret", "--base-dn", "ou=missing,dc=electronicpanopti,dc=com")
	require.Error(t, err)
	assert.ErrorIs(t, err, ldapclient.ErrSearchFailed)
	assert.Contains(t, stderr, "Error: LDAP search failed")

	// The session is still unbound after a failed search.
	h.conn.AssertCalled(t, "Unbind")
}

func TestSearchCommand_BindFailure(t *testing.T) {
	h := newHarness()
	h.conn.On("Bind", defaultBindDN, "wrong").
		Return(ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("invalid credentials")))
	h.conn.On("Close").Return(nil)

	stdout, stderr, err := h.run(t, "search", "-p", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, ldapclient.ErrBindFailed)
	assert.Contains(t, stderr, "failed to bind to LDAP server")
	assert.NotContains(t, stdout, connectedMessage)
	h.conn.AssertNotCalled(t, "Search", mock.Anything)
}

func TestSearchCommand_ConnectFailure(t *testing.T) {
	h := newHarness()
	h.dialFn = func(string) (ldapclient.Conn, error) {
		return nil, ldap.NewError(ldap.ErrorNetwork, errors.New("dial tcp 127.0.0.1:389: connect: connection refused"))
	}

	_, _, err := h.run(t, "search", "-p", "secret")
	require.Error(t, err)
	assert.ErrorIs(t, err, ldapclient.ErrConnectFailed)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSearchCommand_UnbindFailure(t *testing.T) {
	h := newHarness()
	h.conn.On("Bind", defaultBindDN, "secret").Return(nil)
	h.conn.On("Search", mock.Anything).Return(&ldap.SearchResult{}, nil)
	h.conn.On("Unbind").Return(errors.New("broken pipe"))
	h.conn.On("Close").Return(nil)

	stdout, _, err := h.run(t, "search", "-p", "secret")
	assert.ErrorIs(t, err, ldapclient.ErrUnbindFailed)
	assert.Contains(t, stdout, "No entries found.")
}

func TestSearchCommand_Limits(t *testing.T) {
	h := newHarness()
	h.expectSession(defaultBindDN, "secret")
	h.conn.On("Search", mock.MatchedBy(func(req *ldap.SearchRequest) bool {
		return req.SizeLimit == 5 && req.TimeLimit == 10
	})).Return(&ldap.SearchResult{}, nil)

	_, _, err := h.run(t, "search", "-p", "secret", "--size-limit", "5", "--time-limit", "10s")
	require.NoError(t, err)
	h.conn.AssertExpectations(t)
}

func TestPresetCommands(t *testing.T) {
	tests := []struct {
		command string
		filter  string
		attrs   []string
		header  string
	}{
		{
			command: "users",
			filter:  "(objectClass=inetOrgPerson)",
			attrs:   []string{"cn", "sn", "givenName", "mail", "uid"},
			header:  `Attributes: ["cn", "sn", "givenName", "mail", "uid"]`,
		},
		{
			command: "groups",
			filter:  "(objectClass=groupOfNames)",
			attrs:   []string{"cn", "description", "member"},
			header:  `Attributes: ["cn", "description", "member"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			h := newHarness()
			h.expectSession(defaultBindDN, "secret")
			h.conn.On("Search", mock.MatchedBy(func(req *ldap.SearchRequest) bool {
				return req.BaseDN == defaultBaseDN &&
					req.Scope == ldap.ScopeWholeSubtree &&
					req.Filter == tt.filter &&
					assert.ObjectsAreEqual(tt.attrs, req.Attributes)
			})).Return(&ldap.SearchResult{}, nil)

			stdout, _, err := h.run(t, tt.command, "-p", "secret")
			require.NoError(t, err)
			assert.Contains(t, stdout, "Searching with filter: "+tt.filter)
			assert.Contains(t, stdout, "Scope: sub")
			assert.Contains(t, stdout, tt.header)
			h.conn.AssertExpectations(t)
		})
	}
}

func TestFormatAttributeList(t *testing.T) {
	assert.Equal(t, `["*"]`, formatAttributeList([]string{"*"}))
	assert.Equal(t, `["cn", "sn"]`, formatAttributeList([]string{"cn", "sn"}))
	assert.Equal(t, `[]`, formatAttributeList(nil))
}
