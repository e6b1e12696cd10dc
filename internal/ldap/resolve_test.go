package ldap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveScope(t *testing.T) {
	tests := []struct {
		token   string
		want    SearchScope
		wantErr bool
	}{
		{token: "base", want: ScopeBaseObject},
		{token: "one", want: ScopeSingleLevel},
		{token: "sub", want: ScopeWholeSubtree},
		{token: "SUB", wantErr: true},
		{token: "subtree", wantErr: true},
		{token: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ResolveScope(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidScope)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.token, got.String())
		})
	}
}

func TestResolveScope_ErrorMessage(t *testing.T) {
	_, err := ResolveScope("subtree")
	assert.EqualError(t, err, `invalid scope: "subtree" (want base, one or sub)`)
}

func TestResolveAttributes(t *testing.T) {
	ptr := func(s string) *string { return &s }

	tests := []struct {
		name string
		csv  *string
		want []string
	}{
		{name: "absent", csv: nil, want: []string{"*"}},
		{name: "empty", csv: ptr(""), want: []string{"*"}},
		{name: "only separators", csv: ptr(" , ,"), want: []string{"*"}},
		{name: "single", csv: ptr("cn"), want: []string{"cn"}},
		{name: "trimmed in order", csv: ptr("cn, mail ,sn"), want: []string{"cn", "mail", "sn"}},
		{name: "blank tokens skipped", csv: ptr("cn,,mail,"), want: []string{"cn", "mail"}},
		{name: "operational attributes", csv: ptr("*,+"), want: []string{"*", "+"}},
		{name: "case preserved", csv: ptr("givenName"), want: []string{"givenName"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveAttributes(tt.csv))
		})
	}
}
