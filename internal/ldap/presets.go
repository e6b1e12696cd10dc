package ldap

// MatchAllFilter matches every entry.
const MatchAllFilter = "(objectClass=*)"

// Preset is a canned search: a filter, attribute list and scope applied
// below the configured base DN.
type Preset struct {
	Name        string
	Description string
	Filter      string
	Attributes  []string
	Scope       SearchScope
}

var (
	// UsersPreset lists person entries.
	UsersPreset = Preset{
		Name:        "users",
		Description: "List all users",
		Filter:      "(objectClass=inetOrgPerson)",
		Attributes:  []string{"cn", "sn", "givenName", "mail", "uid"},
		Scope:       ScopeWholeSubtree,
	}

	// GroupsPreset lists static groups with their members.
	GroupsPreset = Preset{
		Name:        "groups",
		Description: "List all groups",
		Filter:      "(objectClass=groupOfNames)",
		Attributes:  []string{"cn", "description", "member"},
		Scope:       ScopeWholeSubtree,
	}

	// TestPreset reads the base entry itself.
	TestPreset = Preset{
		Name:        "test",
		Description: "Test connection to the LDAP server",
		Filter:      MatchAllFilter,
		Attributes:  []string{AllAttributes},
		Scope:       ScopeBaseObject,
	}
)

// Request builds a search request for the preset below baseDN.
func (p Preset) Request(baseDN string) *SearchRequest {
	return &SearchRequest{
		BaseDN:     baseDN,
		Scope:      p.Scope,
		Filter:     p.Filter,
		Attributes: append([]string(nil), p.Attributes...),
	}
}
