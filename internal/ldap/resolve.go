package ldap

import (
	"fmt"
	"strings"
)

// AllAttributes requests every user attribute.
const AllAttributes = "*"

// ResolveScope maps a scope token to a SearchScope. Tokens are case-sensitive.
func ResolveScope(token string) (SearchScope, error) {
	switch token {
	case "base":
		return ScopeBaseObject, nil
	case "one":
		return ScopeSingleLevel, nil
	case "sub":
		return ScopeWholeSubtree, nil
	default:
		return 0, fmt.Errorf("%w: %q (want base, one or sub)", ErrInvalidScope, token)
	}
}

// ResolveAttributes turns an optional comma-separated list into attribute
// names. A nil or blank list selects all attributes. Names are trimmed and
// passed through in order; blank tokens are skipped.
func ResolveAttributes(csv *string) []string {
	if csv == nil {
		return []string{AllAttributes}
	}

	parts := strings.Split(*csv, ",")
	attrs := make([]string, 0, len(parts))
	for _, part := range parts {
		if name := strings.TrimSpace(part); name != "" {
			attrs = append(attrs, name)
		}
	}
	if len(attrs) == 0 {
		return []string{AllAttributes}
	}
	return attrs
}
