package ldap

import (
	"fmt"

	"github.com/go-ldap/ldap/v3"
)

// ValidateDNSyntax reports whether dn parses as an RFC 4514 distinguished name.
func ValidateDNSyntax(dn string) error {
	if dn == "" {
		return fmt.Errorf("DN cannot be empty")
	}

	if _, err := ldap.ParseDN(dn); err != nil {
		return fmt.Errorf("invalid DN syntax: %w", err)
	}

	return nil
}
