package ldap

import (
	"fmt"

	"github.com/bwmarrin/go-objectsid"
)

// minSIDLength is the size of a SID with no sub-authorities: revision,
// sub-authority count and the 6-byte identifier authority.
const minSIDLength = 8

// decodeObjectSID converts a binary SID to its S-1-5-21-... string form.
func decodeObjectSID(raw []byte) (string, error) {
	if len(raw) < minSIDLength {
		return "", fmt.Errorf("binary SID too short: %d bytes", len(raw))
	}

	if subAuthorities := int(raw[1]); len(raw) != minSIDLength+4*subAuthorities {
		return "", fmt.Errorf("binary SID length %d does not match %d sub-authorities", len(raw), subAuthorities)
	}

	return objectsid.Decode(raw).String(), nil
}
