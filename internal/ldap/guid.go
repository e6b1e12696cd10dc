package ldap

import (
	"fmt"

	"github.com/google/uuid"
)

// GUIDBytesLength is the size of a binary GUID.
const GUIDBytesLength = 16

// decodeObjectGUID converts an Active Directory GUID to its canonical string.
// Active Directory stores the first three fields little-endian.
func decodeObjectGUID(raw []byte) (string, error) {
	if len(raw) != GUIDBytesLength {
		return "", fmt.Errorf("invalid GUID byte length: expected %d, got %d", GUIDBytesLength, len(raw))
	}

	standard := make([]byte, GUIDBytesLength)

	// Data1
	standard[0], standard[1], standard[2], standard[3] = raw[3], raw[2], raw[1], raw[0]
	// Data2
	standard[4], standard[5] = raw[5], raw[4]
	// Data3
	standard[6], standard[7] = raw[7], raw[6]
	// Data4
	copy(standard[8:], raw[8:])

	id, err := uuid.FromBytes(standard)
	if err != nil {
		return "", fmt.Errorf("invalid GUID: %w", err)
	}
	return id.String(), nil
}
