package ldap

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog"
)

// binaryDecoders render well-known binary attributes as strings.
var binaryDecoders = map[string]func([]byte) (string, error){
	"objectsid":  decodeObjectSID,
	"objectguid": decodeObjectGUID,
}

// Search runs req on s and returns the normalized entries in server order.
// An empty result is an empty slice, not an error.
func Search(ctx context.Context, s Session, req *SearchRequest) ([]*Entry, error) {
	if req == nil {
		return nil, NewLDAPError(ErrSearchFailed, "search", fmt.Errorf("search request cannot be nil"))
	}

	fields := map[string]any{
		"base_dn":    req.BaseDN,
		"scope":      req.Scope.String(),
		"filter":     req.Filter,
		"attributes": req.Attributes,
		"size_limit": req.SizeLimit,
		"time_limit": req.TimeLimit.String(),
	}

	var raw []*ldap.Entry
	err := LogOperation(ctx, "search", fields, func() error {
		var searchErr error
		raw, searchErr = s.Search(ctx, req)
		return searchErr
	})
	if err != nil {
		return nil, err
	}

	entries := make([]*Entry, 0, len(raw))
	for _, e := range raw {
		if e == nil {
			continue
		}
		entries = append(entries, NormalizeEntry(e))
	}

	zerolog.Ctx(ctx).Debug().Int("entries_found", len(entries)).Msg("Search completed")
	return entries, nil
}

// NormalizeEntry converts a go-ldap entry into an Entry. Attributes without
// values are dropped and repeated attribute names are merged.
func NormalizeEntry(e *ldap.Entry) *Entry {
	entry := &Entry{DN: e.DN}
	index := make(map[string]*Attribute, len(e.Attributes))

	for _, attr := range e.Attributes {
		if attr == nil {
			continue
		}
		values := attributeValues(attr)
		if len(values) == 0 {
			continue
		}

		if existing, ok := index[attr.Name]; ok {
			existing.Values = append(existing.Values, values...)
			continue
		}

		a := &Attribute{Name: attr.Name, Values: values}
		index[attr.Name] = a
		entry.Attributes = append(entry.Attributes, a)
	}

	return entry
}

// attributeValues renders the raw values of attr as strings. Valid UTF-8 is
// kept verbatim; known binary attributes are decoded and anything else is
// base64 encoded.
func attributeValues(attr *ldap.EntryAttribute) []string {
	raw := attr.ByteValues
	if len(raw) == 0 {
		for _, v := range attr.Values {
			raw = append(raw, []byte(v))
		}
	}

	decode := binaryDecoders[strings.ToLower(attr.Name)]

	values := make([]string, 0, len(raw))
	for _, b := range raw {
		if decode != nil {
			if s, err := decode(b); err == nil {
				values = append(values, s)
				continue
			}
		}
		if utf8.Valid(b) {
			values = append(values, string(b))
			continue
		}
		values = append(values, base64.StdEncoding.EncodeToString(b))
	}
	return values
}
