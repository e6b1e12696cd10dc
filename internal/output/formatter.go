// Package output renders search results as JSON or as a plain-text table.
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	ldapclient "github.com/isometry/ldap-client/internal/ldap"
)

// Mode selects the rendering format.
type Mode string

const (
	ModeJSON  Mode = "json"
	ModeTable Mode = "table"
)

// ErrInvalidOutputMode is returned for an unknown output format.
var ErrInvalidOutputMode = errors.New("invalid output format")

// ParseMode validates an output format name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeJSON, ModeTable:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q (want json or table)", ErrInvalidOutputMode, s)
	}
}

// Render writes entries to w in the given mode.
func Render(w io.Writer, entries []*ldapclient.Entry, mode Mode) error {
	switch mode {
	case ModeJSON:
		return renderJSON(w, entries)
	case ModeTable:
		return renderTable(w, entries)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOutputMode, string(mode))
	}
}

type jsonEntry struct {
	DN         string            `json:"dn"`
	Attributes orderedAttributes `json:"attributes"`
}

// orderedAttributes marshals as a JSON object that keeps attribute order.
type orderedAttributes []*ldapclient.Attribute

func (a orderedAttributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, attr := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshal(attr.Name)
		if err != nil {
			return nil, err
		}
		values, err := marshal(attr.Values)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(values)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshal encodes v without HTML escaping.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func renderJSON(w io.Writer, entries []*ldapclient.Entry) error {
	docs := make([]jsonEntry, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, jsonEntry{DN: e.DN, Attributes: e.Attributes})
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(docs); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

func renderTable(w io.Writer, entries []*ldapclient.Entry) error {
	var b strings.Builder

	if len(entries) == 0 {
		b.WriteString("No entries found.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "Found %d entries:\n", len(entries))
	b.WriteString(strings.Repeat("=", 80) + "\n")

	for i, e := range entries {
		fmt.Fprintf(&b, "Entry #%d: %s\n", i+1, e.DN)
		b.WriteString(strings.Repeat("-", 40) + "\n")

		for _, attr := range e.Attributes {
			if len(attr.Values) == 1 {
				fmt.Fprintf(&b, "  %s: %s\n", attr.Name, attr.Values[0])
				continue
			}
			fmt.Fprintf(&b, "  %s:\n", attr.Name)
			for _, v := range attr.Values {
				fmt.Fprintf(&b, "    - %s\n", v)
			}
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
