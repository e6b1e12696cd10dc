package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	ldapclient "github.com/isometry/ldap-client/internal/ldap"
	"github.com/isometry/ldap-client/internal/output"
)

const connectedMessage = "✓ Successfully connected and authenticated to LDAP server"

// runSearch connects, runs req and renders the entries in mode.
func (a *app) runSearch(cmd *cobra.Command, req *ldapclient.SearchRequest, mode output.Mode) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := a.connectionConfig(cmd)
	if err != nil {
		return err
	}

	return ldapclient.WithSession(ctx, cfg, func(s ldapclient.Session) error {
		fmt.Fprintln(out, connectedMessage)
		printSearchHeader(out, req)

		entries, err := ldapclient.Search(ctx, s, req)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Fprintln(out, "No entries found.")
			return nil
		}

		return output.Render(out, entries, mode)
	}, a.sessionOptions...)
}

func printSearchHeader(out io.Writer, req *ldapclient.SearchRequest) {
	fmt.Fprintf(out, "Searching with filter: %s\n", req.Filter)
	fmt.Fprintf(out, "Base DN: %s\n", req.BaseDN)
	fmt.Fprintf(out, "Scope: %s\n", req.Scope)
	fmt.Fprintf(out, "Attributes: %s\n", formatAttributeList(req.Attributes))
	fmt.Fprintln(out)
}

// formatAttributeList renders attribute names as ["cn", "sn"].
func formatAttributeList(attrs []string) string {
	quoted := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		quoted = append(quoted, strconv.Quote(attr))
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
