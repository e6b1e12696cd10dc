package cli

import (
	"time"

	"github.com/spf13/cobra"

	ldapclient "github.com/isometry/ldap-client/internal/ldap"
	"github.com/isometry/ldap-client/internal/output"
)

func newSearchCommand(a *app) *cobra.Command {
	var (
		filter       string
		attributes   string
		scope        string
		outputFormat string
		sizeLimit    int
		timeLimit    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search for entries in the LDAP directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := output.ParseMode(outputFormat)
			if err != nil {
				return err
			}

			searchScope, err := ldapclient.ResolveScope(scope)
			if err != nil {
				return err
			}

			var attrs *string
			if cmd.Flags().Changed("attributes") {
				attrs = &attributes
			}

			req := &ldapclient.SearchRequest{
				BaseDN:     a.config.BaseDN,
				Scope:      searchScope,
				Filter:     filter,
				Attributes: ldapclient.ResolveAttributes(attrs),
				SizeLimit:  sizeLimit,
				TimeLimit:  timeLimit,
			}

			return a.runSearch(cmd, req, mode)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&filter, "filter", "f", ldapclient.MatchAllFilter, `LDAP filter (e.g. "(objectClass=*)" or "(cn=john*)")`)
	flags.StringVarP(&attributes, "attributes", "a", "", "Attributes to retrieve (comma-separated, default all)")
	flags.StringVarP(&scope, "scope", "s", ldapclient.ScopeWholeSubtree.String(), "Search scope (base, one, sub)")
	flags.StringVarP(&outputFormat, "output", "o", string(output.ModeTable), "Output format (json, table)")
	flags.IntVar(&sizeLimit, "size-limit", 0, "Maximum number of entries to return (0 for no limit)")
	flags.DurationVar(&timeLimit, "time-limit", 0, "Server-side time limit for the search (0 for none)")

	return cmd
}

// newPresetCommand builds a fixed search command such as users or groups.
func newPresetCommand(a *app, preset ldapclient.Preset) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   preset.Name,
		Short: preset.Description,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := output.ParseMode(outputFormat)
			if err != nil {
				return err
			}
			return a.runSearch(cmd, preset.Request(a.config.BaseDN), mode)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", string(output.ModeTable), "Output format (json, table)")

	return cmd
}
