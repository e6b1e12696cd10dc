package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	ldapclient "github.com/isometry/ldap-client/internal/ldap"
)

func newTestCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   ldapclient.TestPreset.Name,
		Short: ldapclient.TestPreset.Description,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Testing connection to LDAP server...")
			if a.config.Domain != "" {
				fmt.Fprintf(out, "Domain: %s\n", a.config.Domain)
			} else {
				fmt.Fprintf(out, "URL: %s\n", a.config.URL)
			}
			fmt.Fprintf(out, "Bind DN: %s\n", a.config.BindDN)

			cfg, err := a.connectionConfig(cmd)
			if err != nil {
				return err
			}

			return ldapclient.WithSession(ctx, cfg, func(s ldapclient.Session) error {
				fmt.Fprintln(out, connectedMessage)

				entries, err := ldapclient.Search(ctx, s, ldapclient.TestPreset.Request(cfg.BaseDN))
				if err != nil {
					return err
				}

				fmt.Fprintln(out, "✓ Connection test successful!")
				fmt.Fprintf(out, "✓ Found %d base entries\n", len(entries))

				who, err := s.WhoAmI(ctx)
				if err != nil {
					zerolog.Ctx(ctx).Debug().Err(err).Msg("WhoAmI extended operation unavailable")
					return nil
				}
				if who.AuthzID != "" {
					fmt.Fprintf(out, "✓ Authorization identity: %s\n", who.AuthzID)
				}
				return nil
			}, a.sessionOptions...)
		},
	}
}
