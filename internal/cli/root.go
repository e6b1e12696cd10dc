// Package cli implements the ldap-client command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	ldapclient "github.com/isometry/ldap-client/internal/ldap"
)

// envBindings maps persistent flags to the environment variables consulted
// when the flag is not given on the command line.
var envBindings = map[string]string{
	"url":                  "LDAP_URL",
	"bind-dn":              "LDAP_BIND_DN",
	"password":             "LDAP_PASSWORD",
	"base-dn":              "LDAP_BASE_DN",
	"domain":               "LDAP_DOMAIN",
	"start-tls":            "LDAP_START_TLS",
	"insecure-skip-verify": "LDAP_INSECURE_SKIP_VERIFY",
	"ca-cert":              "LDAP_CA_CERT",
	"client-cert":          "LDAP_CLIENT_CERT",
	"client-key":           "LDAP_CLIENT_KEY",
	"tls-min-version":      "LDAP_TLS_MIN_VERSION",
	"tls-max-version":      "LDAP_TLS_MAX_VERSION",
	"auth":                 "LDAP_AUTH",
	"krb5-conf":            "KRB5_CONFIG",
	"keytab":               "LDAP_KEYTAB",
	"realm":                "LDAP_REALM",
	"spn":                  "LDAP_SPN",
	"timeout":              "LDAP_TIMEOUT",
	"log-level":            "LDAP_LOG_LEVEL",
}

// app carries the state shared by all subcommands.
type app struct {
	config     *ldapclient.ConnectionConfig
	authMethod string
	logLevel   string
	version    string

	lookupEnv      func(string) (string, bool)
	promptPassword func(stderr io.Writer) (string, error)
	sessionOptions []ldapclient.SessionOption
}

// Option customizes the command tree.
type Option func(*app)

// WithSessionOptions passes options through to every session opened.
func WithSessionOptions(opts ...ldapclient.SessionOption) Option {
	return func(a *app) {
		a.sessionOptions = append(a.sessionOptions, opts...)
	}
}

// WithLookupEnv replaces the environment lookup.
func WithLookupEnv(lookup func(string) (string, bool)) Option {
	return func(a *app) {
		a.lookupEnv = lookup
	}
}

// WithPasswordPrompt replaces the interactive password prompt.
func WithPasswordPrompt(prompt func(stderr io.Writer) (string, error)) Option {
	return func(a *app) {
		a.promptPassword = prompt
	}
}

// Execute builds the command tree and runs it against os.Args.
func Execute(ctx context.Context, version string) error {
	cmd, err := NewRootCommand(version)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return cmd.ExecuteContext(ctx)
}

// NewRootCommand builds the ldap-client command tree.
func NewRootCommand(version string, opts ...Option) (*cobra.Command, error) {
	cfg, err := ldapclient.DefaultConfig()
	if err != nil {
		return nil, err
	}

	a := &app{
		config:         cfg,
		version:        version,
		lookupEnv:      os.LookupEnv,
		promptPassword: terminalPasswordPrompt,
	}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:           "ldap-client",
		Short:         "An LDAP client for searching a directory server",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	a.bindFlags(root.PersistentFlags())

	root.AddCommand(
		newSearchCommand(a),
		newPresetCommand(a, ldapclient.UsersPreset),
		newPresetCommand(a, ldapclient.GroupsPreset),
		newTestCommand(a),
		newVersionCommand(a),
	)

	return root, nil
}

func (a *app) bindFlags(flags *pflag.FlagSet) {
	c := a.config

	flags.StringVarP(&c.URL, "url", "u", c.URL, "LDAP server URL")
	flags.StringVarP(&c.BindDN, "bind-dn", "b", c.BindDN, "Bind DN for authentication")
	flags.StringVarP(&c.Password, "password", "p", "", "Password for authentication (prompted when omitted on a terminal)")
	flags.StringVar(&c.BaseDN, "base-dn", c.BaseDN, "Base DN for operations")
	flags.StringVar(&c.Domain, "domain", "", "Discover servers through DNS SRV records for this domain instead of --url")

	flags.BoolVar(&c.StartTLS, "start-tls", false, "Upgrade ldap:// connections with StartTLS")
	flags.BoolVar(&c.InsecureSkipVerify, "insecure-skip-verify", false, "Skip server certificate verification")
	flags.StringVar(&c.TLSCACertFile, "ca-cert", "", "PEM file with CA certificates to trust")
	flags.StringVar(&c.TLSClientCertFile, "client-cert", "", "PEM client certificate")
	flags.StringVar(&c.TLSClientKeyFile, "client-key", "", "PEM client private key")
	flags.StringVar(&c.TLSMinVersion, "tls-min-version", c.TLSMinVersion, "Minimum TLS version (tls10, tls11, tls12, tls13)")
	flags.StringVar(&c.TLSMaxVersion, "tls-max-version", "", "Maximum TLS version (tls10, tls11, tls12, tls13)")

	flags.StringVar(&a.authMethod, "auth", ldapclient.AuthMethodSimpleBind.String(), "Authentication method (simple, kerberos, external)")
	flags.StringVar(&c.KerberosConfig, "krb5-conf", "", "Path to krb5.conf (default /etc/krb5.conf, generated from the realm when missing)")
	flags.StringVar(&c.KerberosKeytab, "keytab", "", "Kerberos keytab file")
	flags.StringVar(&c.KerberosRealm, "realm", "", "Kerberos realm")
	flags.StringVar(&c.KerberosSPN, "spn", "", "Kerberos service principal (default ldap/<host>)")

	flags.DurationVar(&c.Timeout, "timeout", 0, "Per-request timeout (0 keeps the library default)")
	flags.StringVar(&a.logLevel, "log-level", zerolog.WarnLevel.String(), "Log level (trace, debug, info, warn, error)")
}

// setup applies environment fallbacks and installs the logger on the
// command context.
func (a *app) setup(cmd *cobra.Command) error {
	if err := a.applyEnv(cmd.Flags()); err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(a.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", a.logLevel, err)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logger.WithContext(ctx))

	method, err := ldapclient.ParseAuthMethod(a.authMethod)
	if err != nil {
		return err
	}
	a.config.AuthMethod = method

	return nil
}

// applyEnv sets every unset flag that has an environment binding.
func (a *app) applyEnv(flags *pflag.FlagSet) error {
	for name, env := range envBindings {
		flag := flags.Lookup(name)
		if flag == nil || flag.Changed {
			continue
		}
		value, ok := a.lookupEnv(env)
		if !ok || value == "" {
			continue
		}
		if err := flag.Value.Set(value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", env, err)
		}
	}
	return nil
}

// connectionConfig returns the session configuration, prompting for a
// password when simple bind has none.
func (a *app) connectionConfig(cmd *cobra.Command) (*ldapclient.ConnectionConfig, error) {
	cfg := a.config

	if cfg.AuthMethod == ldapclient.AuthMethodSimpleBind && cfg.Password == "" && a.promptPassword != nil {
		password, err := a.promptPassword(cmd.ErrOrStderr())
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		cfg.Password = password
	}

	zerolog.Ctx(cmd.Context()).Debug().
		Fields(ldapclient.SanitizeFields(map[string]any{
			"url":         cfg.URL,
			"domain":      cfg.Domain,
			"bind_dn":     cfg.BindDN,
			"base_dn":     cfg.BaseDN,
			"auth_method": cfg.AuthMethod.String(),
			"start_tls":   cfg.StartTLS,
		})).
		Msg("Resolved connection configuration")

	return cfg, nil
}
