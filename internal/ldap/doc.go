/*
Package ldap provides the directory session and search layer for the ldap-client CLI.

# Architecture Overview

The package is organized into a few small components:

  - Session: connect, bind and unbind over a single go-ldap connection
  - Search: send one search request and normalize the returned entries
  - Presets: canned searches for users, groups and connection tests
  - Resolvers: map command-line scope and attribute tokens to request fields

# Session Lifecycle

Open resolves candidate endpoints (a configured URL, or SRV records when a
domain is configured), dials them in order and binds with the configured
method:

  - Simple bind with a DN and password
  - Kerberos (GSSAPI) using a credential cache, keytab or password
  - SASL EXTERNAL with a TLS client certificate

Connect failures match ErrConnectFailed, bind failures ErrBindFailed. A failed
bind closes the connection before Open returns. WithSession guarantees Close is
attempted on every exit path:

	err := ldap.WithSession(ctx, cfg, func(s ldap.Session) error {
		entries, err := ldap.Search(ctx, s, ldap.UsersPreset.Request(cfg.BaseDN))
		if err != nil {
			return err
		}
		return render(entries)
	})

# Entries

Search returns entries in server order. Attributes keep their response order
and always carry at least one value. objectSid and objectGUID values are
decoded to their string forms; other binary values are base64 encoded.

# Logging

All operations log through the zerolog logger attached to the context
(zerolog.Ctx). Passwords are never logged.
*/
package ldap
