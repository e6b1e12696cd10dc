package ldap

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog"
)

// LogOperation runs fn and logs its start, duration and outcome on the
// context logger.
func LogOperation(ctx context.Context, operation string, fields map[string]any, fn func() error) error {
	log := zerolog.Ctx(ctx)
	start := time.Now()

	log.Debug().
		Str("operation", operation).
		Fields(SanitizeFields(fields)).
		Msg("Starting operation")

	err := fn()

	if err != nil {
		log.Debug().
			Str("operation", operation).
			Dur("duration", time.Since(start)).
			Err(err).
			Msg("Operation failed")
		return err
	}

	log.Debug().
		Str("operation", operation).
		Dur("duration", time.Since(start)).
		Msg("Operation completed successfully")
	return nil
}

// LogLDAPError logs LDAP-specific error information.
func LogLDAPError(ctx context.Context, operation string, err error, fields map[string]any) {
	event := zerolog.Ctx(ctx).Error().
		Str("operation", operation).
		Fields(SanitizeFields(fields)).
		Err(err)

	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		event = event.Uint16("ldap_result_code", ldapErr.ResultCode)
		if ldapErr.MatchedDN != "" {
			event = event.Str("ldap_matched_dn", ldapErr.MatchedDN)
		}
		if ldapErr.Err != nil {
			event = event.Str("ldap_diagnostic_message", ldapErr.Err.Error())
		}
	}

	event.Msg("LDAP operation failed")
}

// LogConnectionEvent logs connection-related events.
func LogConnectionEvent(ctx context.Context, event string, fields map[string]any) {
	log := zerolog.Ctx(ctx)

	var e *zerolog.Event
	switch event {
	case "connection_established", "authentication_success":
		e = log.Info()
	case "connection_failed", "authentication_failed", "unbind_failed":
		e = log.Warn()
	default:
		e = log.Debug()
	}

	e.Str("event", event).Fields(SanitizeFields(fields)).Msg("Connection event")
}

// SanitizeFields removes sensitive information from log fields.
func SanitizeFields(fields map[string]any) map[string]any {
	sanitized := make(map[string]any, len(fields))

	sensitiveKeys := map[string]bool{
		"password":    true,
		"passwd":      true,
		"secret":      true,
		"token":       true,
		"key":         true,
		"private_key": true,
		"credential":  true,
		"credentials": true,
	}

	for k, v := range fields {
		if sensitiveKeys[strings.ToLower(k)] {
			sanitized[k] = "[REDACTED]"
			continue
		}
		if str, ok := v.(string); ok && containsSensitivePattern(str) {
			sanitized[k] = "[REDACTED]"
			continue
		}
		sanitized[k] = v
	}

	return sanitized
}

// containsSensitivePattern checks if a string contains patterns that might be sensitive.
func containsSensitivePattern(s string) bool {
	patterns := []string{
		"password=",
		"passwd=",
		"secret=",
		"token=",
	}

	lower := strings.ToLower(s)
	for _, pattern := range patterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}

	return false
}
