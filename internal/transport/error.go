package transport

import (
	"errors"
	"fmt"
	"strings"
)

// SendError wraps a provider error with classification metadata.
type SendError struct {
	// Provider is the name of the transport that returned the error.
	Provider string
	// StatusCode is the HTTP status code from the provider API, if any.
	StatusCode int
	// Reason is the error description from the provider.
	Reason string
	// Permanent indicates the error will not succeed on retry.
	Permanent bool
}

func (e *SendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Reason)
	}
	return e.Provider + ": " + e.Reason
}

// IsPermanent reports whether err is a permanent failure that should not be
// retried (malformed recipient, revoked credentials).
func IsPermanent(err error) bool {
	var se *SendError
	if errors.As(err, &se) {
		return se.Permanent
	}
	return false
}

// classifyStatus builds a SendError from a provider HTTP status code,
// deciding whether it is worth retrying. Unknown errors are treated as
// transient so mail is never dropped on an ambiguous failure.
func classifyStatus(provider string, statusCode int, body string) *SendError {
	se := &SendError{
		Provider:   provider,
		StatusCode: statusCode,
		Reason:     body,
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil

	case statusCode == 400:
		se.Permanent = containsPermanentIndicator(body)

	case statusCode == 401, statusCode == 403:
		// Bad or revoked credentials: retrying the same request cannot
		// succeed, and the operator needs to know loudly.
		se.Permanent = true

	case statusCode == 404:
		se.Permanent = true

	case statusCode == 429:
		// Rate limited. Always transient.
		se.Permanent = false

	case statusCode >= 500:
		se.Permanent = false

	default:
		se.Permanent = statusCode >= 400 && statusCode < 500
	}

	return se
}

// containsPermanentIndicator checks if a 400 response body indicates a
// failure that will not change on retry (e.g. an invalid recipient).
func containsPermanentIndicator(body string) bool {
	lower := strings.ToLower(body)
	for _, pattern := range []string{
		"invalid recipient",
		"invalid email",
		"invalid address",
		"does not exist",
		"mailbox not found",
		"recipient rejected",
	} {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
