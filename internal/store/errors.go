package store

import (
	"errors"
	"strings"
)

var (
	// ErrStorageUnavailable marks exhausted retries against the remote
	// backend. Callers treat it as transient at the sweep layer.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrNotFound marks a lookup that matched nothing.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks a malformed record or filter supplied by the
	// caller. Never retried.
	ErrValidation = errors.New("validation error")
)

// retryableConnErr reports whether err looks like a lost connection to
// the remote backend rather than a statement-level failure.
func retryableConnErr(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	for _, token := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"unexpected eof",
		"i/o timeout",
		"server closed",
		"conn busy",
		"the database system is starting up",
	} {
		if strings.Contains(message, token) {
			return true
		}
	}
	return false
}
