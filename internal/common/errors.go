// Package common defines shared constants and sentinel errors used across
// sigilo components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// Service-level errors.
	ErrInternal = errors.New("internal error")
	ErrStorage  = errors.New("storage error")

	// ErrValidation covers user-correctable input problems: message body too
	// short, weak secret key, unknown recipient, malformed handle.
	ErrValidation = errors.New("validation error")

	// ErrWrongKey is the single signal for an authentication-tag failure on
	// decrypt. It deliberately does not distinguish a wrong secret key from a
	// corrupted envelope.
	ErrWrongKey = errors.New("wrong key or corrupted message")
)
