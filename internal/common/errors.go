// Package common defines shared constants and sentinel errors used across
// the auth service layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal    = errors.New("internal error")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")

	// ErrUnauthorized is the single authentication rejection surfaced to
	// callers: bad credentials, invalid/expired/forged token, revoked refresh
	// token. The concrete cause is never exposed.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConfigurationFatal marks missing or invalid key material and other
	// startup-time misconfiguration. It is never recovered.
	ErrConfigurationFatal = errors.New("fatal configuration error")

	// ErrStoreTransient marks a store that is unreachable or timed out.
	// Retryable; never conflated with ErrUnauthorized.
	ErrStoreTransient = errors.New("store temporarily unavailable")

	// ErrStoreInvariant marks an integrity anomaly detected after a
	// successful verification (e.g. record owner mismatch).
	ErrStoreInvariant = errors.New("store invariant violated")
)
