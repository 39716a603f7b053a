package authkit

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is the single kind surfaced to callers for every
	// token problem: malformed, bad signature, wrong issuer, expired, or
	// revoked. Which check failed is audited, never returned, so a probing
	// client learns nothing from the error.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoToken marks a request that carried no Authorization header at
	// all. Whether anonymous access is acceptable is a routing decision.
	ErrNoToken = errors.New("no bearer token")
	// ErrUserNotFound is returned by Login when no credential record
	// exists. Adapters should present it identically to
	// ErrInvalidCredentials to avoid username enumeration.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserNotActivated is returned by Login for an inactive account.
	ErrUserNotActivated = errors.New("user not activated")
	// ErrInvalidCredentials is returned by Login on a password mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRateLimited is the sentinel wrapped by [RateLimitError].
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable is returned when Redis did not respond within
	// the bounded timeout and the failure policy for the capability is
	// fail-closed. It is retried once internally before surfacing.
	ErrStoreUnavailable = errors.New("shared store unavailable")
)

// RateLimitError reports a rejected admission. It carries the logical
// operation as structured data so callers can build a human-readable
// wait message without parsing error text, and it never exposes the raw
// limiter key or counter value.
type RateLimitError struct {
	Operation Operation
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: operation %s", e.Operation)
}

// Unwrap makes errors.Is(err, ErrRateLimited) hold for every admission
// rejection regardless of operation.
func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
