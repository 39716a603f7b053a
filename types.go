package authkit

import (
	"context"
	"time"
)

// CredentialRecord is the external collaborator's view of an account. The
// engine consumes it read-only and never stores passwords; PasswordHash is
// whatever opaque encoding the owning service uses, interpreted solely by
// the configured [PasswordMatcher].
type CredentialRecord struct {
	Username     string
	PasswordHash string
	Roles        []string
	Active       bool
}

// CredentialLookup is the narrow interface to the external credential
// service. FindByUsername returns (nil, nil) when no record exists;
// a non-nil error means the lookup itself failed.
type CredentialLookup interface {
	FindByUsername(ctx context.Context, username string) (*CredentialRecord, error)
}

// PasswordMatcher verifies a plaintext password against a stored hash.
// password.Hasher satisfies this and is the default.
type PasswordMatcher interface {
	Matches(plain, hash string) bool
}

// Clock abstracts the current time so expiry behavior is deterministic
// under test.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Principal is the authenticated identity exposed to request handlers
// after a successful [Engine.AuthenticateRequest].
type Principal struct {
	Subject   string
	Roles     []string
	ExpiresAt time.Time
}

// Operation names a rate-limited logical operation. The name feeds both
// the limiter key and the structured [RateLimitError]; it is stable API,
// not free text.
type Operation string

const (
	// OpLogin covers credential sign-in attempts.
	OpLogin Operation = "login"
	// OpLogout covers logout requests.
	OpLogout Operation = "logout"
	// OpRefresh covers session refresh requests.
	OpRefresh Operation = "refresh"
	// OpRegisterUser covers self-service account registration.
	OpRegisterUser Operation = "register-user"
	// OpRegisterAdmin covers administrator account registration.
	OpRegisterAdmin Operation = "register-admin"
	// OpConfirmEmail covers email confirmation-code submission.
	OpConfirmEmail Operation = "confirm-email"
	// OpResendCode covers confirmation-code resend requests.
	OpResendCode Operation = "resend-code"
	// OpForgotPassword covers password-reset initiation.
	OpForgotPassword Operation = "forgot-password"
	// OpResetPassword covers password-reset completion.
	OpResetPassword Operation = "reset-password"
)

// RateLimitRule is the budget for one operation: at most Limit requests
// per Window per caller identity. Within a window the boundary is
// inclusive; the (Limit+1)-th request is the first rejected one.
type RateLimitRule struct {
	Limit  int
	Window time.Duration
}
