package authkit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/taskvault/authkit/internal/rate"
	"github.com/taskvault/authkit/jwt"
	"github.com/taskvault/authkit/revocation"
	"github.com/taskvault/authkit/session"
)

// Engine is the authentication orchestrator. It composes the token codec,
// session registry, revocation registry, and rate limiter into the public
// login/logout/refresh/admission contract. Build one through [Builder];
// all methods are safe for concurrent use.
type Engine struct {
	config Config

	tokens      *jwt.Manager
	sessions    *session.Store
	revocations *revocation.Store
	limiter     *rate.Limiter

	credentials CredentialLookup
	matcher     PasswordMatcher
	clock       Clock
	audit       AuditSink
	metrics     *Metrics
}

const bearerPrefix = "Bearer "

// errRevoked is the audited cause for blacklisted tokens; callers only
// ever see ErrUnauthorized.
var errRevoked = errors.New("token revoked")

// Login authenticates username/password and, on success, issues a token
// and persists the user's session with the configured lifetime. A second
// login overwrites the first session in place, superseding its token.
//
// Failure kinds: [ErrUserNotFound], [ErrUserNotActivated],
// [ErrInvalidCredentials], [ErrStoreUnavailable]. No session is written on
// any failure path.
func (e *Engine) Login(ctx context.Context, username, password string) (string, error) {
	rec, err := e.credentials.FindByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("credential lookup: %w", err)
	}
	if rec == nil {
		e.emit(ctx, EventLogin, username, false, ErrUserNotFound)
		return "", ErrUserNotFound
	}
	if !rec.Active {
		e.emit(ctx, EventLogin, username, false, ErrUserNotActivated)
		return "", ErrUserNotActivated
	}
	if !e.matcher.Matches(password, rec.PasswordHash) {
		e.emit(ctx, EventLogin, username, false, ErrInvalidCredentials)
		return "", ErrInvalidCredentials
	}

	token, err := e.tokens.Issue(rec.Username, rec.Roles)
	if err != nil {
		return "", fmt.Errorf("token issuance: %w", err)
	}

	if err := e.withRetry(func() error {
		return e.sessions.Save(ctx, rec.Username, token, e.config.Session.TTL)
	}); err != nil {
		e.emit(ctx, EventLogin, username, false, err)
		return "", mapStoreErr(err)
	}

	e.emit(ctx, EventLogin, username, true, nil)
	return token, nil
}

// Logout revokes token and removes the owning session. The revocation
// write comes first and success is reported only after it is acknowledged:
// a client that retries the same token after a successful logout must
// always be rejected, even if the session removal raced.
//
// An already expired token is acknowledged without any store write; it is
// unusable regardless.
func (e *Engine) Logout(ctx context.Context, token string) error {
	claims, err := e.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil
		}
		e.emit(ctx, EventLogout, "", false, err)
		return ErrUnauthorized
	}

	if err := e.withRetry(func() error {
		return e.revocations.Revoke(ctx, token, claims.ExpiresAt)
	}); err != nil {
		e.emit(ctx, EventLogout, claims.Subject, false, err)
		return mapStoreErr(err)
	}

	if err := e.withRetry(func() error {
		return e.sessions.Remove(ctx, claims.Subject)
	}); err != nil {
		// The token is already unusable; surface the failure so the
		// client retries and the idempotent removal completes.
		e.emit(ctx, EventLogout, claims.Subject, false, err)
		return mapStoreErr(err)
	}

	e.emit(ctx, EventLogout, claims.Subject, true, nil)
	return nil
}

// Refresh extends the session behind token in place and returns the same
// token string. It rejects with [ErrUnauthorized] when the token does not
// verify, is revoked, or no longer matches the stored session, which
// uniformly covers "never logged in", "logged out", and "superseded by a
// newer login".
func (e *Engine) Refresh(ctx context.Context, token string) (string, error) {
	claims, err := e.tokens.Verify(token)
	if err != nil {
		e.emit(ctx, EventRefresh, "", false, err)
		return "", ErrUnauthorized
	}

	if err := e.checkRevocation(ctx, token); err != nil {
		e.emit(ctx, EventRefresh, claims.Subject, false, err)
		if errors.Is(err, ErrStoreUnavailable) {
			return "", err
		}
		return "", ErrUnauthorized
	}

	valid, err := e.boolWithRetry(func() (bool, error) {
		return e.sessions.IsValid(ctx, claims.Subject, token)
	})
	if err != nil {
		e.emit(ctx, EventRefresh, claims.Subject, false, err)
		return "", mapStoreErr(err)
	}
	if !valid {
		e.emit(ctx, EventRefresh, claims.Subject, false, ErrUnauthorized)
		return "", ErrUnauthorized
	}

	if err := e.withRetry(func() error {
		return e.sessions.Refresh(ctx, claims.Subject, e.config.Session.TTL)
	}); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			// Raced with a logout between the validity check and the
			// extend; the uniform answer is unauthorized.
			e.emit(ctx, EventRefresh, claims.Subject, false, err)
			return "", ErrUnauthorized
		}
		e.emit(ctx, EventRefresh, claims.Subject, false, err)
		return "", mapStoreErr(err)
	}

	e.emit(ctx, EventRefresh, claims.Subject, true, nil)
	return token, nil
}

// AuthenticateRequest admits or rejects a request by its Authorization
// header value. An empty header yields [ErrNoToken] (anonymous; whether
// that is acceptable is the route's decision). A header present but not
// prefixed with "Bearer " is malformed, not absent.
//
// Checks run cheapest first: signature/issuer/expiry locally, then the
// revocation registry. Every failure mode surfaces as [ErrUnauthorized]
// (or [ErrStoreUnavailable] under the fail-closed policy); the audit
// event keeps the distinct cause.
func (e *Engine) AuthenticateRequest(ctx context.Context, authorization string) (*Principal, error) {
	if authorization == "" {
		return nil, ErrNoToken
	}

	token, ok := bearerToken(authorization)
	if !ok {
		e.emit(ctx, EventAuthenticate, "", false, jwt.ErrMalformed)
		return nil, ErrUnauthorized
	}

	claims, err := e.tokens.Verify(token)
	if err != nil {
		e.emit(ctx, EventAuthenticate, "", false, err)
		return nil, ErrUnauthorized
	}

	if err := e.checkRevocation(ctx, token); err != nil {
		e.emit(ctx, EventAuthenticate, claims.Subject, false, err)
		if errors.Is(err, ErrStoreUnavailable) {
			return nil, err
		}
		return nil, ErrUnauthorized
	}

	e.emit(ctx, EventAuthenticate, claims.Subject, true, nil)
	return &Principal{
		Subject:   claims.Subject,
		Roles:     claims.Roles,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// Admit decides whether one more request for op from the caller identified
// in ctx (see [WithClientIP]) fits the operation's configured budget.
// Operations without a configured rule are not limited.
//
// Rate limiting fails OPEN: if the store is unreachable the request is
// admitted, because a store outage must never block all traffic. The
// outage is still audited.
func (e *Engine) Admit(ctx context.Context, op Operation) error {
	rule, ok := e.config.RateLimit.Rules[op]
	if !ok {
		return nil
	}

	clientID := ClientIPFromContext(ctx)
	if clientID == "" {
		clientID = "unknown"
	}

	return e.admit(ctx, op, rate.KeyFor(string(op), clientID), rule)
}

// AdmitKey is the explicit-key variant of [Admit] for callers that manage
// their own limiter key (a tenant ID, an API key hash). op labels the
// operation on the rejection error; the key itself never leaks.
func (e *Engine) AdmitKey(ctx context.Context, op Operation, key string, rule RateLimitRule) error {
	return e.admit(ctx, op, key, rule)
}

func (e *Engine) admit(ctx context.Context, op Operation, key string, rule RateLimitRule) error {
	err := e.limiter.Admit(ctx, key, rule.Limit, rule.Window)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		e.emitAdmission(ctx, op, false, err)
		return &RateLimitError{Operation: op}
	case errors.Is(err, rate.ErrRedisUnavailable):
		// Fail open, by policy.
		e.emitAdmission(ctx, op, true, err)
		return nil
	default:
		return err
	}
}

// checkRevocation applies the engine's fail policy around the registry
// lookup. Returns nil when the token is admissible, ErrUnauthorized when
// revoked, ErrStoreUnavailable when the store is down and the policy is
// fail-closed.
func (e *Engine) checkRevocation(ctx context.Context, token string) error {
	revoked, err := e.boolWithRetry(func() (bool, error) {
		return e.revocations.IsRevoked(ctx, token)
	})
	if err != nil {
		if e.config.Revocation.FailOpen {
			return nil
		}
		return mapStoreErr(err)
	}
	if revoked {
		e.metrics.Inc(MetricRevokedTokenSeen)
		return errRevoked
	}
	return nil
}

// withRetry runs fn and retries it exactly once when the failure is a
// transient store error. The budget is deliberately tiny; anything beyond
// one immediate retry belongs to the caller's own retry policy.
func (e *Engine) withRetry(fn func() error) error {
	err := fn()
	if isStoreErr(err) {
		e.metrics.Inc(MetricStoreRetry)
		return fn()
	}
	return err
}

func (e *Engine) boolWithRetry(fn func() (bool, error)) (bool, error) {
	v, err := fn()
	if isStoreErr(err) {
		e.metrics.Inc(MetricStoreRetry)
		return fn()
	}
	return v, err
}

func isStoreErr(err error) bool {
	return errors.Is(err, session.ErrRedisUnavailable) ||
		errors.Is(err, revocation.ErrRedisUnavailable) ||
		errors.Is(err, rate.ErrRedisUnavailable)
}

// mapStoreErr converts sub-package transport errors into the public
// [ErrStoreUnavailable] kind while keeping the cause in the message.
func mapStoreErr(err error) error {
	if isStoreErr(err) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}

func bearerToken(value string) (string, bool) {
	if !strings.HasPrefix(value, bearerPrefix) {
		return "", false
	}
	token := value[len(bearerPrefix):]
	if token == "" {
		return "", false
	}
	return token, true
}

func (e *Engine) emit(ctx context.Context, eventType, username string, success bool, cause error) {
	e.metrics.Inc(outcomeMetric(eventType, success))
	event := AuditEvent{
		Timestamp: e.clock.Now(),
		EventType: eventType,
		Username:  username,
		ClientIP:  ClientIPFromContext(ctx),
		Success:   success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	e.audit.Emit(ctx, event)
}

// outcomeMetric maps an event outcome onto its counter. Outcomes without
// a counter map past the end of the ID range, which Inc ignores.
func outcomeMetric(eventType string, success bool) MetricID {
	switch eventType {
	case EventLogin:
		if success {
			return MetricLoginSuccess
		}
		return MetricLoginFailure
	case EventLogout:
		if success {
			return MetricLogout
		}
	case EventRefresh:
		if success {
			return MetricRefreshSuccess
		}
		return MetricRefreshFailure
	case EventAuthenticate:
		if success {
			return MetricAuthenticateSuccess
		}
		return MetricAuthenticateFailure
	}
	return metricIDCount
}

func (e *Engine) emitAdmission(ctx context.Context, op Operation, success bool, cause error) {
	switch {
	case !success:
		e.metrics.Inc(MetricRateLimitHit)
	case cause != nil:
		e.metrics.Inc(MetricRateLimitFailOpen)
	}
	event := AuditEvent{
		Timestamp: e.clock.Now(),
		EventType: EventAdmission,
		Operation: string(op),
		ClientIP:  ClientIPFromContext(ctx),
		Success:   success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	e.audit.Emit(ctx, event)
}
