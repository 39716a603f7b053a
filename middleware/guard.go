package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	authkit "github.com/taskvault/authkit"
)

type principalContextKey struct{}

// PrincipalFromContext returns the authenticated principal placed into the
// request context by [Guard].
func PrincipalFromContext(ctx context.Context) (*authkit.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*authkit.Principal)
	return p, ok
}

// Guard wraps protected routes with bearer-token authentication. Requests
// without a valid, unrevoked token are rejected; on success the principal
// is exposed downstream via [PrincipalFromContext].
//
// Every rejection reads the same to the client. A store outage under the
// fail-closed revocation policy maps to 503 rather than 401, since the
// client's token may well be fine.
func Guard(engine *authkit.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := authkit.WithClientIP(r.Context(), remoteIP(r))

			principal, err := engine.AuthenticateRequest(ctx, r.Header.Get("Authorization"))
			if err != nil {
				if errors.Is(err, authkit.ErrStoreUnavailable) {
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, principalContextKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimit wraps a route with admission control for op. It replaces the
// annotation-driven interception of classic frameworks with an explicit
// guard invoked before the protected handler.
func RateLimit(engine *authkit.Engine, op authkit.Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := authkit.WithClientIP(r.Context(), remoteIP(r))

			if err := engine.Admit(ctx, op); err != nil {
				var rle *authkit.RateLimitError
				if errors.As(err, &rle) {
					http.Error(w, "too many "+string(rle.Operation)+" requests, try again later", http.StatusTooManyRequests)
					return
				}
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// remoteIP strips the port from RemoteAddr. Forwarded headers are
// deliberately not consulted; see the deployment note on
// [authkit.WithClientIP].
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
