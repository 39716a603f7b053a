// Package authkit is the authentication and abuse-control subsystem for a
// multi-tenant task/asset-management API: stateless HS256 bearer tokens, a
// Redis-backed revocation registry and per-user session registry, and a
// distributed fixed-window rate limiter shared by every service instance.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build]. All mutable state lives in Redis; the service itself is
// stateless and horizontally scalable, and nothing is cached in process
// memory across requests.
//
// # Failure policy
//
// When Redis is unreachable the two guard capabilities fail in opposite
// directions, deliberately: rate limiting fails OPEN (a store outage must
// never block all traffic), revocation checking fails CLOSED (a possibly
// revoked token must never be admitted). The revocation side is
// configurable via [RevocationConfig].FailOpen; the default is closed.
//
// # Architecture boundaries
//
// authkit is the public surface: [Engine], [Builder], [Config], [Principal],
// and the error values. Store plumbing lives in the jwt, session, and
// revocation sub-packages and internal/rate; HTTP adapters live in
// middleware.
package authkit
