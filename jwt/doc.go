// Package jwt is the token codec: it issues and verifies HS256-signed access
// tokens with subject, roles, issuer, issued-at, and expiry claims.
//
// Verification is deterministic with respect to claim order and reports a
// stable error kind per failure mode so the engine can fail fast on cheap
// local checks before any store round-trip. HMAC comparison inside
// golang-jwt is constant-time.
package jwt
