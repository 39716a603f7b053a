// Package revocation tracks tokens that must be rejected before their
// natural expiry (logout, rotation). Keys are SHA-256 hashes of the raw
// token string with a TTL matching the token's remaining lifetime, so the
// registry never grows unbounded.
//
// # What this package must NOT do
//
//   - Interpret or verify token contents; that is the jwt package's job.
//   - Decide fail-open vs fail-closed on store outages; the Engine owns
//     that policy.
package revocation
