// Package session tracks, per user, the single currently-valid token and
// its expiry in a Redis hash, supporting refresh-in-place.
//
// # Architecture boundaries
//
// This package owns the Redis representation of a session. It does NOT
// interpret JWT tokens or enforce authentication policy; those
// responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import authkit or jwt (no upward imports).
//   - Cache session state in process memory; Redis is the single source
//     of truth shared by every service instance.
package session
