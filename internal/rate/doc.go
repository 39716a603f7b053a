// Package rate provides the Redis-backed fixed-window request counter used
// for admission control across all service instances.
//
// # Window semantics
//
// Fixed-window counters: atomic INCR + conditional EXPIRE on the increment
// that creates the key (count 1). Subsequent hits within the window never
// reset the TTL; a window resets only via TTL expiry. The boundary is
// inclusive: count == limit is still admitted, count > limit is rejected.
//
// # What this package must NOT do
//
//   - Implement per-operation policies (limits and windows come from the
//     engine's configuration).
//   - Be imported outside the authkit module.
package rate
