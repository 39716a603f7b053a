// Package password provides the default Argon2id password hasher and
// matcher. The engine itself never stores passwords; it only consumes a
// boolean matching capability, and integrators may replace this package's
// implementation with their own.
package password
