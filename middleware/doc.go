// Package middleware provides router-agnostic net/http adapters over the
// authkit Engine: a bearer-token authentication guard and an explicit
// rate-limit admission guard. HTTP status mapping lives here and only
// here; the Engine itself reports error kinds, not status codes.
package middleware
