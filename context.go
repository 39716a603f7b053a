package authkit

import "context"

type clientIPContextKey struct{}

// WithClientIP attaches the caller's network identity to ctx. The Engine
// uses it to derive per-caller rate-limit keys and to stamp audit events.
//
// The value is expected to be the connection-level remote address. Behind
// shared NAT or proxies this under-distinguishes clients; do not substitute
// a forwarded header here without confirming the deployment topology, since
// trusting a spoofable header is worse than the coarse key.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// ClientIPFromContext returns the caller identity set by [WithClientIP],
// or "" when none was attached.
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
