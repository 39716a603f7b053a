package internaldefs

import (
	authkit "github.com/taskvault/authkit"
)

// CounterDef binds a MetricID to its stable exported name and help text.
type CounterDef struct {
	ID   authkit.MetricID
	Name string
	Help string
}

// CounterDefs is the single source of metric names for every exporter.
var CounterDefs = []CounterDef{
	{ID: authkit.MetricLoginSuccess, Name: "authkit_login_success_total", Help: "Successful login attempts."},
	{ID: authkit.MetricLoginFailure, Name: "authkit_login_failure_total", Help: "Failed login attempts."},
	{ID: authkit.MetricLogout, Name: "authkit_logout_total", Help: "Acknowledged logout operations."},
	{ID: authkit.MetricRefreshSuccess, Name: "authkit_refresh_success_total", Help: "Successful session refreshes."},
	{ID: authkit.MetricRefreshFailure, Name: "authkit_refresh_failure_total", Help: "Rejected session refreshes."},
	{ID: authkit.MetricAuthenticateSuccess, Name: "authkit_authenticate_success_total", Help: "Requests admitted with a valid token."},
	{ID: authkit.MetricAuthenticateFailure, Name: "authkit_authenticate_failure_total", Help: "Requests rejected during token authentication."},
	{ID: authkit.MetricRateLimitHit, Name: "authkit_rate_limit_hit_total", Help: "Admissions denied by a rate budget."},
	{ID: authkit.MetricRateLimitFailOpen, Name: "authkit_rate_limit_fail_open_total", Help: "Admissions allowed because the limiter store was unreachable."},
	{ID: authkit.MetricRevokedTokenSeen, Name: "authkit_revoked_token_seen_total", Help: "Requests presenting a revoked token."},
	{ID: authkit.MetricStoreRetry, Name: "authkit_store_retry_total", Help: "Store calls retried after a transient error."},
}
