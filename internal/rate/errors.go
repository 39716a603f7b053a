package rate

import "errors"

var (
	// ErrRateLimited is returned when a counter strictly exceeds its limit
	// within the current window.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps transport-level failures; admission policy
	// for that case (fail open) lives in the engine, not here.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
