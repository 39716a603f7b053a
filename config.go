package authkit

import (
	"errors"
	"strings"
	"time"
)

// Config is the explicit, validated configuration for an [Engine]. It is
// constructed once at startup and passed to [Builder.WithConfig]; invalid
// configuration fails at Build time, never on first request.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	JWT        JWTConfig
	Session    SessionConfig
	Revocation RevocationConfig
	RateLimit  RateLimitConfig
	Store      StoreConfig
	Metrics    MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures the token codec.
type JWTConfig struct {
	// Secret is the shared symmetric signing key. Required, >= 32 bytes.
	Secret []byte
	// Issuer identifies this service in the iss claim. Required.
	Issuer string
	// TTL is the access-token lifetime. Default 2h.
	TTL time.Duration
	// Leeway tolerates clock skew between instances on verify.
	Leeway time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig configures the session registry.
type SessionConfig struct {
	// RedisPrefix namespaces session keys. Default "session:".
	RedisPrefix string
	// TTL is the session lifetime applied on login and on each refresh.
	// Default 2h.
	TTL time.Duration
}

/*
====================================
REVOCATION CONFIG
====================================
*/

// RevocationConfig configures the revocation registry.
type RevocationConfig struct {
	// RedisPrefix namespaces revocation keys. Default "revoked:".
	RedisPrefix string
	// FailOpen admits tokens when the registry is unreachable. The
	// default (false) refuses them: never admit a possibly-revoked token
	// because the store is down.
	FailOpen bool
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig configures admission control. Rules maps each logical
// operation to its budget; operations absent from the map are not limited.
type RateLimitConfig struct {
	Rules map[Operation]RateLimitRule
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig bounds every Redis round-trip. An unresponsive store must
// not hang a calling request.
type StoreConfig struct {
	// OpTimeout is the per-call deadline for store operations. Default 2s.
	OpTimeout time.Duration
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles the engine's internal counters. Disabled metrics
// cost one branch per increment.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the configuration the service ships with: 2 hour
// tokens and sessions, fail-closed revocation checks, and the standard
// per-operation rate budgets.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			TTL: 2 * time.Hour,
		},
		Session: SessionConfig{
			RedisPrefix: "session:",
			TTL:         2 * time.Hour,
		},
		Revocation: RevocationConfig{
			RedisPrefix: "revoked:",
			FailOpen:    false,
		},
		RateLimit: RateLimitConfig{
			Rules: DefaultRateLimitRules(),
		},
		Store: StoreConfig{
			OpTimeout: 2 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// DefaultRateLimitRules returns the per-operation budgets: login 5/min,
// logout and refresh 10/min, confirmation 3/min, and the account-changing
// operations 3 per hour (1 per hour for admin registration).
func DefaultRateLimitRules() map[Operation]RateLimitRule {
	return map[Operation]RateLimitRule{
		OpLogin:          {Limit: 5, Window: time.Minute},
		OpLogout:         {Limit: 10, Window: time.Minute},
		OpRefresh:        {Limit: 10, Window: time.Minute},
		OpRegisterUser:   {Limit: 3, Window: time.Hour},
		OpRegisterAdmin:  {Limit: 1, Window: time.Hour},
		OpConfirmEmail:   {Limit: 3, Window: time.Minute},
		OpResendCode:     {Limit: 3, Window: time.Hour},
		OpForgotPassword: {Limit: 3, Window: time.Hour},
		OpResetPassword:  {Limit: 3, Window: time.Hour},
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.JWT.TTL == 0 {
		c.JWT.TTL = d.JWT.TTL
	}
	if c.Session.RedisPrefix == "" {
		c.Session.RedisPrefix = d.Session.RedisPrefix
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = d.Session.TTL
	}
	if c.Revocation.RedisPrefix == "" {
		c.Revocation.RedisPrefix = d.Revocation.RedisPrefix
	}
	if c.RateLimit.Rules == nil {
		c.RateLimit.Rules = d.RateLimit.Rules
	}
	if c.Store.OpTimeout == 0 {
		c.Store.OpTimeout = d.Store.OpTimeout
	}
}

func (c *Config) validate() error {
	if len(c.JWT.Secret) == 0 {
		return errors.New("config: JWT signing secret must not be empty")
	}
	if strings.TrimSpace(c.JWT.Issuer) == "" {
		return errors.New("config: JWT issuer must not be empty")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("config: JWT TTL must be positive")
	}
	if c.Session.TTL <= 0 {
		return errors.New("config: session TTL must be positive")
	}
	if c.Store.OpTimeout < 0 {
		return errors.New("config: store timeout must not be negative")
	}
	for op, rule := range c.RateLimit.Rules {
		if rule.Limit <= 0 {
			return errors.New("config: rate limit for " + string(op) + " must be positive")
		}
		if rule.Window <= 0 {
			return errors.New("config: rate window for " + string(op) + " must be positive")
		}
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = append([]byte(nil), cfg.JWT.Secret...)
	if cfg.RateLimit.Rules != nil {
		rules := make(map[Operation]RateLimitRule, len(cfg.RateLimit.Rules))
		for op, rule := range cfg.RateLimit.Rules {
			rules[op] = rule
		}
		out.RateLimit.Rules = rules
	}
	return out
}
