package authkit

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/taskvault/authkit/internal/rate"
	"github.com/taskvault/authkit/jwt"
	"github.com/taskvault/authkit/password"
	"github.com/taskvault/authkit/revocation"
	"github.com/taskvault/authkit/session"
)

// Builder assembles an [Engine] from its collaborators. Construction is
// allocation-only; no I/O happens until the Engine's methods are called.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	credentials CredentialLookup
	matcher     PasswordMatcher
	clock       Clock
	audit       AuditSink
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder's configuration. The config is cloned,
// later mutation of cfg by the caller does not affect the built engine.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the shared key-value store client. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialLookup sets the external credential service. Required.
func (b *Builder) WithCredentialLookup(lookup CredentialLookup) *Builder {
	b.credentials = lookup
	return b
}

// WithPasswordMatcher overrides the default Argon2id matcher.
func (b *Builder) WithPasswordMatcher(m PasswordMatcher) *Builder {
	b.matcher = m
	return b
}

// WithClock overrides the system clock, typically under test.
func (b *Builder) WithClock(c Clock) *Builder {
	b.clock = c
	return b
}

// WithAuditSink sets the destination for auth events. Defaults to [NoOpSink].
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.audit = sink
	return b
}

// Build validates the configuration and wires the Engine. Every
// misconfiguration surfaces here, at startup, so a running engine never
// fails on configuration grounds mid-request.
func (b *Builder) Build() (*Engine, error) {
	if b.redis == nil {
		return nil, errors.New("authkit: redis client is required")
	}
	if b.credentials == nil {
		return nil, errors.New("authkit: credential lookup is required")
	}

	cfg := cloneConfig(b.config)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	clock := b.clock
	if clock == nil {
		clock = systemClock{}
	}

	sink := b.audit
	if sink == nil {
		sink = NoOpSink{}
	}

	matcher := b.matcher
	if matcher == nil {
		hasher, err := password.NewHasher(password.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("authkit: default password matcher: %w", err)
		}
		matcher = hasher
	}

	tokens, err := jwt.NewManager(jwt.Config{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		TTL:      cfg.JWT.TTL,
		Leeway:   cfg.JWT.Leeway,
		TimeFunc: clock.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("authkit: token codec: %w", err)
	}

	return &Engine{
		config:      cfg,
		tokens:      tokens,
		sessions:    session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.Store.OpTimeout, clock.Now),
		revocations: revocation.NewStore(b.redis, cfg.Revocation.RedisPrefix, cfg.Store.OpTimeout, clock.Now),
		limiter:     rate.New(b.redis, cfg.Store.OpTimeout),
		credentials: b.credentials,
		matcher:     matcher,
		clock:       clock,
		audit:       sink,
		metrics:     NewMetrics(cfg.Metrics.Enabled),
	}, nil
}
