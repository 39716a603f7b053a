package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Verification failures are distinguishable so the engine can audit the
// precise cause while callers only ever see a generic unauthorized.
var (
	// ErrMalformed indicates the token string could not be decoded at all.
	ErrMalformed = errors.New("token malformed")
	// ErrBadSignature indicates the signature does not match the configured secret.
	ErrBadSignature = errors.New("token signature invalid")
	// ErrWrongIssuer indicates the iss claim does not match the configured issuer.
	ErrWrongIssuer = errors.New("token issuer mismatch")
	// ErrExpired indicates the token is past its exp claim.
	ErrExpired = errors.New("token expired")
)

// Config holds the signing parameters for the token codec.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	// Secret is the shared HMAC key. Shorter than 32 bytes is rejected at
	// construction time.
	Secret []byte
	// Issuer is stamped into every token and checked on verify.
	Issuer string
	// TTL is the token lifetime applied at issuance.
	TTL time.Duration
	// Leeway tolerates small clock skew between issuing and verifying
	// instances. Capped at 2 minutes.
	Leeway time.Duration
	// TimeFunc overrides the clock used for iat/exp. Nil means time.Now.
	TimeFunc func() time.Time
}

// Manager issues and verifies HS256-signed bearer tokens. Safe for
// concurrent use after construction.
type Manager struct {
	config Config
}

// Claims is the decoded view of a verified token.
type Claims struct {
	Subject string
	Roles   []string
	// ExpiresAt is the absolute expiry instant from the exp claim.
	ExpiresAt time.Time
}

type accessClaims struct {
	Roles string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

const minSecretBytes = 32

// NewManager validates cfg and returns a token codec. Misconfiguration
// (empty or short secret, missing issuer, non-positive TTL) is a
// startup-time error, never a per-request one.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < minSecretBytes {
		return nil, fmt.Errorf("signing secret must be at least %d bytes", minSecretBytes)
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, errors.New("issuer must not be empty")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

// Issue builds and signs a token for subject with the given roles.
// The returned string is the only representation ever persisted or
// transported; tokens are never mutated after issuance.
func (m *Manager) Issue(subject string, roles []string) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("subject must not be empty")
	}

	now := m.now()
	claims := accessClaims{
		Roles: strings.Join(roles, ","),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.Secret)
}

// Verify parses and validates tokenStr. On success the returned Claims
// carry the subject, roles, and expiry. Failures map onto exactly one of
// [ErrMalformed], [ErrBadSignature], [ErrWrongIssuer], or [ErrExpired].
//
// Verify does not consult any external store; revocation is the caller's
// concern and is checked after this cheaper local step.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.TimeFunc != nil {
		options = append(options, jwt.WithTimeFunc(m.config.TimeFunc))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &accessClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}

	out := &Claims{
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.Roles != "" {
		out.Roles = strings.Split(claims.Roles, ",")
	}
	return out, nil
}

// classifyParseError collapses golang-jwt's error chain into this
// package's stable verification error kinds. Expiry wins over the generic
// invalid-claims case because golang-jwt joins both into one chain.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrWrongIssuer
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrBadSignature
	default:
		return ErrMalformed
	}
}

func (m *Manager) now() time.Time {
	if m.config.TimeFunc != nil {
		return m.config.TimeFunc()
	}
	return time.Now()
}
