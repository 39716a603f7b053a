//go:build integration
// +build integration

package test

import (
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"

	"github.com/taskvault/authkit/jwt"
)

// Forged tokens built directly with the underlying JWT library must never
// pass verification: wrong algorithm, the "none" algorithm, and a missing
// expiry all have to be rejected regardless of an otherwise valid payload.
func TestJWTHardeningChecks(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	manager, err := jwt.NewManager(jwt.Config{
		Secret: secret,
		Issuer: "taskvault",
		TTL:    time.Minute,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	now := time.Now()
	baseClaims := gjwt.MapClaims{
		"sub":   "alice",
		"iss":   "taskvault",
		"roles": "ROLE_USER",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Minute).Unix(),
	}

	t.Run("alg none rejected", func(t *testing.T) {
		tok := gjwt.NewWithClaims(gjwt.SigningMethodNone, baseClaims)
		signed, err := tok.SignedString(gjwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := manager.Verify(signed); err == nil {
			t.Fatal("token with alg=none must be rejected")
		}
	})

	t.Run("wrong hmac variant rejected", func(t *testing.T) {
		tok := gjwt.NewWithClaims(gjwt.SigningMethodHS384, baseClaims)
		signed, err := tok.SignedString(secret)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := manager.Verify(signed); err == nil {
			t.Fatal("token signed with HS384 must be rejected")
		}
	})

	t.Run("missing exp rejected", func(t *testing.T) {
		claims := gjwt.MapClaims{
			"sub":   "alice",
			"iss":   "taskvault",
			"roles": "ROLE_USER",
			"iat":   now.Unix(),
		}
		tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
		signed, err := tok.SignedString(secret)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := manager.Verify(signed); err == nil {
			t.Fatal("token without exp must be rejected")
		}
	})

	t.Run("foreign issuer rejected", func(t *testing.T) {
		claims := gjwt.MapClaims{
			"sub":   "alice",
			"iss":   "someone-else",
			"roles": "ROLE_USER",
			"iat":   now.Unix(),
			"exp":   now.Add(time.Minute).Unix(),
		}
		tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
		signed, err := tok.SignedString(secret)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := manager.Verify(signed); !errors.Is(err, jwt.ErrWrongIssuer) {
			t.Fatalf("expected ErrWrongIssuer, got %v", err)
		}
	})
}
