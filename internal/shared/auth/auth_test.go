package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func TestIssueAndVerify(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := NewTokenIssuer("secret", 0, func() time.Time { return now })
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	token, err := issuer.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Role != RoleAdmin {
		t.Fatalf("unexpected role %q", claims.Role)
	}
	if got := claims.ExpiresAt.Time.Sub(now); got != 24*time.Hour {
		t.Fatalf("expected 24h expiry, got %s", got)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	issuer, _ := NewTokenIssuer("secret", time.Hour, func() time.Time { return clock })
	token, err := issuer.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	clock = now.Add(2 * time.Hour)
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsWrongSecretAndRole(t *testing.T) {
	issuer, _ := NewTokenIssuer("secret", time.Hour, nil)
	other, _ := NewTokenIssuer("other", time.Hour, nil)
	token, _ := other.Issue()
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign secret, got %v", err)
	}

	claims := Claims{
		Role: "viewer",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := issuer.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for non-admin role, got %v", err)
	}
	if _, err := issuer.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer("", time.Hour, nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPasswordChecker(t *testing.T) {
	plain := NewPasswordChecker("admin", "")
	if !plain.Check("admin") || plain.Check("Admin") || plain.Check("") {
		t.Fatalf("plain password check mismatch")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	hashed := NewPasswordChecker("ignored", string(hash))
	if !hashed.Check("s3cret") {
		t.Fatalf("expected hash match")
	}
	if hashed.Check("ignored") {
		t.Fatalf("hash should take precedence over plain password")
	}

	if NewPasswordChecker("", "").Check("anything") {
		t.Fatalf("expected unconfigured checker to reject")
	}
}
