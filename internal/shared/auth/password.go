package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PasswordChecker validates the admin password against a bcrypt hash or a plain secret.
// The hash wins when both are configured.
type PasswordChecker struct {
	plain string
	hash  []byte
}

// NewPasswordChecker constructs a PasswordChecker.
func NewPasswordChecker(plain, hash string) PasswordChecker {
	pc := PasswordChecker{plain: plain}
	if h := strings.TrimSpace(hash); h != "" {
		pc.hash = []byte(h)
	}
	return pc
}

// Check reports whether candidate matches the configured password.
func (p PasswordChecker) Check(candidate string) bool {
	if candidate == "" {
		return false
	}
	if len(p.hash) > 0 {
		return bcrypt.CompareHashAndPassword(p.hash, []byte(candidate)) == nil
	}
	if p.plain == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(p.plain), []byte(candidate)) == 1
}
