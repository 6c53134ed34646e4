package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey returns a stable hex digest so client identifiers never reach
// shared stores in clear text.
func HashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
