package util

import "testing"

func TestHashKey(t *testing.T) {
	ip := "203.0.113.7"
	got := HashKey(ip)
	if got != HashKey(ip) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	if got == HashKey("203.0.113.8") {
		t.Fatalf("expected distinct hashes for distinct clients")
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
}
