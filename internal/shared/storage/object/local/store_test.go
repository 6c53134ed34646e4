package local

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"revops-backend/internal/shared/storage/object"
)

func TestPutGetRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	n, err := store.Put(ctx, "snapshots/assessments.json", "application/json", strings.NewReader(`{"v":1}`))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 bytes written, got %d", n)
	}
	if _, err := store.Put(ctx, "snapshots/assessments.json", "application/json", strings.NewReader(`{"v":2}`)); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}

	rc, err := store.Get(ctx, "snapshots/assessments.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != `{"v":2}` {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Get(context.Background(), "missing.json"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	store := New(t.TempDir())
	for _, key := range []string{"../outside.json", "/etc/passwd", ""} {
		if _, err := store.Put(context.Background(), key, "", strings.NewReader("x")); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}
