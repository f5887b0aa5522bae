package revocation

import (
	"context"
	"testing"
	"time"
)

func TestMemoryListRevokeAndCheck(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryList()

	revoked, err := l.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revoked {
		t.Fatalf("fresh jti should not be revoked")
	}

	if err := l.Revoke(ctx, "jti-1", time.Hour); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	revoked, err = l.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !revoked {
		t.Fatalf("jti should be revoked")
	}
}

func TestMemoryListExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	l := NewMemoryList(WithClock(func() time.Time { return now }))

	if err := l.Revoke(ctx, "jti-2", time.Minute); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	now = now.Add(2 * time.Minute)
	revoked, err := l.IsRevoked(ctx, "jti-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revoked {
		t.Fatalf("revocation should expire with the permit")
	}
}

func TestMemoryListTTLBounds(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryList()

	if err := l.Revoke(ctx, "jti-3", time.Millisecond); err == nil {
		t.Fatalf("expected error for sub-second ttl")
	}
	if err := l.Revoke(ctx, "jti-3", 365*24*time.Hour); err == nil {
		t.Fatalf("expected error for excessive ttl")
	}
	if err := l.Revoke(ctx, "", time.Hour); err != nil {
		t.Fatalf("empty jti should be a no-op, got %v", err)
	}
}
