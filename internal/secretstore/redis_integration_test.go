//go:build integration

package secretstore

import (
	"context"
	"errors"
	"testing"

	"vaultd/internal/domain"
	"vaultd/pkg/testutil/containers"
)

func TestRedisSetAndCheck(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	s := NewRedis(rc.Client)

	if err := s.Set(ctx, "alice", "pw"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := s.Check(ctx, "alice", "pw"); err != nil {
		t.Fatalf("expected match, got %v", err)
	}

	err := s.Check(ctx, "alice", "wrong")
	var invalid domain.InvalidKeyError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidKeyError, got %v", err)
	}

	err = s.Check(ctx, "nobody", "pw")
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidKeyError for unknown holder, got %v", err)
	}

	if err := rc.FlushAll(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
}
