// Package secretstore persists viewing secrets, the lower-assurance shared
// credential path independent of permits. Secrets are stored bcrypt-hashed.
package secretstore

import (
	"context"
	"sync"

	"vaultd/internal/domain"
	"vaultd/pkg/secrets"
)

// Store is the viewing-secret collaborator interface the directory consumes.
type Store interface {
	Set(ctx context.Context, holderID, secret string) error
	// Check returns nil when the secret matches; a mismatch or unknown holder
	// is domain.InvalidKeyError.
	Check(ctx context.Context, holderID, secret string) error
}

// Memory keeps hashed secrets in process memory.
type Memory struct {
	mu     sync.RWMutex
	hashes map[string]string
}

func NewMemory() *Memory {
	return &Memory{hashes: make(map[string]string)}
}

func (s *Memory) Set(_ context.Context, holderID, secret string) error {
	hash, err := secrets.Hash(secret)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes[holderID] = hash
	return nil
}

func (s *Memory) Check(_ context.Context, holderID, secret string) error {
	s.mu.RLock()
	hash, ok := s.hashes[holderID]
	s.mu.RUnlock()
	if !ok {
		return domain.InvalidKeyError{}
	}
	if err := secrets.Verify(secret, hash); err != nil {
		return domain.InvalidKeyError{}
	}
	return nil
}
