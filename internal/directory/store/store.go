// Package store persists the directory's identity mapping. Entries are
// write-once: a vault is never re-provisioned for the same id, so Save
// refuses to replace an existing mapping.
package store

import (
	"context"
	"sync"

	"vaultd/internal/domain"
	"vaultd/pkg/platform/sentinel"
)

// IdentityStore is the directory's durable mapping.
type IdentityStore interface {
	// Save writes a new entry; an existing id is sentinel.ErrConflict.
	Save(ctx context.Context, identity domain.Identity) error
	// Find returns the entry or sentinel.ErrNotFound.
	Find(ctx context.Context, id string) (domain.Identity, error)
}

// Memory keeps the mapping in process memory.
type Memory struct {
	mu         sync.RWMutex
	identities map[string]domain.Identity
}

func NewMemory() *Memory {
	return &Memory{identities: make(map[string]domain.Identity)}
}

func (s *Memory) Save(_ context.Context, identity domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.identities[identity.ID]; exists {
		return sentinel.ErrConflict
	}
	s.identities[identity.ID] = identity
	return nil
}

func (s *Memory) Find(_ context.Context, id string) (domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if identity, ok := s.identities[id]; ok {
		return identity, nil
	}
	return domain.Identity{}, sentinel.ErrNotFound
}
