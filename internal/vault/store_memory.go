package vault

import (
	"context"

	"vaultd/internal/domain"
	"vaultd/internal/keyedstore"
	"vaultd/pkg/platform/sentinel"
)

// MemoryStore adapts the insertion-ordered keyed store to the RecordStore
// contract. It is the default backend; the sqlite subpackage is the durable
// pair.
type MemoryStore struct {
	entries *keyedstore.Store[string, domain.Record]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: keyedstore.New[string, domain.Record]()}
}

func (s *MemoryStore) Insert(_ context.Context, id string, record domain.Record) error {
	s.entries.Insert(id, record)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (domain.Record, error) {
	record, ok := s.entries.Get(id)
	if !ok {
		return domain.Record{}, sentinel.ErrNotFound
	}
	return record, nil
}

func (s *MemoryStore) Contains(_ context.Context, id string) (bool, error) {
	return s.entries.Contains(id), nil
}

func (s *MemoryStore) Page(_ context.Context, page, size int) ([]domain.RecordEntry, error) {
	entries := s.entries.Page(page, size)
	out := make([]domain.RecordEntry, len(entries))
	for i, e := range entries {
		out[i] = domain.RecordEntry{ID: e.Key, Record: e.Value}
	}
	return out, nil
}
