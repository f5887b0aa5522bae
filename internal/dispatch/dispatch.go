// Package dispatch routes cross-component calls by address. Components never
// touch each other's storage; the table is the only path from the directory to
// a vault, and from the HTTP surface to a vault's own entry points.
package dispatch

import (
	"context"
	"sync"

	"vaultd/internal/domain"
	"vaultd/pkg/platform/sentinel"
)

// VaultClient is the callable surface of one provisioned vault.
type VaultClient interface {
	AddRecord(ctx context.Context, sender domain.Address, recordID string, record domain.Record, permitToken string) error
	Records(ctx context.Context, sender domain.Address, page int, permitToken string) ([]domain.RecordEntry, error)
	ViewByID(ctx context.Context, permitToken, recordID string) (domain.Record, error)
}

// Table is the in-process address table. The provisioning runtime registers
// each new vault under its address; callers look vaults up, never construct
// them.
type Table struct {
	mu     sync.RWMutex
	vaults map[domain.Address]VaultClient
}

func NewTable() *Table {
	return &Table{vaults: make(map[domain.Address]VaultClient)}
}

// Register binds a vault to its address. Addresses are unique for the life of
// the process; a duplicate registration is a conflict, never an overwrite.
func (t *Table) Register(addr domain.Address, v VaultClient) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.vaults[addr]; exists {
		return sentinel.ErrConflict
	}
	t.vaults[addr] = v
	return nil
}

// Vault resolves an address to its client.
func (t *Table) Vault(addr domain.Address) (VaultClient, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.vaults[addr]
	return v, ok
}
