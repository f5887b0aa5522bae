// Package domain holds the core types of the record-vault protocol: addresses,
// identities, records, and the provisioning template, plus the typed errors
// every operation surfaces.
package domain

import "time"

// Address names a protocol participant: the administrator, an identity owner,
// the directory itself, or a provisioned vault.
type Address string

// ProvisionTemplate identifies which vault implementation and version the
// directory instantiates for new identities. Set once at directory
// construction and read-only thereafter.
type ProvisionTemplate struct {
	KindID        uint64 `json:"kind_id"`
	IntegrityHash string `json:"integrity_hash"`
}

// Identity is the directory's durable mapping entry for one registrant. The
// vault address is only ever written after the vault confirms it exists; once
// written it is immutable.
type Identity struct {
	ID           string  `json:"id"`
	OwnerAddress Address `json:"address"`
	VaultAddress Address `json:"vault_address"`
}

// Record is a single stored entry in a vault. The creation timestamp is
// assigned by the vault, not the caller.
type Record struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Data        string    `json:"data"`
	CreatedAt   time.Time `json:"created_at"`
}

// RecordEntry pairs a record with its caller-chosen id for paginated listings.
type RecordEntry struct {
	ID     string `json:"id"`
	Record Record `json:"record"`
}
