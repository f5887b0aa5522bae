// Package audit captures protocol-significant actions. Events are emitted
// from domain logic and fanned out by publishers; keep them
// transport-agnostic.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"vaultd/internal/domain"
)

// Action names what happened.
type Action string

const (
	ActionIdentityRegistered Action = "identity.registered"
	ActionVaultProvisioned   Action = "vault.provisioned"
	ActionProvisionFailed    Action = "vault.provision_failed"
	ActionRecordAdded        Action = "record.added"
)

// Event is one audit entry.
type Event struct {
	ID           uuid.UUID      `json:"id"`
	Action       Action         `json:"action"`
	IdentityID   string         `json:"identity_id,omitempty"`
	Caller       domain.Address `json:"caller,omitempty"`
	VaultAddress domain.Address `json:"vault_address,omitempty"`
	Detail       string         `json:"detail,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// NewEvent stamps id and timestamp.
func NewEvent(action Action) Event {
	return Event{ID: uuid.New(), Action: action, Timestamp: time.Now().UTC()}
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByIdentity(ctx context.Context, identityID string) ([]Event, error)
}

// Publisher emits audit events. Publishing failures are the caller's to
// handle; this protocol logs and continues (operational, not compliance,
// semantics).
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
