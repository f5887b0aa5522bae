// Package permit implements capability-scoped authorization: signed permits
// naming the actions a holder may exercise against one vault, verified against
// a revocation list before any grant is honored.
package permit

import "fmt"

// CapabilityKind enumerates the closed set of permitted actions. The set is
// deliberately closed: every check site switches exhaustively, so adding a
// kind is a compile-visible change.
type CapabilityKind string

const (
	// CapabilityAdd allows inserting any record into the vault.
	CapabilityAdd CapabilityKind = "add"
	// CapabilityView allows listing the vault's records.
	CapabilityView CapabilityKind = "view"
	// CapabilityViewByID allows viewing exactly one record.
	CapabilityViewByID CapabilityKind = "view_by_id"
)

// Capability is one named allowed action, optionally scoped to a record id.
type Capability struct {
	Kind     CapabilityKind `json:"kind"`
	RecordID string         `json:"record_id,omitempty"`
}

// Add returns the store-global add capability.
func Add() Capability { return Capability{Kind: CapabilityAdd} }

// View returns the store-global listing capability.
func View() Capability { return Capability{Kind: CapabilityView} }

// ViewByID returns the capability scoped to a single record.
func ViewByID(recordID string) Capability {
	return Capability{Kind: CapabilityViewByID, RecordID: recordID}
}

// Allows reports whether this granted capability authorizes the requested one.
// Matching is exact: kinds must be equal, and record-scoped kinds must name
// the same record id. Scope is never widened.
func (c Capability) Allows(requested Capability) bool {
	if c.Kind != requested.Kind {
		return false
	}
	switch c.Kind {
	case CapabilityAdd, CapabilityView:
		return true
	case CapabilityViewByID:
		return c.RecordID != "" && c.RecordID == requested.RecordID
	default:
		return false
	}
}

// Validate rejects malformed capabilities before they are minted into permits.
func (c Capability) Validate() error {
	switch c.Kind {
	case CapabilityAdd, CapabilityView:
		if c.RecordID != "" {
			return fmt.Errorf("capability %q does not take a record id", c.Kind)
		}
		return nil
	case CapabilityViewByID:
		if c.RecordID == "" {
			return fmt.Errorf("capability %q requires a record id", c.Kind)
		}
		return nil
	default:
		return fmt.Errorf("unknown capability kind %q", c.Kind)
	}
}

// Grant is the decoded capability list a verified permit carries.
type Grant struct {
	Capabilities []Capability
}

// Permits reports whether any granted capability authorizes the requested
// action.
func (g Grant) Permits(requested Capability) bool {
	for _, c := range g.Capabilities {
		if c.Allows(requested) {
			return true
		}
	}
	return false
}
