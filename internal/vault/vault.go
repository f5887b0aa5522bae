// Package vault implements the per-identity record store. Every entry point
// is gated: the directory's own address passes on the proxied path, everyone
// else presents a permit whose granted capabilities must match the requested
// action exactly.
package vault

import (
	"context"
	"log/slog"
	"time"

	"vaultd/internal/domain"
	"vaultd/internal/permit"
	"vaultd/internal/platform/metrics"
)

// RecordStore is the persistence the vault owns exclusively. Get returns
// sentinel.ErrNotFound for absent ids.
type RecordStore interface {
	Insert(ctx context.Context, id string, record domain.Record) error
	Get(ctx context.Context, id string) (domain.Record, error)
	Contains(ctx context.Context, id string) (bool, error)
	Page(ctx context.Context, page, size int) ([]domain.RecordEntry, error)
}

// Clock abstracts time.Now; record timestamps come from the vault, not the
// caller.
type Clock func() time.Time

// Vault holds one identity's records.
type Vault struct {
	address  domain.Address
	owner    domain.Address
	registry domain.Address
	records  RecordStore
	verifier permit.Verifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	clock    Clock
	pageSize int
}

// Option configures a Vault.
type Option func(*Vault)

func WithLogger(logger *slog.Logger) Option {
	return func(v *Vault) {
		if logger != nil {
			v.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Vault) {
		v.metrics = m
	}
}

func WithClock(clock Clock) Option {
	return func(v *Vault) {
		if clock != nil {
			v.clock = clock
		}
	}
}

func WithPageSize(size int) Option {
	return func(v *Vault) {
		if size > 0 {
			v.pageSize = size
		}
	}
}

// New constructs a vault. The registry address is the only sender trusted
// without a permit; it is captured once at instantiation and never changes.
func New(address, owner, registry domain.Address, records RecordStore, verifier permit.Verifier, opts ...Option) *Vault {
	v := &Vault{
		address:  address,
		owner:    owner,
		registry: registry,
		records:  records,
		verifier: verifier,
		logger:   slog.Default(),
		clock:    time.Now,
		pageSize: 5,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Address returns the vault's own address.
func (v *Vault) Address() domain.Address { return v.address }

// Owner returns the owner address recorded at instantiation.
func (v *Vault) Owner() domain.Address { return v.owner }

// AddRecord inserts or overwrites a record. The directory may call without a
// permit; any other sender needs the add capability. Overwrite is
// last-writer-wins with no history.
func (v *Vault) AddRecord(ctx context.Context, sender domain.Address, recordID string, record domain.Record, permitToken string) error {
	if sender != v.registry {
		if err := v.authorize(ctx, permitToken, permit.Add()); err != nil {
			return err
		}
	}

	record.CreatedAt = v.clock()
	if err := v.records.Insert(ctx, recordID, record); err != nil {
		return err
	}
	v.metrics.IncrementRecordsAdded()
	v.logger.InfoContext(ctx, "record stored",
		"vault", v.address,
		"record_id", recordID,
	)
	return nil
}

// Records lists a page of records in insertion order. The directory passes;
// other senders need the listing capability.
func (v *Vault) Records(ctx context.Context, sender domain.Address, page int, permitToken string) ([]domain.RecordEntry, error) {
	if sender != v.registry {
		if err := v.authorize(ctx, permitToken, permit.View()); err != nil {
			return nil, err
		}
	}
	return v.records.Page(ctx, page, v.pageSize)
}

// ViewByID returns one record. The permit must grant view_by_id for exactly
// this record; there is no trusted-sender bypass on this path.
func (v *Vault) ViewByID(ctx context.Context, permitToken, recordID string) (domain.Record, error) {
	if err := v.authorize(ctx, permitToken, permit.ViewByID(recordID)); err != nil {
		return domain.Record{}, err
	}
	return v.records.Get(ctx, recordID)
}

func (v *Vault) authorize(ctx context.Context, permitToken string, requested permit.Capability) error {
	grant, err := v.verifier.Verify(ctx, permitToken, v.address)
	if err != nil {
		v.metrics.IncrementPermitDenials()
		return err
	}
	if !grant.Permits(requested) {
		v.metrics.IncrementPermitDenials()
		v.logger.WarnContext(ctx, "permit lacks requested capability",
			"vault", v.address,
			"capability", requested.Kind,
		)
		return domain.InvalidPermitError{Reason: "capability not granted"}
	}
	return nil
}
