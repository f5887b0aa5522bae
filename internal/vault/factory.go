package vault

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"vaultd/internal/dispatch"
	"vaultd/internal/domain"
	"vaultd/internal/permit"
	"vaultd/internal/platform/metrics"
	"vaultd/internal/provision"
)

// Factory instantiates vaults for one provisioning template and registers
// them in the dispatch table. It refuses templates it does not serve, so a
// directory misconfigured with a foreign template fails provisioning instead
// of silently building the wrong store.
type Factory struct {
	template domain.ProvisionTemplate
	registry domain.Address
	verifier permit.Verifier
	table    *dispatch.Table
	newStore func() (RecordStore, error)
	logger   *slog.Logger
	metrics  *metrics.Metrics
	clock    Clock
	pageSize int
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

func FactoryWithLogger(logger *slog.Logger) FactoryOption {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func FactoryWithMetrics(m *metrics.Metrics) FactoryOption {
	return func(f *Factory) {
		f.metrics = m
	}
}

func FactoryWithClock(clock Clock) FactoryOption {
	return func(f *Factory) {
		if clock != nil {
			f.clock = clock
		}
	}
}

func FactoryWithPageSize(size int) FactoryOption {
	return func(f *Factory) {
		if size > 0 {
			f.pageSize = size
		}
	}
}

// NewFactory constructs a factory. newStore builds one fresh RecordStore per
// vault; passing nil selects the in-memory backend.
func NewFactory(
	template domain.ProvisionTemplate,
	registry domain.Address,
	verifier permit.Verifier,
	table *dispatch.Table,
	newStore func() (RecordStore, error),
	opts ...FactoryOption,
) *Factory {
	if newStore == nil {
		newStore = func() (RecordStore, error) { return NewMemoryStore(), nil }
	}
	f := &Factory{
		template: template,
		registry: registry,
		verifier: verifier,
		table:    table,
		newStore: newStore,
		logger:   slog.Default(),
		pageSize: 5,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Instantiate creates a vault and returns its confirmation payload. The vault
// address is minted here; nothing is reachable at it until registration in
// the dispatch table succeeds.
func (f *Factory) Instantiate(ctx context.Context, template domain.ProvisionTemplate, init provision.InitPayload) (provision.CallbackInfo, error) {
	if template != f.template {
		return provision.CallbackInfo{}, fmt.Errorf(
			"factory serves template kind=%d hash=%q, requested kind=%d hash=%q",
			f.template.KindID, f.template.IntegrityHash, template.KindID, template.IntegrityHash,
		)
	}

	store, err := f.newStore()
	if err != nil {
		return provision.CallbackInfo{}, fmt.Errorf("create record store: %w", err)
	}

	addr := domain.Address("vault-" + uuid.NewString())
	opts := []Option{WithLogger(f.logger), WithMetrics(f.metrics), WithPageSize(f.pageSize)}
	if f.clock != nil {
		opts = append(opts, WithClock(f.clock))
	}
	v := New(addr, init.OwnerAddress, f.registry, store, f.verifier, opts...)

	if err := f.table.Register(addr, v); err != nil {
		return provision.CallbackInfo{}, fmt.Errorf("register vault address: %w", err)
	}

	f.logger.InfoContext(ctx, "vault instantiated",
		"vault", addr,
		"identity_id", init.IdentityID,
	)

	return provision.CallbackInfo{
		VaultAddress: addr,
		IdentityID:   init.IdentityID,
		OwnerAddress: init.OwnerAddress,
		Secret:       init.Secret,
	}, nil
}
