// Package directory implements the central registry: it mediates
// registration, provisions one vault per identity through the asynchronous
// create-and-notify protocol, and proxies record operations to the vault an
// identity resolved to.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"vaultd/internal/audit"
	"vaultd/internal/dispatch"
	"vaultd/internal/domain"
	"vaultd/internal/platform/metrics"
	"vaultd/internal/provision"
	"vaultd/internal/secretstore"
	"vaultd/pkg/platform/sentinel"
)

// IdentityStore is the durable mapping the service consumes; implementations
// live in the store subpackage.
type IdentityStore interface {
	Save(ctx context.Context, identity domain.Identity) error
	Find(ctx context.Context, id string) (domain.Identity, error)
}

// Dispatcher resolves vault addresses to callable clients.
type Dispatcher interface {
	Vault(addr domain.Address) (dispatch.VaultClient, bool)
}

// AuditPublisher receives protocol events; nil disables auditing.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the directory. The administrator address and provisioning
// template are fixed at construction for the service's lifetime.
type Service struct {
	address     domain.Address
	admin       domain.Address
	template    domain.ProvisionTemplate
	identities  IdentityStore
	secrets     secretstore.Store
	provisioner provision.Provisioner
	vaults      Dispatcher

	// pending tracks in-flight registrations by correlation token. A token is
	// consumed by the first completion that names it; later completions are
	// unexpected replies.
	mu      sync.Mutex
	pending map[string]string // token -> identity id, for logging only

	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor AuditPublisher
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = publisher
	}
}

// New constructs the directory service.
func New(
	address domain.Address,
	admin domain.Address,
	template domain.ProvisionTemplate,
	identities IdentityStore,
	secrets secretstore.Store,
	provisioner provision.Provisioner,
	vaults Dispatcher,
	opts ...Option,
) *Service {
	s := &Service{
		address:     address,
		admin:       admin,
		template:    template,
		identities:  identities,
		secrets:     secrets,
		provisioner: provisioner,
		vaults:      vaults,
		pending:     make(map[string]string),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Address returns the directory's own address; vaults trust it as sender on
// the proxied path.
func (s *Service) Address() domain.Address { return s.address }

// SetProvisioner late-binds the provisioner. The provisioning runtime needs
// the service as its completion handler, so one side of the cycle is wired
// after construction. Must be called before the service accepts requests.
func (s *Service) SetProvisioner(p provision.Provisioner) {
	s.provisioner = p
}

// Register starts provisioning a vault for a new identity. Only the
// administrator may call it. No mapping is written here: the identity becomes
// visible only when the completion notification arrives.
func (s *Service) Register(ctx context.Context, caller domain.Address, id string, owner domain.Address, secret string) error {
	if caller != s.admin {
		return domain.UnauthorizedError{Caller: caller}
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.pending[token] = id
	s.mu.Unlock()

	req := provision.Request{
		Template: s.template,
		Init: provision.InitPayload{
			IdentityID:   id,
			OwnerAddress: owner,
			Secret:       secret,
		},
		Token: token,
	}
	if err := s.provisioner.Provision(ctx, req); err != nil {
		s.mu.Lock()
		delete(s.pending, token)
		s.mu.Unlock()
		return fmt.Errorf("issue provision request: %w", err)
	}

	s.metrics.IncrementRegistrationsRequested()
	s.logger.InfoContext(ctx, "registration accepted",
		"identity_id", id,
		"token", token,
	)
	s.emitAudit(ctx, audit.ActionIdentityRegistered, id, caller, "", "")
	return nil
}

// HandleProvisionResult is the completion handler for the create-and-notify
// protocol. It is the only writer of the identity mapping.
func (s *Service) HandleProvisionResult(ctx context.Context, res provision.Result) error {
	s.mu.Lock()
	id, ok := s.pending[res.Token]
	if ok {
		delete(s.pending, res.Token)
	}
	s.mu.Unlock()
	if !ok {
		return domain.UnexpectedReplyError{Token: res.Token}
	}

	if res.Failed {
		s.logger.WarnContext(ctx, "provisioning failed",
			"identity_id", id,
			"detail", res.FailureDetail,
		)
		s.emitAudit(ctx, audit.ActionProvisionFailed, id, "", "", res.FailureDetail)
		return domain.ProvisionFailedError{Detail: res.FailureDetail}
	}
	if res.Callback == nil {
		// The vault exists but confirmed nothing; without its address the
		// mapping cannot be written and the vault stays unreachable.
		s.logger.ErrorContext(ctx, "provision completed without confirmation payload",
			"identity_id", id,
		)
		s.emitAudit(ctx, audit.ActionProvisionFailed, id, "", "", "missing confirmation payload")
		return domain.VaultInstantiationError{}
	}

	cb := res.Callback
	identity := domain.Identity{
		ID:           cb.IdentityID,
		OwnerAddress: cb.OwnerAddress,
		VaultAddress: cb.VaultAddress,
	}
	if err := s.identities.Save(ctx, identity); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return fmt.Errorf("identity %q already mapped: %w", cb.IdentityID, err)
		}
		return fmt.Errorf("save identity mapping: %w", err)
	}
	if err := s.secrets.Set(ctx, cb.IdentityID, cb.Secret); err != nil {
		return fmt.Errorf("store viewing secret: %w", err)
	}

	s.logger.InfoContext(ctx, "vault provisioned",
		"identity_id", cb.IdentityID,
		"vault", cb.VaultAddress,
	)
	s.emitAudit(ctx, audit.ActionVaultProvisioned, cb.IdentityID, "", cb.VaultAddress, "")
	return nil
}

// AddRecord forwards an add to the identity's vault. The vault trusts the
// directory's sender address, so no permit travels on this path; a vault
// failure aborts the whole operation.
func (s *Service) AddRecord(ctx context.Context, identityID, recordID string, record domain.Record) error {
	client, identity, err := s.resolve(ctx, identityID)
	if err != nil {
		return err
	}
	if err := client.AddRecord(ctx, s.address, recordID, record, ""); err != nil {
		return err
	}
	s.emitAudit(ctx, audit.ActionRecordAdded, identityID, "", identity.VaultAddress, recordID)
	return nil
}

// QueryRecords proxies a paginated listing to the identity's vault and
// returns the result verbatim.
func (s *Service) QueryRecords(ctx context.Context, identityID string, page int) ([]domain.RecordEntry, error) {
	client, _, err := s.resolve(ctx, identityID)
	if err != nil {
		return nil, err
	}
	return client.Records(ctx, s.address, page, "")
}

// QueryRecordsByPermit relays a permit-carrying listing. The directory does
// not interpret the permit; the vault performs its own capability check, so
// the call goes out without the trusted sender address.
func (s *Service) QueryRecordsByPermit(ctx context.Context, identityID, permitToken string) ([]domain.RecordEntry, error) {
	client, _, err := s.resolve(ctx, identityID)
	if err != nil {
		return nil, err
	}
	return client.Records(ctx, domain.Address(""), 0, permitToken)
}

// GetInfo returns the identity's addresses after checking the viewing secret.
func (s *Service) GetInfo(ctx context.Context, identityID, secret string) (domain.Identity, error) {
	identity, err := s.identities.Find(ctx, identityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return domain.Identity{}, domain.NonexistentUserError{ID: identityID}
		}
		return domain.Identity{}, fmt.Errorf("find identity: %w", err)
	}
	if err := s.secrets.Check(ctx, identityID, secret); err != nil {
		var invalid domain.InvalidKeyError
		if errors.As(err, &invalid) {
			return domain.Identity{}, invalid
		}
		return domain.Identity{}, fmt.Errorf("check viewing secret: %w", err)
	}
	return identity, nil
}

func (s *Service) resolve(ctx context.Context, identityID string) (dispatch.VaultClient, domain.Identity, error) {
	identity, err := s.identities.Find(ctx, identityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domain.Identity{}, domain.NonexistentUserError{ID: identityID}
		}
		return nil, domain.Identity{}, fmt.Errorf("find identity: %w", err)
	}
	client, ok := s.vaults.Vault(identity.VaultAddress)
	if !ok {
		return nil, domain.Identity{}, fmt.Errorf("vault %s is not reachable: %w", identity.VaultAddress, sentinel.ErrUnavailable)
	}
	return client, identity, nil
}

func (s *Service) emitAudit(ctx context.Context, action audit.Action, identityID string, caller domain.Address, vaultAddr domain.Address, detail string) {
	if s.auditor == nil {
		return
	}
	event := audit.NewEvent(action)
	event.IdentityID = identityID
	event.Caller = caller
	event.VaultAddress = vaultAddr
	event.Detail = detail
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"action", action,
			"error", err.Error(),
		)
	}
}
