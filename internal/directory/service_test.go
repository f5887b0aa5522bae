package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultd/internal/directory/store"
	"vaultd/internal/dispatch"
	"vaultd/internal/domain"
	"vaultd/internal/permit"
	"vaultd/internal/permit/revocation"
	"vaultd/internal/provision"
	"vaultd/internal/secretstore"
	"vaultd/internal/vault"
)

const (
	adminAddr     = domain.Address("admin")
	directoryAddr = domain.Address("directory")
	ownerAddr     = domain.Address("owner-1")

	signingKey = "directory-test-key"
	issuerName = "vaultd-test"

	testPermitTTL = time.Hour
)

var template = domain.ProvisionTemplate{KindID: 1, IntegrityHash: "vault-v1"}

// capturingProvisioner records requests without executing them, so tests can
// observe the window between register and completion.
type capturingProvisioner struct {
	requests []provision.Request
}

func (p *capturingProvisioner) Provision(_ context.Context, req provision.Request) error {
	p.requests = append(p.requests, req)
	return nil
}

// immediateProvisioner instantiates the vault inline and delivers the
// completion synchronously, collapsing the asynchronous protocol for
// end-to-end tests.
type immediateProvisioner struct {
	factory provision.Factory
	handler provision.ResultHandler
}

func (p *immediateProvisioner) Provision(ctx context.Context, req provision.Request) error {
	res := provision.Result{Token: req.Token}
	info, err := p.factory.Instantiate(ctx, req.Template, req.Init)
	if err != nil {
		res.Failed = true
		res.FailureDetail = err.Error()
	} else {
		res.Callback = &info
	}
	return p.handler.HandleProvisionResult(ctx, res)
}

type fixture struct {
	svc         *Service
	provisioner *capturingProvisioner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	p := &capturingProvisioner{}
	svc := New(directoryAddr, adminAddr, template, store.NewMemory(), secretstore.NewMemory(), p, dispatch.NewTable())
	return &fixture{svc: svc, provisioner: p}
}

// newWiredService builds a directory backed by a real factory with inline
// completion delivery.
func newWiredService(t *testing.T) (*Service, *dispatch.Table, *permit.Issuer) {
	t.Helper()
	table := dispatch.NewTable()
	verifier := permit.NewJWTVerifier(signingKey, issuerName, revocation.NewMemoryList())
	factory := vault.NewFactory(template, directoryAddr, verifier, table, nil)

	p := &immediateProvisioner{factory: factory}
	svc := New(directoryAddr, adminAddr, template, store.NewMemory(), secretstore.NewMemory(), p, table)
	p.handler = svc
	return svc, table, permit.NewIssuer(signingKey, issuerName)
}

func successResult(f *fixture, idx int) provision.Result {
	req := f.provisioner.requests[idx]
	return provision.Result{
		Token: req.Token,
		Callback: &provision.CallbackInfo{
			VaultAddress: domain.Address("vault-" + req.Init.IdentityID),
			IdentityID:   req.Init.IdentityID,
			OwnerAddress: req.Init.OwnerAddress,
			Secret:       req.Init.Secret,
		},
	}
}

func TestRegisterGating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	err := f.svc.Register(ctx, domain.Address("mallory"), "alice", ownerAddr, "pw")
	var unauthorized domain.UnauthorizedError
	require.True(t, errors.As(err, &unauthorized))
	assert.Equal(t, domain.Address("mallory"), unauthorized.Caller)
	assert.Empty(t, f.provisioner.requests)

	require.NoError(t, f.svc.Register(ctx, adminAddr, "alice", ownerAddr, "pw"))
	require.Len(t, f.provisioner.requests, 1)

	req := f.provisioner.requests[0]
	assert.Equal(t, template, req.Template)
	assert.Equal(t, "alice", req.Init.IdentityID)
	assert.Equal(t, ownerAddr, req.Init.OwnerAddress)
	assert.NotEmpty(t, req.Token)
}

func TestRegisterAllocatesUniqueTokens(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.svc.Register(ctx, adminAddr, "alice", ownerAddr, "pw"))
	require.NoError(t, f.svc.Register(ctx, adminAddr, "bob", ownerAddr, "pw"))
	require.Len(t, f.provisioner.requests, 2)
	assert.NotEqual(t, f.provisioner.requests[0].Token, f.provisioner.requests[1].Token)
}

func TestNoMappingBeforeCompletion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.svc.Register(ctx, adminAddr, "alice", ownerAddr, "pw"))

	var nonexistent domain.NonexistentUserError
	_, err := f.svc.GetInfo(ctx, "alice", "pw")
	require.True(t, errors.As(err, &nonexistent))

	_, err = f.svc.QueryRecords(ctx, "alice", 0)
	require.True(t, errors.As(err, &nonexistent))

	err = f.svc.AddRecord(ctx, "alice", "r1", domain.Record{Title: "t"})
	require.True(t, errors.As(err, &nonexistent))
}

func TestMappingAfterSuccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.svc.Register(ctx, adminAddr, "alice", ownerAddr, "pw"))
	require.NoError(t, f.svc.HandleProvisionResult(ctx, successResult(f, 0)))

	identity, err := f.svc.GetInfo(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, ownerAddr, identity.OwnerAddress)
	assert.Equal(t, domain.Address("vault-alice"), identity.VaultAddress)

	_, err = f.svc.GetInfo(ctx, "alice", "wrong")
	var invalidKey domain.InvalidKeyError
	require.True(t, errors.As(err, &invalidKey))
}

func TestCompletionUnknownToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	err := f.svc.HandleProvisionResult(ctx, provision.Result{Token: "never-issued"})
	var unexpected domain.UnexpectedReplyError
	require.True(t, errors.As(err, &unexpected))
	assert.Equal(t, "never-issued", unexpected.Token)
}

func TestCompletionTokenConsumedOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.svc.Register(ctx, adminAddr, "alice", ownerAddr, "pw"))
	res := successResult(f, 0)
	require.NoError(t, f.svc.HandleProvisionResult(ctx, res))

	err := f.svc.HandleProvisionResult(ctx, res)
	var unexpected domain.UnexpectedReplyError
	require.True(t, errors.As(err, &unexpected), "second completion must be rejected, got %v", err)

	// The first write survives untouched.
	identity, err := f.svc.GetInfo(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, domain.Address("vault-alice"), identity.VaultAddress)
}

func TestCompletionFailurePassesDetailVerbatim(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.svc.Register(ctx, adminAddr, "alice", ownerAddr, "pw"))
	err := f.svc.HandleProvisionResult(ctx, provision.Result{
		Token:         f.provisioner.requests[0].Token,
		Failed:        true,
		FailureDetail: "code hash mismatch",
	})

	var failed domain.ProvisionFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, "code hash mismatch", failed.Detail)

	var nonexistent domain.NonexistentUserError
	_, err = f.svc.GetInfo(ctx, "alice", "pw")
	require.True(t, errors.As(err, &nonexistent), "failed provisioning must leave no mapping")
}

func TestCompletionMissingPayload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.svc.Register(ctx, adminAddr, "alice", ownerAddr, "pw"))
	err := f.svc.HandleProvisionResult(ctx, provision.Result{Token: f.provisioner.requests[0].Token})

	var instantiation domain.VaultInstantiationError
	require.True(t, errors.As(err, &instantiation))

	var nonexistent domain.NonexistentUserError
	_, err = f.svc.GetInfo(ctx, "alice", "pw")
	require.True(t, errors.As(err, &nonexistent))
}

func TestEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	svc, table, issuer := newWiredService(t)

	// Administrator registers alice; provisioning completes inline.
	require.NoError(t, svc.Register(ctx, adminAddr, "alice", ownerAddr, "pw"))

	identity, err := svc.GetInfo(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, ownerAddr, identity.OwnerAddress)
	require.NotEmpty(t, identity.VaultAddress)

	// Directory-proxied add and query.
	require.NoError(t, svc.AddRecord(ctx, "alice", "r1", domain.Record{Title: "checkup", Data: "fine"}))
	entries, err := svc.QueryRecords(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "r1", entries[0].ID)
	assert.False(t, entries[0].Record.CreatedAt.IsZero(), "vault must stamp the record")

	// Direct vault access without a permit fails; with scope-matching permits
	// it succeeds.
	client, ok := table.Vault(identity.VaultAddress)
	require.True(t, ok)

	err = client.AddRecord(ctx, domain.Address("patient-app"), "r2", domain.Record{Title: "note"}, "")
	var invalidPermit domain.InvalidPermitError
	require.True(t, errors.As(err, &invalidPermit))

	viewToken, err := issuer.Issue(identity.VaultAddress, []permit.Capability{permit.ViewByID("r1")}, testPermitTTL)
	require.NoError(t, err)
	rec, err := client.ViewByID(ctx, viewToken, "r1")
	require.NoError(t, err)
	assert.Equal(t, "checkup", rec.Title)

	_, err = client.ViewByID(ctx, viewToken, "r2")
	require.True(t, errors.As(err, &invalidPermit), "scope must not widen")

	// Permit-relayed listing through the directory.
	listToken, err := issuer.Issue(identity.VaultAddress, []permit.Capability{permit.View()}, testPermitTTL)
	require.NoError(t, err)
	relayed, err := svc.QueryRecordsByPermit(ctx, "alice", listToken)
	require.NoError(t, err)
	require.Len(t, relayed, 1)

	_, err = svc.QueryRecordsByPermit(ctx, "alice", viewToken)
	require.True(t, errors.As(err, &invalidPermit), "view_by_id permit must not authorize listing")
}

func TestWiredFactoryRejectsForeignTemplate(t *testing.T) {
	ctx := context.Background()
	table := dispatch.NewTable()
	verifier := permit.NewJWTVerifier(signingKey, issuerName, revocation.NewMemoryList())
	factory := vault.NewFactory(domain.ProvisionTemplate{KindID: 9, IntegrityHash: "other"}, directoryAddr, verifier, table, nil)

	p := &immediateProvisioner{factory: factory}
	svc := New(directoryAddr, adminAddr, template, store.NewMemory(), secretstore.NewMemory(), p, table)
	p.handler = svc

	// The factory serves a different template, so the inline completion
	// carries a failure and Register surfaces it.
	err := svc.Register(ctx, adminAddr, "alice", ownerAddr, "pw")
	var failed domain.ProvisionFailedError
	require.True(t, errors.As(err, &failed))

	var nonexistent domain.NonexistentUserError
	_, err = svc.GetInfo(ctx, "alice", "pw")
	require.True(t, errors.As(err, &nonexistent))
}
