package provision

import (
	"context"
	"errors"
	"testing"
	"time"

	"vaultd/internal/domain"
)

type fakeFactory struct {
	fail bool
}

func (f *fakeFactory) Instantiate(_ context.Context, _ domain.ProvisionTemplate, init InitPayload) (CallbackInfo, error) {
	if f.fail {
		return CallbackInfo{}, errors.New("out of gas")
	}
	return CallbackInfo{
		VaultAddress: domain.Address("vault-" + init.IdentityID),
		IdentityID:   init.IdentityID,
		OwnerAddress: init.OwnerAddress,
		Secret:       init.Secret,
	}, nil
}

type capturingHandler struct {
	results chan Result
}

func (h *capturingHandler) HandleProvisionResult(_ context.Context, res Result) error {
	h.results <- res
	return nil
}

func startRuntime(t *testing.T, factory Factory) (*Runtime, *capturingHandler) {
	t.Helper()
	handler := &capturingHandler{results: make(chan Result, 4)}
	rt := NewRuntime(factory, handler)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = rt.Run(ctx) }()
	return rt, handler
}

func waitResult(t *testing.T, handler *capturingHandler) Result {
	t.Helper()
	select {
	case res := <-handler.results:
		return res
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for completion result")
		return Result{}
	}
}

func TestRuntimeDeliversSuccess(t *testing.T) {
	rt, handler := startRuntime(t, &fakeFactory{})

	req := Request{
		Template: domain.ProvisionTemplate{KindID: 1, IntegrityHash: "vault-v1"},
		Init:     InitPayload{IdentityID: "alice", OwnerAddress: "owner-1", Secret: "pw"},
		Token:    "tok-1",
	}
	if err := rt.Provision(context.Background(), req); err != nil {
		t.Fatalf("provision failed: %v", err)
	}

	res := waitResult(t, handler)
	if res.Token != "tok-1" {
		t.Fatalf("expected token tok-1, got %q", res.Token)
	}
	if res.Failed || res.Callback == nil {
		t.Fatalf("expected success result, got %+v", res)
	}
	if res.Callback.IdentityID != "alice" || res.Callback.Secret != "pw" {
		t.Fatalf("callback payload mismatch: %+v", res.Callback)
	}
	if res.Callback.VaultAddress == "" {
		t.Fatalf("expected a vault address in the callback")
	}
}

func TestRuntimeDeliversFailureDetailVerbatim(t *testing.T) {
	rt, handler := startRuntime(t, &fakeFactory{fail: true})

	req := Request{Init: InitPayload{IdentityID: "bob"}, Token: "tok-2"}
	if err := rt.Provision(context.Background(), req); err != nil {
		t.Fatalf("provision failed: %v", err)
	}

	res := waitResult(t, handler)
	if !res.Failed {
		t.Fatalf("expected failed result")
	}
	if res.FailureDetail != "out of gas" {
		t.Fatalf("expected failure detail passed through verbatim, got %q", res.FailureDetail)
	}
	if res.Callback != nil {
		t.Fatalf("failed result must not carry a callback")
	}
}

func TestRuntimeOneResultPerRequest(t *testing.T) {
	rt, handler := startRuntime(t, &fakeFactory{})

	for i, token := range []string{"a", "b", "c"} {
		req := Request{Init: InitPayload{IdentityID: string(rune('x' + i))}, Token: token}
		if err := rt.Provision(context.Background(), req); err != nil {
			t.Fatalf("provision %d failed: %v", i, err)
		}
	}

	seen := map[string]int{}
	for range 3 {
		res := waitResult(t, handler)
		seen[res.Token]++
	}
	for _, token := range []string{"a", "b", "c"} {
		if seen[token] != 1 {
			t.Fatalf("expected exactly one result for %q, got %d", token, seen[token])
		}
	}

	select {
	case res := <-handler.results:
		t.Fatalf("unexpected extra result: %+v", res)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestProvisionRequiresToken(t *testing.T) {
	rt := NewRuntime(&fakeFactory{}, &capturingHandler{results: make(chan Result, 1)})
	if err := rt.Provision(context.Background(), Request{}); err == nil {
		t.Fatalf("expected error for missing correlation token")
	}
}
