// Package provision implements the create-and-notify primitive: the directory
// issues a provision request carrying a correlation token, the runtime
// instantiates the vault out-of-band, and exactly one completion result per
// request is delivered back to the directory's handler.
package provision

import (
	"context"

	"vaultd/internal/domain"
)

// InitPayload is forwarded verbatim to the new vault's constructor.
type InitPayload struct {
	IdentityID   string
	OwnerAddress domain.Address
	Secret       string
}

// Request asks the runtime to create one vault from a template.
type Request struct {
	Template domain.ProvisionTemplate
	Init     InitPayload
	// Token correlates the eventual completion result with this request. The
	// directory allocates a fresh token per registration.
	Token string
}

// CallbackInfo is the confirmation payload a successfully instantiated vault
// returns to the runtime.
type CallbackInfo struct {
	VaultAddress domain.Address
	IdentityID   string
	OwnerAddress domain.Address
	Secret       string
}

// Result is the completion notification for one request. Exactly one of
// Callback or FailureDetail is meaningful: Failed selects which.
type Result struct {
	Token         string
	Callback      *CallbackInfo
	Failed        bool
	FailureDetail string
}

// ResultHandler receives completion notifications. The directory implements
// this; handler errors are terminal for the registration attempt.
type ResultHandler interface {
	HandleProvisionResult(ctx context.Context, res Result) error
}

// Factory instantiates vaults for the template the runtime serves. An error
// becomes a failed Result with the error text as detail.
type Factory interface {
	Instantiate(ctx context.Context, template domain.ProvisionTemplate, init InitPayload) (CallbackInfo, error)
}

// Provisioner is the outbound half of the primitive as the directory sees it:
// accept the request and return immediately.
type Provisioner interface {
	Provision(ctx context.Context, req Request) error
}
