package domain

import "fmt"

// Protocol errors are concrete types so callers can branch with errors.As.
// None of them are retried or swallowed; each is the terminal result of the
// operation that produced it.

// UnauthorizedError reports an administrator-only operation attempted by
// another caller, or a vault entry point hit by a sender it does not trust.
type UnauthorizedError struct {
	Caller Address
}

func (e UnauthorizedError) Error() string {
	return fmt.Sprintf("%s is not authorized to perform the requested action", e.Caller)
}

// NonexistentUserError reports an identity that was never registered or whose
// provisioning has not completed yet.
type NonexistentUserError struct {
	ID string
}

func (e NonexistentUserError) Error() string {
	return fmt.Sprintf("identity %q does not exist", e.ID)
}

// InvalidKeyError reports a viewing-secret mismatch.
type InvalidKeyError struct{}

func (InvalidKeyError) Error() string {
	return "invalid viewing key"
}

// InvalidPermitError reports a permit that failed verification or does not
// grant the requested capability. The reason is informational only; callers
// must not branch on it.
type InvalidPermitError struct {
	Reason string
}

func (e InvalidPermitError) Error() string {
	if e.Reason == "" {
		return "provided permit is not valid"
	}
	return fmt.Sprintf("provided permit is not valid: %s", e.Reason)
}

// UnexpectedReplyError reports a provisioning completion whose correlation
// token matches no in-flight registration.
type UnexpectedReplyError struct {
	Token string
}

func (e UnexpectedReplyError) Error() string {
	return fmt.Sprintf("reply token %q was not expected", e.Token)
}

// VaultInstantiationError reports a vault that was created but returned no
// confirmation payload. The directory records no mapping; the orphaned vault
// is unreachable through this protocol.
type VaultInstantiationError struct{}

func (VaultInstantiationError) Error() string {
	return "failed to instantiate a record vault"
}

// ProvisionFailedError carries the platform's failure detail verbatim when
// vault creation itself failed.
type ProvisionFailedError struct {
	Detail string
}

func (e ProvisionFailedError) Error() string {
	return fmt.Sprintf("vault provisioning failed: %s", e.Detail)
}
