// Package shared holds the JSON response helpers every transport handler
// uses, so error envelopes stay uniform across the surface.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	"vaultd/internal/domain"
	dErrors "vaultd/pkg/domain-errors"
	"vaultd/pkg/platform/sentinel"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes v with the given status. Encoding failures are swallowed;
// the header is already on the wire by then.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError translates protocol errors to HTTP responses. Typed protocol
// errors carry their own status; anything unrecognized collapses to 500
// without leaking detail.
func WriteError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	message := ""
	if status != http.StatusInternalServerError {
		message = err.Error()
	}
	WriteJSON(w, status, ErrorResponse{Error: code, Message: message})
}

func classify(err error) (int, string) {
	var (
		unauthorized  domain.UnauthorizedError
		nonexistent   domain.NonexistentUserError
		invalidKey    domain.InvalidKeyError
		invalidPermit domain.InvalidPermitError
		unexpected    domain.UnexpectedReplyError
		failed        domain.ProvisionFailedError
		instantiation domain.VaultInstantiationError
	)
	switch {
	case errors.As(err, &unauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.As(err, &nonexistent):
		return http.StatusNotFound, "nonexistent_user"
	case errors.As(err, &invalidKey):
		return http.StatusUnauthorized, "invalid_viewing_key"
	case errors.As(err, &invalidPermit):
		return http.StatusUnauthorized, "invalid_permit"
	case errors.As(err, &unexpected):
		return http.StatusConflict, "unexpected_reply"
	case errors.As(err, &failed):
		return http.StatusBadGateway, "provision_failed"
	case errors.As(err, &instantiation):
		return http.StatusBadGateway, "vault_instantiation"
	case errors.Is(err, sentinel.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, sentinel.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, sentinel.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	}

	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return dErrors.ToHTTPStatus(coded.Code), string(coded.Code)
	}
	return http.StatusInternalServerError, string(dErrors.CodeInternal)
}
