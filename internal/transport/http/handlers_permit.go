package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vaultd/internal/permit"
	"vaultd/internal/platform/middleware"
	"vaultd/internal/transport/http/shared"
	dErrors "vaultd/pkg/domain-errors"
)

// PermitHandler exposes permit withdrawal. A holder posts the permit they
// want dead; its id goes on the revocation list until the permit would have
// expired on its own.
type PermitHandler struct {
	revocations permit.RevocationList
	logger      *slog.Logger
	now         func() time.Time
}

func NewPermitHandler(revocations permit.RevocationList, logger *slog.Logger) *PermitHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PermitHandler{revocations: revocations, logger: logger, now: time.Now}
}

// Register mounts the permit routes.
func (h *PermitHandler) Register(r chi.Router) {
	r.Post("/permits/revoke", h.handleRevoke)
}

func (h *PermitHandler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req permitQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Permit == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "permit is required"))
		return
	}

	jti, ttl, err := permit.RevocationWindow(req.Permit, h.now())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.revocations.Revoke(ctx, jti, ttl); err != nil {
		h.logger.ErrorContext(ctx, "permit revocation failed",
			"request_id", middleware.GetRequestID(ctx),
			"jti", jti,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "revocation list unavailable"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
