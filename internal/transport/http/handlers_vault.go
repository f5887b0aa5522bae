package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"vaultd/internal/dispatch"
	"vaultd/internal/domain"
	"vaultd/internal/platform/middleware"
	"vaultd/internal/transport/http/shared"
	dErrors "vaultd/pkg/domain-errors"
)

// Dispatcher resolves vault addresses to callable clients.
type Dispatcher interface {
	Vault(addr domain.Address) (dispatch.VaultClient, bool)
}

// VaultHandler exposes the per-vault endpoints. Callers reach a vault
// directly by address; permits travel as bearer tokens. The HTTP surface
// never forwards a sender identity: the directory reaches vaults
// in-process through the dispatch table, so every HTTP caller must hold
// a permit.
type VaultHandler struct {
	vaults Dispatcher
	logger *slog.Logger
}

func NewVaultHandler(vaults Dispatcher, logger *slog.Logger) *VaultHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VaultHandler{vaults: vaults, logger: logger}
}

// Register mounts the vault routes.
func (h *VaultHandler) Register(r chi.Router) {
	r.Post("/vaults/{address}/records", h.handleAddRecord)
	r.Get("/vaults/{address}/records", h.handleListRecords)
	r.Get("/vaults/{address}/records/{recordID}", h.handleViewRecord)
}

func (h *VaultHandler) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	client, ok := h.resolve(w, r)
	if !ok {
		return
	}

	var req addRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.RecordID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "record_id is required"))
		return
	}

	record := domain.Record{
		Title:       req.Record.Title,
		Description: req.Record.Description,
		Data:        req.Record.Data,
	}
	if err := client.AddRecord(ctx, domain.Address(""), req.RecordID, record, bearerToken(r)); err != nil {
		h.logger.WarnContext(ctx, "vault add record rejected",
			"request_id", middleware.GetRequestID(ctx),
			"vault", chi.URLParam(r, "address"),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *VaultHandler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	client, ok := h.resolve(w, r)
	if !ok {
		return
	}

	page, err := parsePage(r.URL.Query().Get("page"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	entries, err := client.Records(ctx, domain.Address(""), page, bearerToken(r))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toPageResponse(entries, page))
}

func (h *VaultHandler) handleViewRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	client, ok := h.resolve(w, r)
	if !ok {
		return
	}

	recordID := chi.URLParam(r, "recordID")
	record, err := client.ViewByID(ctx, bearerToken(r), recordID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, recordEntryResponse{
		ID: recordID,
		Record: recordPayload{
			Title:       record.Title,
			Description: record.Description,
			Data:        record.Data,
		},
		CreatedAt: record.CreatedAt,
	})
}

func (h *VaultHandler) resolve(w http.ResponseWriter, r *http.Request) (dispatch.VaultClient, bool) {
	addr := domain.Address(chi.URLParam(r, "address"))
	client, ok := h.vaults.Vault(addr)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no vault at address"))
		return nil, false
	}
	return client, true
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return token
	}
	return ""
}
