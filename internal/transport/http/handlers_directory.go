package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"vaultd/internal/audit"
	"vaultd/internal/domain"
	"vaultd/internal/platform/middleware"
	"vaultd/internal/transport/http/shared"
	dErrors "vaultd/pkg/domain-errors"
)

// CallerHeader names the header the transport reads the caller address from.
// The protocol authenticates by address; upstream termination is expected to
// have established it.
const CallerHeader = "X-Caller-Address"

// DirectoryService is the registry surface the handler consumes.
type DirectoryService interface {
	Register(ctx context.Context, caller domain.Address, id string, owner domain.Address, secret string) error
	AddRecord(ctx context.Context, identityID, recordID string, record domain.Record) error
	QueryRecords(ctx context.Context, identityID string, page int) ([]domain.RecordEntry, error)
	QueryRecordsByPermit(ctx context.Context, identityID, permitToken string) ([]domain.RecordEntry, error)
	GetInfo(ctx context.Context, identityID, secret string) (domain.Identity, error)
}

// AuditReader lists the audit trail for one identity.
type AuditReader interface {
	ListByIdentity(ctx context.Context, identityID string) ([]audit.Event, error)
}

// DirectoryHandler exposes the registry endpoints.
type DirectoryHandler struct {
	directory DirectoryService
	audits    AuditReader
	logger    *slog.Logger
}

func NewDirectoryHandler(directory DirectoryService, logger *slog.Logger, opts ...DirectoryHandlerOption) *DirectoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &DirectoryHandler{directory: directory, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

type DirectoryHandlerOption func(*DirectoryHandler)

// WithAuditReader enables the audit trail endpoint.
func WithAuditReader(audits AuditReader) DirectoryHandlerOption {
	return func(h *DirectoryHandler) {
		h.audits = audits
	}
}

// Register mounts the registry routes.
func (h *DirectoryHandler) Register(r chi.Router) {
	r.Post("/registry/register", h.handleRegister)
	r.Post("/registry/identities/{id}/records", h.handleAddRecord)
	r.Get("/registry/identities/{id}/records", h.handleQueryRecords)
	r.Post("/registry/identities/{id}/records/query", h.handleQueryByPermit)
	r.Post("/registry/identities/{id}/info", h.handleGetInfo)
	if h.audits != nil {
		r.Get("/registry/identities/{id}/audit", h.handleAuditTrail)
	}
}

func (h *DirectoryHandler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	events, err := h.audits.ListByIdentity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string][]audit.Event{"events": events})
}

type registerRequest struct {
	ID           string `json:"id"`
	OwnerAddress string `json:"owner_address"`
	Secret       string `json:"secret"`
}

type recordPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Data        string `json:"data"`
}

type addRecordRequest struct {
	RecordID string        `json:"record_id"`
	Record   recordPayload `json:"record"`
}

type permitQueryRequest struct {
	Permit string `json:"permit"`
}

type infoRequest struct {
	Secret string `json:"secret"`
}

type recordEntryResponse struct {
	ID        string        `json:"id"`
	Record    recordPayload `json:"record"`
	CreatedAt time.Time     `json:"created_at"`
}

type recordPageResponse struct {
	Records []recordEntryResponse `json:"records"`
	Page    int                   `json:"page"`
}

func (h *DirectoryHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := domain.Address(r.Header.Get(CallerHeader))

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.ID == "" || req.OwnerAddress == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "id and owner_address are required"))
		return
	}

	err := h.directory.Register(ctx, caller, req.ID, domain.Address(req.OwnerAddress), req.Secret)
	if err != nil {
		h.logger.WarnContext(ctx, "registration rejected",
			"request_id", middleware.GetRequestID(ctx),
			"identity_id", req.ID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *DirectoryHandler) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID := chi.URLParam(r, "id")

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
	if err := h.directory.AddRecord(ctx, identityID, req.RecordID, record); err != nil {
		h.logger.WarnContext(ctx, "add record failed",
			"request_id", middleware.GetRequestID(ctx),
			"identity_id", identityID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DirectoryHandler) handleQueryRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID := chi.URLParam(r, "id")

	page, err := parsePage(r.URL.Query().Get("page"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	entries, err := h.directory.QueryRecords(ctx, identityID, page)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toPageResponse(entries, page))
}

func (h *DirectoryHandler) handleQueryByPermit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID := chi.URLParam(r, "id")

	var req permitQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Permit == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "permit is required"))
		return
	}

	entries, err := h.directory.QueryRecordsByPermit(ctx, identityID, req.Permit)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toPageResponse(entries, 0))
}

func (h *DirectoryHandler) handleGetInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID := chi.URLParam(r, "id")

	var req infoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	identity, err := h.directory.GetInfo(ctx, identityID, req.Secret)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{
		"address":       string(identity.OwnerAddress),
		"store_address": string(identity.VaultAddress),
	})
}

func parsePage(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "page must be a non-negative integer")
	}
	return page, nil
}

func toPageResponse(entries []domain.RecordEntry, page int) recordPageResponse {
	out := recordPageResponse{Records: make([]recordEntryResponse, 0, len(entries)), Page: page}
	for _, e := range entries {
		out.Records = append(out.Records, recordEntryResponse{
			ID: e.ID,
			Record: recordPayload{
				Title:       e.Record.Title,
				Description: e.Record.Description,
				Data:        e.Record.Data,
			},
			CreatedAt: e.Record.CreatedAt,
		})
	}
	return out
}
