package approvals

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/agriflight/backoffice/internal/platform/httpx"
	"github.com/agriflight/backoffice/internal/shared"
)

// Handler exposes the admin approval queue over JSON.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers approval endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/pending", h.handleListPending)
	r.Post("/{type}/{id}/approve", h.handleApprove)
	r.Post("/{type}/{id}/reject", h.handleReject)
}

type decisionRequest struct {
	ActorID   int64  `json:"actor_id" validate:"required"`
	ActorName string `json:"actor_name" validate:"required"`
	ActorRole string `json:"actor_role"`
	Reason    string `json:"reason"`
	Notes     string `json:"notes"`
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	entityType := EntityType(strings.ToUpper(r.URL.Query().Get("type")))
	snaps, err := h.service.ListPending(r.Context(), entityType)
	if err != nil {
		h.respondError(w, "list pending approvals", err)
		return
	}
	httpx.OK(w, http.StatusOK, "", snaps)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	entityType, id, req, ok := h.parseDecision(w, r)
	if !ok {
		return
	}
	snap, err := h.service.Approve(r.Context(), entityType, id, Actor{ID: req.ActorID, Name: req.ActorName, Role: req.ActorRole}, req.Notes)
	if err != nil {
		h.respondError(w, "approve entity", err)
		return
	}
	httpx.OK(w, http.StatusOK, string(entityType)+" approved", snap)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	entityType, id, req, ok := h.parseDecision(w, r)
	if !ok {
		return
	}
	snap, err := h.service.Reject(r.Context(), entityType, id, Actor{ID: req.ActorID, Name: req.ActorName, Role: req.ActorRole}, req.Reason, req.Notes)
	if err != nil {
		h.respondError(w, "reject entity", err)
		return
	}
	httpx.OK(w, http.StatusOK, string(entityType)+" rejected", snap)
}

func (h *Handler) parseDecision(w http.ResponseWriter, r *http.Request) (EntityType, int64, decisionRequest, bool) {
	entityType := EntityType(strings.ToUpper(chi.URLParam(r, "type")))
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.NewValidationError("id", "malformed identifier"))
		return "", 0, decisionRequest{}, false
	}
	var req decisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", "malformed JSON payload"))
		return "", 0, decisionRequest{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.FromValidator(err))
		return "", 0, decisionRequest{}, false
	}
	return entityType, id, req, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
