package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/assessio/assessio-backend/domains/orgs/be/service"
	platformlogging "github.com/assessio/assessio-backend/platform/go/logging"
	"github.com/assessio/assessio-backend/platform/go/persistence"
)

// Handler exposes the organization lifecycle over HTTP.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("orgs service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the admin organization endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/orgs", h.create)
	r.Get("/orgs", h.list)
	r.Get("/orgs/{orgID}", h.get)
	r.Post("/orgs/{orgID}/disable", h.disable)
	r.Post("/orgs/{orgID}/enable", h.enable)
	r.Post("/orgs/{orgID}/credits", h.addCredits)
}

type orgResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	SchemaName     string    `json:"schemaName"`
	Status         string    `json:"status"`
	CreditsBalance int64     `json:"creditsBalance"`
	LastError      *string   `json:"lastError,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func toResponse(org service.Organization) orgResponse {
	return orgResponse{
		ID:             org.ID,
		Name:           org.Name,
		SchemaName:     org.SchemaName,
		Status:         string(org.Status),
		CreditsBalance: org.CreditsBalance,
		LastError:      org.LastError,
		CreatedAt:      org.CreatedAt,
		UpdatedAt:      org.UpdatedAt,
	}
}

type createRequest struct {
	Name       string `json:"name"`
	AdminEmail string `json:"adminEmail"`
	AdminName  string `json:"adminName"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	org, err := h.svc.Provision(r.Context(), service.ProvisionInput{
		Name:       req.Name,
		AdminEmail: req.AdminEmail,
		AdminName:  req.AdminName,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) || errors.Is(err, persistence.ErrInvalidSchemaName) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// The registry row may exist with provisioning status; report the
		// failure but let operators retry via CompleteProvisioning.
		platformlogging.FromRequest(r, h.logger).Error("provision organization", zap.Error(err))
		http.Error(w, "provisioning failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(org))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	orgs, err := h.svc.List(r.Context(), limit, offset)
	if err != nil {
		platformlogging.FromRequest(r, h.logger).Error("list organizations", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	items := make([]orgResponse, 0, len(orgs))
	for _, org := range orgs {
		items = append(items, toResponse(org))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := orgIDParam(w, r)
	if !ok {
		return
	}

	org, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "get organization")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(org))
}

func (h *Handler) disable(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.svc.Disable, "disable organization")
}

func (h *Handler) enable(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.svc.Enable, "enable organization")
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id uuid.UUID) error, what string) {
	id, ok := orgIDParam(w, r)
	if !ok {
		return
	}

	if err := op(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err, what)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addCreditsRequest struct {
	Delta int64 `json:"delta"`
}

func (h *Handler) addCredits(w http.ResponseWriter, r *http.Request) {
	id, ok := orgIDParam(w, r)
	if !ok {
		return
	}

	var req addCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	balance, err := h.svc.AddCredits(r.Context(), id, req.Delta)
	if err != nil {
		h.writeServiceError(w, r, err, "add credits")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"creditsBalance": balance})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, what string) {
	if errors.Is(err, service.ErrNotFound) {
		http.Error(w, "organization not found", http.StatusNotFound)
		return
	}
	platformlogging.FromRequest(r, h.logger).Error(what, zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func orgIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		http.Error(w, "invalid organization id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
