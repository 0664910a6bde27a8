package tenanthandler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"zenora/internal/domain/audit"
	"zenora/internal/domain/tenant"
	"zenora/internal/platform/requestctx"
	"zenora/internal/transport/http/api"
	"zenora/internal/transport/http/middleware"
	"zenora/internal/transport/http/shared"
)

type Handler struct {
	Tenants *tenant.Service
	Audit   *audit.Service
}

func New(tenants *tenant.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Tenants: tenants, Audit: auditSvc}
}

// SettingsReadRoutes mounts the per-tenant settings read endpoint.
func (h *Handler) SettingsReadRoutes(r chi.Router) {
	r.Get("/", h.getSettings)
}

// SettingsWriteRoutes mounts the settings update endpoint.
func (h *Handler) SettingsWriteRoutes(r chi.Router) {
	r.Put("/", h.updateSettings)
}

// SystemRoutes mounts the cross-tenant endpoints for system administrators.
func (h *Handler) SystemRoutes(r chi.Router) {
	r.Get("/tenants", h.listTenants)
	r.Post("/tenants", h.createTenant)
	r.Put("/tenants/{id}/status", h.setTenantStatus)
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	settings, err := h.Tenants.GetSettings(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "settings lookup failed")
		return
	}
	api.Success(w, r, settings)
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	before, err := h.Tenants.GetSettings(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "settings lookup failed")
		return
	}

	var settings tenant.Settings
	if err := shared.DecodeJSON(r, &settings); err != nil {
		api.Fail(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	settings.TenantID = user.TenantID

	if err := h.Tenants.UpdateSettings(r.Context(), settings); err != nil {
		if errors.Is(err, tenant.ErrInvalidSettings) {
			api.Fail(w, r, http.StatusBadRequest, "invalid_settings", err.Error())
			return
		}
		slog.Error("settings update failed", "err", err)
		api.Fail(w, r, http.StatusInternalServerError, "internal", "settings update failed")
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, "tenant.settings.update",
		"tenant_settings", user.TenantID, requestctx.GetRequestID(r.Context()), r.RemoteAddr, before, settings); err != nil {
		slog.Warn("audit record failed", "err", err)
	}
	api.Success(w, r, settings)
}

func (h *Handler) listTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.Tenants.ListTenants(r.Context())
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "tenant listing failed")
		return
	}
	api.Success(w, r, tenants)
}

type createTenantBody struct {
	Name string `json:"name"`
}

func (h *Handler) createTenant(w http.ResponseWriter, r *http.Request) {
	var body createTenantBody
	if err := shared.DecodeJSON(r, &body); err != nil {
		api.Fail(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	id, err := h.Tenants.CreateTenant(r.Context(), body.Name)
	if err != nil {
		if errors.Is(err, tenant.ErrInvalidSettings) {
			api.Fail(w, r, http.StatusBadRequest, "invalid_tenant", err.Error())
			return
		}
		slog.Error("tenant creation failed", "err", err)
		api.Fail(w, r, http.StatusInternalServerError, "internal", "tenant creation failed")
		return
	}
	api.Created(w, r, map[string]string{"id": id})
}

type statusBody struct {
	Status string `json:"status"`
}

func (h *Handler) setTenantStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if err := shared.DecodeJSON(r, &body); err != nil {
		api.Fail(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	tenantID := chi.URLParam(r, "id")
	if err := h.Tenants.SetTenantStatus(r.Context(), tenantID, body.Status); err != nil {
		if errors.Is(err, tenant.ErrInvalidSettings) {
			api.Fail(w, r, http.StatusBadRequest, "invalid_status", err.Error())
			return
		}
		api.Fail(w, r, http.StatusInternalServerError, "internal", "tenant status update failed")
		return
	}
	api.Success(w, r, map[string]string{"id": tenantID, "status": body.Status})
}
