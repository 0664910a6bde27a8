package notificationhandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"zenora/internal/domain/notifications"
	"zenora/internal/transport/http/api"
	"zenora/internal/transport/http/middleware"
	"zenora/internal/transport/http/shared"
)

type Handler struct {
	Notifications *notifications.Service
}

func New(notifier *notifications.Service) *Handler {
	return &Handler{Notifications: notifier}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/unread-count", h.unreadCount)
	r.Post("/{id}/read", h.markRead)
}

// SettingsRoutes mounts the tenant email delivery toggle.
func (h *Handler) SettingsRoutes(r chi.Router) {
	r.Get("/email", h.emailSettings)
	r.Put("/email", h.updateEmailSettings)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	limit, offset := shared.Pagination(r)
	items, err := h.Notifications.List(r.Context(), user.TenantID, user.UserID, limit, offset)
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "notification listing failed")
		return
	}
	api.Success(w, r, items)
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	count, err := h.Notifications.CountUnread(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "notification count failed")
		return
	}
	api.Success(w, r, map[string]int{"unread": count})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	if err := h.Notifications.MarkRead(r.Context(), user.TenantID, user.UserID, chi.URLParam(r, "id")); err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "could not mark notification read")
		return
	}
	api.Success(w, r, map[string]bool{"read": true})
}

func (h *Handler) emailSettings(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	enabled, from, err := h.Notifications.EmailSettings(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "email settings lookup failed")
		return
	}
	api.Success(w, r, map[string]any{"emailEnabled": enabled, "emailFrom": from})
}

type emailSettingsBody struct {
	EmailEnabled bool   `json:"emailEnabled"`
	EmailFrom    string `json:"emailFrom"`
}

func (h *Handler) updateEmailSettings(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var body emailSettingsBody
	if err := shared.DecodeJSON(r, &body); err != nil {
		api.Fail(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if body.EmailEnabled && !shared.ValidEmail(body.EmailFrom) {
		api.Fail(w, r, http.StatusBadRequest, "invalid_email", "emailFrom must be a valid address when email is enabled")
		return
	}
	if err := h.Notifications.UpdateEmailSettings(r.Context(), user.TenantID, body.EmailEnabled, body.EmailFrom); err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "email settings update failed")
		return
	}
	api.Success(w, r, map[string]any{"emailEnabled": body.EmailEnabled, "emailFrom": body.EmailFrom})
}
