package audithandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"zenora/internal/domain/audit"
	"zenora/internal/transport/http/api"
	"zenora/internal/transport/http/middleware"
	"zenora/internal/transport/http/shared"
)

type Handler struct {
	Audit *audit.Service
}

func New(auditSvc *audit.Service) *Handler {
	return &Handler{Audit: auditSvc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	limit, offset := shared.Pagination(r)

	filter := audit.Filter{
		Action:     r.URL.Query().Get("action"),
		EntityType: r.URL.Query().Get("entityType"),
		ActorUser:  r.URL.Query().Get("actorId"),
	}
	includeDetails := r.URL.Query().Get("details") == "true"

	total, err := h.Audit.Count(r.Context(), user.TenantID, filter)
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "audit count failed")
		return
	}
	events, err := h.Audit.List(r.Context(), user.TenantID, filter, includeDetails, limit, offset)
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "audit listing failed")
		return
	}
	api.Success(w, r, map[string]any{"total": total, "events": events})
}
