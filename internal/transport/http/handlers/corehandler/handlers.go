package corehandler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"zenora/internal/domain/audit"
	"zenora/internal/domain/auth"
	"zenora/internal/domain/core"
	"zenora/internal/platform/requestctx"
	"zenora/internal/transport/http/api"
	"zenora/internal/transport/http/middleware"
	"zenora/internal/transport/http/shared"
)

type Handler struct {
	Core  *core.Store
	Audit *audit.Service
}

func New(coreStore *core.Store, auditSvc *audit.Service) *Handler {
	return &Handler{Core: coreStore, Audit: auditSvc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.listEmployees)
	r.Get("/{id}", h.getEmployee)
}

func (h *Handler) WriteRoutes(r chi.Router) {
	r.Post("/", h.createEmployee)
}

func (h *Handler) listEmployees(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	limit, offset := shared.Pagination(r)
	employees, err := h.Core.ListEmployees(r.Context(), user.TenantID, limit, offset)
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "employee listing failed")
		return
	}
	api.Success(w, r, employees)
}

func (h *Handler) getEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	emp, err := h.Core.GetEmployee(r.Context(), user.TenantID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			api.Fail(w, r, http.StatusNotFound, "not_found", "employee not found")
			return
		}
		api.Fail(w, r, http.StatusInternalServerError, "internal", "employee lookup failed")
		return
	}
	api.Success(w, r, emp)
}

type createEmployeeBody struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	Role      string  `json:"role"`
	ManagerID *string `json:"managerId,omitempty"`
	StartDate string  `json:"startDate,omitempty"`
}

func (h *Handler) createEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var body createEmployeeBody
	if err := shared.DecodeJSON(r, &body); err != nil {
		api.Fail(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if missing := shared.RequireFields(map[string]string{
		"firstName": body.FirstName,
		"lastName":  body.LastName,
		"email":     body.Email,
		"password":  body.Password,
	}); len(missing) > 0 {
		api.FailWithDetails(w, r, http.StatusBadRequest, "missing_fields", "required fields are missing",
			map[string]any{"fields": missing})
		return
	}
	if !shared.ValidEmail(body.Email) {
		api.Fail(w, r, http.StatusBadRequest, "invalid_email", "invalid email address")
		return
	}
	if body.Role == "" {
		body.Role = auth.RoleEmployee
	}
	if _, ok := auth.RolePermissions[body.Role]; !ok || body.Role == auth.RoleSystemAdmin {
		api.Fail(w, r, http.StatusBadRequest, "invalid_role", "unknown role")
		return
	}

	roleID, err := h.Core.RoleIDByName(r.Context(), user.TenantID, body.Role)
	if err != nil {
		api.Fail(w, r, http.StatusBadRequest, "invalid_role", "role not provisioned for this tenant")
		return
	}

	input := core.CreateEmployeeInput{
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Email:     body.Email,
		Password:  body.Password,
		ManagerID: body.ManagerID,
	}
	if body.StartDate != "" {
		start, err := shared.ParseDate(body.StartDate)
		if err != nil {
			api.Fail(w, r, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}
		input.StartDate = &start
	}

	employeeID, err := h.Core.CreateEmployee(r.Context(), user.TenantID, roleID, input)
	if err != nil {
		slog.Error("employee creation failed", "err", err)
		api.Fail(w, r, http.StatusInternalServerError, "internal", "employee creation failed")
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, "core.employee.create",
		"employee", employeeID, requestctx.GetRequestID(r.Context()), r.RemoteAddr, nil,
		map[string]string{"email": body.Email, "role": body.Role}); err != nil {
		slog.Warn("audit record failed", "err", err)
	}
	api.Created(w, r, map[string]string{"id": employeeID})
}
