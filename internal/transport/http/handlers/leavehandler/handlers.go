package leavehandler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"zenora/internal/domain/audit"
	"zenora/internal/domain/auth"
	"zenora/internal/domain/core"
	"zenora/internal/domain/leave"
	"zenora/internal/domain/notifications"
	"zenora/internal/platform/requestctx"
	"zenora/internal/transport/http/api"
	"zenora/internal/transport/http/middleware"
	"zenora/internal/transport/http/shared"
)

const (
	maxDocumentBytes = 5 << 20
	maxDocumentCount = 3
)

var allowedDocumentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

type Handler struct {
	Leave         *leave.Service
	Core          *core.Store
	Notifications *notifications.Service
	Audit         *audit.Service
}

func New(leaveSvc *leave.Service, coreStore *core.Store, notifier *notifications.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Leave: leaveSvc, Core: coreStore, Notifications: notifier, Audit: auditSvc}
}

// ReadRoutes mounts the employee-facing read endpoints.
func (h *Handler) ReadRoutes(r chi.Router) {
	r.Get("/balance", h.getBalance)
	r.Get("/requests", h.listRequests)
	r.Get("/requests/{id}", h.getRequest)
	r.Get("/requests/{id}/documents", h.listDocuments)
	r.Get("/documents/{id}", h.downloadDocument)
}

// WriteRoutes mounts the endpoints that change an employee's own leave.
func (h *Handler) WriteRoutes(r chi.Router) {
	r.Post("/requests", h.createRequest)
	r.Post("/requests/{id}/cancel", h.cancelRequest)
	r.Post("/reset-balance", h.resetBalance)
}

// ApprovalRoutes mounts the decision endpoints, guarded by leave.approve.
func (h *Handler) ApprovalRoutes(r chi.Router) {
	r.Post("/requests/{id}/approve", h.approveRequest)
	r.Post("/requests/{id}/reject", h.rejectRequest)
}

// AdminRoutes mounts the allocation endpoints, guarded by leave.allocate.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Post("/allocate", h.runAllocation)
	r.Get("/allocate", h.allocationStatus)
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	employeeID, err := h.Core.EmployeeIDByUserID(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "employee lookup failed")
		return
	}
	if employeeID == "" {
		api.Fail(w, r, http.StatusNotFound, "no_employee", "no employee record for this user")
		return
	}
	year := shared.YearParam(r, time.Now().Year())
	balances, orgPolicies, err := h.Leave.Balances(r.Context(), user.TenantID, employeeID, year)
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "balance lookup failed")
		return
	}
	api.Success(w, r, map[string]any{"year": year, "balances": balances, "orgPolicies": orgPolicies})
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	employeeID, err := h.Core.EmployeeIDByUserID(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "employee lookup failed")
		return
	}

	limit, offset := shared.Pagination(r)
	filter := leave.RequestFilter{
		Status: r.URL.Query().Get("status"),
		Year:   shared.YearParam(r, 0),
		Limit:  limit,
		Offset: offset,
	}

	// employees see their own history; approver roles may browse the tenant
	if auth.CanResetOthers(user.RoleName) {
		filter.EmployeeID = r.URL.Query().Get("employeeId")
	} else {
		filter.EmployeeID = employeeID
	}
	if filter.EmployeeID == "" && !auth.CanResetOthers(user.RoleName) {
		api.Fail(w, r, http.StatusNotFound, "no_employee", "no employee record for this user")
		return
	}

	requests, err := h.Leave.ListRequests(r.Context(), user.TenantID, filter)
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "request listing failed")
		return
	}
	api.Success(w, r, requests)
}

type createRequestBody struct {
	LeaveType    string   `json:"leaveType"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
	Reason       string   `json:"reason"`
	DaysOverride *float64 `json:"days,omitempty"`
}

func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	employeeID, err := h.Core.EmployeeIDByUserID(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "employee lookup failed")
		return
	}
	if employeeID == "" {
		api.Fail(w, r, http.StatusNotFound, "no_employee", "no employee record for this user")
		return
	}

	input, err := h.parseCreateRequest(r)
	if err != nil {
		api.Fail(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	req, err := h.Leave.CreateRequest(r.Context(), user.TenantID, employeeID, input, time.Now())
	if err != nil {
		var verr *leave.ValidationError
		if errors.As(err, &verr) {
			if verr.NeedsReset {
				api.FailWithDetails(w, r, http.StatusBadRequest, verr.Code, verr.Message, map[string]bool{"needsReset": true})
				return
			}
			api.Fail(w, r, http.StatusBadRequest, verr.Code, verr.Message)
			return
		}
		slog.Error("leave request creation failed", "err", err)
		api.Fail(w, r, http.StatusInternalServerError, "internal", "could not create leave request")
		return
	}

	h.recordAudit(r, user, "leave.request.create", req.ID, nil, req)
	h.notifyManager(r, user, employeeID, req)
	api.Created(w, r, req)
}

// parseCreateRequest accepts JSON or, for sick-leave certificates,
// multipart/form-data with the same field names plus file parts.
func (h *Handler) parseCreateRequest(r *http.Request) (leave.CreateRequestInput, error) {
	var body createRequestBody
	var docs []leave.DocumentUpload

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxDocumentBytes); err != nil {
			return leave.CreateRequestInput{}, fmt.Errorf("invalid multipart form: %w", err)
		}
		body.LeaveType = r.FormValue("leaveType")
		body.StartDate = r.FormValue("startDate")
		body.EndDate = r.FormValue("endDate")
		body.Reason = r.FormValue("reason")

		files := r.MultipartForm.File["documents"]
		if len(files) > maxDocumentCount {
			return leave.CreateRequestInput{}, fmt.Errorf("at most %d documents allowed", maxDocumentCount)
		}
		for _, fh := range files {
			if fh.Size > maxDocumentBytes {
				return leave.CreateRequestInput{}, fmt.Errorf("document %s exceeds the 5MB limit", fh.Filename)
			}
			mimeType := fh.Header.Get("Content-Type")
			if !allowedDocumentTypes[mimeType] {
				return leave.CreateRequestInput{}, fmt.Errorf("document type %s not allowed", mimeType)
			}
			f, err := fh.Open()
			if err != nil {
				return leave.CreateRequestInput{}, err
			}
			data, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				return leave.CreateRequestInput{}, err
			}
			docs = append(docs, leave.DocumentUpload{FileName: fh.Filename, MimeType: mimeType, Data: data})
		}
	} else if err := shared.DecodeJSON(r, &body); err != nil {
		return leave.CreateRequestInput{}, err
	}

	input := leave.CreateRequestInput{
		LeaveType:    strings.ToUpper(strings.TrimSpace(body.LeaveType)),
		Reason:       body.Reason,
		DaysOverride: body.DaysOverride,
		Documents:    docs,
	}
	if body.StartDate != "" {
		start, err := shared.ParseDate(body.StartDate)
		if err != nil {
			return leave.CreateRequestInput{}, err
		}
		input.StartDate = start
	}
	if body.EndDate != "" {
		end, err := shared.ParseDate(body.EndDate)
		if err != nil {
			return leave.CreateRequestInput{}, err
		}
		input.EndDate = end
	}
	return input, nil
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	req, err := h.Leave.GetRequest(r.Context(), user.TenantID, chi.URLParam(r, "id"))
	if err != nil {
		h.failRequestErr(w, r, err)
		return
	}
	if !h.canViewRequest(r, user, req) {
		api.Fail(w, r, http.StatusForbidden, "forbidden", "not allowed to view this request")
		return
	}
	api.Success(w, r, req)
}

func (h *Handler) canViewRequest(r *http.Request, user auth.UserContext, req leave.Request) bool {
	if auth.CanResetOthers(user.RoleName) {
		return true
	}
	employeeID, err := h.Core.EmployeeIDByUserID(r.Context(), user.TenantID, user.UserID)
	return err == nil && employeeID != "" && employeeID == req.EmployeeID
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := chi.URLParam(r, "id")
	req, err := h.Leave.GetRequest(r.Context(), user.TenantID, requestID)
	if err != nil {
		h.failRequestErr(w, r, err)
		return
	}
	if !h.canViewRequest(r, user, req) {
		api.Fail(w, r, http.StatusForbidden, "forbidden", "not allowed to view this request")
		return
	}
	docs, err := h.Leave.RequestDocuments(r.Context(), user.TenantID, requestID)
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "document listing failed")
		return
	}
	api.Success(w, r, docs)
}

func (h *Handler) downloadDocument(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	doc, data, err := h.Leave.DocumentData(r.Context(), user.TenantID, chi.URLParam(r, "id"))
	if err != nil {
		h.failRequestErr(w, r, err)
		return
	}
	req, err := h.Leave.GetRequest(r.Context(), user.TenantID, doc.RequestID)
	if err != nil {
		h.failRequestErr(w, r, err)
		return
	}
	if !h.canViewRequest(r, user, req) {
		api.Fail(w, r, http.StatusForbidden, "forbidden", "not allowed to view this document")
		return
	}
	w.Header().Set("Content-Type", doc.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	_, _ = w.Write(data)
}

type decisionBody struct {
	Note *string `json:"note,omitempty"`
}

func (h *Handler) approveRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

func (h *Handler) rejectRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	user, _ := middleware.GetUser(r.Context())
	requestID := chi.URLParam(r, "id")

	var body decisionBody
	if r.ContentLength > 0 {
		if err := shared.DecodeJSON(r, &body); err != nil {
			api.Fail(w, r, http.StatusBadRequest, "invalid_body", err.Error())
			return
		}
	}

	before, err := h.Leave.GetRequest(r.Context(), user.TenantID, requestID)
	if err != nil {
		h.failRequestErr(w, r, err)
		return
	}

	canApproveAll := user.RoleName == auth.RoleHR || user.RoleName == auth.RoleAdmin
	var req leave.Request
	if approve {
		req, err = h.Leave.Approve(r.Context(), user.TenantID, requestID, user.UserID, canApproveAll, body.Note)
	} else {
		req, err = h.Leave.Reject(r.Context(), user.TenantID, requestID, user.UserID, canApproveAll, body.Note)
	}
	if err != nil {
		h.failRequestErr(w, r, err)
		return
	}

	action := "leave.request.approve"
	ntype := notifications.TypeLeaveApproved
	verb := "approved"
	if !approve {
		action = "leave.request.reject"
		ntype = notifications.TypeLeaveRejected
		verb = "rejected"
	}
	h.recordAudit(r, user, action, req.ID, before, req)

	if employeeUserID, uerr := h.Core.UserIDForEmployee(r.Context(), user.TenantID, req.EmployeeID); uerr == nil && employeeUserID != "" {
		h.notify(r, user.TenantID, employeeUserID, ntype,
			fmt.Sprintf("Leave request %s", verb),
			fmt.Sprintf("Your %s leave request for %s to %s was %s.",
				req.LeaveType, shared.FormatDate(req.StartDate), shared.FormatDate(req.EndDate), verb))
	}
	api.Success(w, r, req)
}

func (h *Handler) cancelRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := chi.URLParam(r, "id")

	before, err := h.Leave.GetRequest(r.Context(), user.TenantID, requestID)
	if err != nil {
		h.failRequestErr(w, r, err)
		return
	}
	req, err := h.Leave.Cancel(r.Context(), user.TenantID, requestID, user.UserID)
	if err != nil {
		h.failRequestErr(w, r, err)
		return
	}
	h.recordAudit(r, user, "leave.request.cancel", req.ID, before, req)
	api.Success(w, r, req)
}

type allocateBody struct {
	Year        int      `json:"year"`
	EmployeeIDs []string `json:"employeeIds,omitempty"`
	Prorated    *bool    `json:"prorated,omitempty"`
}

// input applies the batch defaults: current year, and prorated allocation
// unless the caller explicitly opts out.
func (b allocateBody) input(now time.Time) leave.AllocationInput {
	in := leave.AllocationInput{Year: b.Year, EmployeeIDs: b.EmployeeIDs, Prorated: true}
	if in.Year == 0 {
		in.Year = now.Year()
	}
	if b.Prorated != nil {
		in.Prorated = *b.Prorated
	}
	return in
}

func (h *Handler) runAllocation(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var body allocateBody
	if err := shared.DecodeJSON(r, &body); err != nil {
		api.Fail(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	input := body.input(time.Now())

	result, err := h.Leave.Allocate(r.Context(), user.TenantID, input)
	if err != nil {
		slog.Error("allocation batch failed", "err", err)
		api.Fail(w, r, http.StatusInternalServerError, "internal", "allocation failed")
		return
	}

	h.recordAudit(r, user, "leave.allocation.run", fmt.Sprintf("%d", input.Year), nil, map[string]int{
		"totalEmployees": result.TotalEmployees,
		"successCount":   result.SuccessCount,
		"errorCount":     result.ErrorCount,
	})
	h.notify(r, user.TenantID, user.UserID, notifications.TypeAllocationCompleted,
		"Leave allocation completed",
		fmt.Sprintf("Allocation for %d finished: %d succeeded, %d failed.", input.Year, result.SuccessCount, result.ErrorCount))
	api.Success(w, r, result)
}

func (h *Handler) allocationStatus(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	year := shared.YearParam(r, time.Now().Year())
	status, err := h.Leave.AllocationStatus(r.Context(), user.TenantID, year)
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "allocation status failed")
		return
	}
	api.Success(w, r, map[string]any{"year": year, "employees": status})
}

type resetBody struct {
	EmployeeID string `json:"employeeId,omitempty"`
	LeaveType  string `json:"leaveType,omitempty"`
	Year       int    `json:"year,omitempty"`
}

// resetBalance overwrites balances with the org defaults. Employees may reset
// only themselves; manager and above may reset anyone in the tenant.
func (h *Handler) resetBalance(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var body resetBody
	if err := shared.DecodeJSON(r, &body); err != nil {
		api.Fail(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if body.Year == 0 {
		body.Year = time.Now().Year()
	}

	selfEmployeeID, err := h.Core.EmployeeIDByUserID(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "employee lookup failed")
		return
	}
	targetEmployeeID := body.EmployeeID
	if targetEmployeeID == "" {
		targetEmployeeID = selfEmployeeID
	}
	if targetEmployeeID == "" {
		api.Fail(w, r, http.StatusNotFound, "no_employee", "no employee record for this user")
		return
	}
	if targetEmployeeID != selfEmployeeID && !auth.CanResetOthers(user.RoleName) {
		api.Fail(w, r, http.StatusForbidden, "forbidden", "not allowed to reset another employee's balance")
		return
	}

	entries, err := h.Leave.ResetBalances(r.Context(), user.TenantID, targetEmployeeID, strings.ToUpper(body.LeaveType), body.Year)
	if err != nil {
		var verr *leave.ValidationError
		if errors.As(err, &verr) {
			api.Fail(w, r, http.StatusBadRequest, verr.Code, verr.Message)
			return
		}
		slog.Error("balance reset failed", "err", err)
		api.Fail(w, r, http.StatusInternalServerError, "internal", "balance reset failed")
		return
	}

	h.recordAudit(r, user, "leave.balance.reset", targetEmployeeID, nil, entries)
	if employeeUserID, uerr := h.Core.UserIDForEmployee(r.Context(), user.TenantID, targetEmployeeID); uerr == nil && employeeUserID != "" {
		h.notify(r, user.TenantID, employeeUserID, notifications.TypeBalanceReset,
			"Leave balance reset",
			fmt.Sprintf("Your leave balances for %d were reset to the organization defaults.", body.Year))
	}
	api.Success(w, r, map[string]any{"employeeId": targetEmployeeID, "entries": entries})
}

func (h *Handler) failRequestErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, leave.ErrNotFound):
		api.Fail(w, r, http.StatusNotFound, "not_found", "leave request not found")
	case errors.Is(err, leave.ErrInvalidState):
		api.Fail(w, r, http.StatusConflict, "invalid_state", "leave request is not pending")
	case errors.Is(err, leave.ErrForbidden):
		api.Fail(w, r, http.StatusForbidden, "forbidden", "not allowed to act on this leave request")
	default:
		slog.Error("leave request operation failed", "err", err)
		api.Fail(w, r, http.StatusInternalServerError, "internal", "leave request operation failed")
	}
}

func (h *Handler) recordAudit(r *http.Request, user auth.UserContext, action, entityID string, before, after any) {
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, action, "leave_request", entityID,
		requestctx.GetRequestID(r.Context()), r.RemoteAddr, before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}

func (h *Handler) notify(r *http.Request, tenantID, userID, ntype, title, bodyText string) {
	if err := h.Notifications.Create(r.Context(), tenantID, userID, ntype, title, bodyText); err != nil {
		slog.Warn("notification failed", "type", ntype, "err", err)
	}
}

func (h *Handler) notifyManager(r *http.Request, user auth.UserContext, employeeID string, req leave.Request) {
	managerUserID, err := h.Core.ManagerUserIDForEmployee(r.Context(), user.TenantID, employeeID)
	if err != nil {
		slog.Warn("manager lookup failed", "err", err)
		return
	}
	if managerUserID == "" {
		return
	}
	h.notify(r, user.TenantID, managerUserID, notifications.TypeLeaveSubmitted,
		"New leave request",
		fmt.Sprintf("%s requested %s leave from %s to %s (%.1f days).",
			req.EmployeeName, req.LeaveType, shared.FormatDate(req.StartDate), shared.FormatDate(req.EndDate), req.Days))
}
