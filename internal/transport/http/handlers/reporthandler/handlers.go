package reporthandler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jung-kurt/gofpdf"

	"zenora/internal/domain/core"
	"zenora/internal/domain/leave"
	"zenora/internal/transport/http/api"
	"zenora/internal/transport/http/middleware"
	"zenora/internal/transport/http/shared"
)

type Handler struct {
	Leave *leave.Service
	Core  *core.Store
}

func New(leaveSvc *leave.Service, coreStore *core.Store) *Handler {
	return &Handler{Leave: leaveSvc, Core: coreStore}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/leave-balances", h.leaveBalances)
	r.Get("/leave-usage", h.leaveUsage)
}

type balanceRow struct {
	EmployeeID string             `json:"employeeId"`
	Name       string             `json:"name"`
	Balances   map[string]float64 `json:"balances"`
}

func (h *Handler) balanceRows(r *http.Request, tenantID string, year int) ([]balanceRow, error) {
	status, err := h.Leave.AllocationStatus(r.Context(), tenantID, year)
	if err != nil {
		return nil, err
	}
	employees, err := h.Core.ListEmployees(r.Context(), tenantID, 1000, 0)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(employees))
	for _, emp := range employees {
		names[emp.ID] = emp.FirstName + " " + emp.LastName
	}

	rows := make([]balanceRow, 0, len(status))
	for _, entry := range status {
		rows = append(rows, balanceRow{
			EmployeeID: entry.EmployeeID,
			Name:       names[entry.EmployeeID],
			Balances:   entry.Balances,
		})
	}
	return rows, nil
}

// leaveBalances renders the tenant balance report as JSON, CSV or PDF.
func (h *Handler) leaveBalances(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	year := shared.YearParam(r, time.Now().Year())

	rows, err := h.balanceRows(r, user.TenantID, year)
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "balance report failed")
		return
	}

	switch r.URL.Query().Get("format") {
	case "csv":
		h.writeBalancesCSV(w, year, rows)
	case "pdf":
		h.writeBalancesPDF(w, r, year, rows)
	default:
		api.Success(w, r, map[string]any{"year": year, "rows": rows})
	}
}

func (h *Handler) writeBalancesCSV(w http.ResponseWriter, year int, rows []balanceRow) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("leave-balances-%d.csv", year)))

	cw := csv.NewWriter(w)
	header := append([]string{"employee_id", "name"}, leave.AllTypes...)
	_ = cw.Write(header)
	for _, row := range rows {
		record := []string{row.EmployeeID, row.Name}
		for _, leaveType := range leave.AllTypes {
			record = append(record, strconv.FormatFloat(row.Balances[leaveType], 'f', 1, 64))
		}
		_ = cw.Write(record)
	}
	cw.Flush()
}

func (h *Handler) writeBalancesPDF(w http.ResponseWriter, r *http.Request, year int, rows []balanceRow) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 10, fmt.Sprintf("Leave Balances %d", year))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(70, 7, "Employee", "1", 0, "L", false, 0, "")
	for _, leaveType := range leave.AllTypes {
		pdf.CellFormat(32, 7, leaveType, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		pdf.CellFormat(70, 7, row.Name, "1", 0, "L", false, 0, "")
		for _, leaveType := range leave.AllTypes {
			pdf.CellFormat(32, 7, strconv.FormatFloat(row.Balances[leaveType], 'f', 1, 64), "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("leave-balances-%d.pdf", year)))
	if err := pdf.Output(w); err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "pdf rendering failed")
	}
}

type usageRow struct {
	LeaveType string  `json:"leaveType"`
	Requests  int     `json:"requests"`
	Days      float64 `json:"days"`
}

// leaveUsage aggregates approved leave by type for the year.
func (h *Handler) leaveUsage(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	year := shared.YearParam(r, time.Now().Year())

	requests, err := h.Leave.ListRequests(r.Context(), user.TenantID, leave.RequestFilter{Status: leave.StatusApproved})
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "usage report failed")
		return
	}

	byType := map[string]*usageRow{}
	for _, req := range requests {
		if req.StartDate.Year() != year {
			continue
		}
		row, ok := byType[req.LeaveType]
		if !ok {
			row = &usageRow{LeaveType: req.LeaveType}
			byType[req.LeaveType] = row
		}
		row.Requests++
		row.Days += req.Days
	}

	rows := make([]usageRow, 0, len(byType))
	for _, leaveType := range leave.AllTypes {
		if row, ok := byType[leaveType]; ok {
			rows = append(rows, *row)
		}
	}
	api.Success(w, r, map[string]any{"year": year, "usage": rows})
}
