package leave

import (
	"context"
	"time"
)

// StoreAPI is the persistence surface the leave service depends on. The pgx
// implementation lives in store_data.go; tests substitute fakes.
type StoreAPI interface {
	GetBalance(ctx context.Context, tenantID, employeeID, leaveType string, year int) (Balance, bool, error)
	ListBalancesForYear(ctx context.Context, tenantID, employeeID string, year int) ([]Balance, error)
	SetBalance(ctx context.Context, tenantID, employeeID, leaveType string, year int, value float64) (created bool, err error)
	AdjustBalance(ctx context.Context, tenantID, employeeID, leaveType string, year int, delta float64) error
	AllocateEmployeeYear(ctx context.Context, tenantID, employeeID string, year int, totals map[string]float64) error
	TenantBalancesForYear(ctx context.Context, tenantID string, year int) (map[string]map[string]float64, error)

	CreateRequest(ctx context.Context, tenantID string, req Request) (string, error)
	GetRequest(ctx context.Context, tenantID, requestID string) (Request, error)
	ListRequests(ctx context.Context, tenantID string, f RequestFilter) ([]Request, error)
	UpdateRequestStatus(ctx context.Context, tenantID, requestID, status, deciderUserID string, note *string) error
	HasOverlappingRequest(ctx context.Context, tenantID, employeeID string, start, end time.Time) (bool, error)

	CreateDocument(ctx context.Context, tenantID, requestID string, doc DocumentUpload) (string, error)
	ListDocuments(ctx context.Context, tenantID, requestID string) ([]Document, error)
	DocumentData(ctx context.Context, tenantID, documentID string) (Document, []byte, error)
}

// EmployeeDirectory is the slice of the core domain the leave service needs.
type EmployeeDirectory interface {
	EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error)
	IsManagerOf(ctx context.Context, tenantID, managerEmployeeID, employeeID string) (bool, error)
	ManagerUserIDForEmployee(ctx context.Context, tenantID, employeeID string) (string, error)
	ListActiveEmployees(ctx context.Context, tenantID string) (map[string]*time.Time, error)
	UserIDForEmployee(ctx context.Context, tenantID, employeeID string) (string, error)
}

// SettingsProvider resolves per-tenant leave policy settings.
type SettingsProvider interface {
	LeaveSettings(ctx context.Context, tenantID string) (LeaveSettings, error)
}

// LeaveSettings is the subset of tenant settings the leave workflow reads.
type LeaveSettings struct {
	Policies            map[string]float64
	CarryForward        bool
	MaxCarryForwardDays float64
	MinNoticeDays       int
	MaxConsecutiveDays  *int
	AllowHalfDay        bool
}
