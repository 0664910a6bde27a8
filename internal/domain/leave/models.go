package leave

import "time"

// Balance is one (employee, leave type, year) row. IsOrgDefault marks a
// synthesized entry: no row exists yet and the value shown is the tenant
// policy default.
type Balance struct {
	ID           string    `json:"id,omitempty"`
	EmployeeID   string    `json:"employeeId"`
	LeaveType    string    `json:"leaveType"`
	Year         int       `json:"year"`
	Balance      float64   `json:"balance"`
	IsOrgDefault bool      `json:"isOrgDefault"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

type Request struct {
	ID            string     `json:"id"`
	EmployeeID    string     `json:"employeeId"`
	EmployeeName  string     `json:"employeeName,omitempty"`
	LeaveType     string     `json:"leaveType"`
	StartDate     time.Time  `json:"startDate"`
	EndDate       time.Time  `json:"endDate"`
	Days          float64    `json:"days"`
	Reason        string     `json:"reason"`
	Status        string     `json:"status"`
	DecidedBy     *string    `json:"decidedBy,omitempty"`
	DecidedAt     *time.Time `json:"decidedAt,omitempty"`
	DecisionNote  *string    `json:"decisionNote,omitempty"`
	DocumentCount int        `json:"documentCount"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type Document struct {
	ID        string    `json:"id"`
	RequestID string    `json:"requestId"`
	FileName  string    `json:"fileName"`
	MimeType  string    `json:"mimeType"`
	SizeBytes int       `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

// DocumentUpload is raw upload content validated at the transport layer.
type DocumentUpload struct {
	FileName string
	MimeType string
	Data     []byte
}

type CreateRequestInput struct {
	LeaveType    string
	StartDate    time.Time
	EndDate      time.Time
	Reason       string
	DaysOverride *float64
	Documents    []DocumentUpload
}

// RequestFilter narrows a request listing. Year matches the start-date year,
// the same year a request's balance is charged to; zero means all years.
type RequestFilter struct {
	EmployeeID string
	Status     string
	Year       int
	Limit      int
	Offset     int
}

type AllocationInput struct {
	Year        int
	EmployeeIDs []string
	Prorated    bool
}

type AllocationEntry struct {
	EmployeeID   string  `json:"employeeId"`
	LeaveType    string  `json:"leaveType"`
	Year         int     `json:"year"`
	Allocated    float64 `json:"allocated"`
	CarryForward float64 `json:"carryForward"`
	Total        float64 `json:"total"`
}

type AllocationError struct {
	EmployeeID string `json:"employeeId"`
	Error      string `json:"error"`
}

// AllocationResult reports a batch run. A partial failure leaves the
// successful employees allocated and lists the rest in Errors.
type AllocationResult struct {
	Year           int               `json:"year"`
	TotalEmployees int               `json:"totalEmployees"`
	SuccessCount   int               `json:"successCount"`
	ErrorCount     int               `json:"errorCount"`
	Allocations    []AllocationEntry `json:"allocations"`
	Errors         []AllocationError `json:"errors"`
}

type AllocationStatusEntry struct {
	EmployeeID     string             `json:"employeeId"`
	Year           int                `json:"year"`
	Balances       map[string]float64 `json:"balances"`
	MissingTypes   []string           `json:"missingTypes,omitempty"`
	FullyAllocated bool               `json:"fullyAllocated"`
}

const (
	ResetStatusReset   = "reset"
	ResetStatusCreated = "created"
)

type ResetEntry struct {
	LeaveType string   `json:"leaveType"`
	Year      int      `json:"year"`
	Before    *float64 `json:"before,omitempty"`
	After     float64  `json:"after"`
	Status    string   `json:"status"`
}
