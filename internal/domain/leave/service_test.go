package leave

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type balKey struct {
	employeeID string
	leaveType  string
	year       int
}

type fakeStore struct {
	balances map[balKey]float64
	requests map[string]Request
	nextID   int

	allocFail map[string]error
	docCount  map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		balances:  map[balKey]float64{},
		requests:  map[string]Request{},
		allocFail: map[string]error{},
		docCount:  map[string]int{},
	}
}

func (f *fakeStore) setBal(employeeID, leaveType string, year int, value float64) {
	f.balances[balKey{employeeID, leaveType, year}] = value
}

func (f *fakeStore) GetBalance(_ context.Context, _, employeeID, leaveType string, year int) (Balance, bool, error) {
	value, ok := f.balances[balKey{employeeID, leaveType, year}]
	if !ok {
		return Balance{}, false, nil
	}
	return Balance{EmployeeID: employeeID, LeaveType: leaveType, Year: year, Balance: value}, true, nil
}

func (f *fakeStore) ListBalancesForYear(_ context.Context, _, employeeID string, year int) ([]Balance, error) {
	var out []Balance
	for key, value := range f.balances {
		if key.employeeID == employeeID && key.year == year {
			out = append(out, Balance{EmployeeID: employeeID, LeaveType: key.leaveType, Year: year, Balance: value})
		}
	}
	return out, nil
}

func (f *fakeStore) SetBalance(_ context.Context, _, employeeID, leaveType string, year int, value float64) (bool, error) {
	key := balKey{employeeID, leaveType, year}
	_, existed := f.balances[key]
	f.balances[key] = value
	return !existed, nil
}

func (f *fakeStore) AdjustBalance(_ context.Context, _, employeeID, leaveType string, year int, delta float64) error {
	f.balances[balKey{employeeID, leaveType, year}] += delta
	return nil
}

func (f *fakeStore) AllocateEmployeeYear(_ context.Context, _, employeeID string, year int, totals map[string]float64) error {
	if err, ok := f.allocFail[employeeID]; ok {
		return err
	}
	for leaveType, total := range totals {
		f.balances[balKey{employeeID, leaveType, year}] = total
	}
	return nil
}

func (f *fakeStore) TenantBalancesForYear(_ context.Context, _ string, year int) (map[string]map[string]float64, error) {
	out := map[string]map[string]float64{}
	for key, value := range f.balances {
		if key.year != year {
			continue
		}
		if out[key.employeeID] == nil {
			out[key.employeeID] = map[string]float64{}
		}
		out[key.employeeID][key.leaveType] = value
	}
	return out, nil
}

func (f *fakeStore) CreateRequest(_ context.Context, _ string, req Request) (string, error) {
	f.nextID++
	id := fmt.Sprintf("req-%d", f.nextID)
	req.ID = id
	req.EmployeeName = "Test Employee"
	f.requests[id] = req
	return id, nil
}

func (f *fakeStore) GetRequest(_ context.Context, _, requestID string) (Request, error) {
	req, ok := f.requests[requestID]
	if !ok {
		return Request{}, ErrNotFound
	}
	req.DocumentCount = f.docCount[requestID]
	return req, nil
}

func (f *fakeStore) ListRequests(_ context.Context, _ string, filter RequestFilter) ([]Request, error) {
	var out []Request
	for _, req := range f.requests {
		if filter.EmployeeID != "" && req.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.Year != 0 && req.StartDate.Year() != filter.Year {
			continue
		}
		out = append(out, req)
	}
	return out, nil
}

func (f *fakeStore) UpdateRequestStatus(_ context.Context, _, requestID, status, deciderUserID string, note *string) error {
	req, ok := f.requests[requestID]
	if !ok {
		return ErrNotFound
	}
	req.Status = status
	req.DecidedBy = &deciderUserID
	req.DecisionNote = note
	f.requests[requestID] = req
	return nil
}

func (f *fakeStore) HasOverlappingRequest(_ context.Context, _, employeeID string, start, end time.Time) (bool, error) {
	for _, req := range f.requests {
		if req.EmployeeID != employeeID {
			continue
		}
		if req.Status != StatusPending && req.Status != StatusApproved {
			continue
		}
		if Overlaps(start, end, req.StartDate, req.EndDate) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateDocument(_ context.Context, _, requestID string, _ DocumentUpload) (string, error) {
	f.docCount[requestID]++
	return fmt.Sprintf("doc-%d", f.docCount[requestID]), nil
}

func (f *fakeStore) ListDocuments(_ context.Context, _, _ string) ([]Document, error) {
	return nil, nil
}

func (f *fakeStore) DocumentData(_ context.Context, _, _ string) (Document, []byte, error) {
	return Document{}, nil, ErrNotFound
}

type fakeDirectory struct {
	employeesByUser map[string]string
	managers        map[string]string // employeeID -> manager employeeID
	managerUsers    map[string]string // employeeID -> manager userID
	active          map[string]*time.Time
	userByEmployee  map[string]string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		employeesByUser: map[string]string{},
		managers:        map[string]string{},
		managerUsers:    map[string]string{},
		active:          map[string]*time.Time{},
		userByEmployee:  map[string]string{},
	}
}

func (f *fakeDirectory) EmployeeIDByUserID(_ context.Context, _, userID string) (string, error) {
	return f.employeesByUser[userID], nil
}

func (f *fakeDirectory) IsManagerOf(_ context.Context, _, managerEmployeeID, employeeID string) (bool, error) {
	return f.managers[employeeID] == managerEmployeeID, nil
}

func (f *fakeDirectory) ManagerUserIDForEmployee(_ context.Context, _, employeeID string) (string, error) {
	return f.managerUsers[employeeID], nil
}

func (f *fakeDirectory) ListActiveEmployees(_ context.Context, _ string) (map[string]*time.Time, error) {
	return f.active, nil
}

func (f *fakeDirectory) UserIDForEmployee(_ context.Context, _, employeeID string) (string, error) {
	return f.userByEmployee[employeeID], nil
}

type fakeSettings struct {
	settings LeaveSettings
}

func (f *fakeSettings) LeaveSettings(_ context.Context, _ string) (LeaveSettings, error) {
	return f.settings, nil
}

func defaultTestSettings() LeaveSettings {
	return LeaveSettings{
		Policies:            map[string]float64{},
		CarryForward:        true,
		MaxCarryForwardDays: 5,
		MinNoticeDays:       1,
		AllowHalfDay:        true,
	}
}

func newTestService(store *fakeStore, dir *fakeDirectory, settings LeaveSettings) *Service {
	return NewService(store, dir, &fakeSettings{settings: settings})
}

var testNow = date(2026, time.March, 2) // a Monday

func validInput() CreateRequestInput {
	return CreateRequestInput{
		LeaveType: TypeAnnual,
		StartDate: date(2026, time.March, 9),
		EndDate:   date(2026, time.March, 11),
		Reason:    "family trip",
	}
}

func TestCreateRequestHappyPath(t *testing.T) {
	store := newFakeStore()
	store.setBal("emp-1", TypeAnnual, 2026, 20)
	svc := newTestService(store, newFakeDirectory(), defaultTestSettings())

	req, err := svc.CreateRequest(context.Background(), "t1", "emp-1", validInput(), testNow)
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if req.Status != StatusPending {
		t.Errorf("status = %s, want %s", req.Status, StatusPending)
	}
	if req.Days != 3 {
		t.Errorf("days = %v, want 3", req.Days)
	}
	// creation never debits; the balance moves at approval
	if got := store.balances[balKey{"emp-1", TypeAnnual, 2026}]; got != 20 {
		t.Errorf("balance after create = %v, want 20", got)
	}
}

func TestCreateRequestValidationFailures(t *testing.T) {
	maxConsecutive := 5

	tests := []struct {
		name     string
		mutate   func(*CreateRequestInput)
		settings func(*LeaveSettings)
		store    func(*fakeStore)
		wantCode string
	}{
		{
			name:     "unknown type",
			mutate:   func(in *CreateRequestInput) { in.LeaveType = "SABBATICAL" },
			wantCode: "invalid_leave_type",
		},
		{
			name:     "missing reason",
			mutate:   func(in *CreateRequestInput) { in.Reason = "  " },
			wantCode: "missing_reason",
		},
		{
			name: "end before start",
			mutate: func(in *CreateRequestInput) {
				in.StartDate = date(2026, time.March, 11)
				in.EndDate = date(2026, time.March, 9)
			},
			wantCode: "invalid_range",
		},
		{
			name: "weekend only",
			mutate: func(in *CreateRequestInput) {
				in.StartDate = date(2026, time.March, 7)
				in.EndDate = date(2026, time.March, 8)
			},
			wantCode: "no_business_days",
		},
		{
			name:     "insufficient notice",
			settings: func(s *LeaveSettings) { s.MinNoticeDays = 14 },
			wantCode: "insufficient_notice",
		},
		{
			name: "consecutive cap exceeded",
			mutate: func(in *CreateRequestInput) {
				in.EndDate = date(2026, time.March, 20) // 10 business days
			},
			settings: func(s *LeaveSettings) { s.MaxConsecutiveDays = &maxConsecutive },
			wantCode: "exceeds_consecutive_cap",
		},
		{
			name:     "insufficient balance",
			store:    func(f *fakeStore) { f.setBal("emp-1", TypeAnnual, 2026, 1) },
			wantCode: "insufficient_balance",
		},
		{
			name:     "negative balance needs reset",
			store:    func(f *fakeStore) { f.setBal("emp-1", TypeAnnual, 2026, -2) },
			wantCode: "negative_balance",
		},
		{
			name: "half day override disabled",
			mutate: func(in *CreateRequestInput) {
				half := 0.5
				in.DaysOverride = &half
				in.EndDate = in.StartDate
			},
			settings: func(s *LeaveSettings) { s.AllowHalfDay = false },
			wantCode: "half_day_disabled",
		},
		{
			name: "documents on non-sick leave",
			mutate: func(in *CreateRequestInput) {
				in.Documents = []DocumentUpload{{FileName: "cert.pdf", MimeType: "application/pdf"}}
			},
			wantCode: "documents_not_allowed",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			store.setBal("emp-1", TypeAnnual, 2026, 20)
			if tc.store != nil {
				tc.store(store)
			}
			settings := defaultTestSettings()
			if tc.settings != nil {
				tc.settings(&settings)
			}
			input := validInput()
			if tc.mutate != nil {
				tc.mutate(&input)
			}

			_, err := newTestService(store, newFakeDirectory(), settings).
				CreateRequest(context.Background(), "t1", "emp-1", input, testNow)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Code != tc.wantCode {
				t.Errorf("code = %s, want %s", verr.Code, tc.wantCode)
			}
			if tc.wantCode == "negative_balance" && !verr.NeedsReset {
				t.Error("negative balance rejection must set NeedsReset")
			}
			if tc.wantCode != "negative_balance" && verr.NeedsReset {
				t.Error("NeedsReset set on a non-negative-balance rejection")
			}
		})
	}
}

func TestCreateRequestUsesOrgDefaultWhenNoRow(t *testing.T) {
	// no stored balance row: the 20-day annual default covers a 3-day request
	store := newFakeStore()
	svc := newTestService(store, newFakeDirectory(), defaultTestSettings())

	if _, err := svc.CreateRequest(context.Background(), "t1", "emp-1", validInput(), testNow); err != nil {
		t.Fatalf("CreateRequest with org default balance: %v", err)
	}
}

func TestCreateRequestOverlapRejected(t *testing.T) {
	store := newFakeStore()
	store.setBal("emp-1", TypeAnnual, 2026, 20)
	svc := newTestService(store, newFakeDirectory(), defaultTestSettings())

	if _, err := svc.CreateRequest(context.Background(), "t1", "emp-1", validInput(), testNow); err != nil {
		t.Fatalf("first request: %v", err)
	}
	input := validInput()
	input.StartDate = date(2026, time.March, 11)
	input.EndDate = date(2026, time.March, 12)

	_, err := svc.CreateRequest(context.Background(), "t1", "emp-1", input, testNow)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Code != "overlapping_request" {
		t.Fatalf("expected overlapping_request, got %v", err)
	}
}

func TestCancelledRequestDoesNotBlockOverlap(t *testing.T) {
	store := newFakeStore()
	store.setBal("emp-1", TypeAnnual, 2026, 20)
	dir := newFakeDirectory()
	dir.employeesByUser["user-1"] = "emp-1"
	svc := newTestService(store, dir, defaultTestSettings())

	first, err := svc.CreateRequest(context.Background(), "t1", "emp-1", validInput(), testNow)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), "t1", first.ID, "user-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.CreateRequest(context.Background(), "t1", "emp-1", validInput(), testNow); err != nil {
		t.Fatalf("re-request over cancelled range: %v", err)
	}
}

func TestApproveDebitsStartYearBalance(t *testing.T) {
	store := newFakeStore()
	store.setBal("emp-1", TypeAnnual, 2026, 20)
	dir := newFakeDirectory()
	dir.employeesByUser["mgr-user"] = "emp-mgr"
	dir.managers["emp-1"] = "emp-mgr"
	svc := newTestService(store, dir, defaultTestSettings())

	req, err := svc.CreateRequest(context.Background(), "t1", "emp-1", validInput(), testNow)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	approved, err := svc.Approve(context.Background(), "t1", req.ID, "mgr-user", false, nil)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != StatusApproved {
		t.Errorf("status = %s, want %s", approved.Status, StatusApproved)
	}
	if got := store.balances[balKey{"emp-1", TypeAnnual, 2026}]; got != 17 {
		t.Errorf("balance after approval = %v, want 17", got)
	}
}

func TestApproveForbiddenCases(t *testing.T) {
	store := newFakeStore()
	store.setBal("emp-1", TypeAnnual, 2026, 20)
	dir := newFakeDirectory()
	dir.employeesByUser["user-1"] = "emp-1"
	dir.employeesByUser["other-mgr"] = "emp-other"
	svc := newTestService(store, dir, defaultTestSettings())

	req, err := svc.CreateRequest(context.Background(), "t1", "emp-1", validInput(), testNow)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// self-approval is forbidden even with the blanket flag
	if _, err := svc.Approve(context.Background(), "t1", req.ID, "user-1", true, nil); !errors.Is(err, ErrForbidden) {
		t.Errorf("self-approval: got %v, want ErrForbidden", err)
	}
	// a manager who does not manage the employee is forbidden
	if _, err := svc.Approve(context.Background(), "t1", req.ID, "other-mgr", false, nil); !errors.Is(err, ErrForbidden) {
		t.Errorf("unrelated manager: got %v, want ErrForbidden", err)
	}
}

func TestApproveRejectsNonPending(t *testing.T) {
	store := newFakeStore()
	store.setBal("emp-1", TypeAnnual, 2026, 20)
	dir := newFakeDirectory()
	dir.employeesByUser["hr-user"] = "emp-hr"
	svc := newTestService(store, dir, defaultTestSettings())

	req, err := svc.CreateRequest(context.Background(), "t1", "emp-1", validInput(), testNow)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Reject(context.Background(), "t1", req.ID, "hr-user", true, nil); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := svc.Approve(context.Background(), "t1", req.ID, "hr-user", true, nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("approve after reject: got %v, want ErrInvalidState", err)
	}
}

func TestCancelOnlyOwnPending(t *testing.T) {
	store := newFakeStore()
	store.setBal("emp-1", TypeAnnual, 2026, 20)
	dir := newFakeDirectory()
	dir.employeesByUser["user-1"] = "emp-1"
	dir.employeesByUser["user-2"] = "emp-2"
	svc := newTestService(store, dir, defaultTestSettings())

	req, err := svc.CreateRequest(context.Background(), "t1", "emp-1", validInput(), testNow)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), "t1", req.ID, "user-2"); !errors.Is(err, ErrForbidden) {
		t.Errorf("cancel by another employee: got %v, want ErrForbidden", err)
	}
	if _, err := svc.Cancel(context.Background(), "t1", req.ID, "user-1"); err != nil {
		t.Fatalf("cancel own: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), "t1", req.ID, "user-1"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("cancel twice: got %v, want ErrInvalidState", err)
	}
}

func TestBalancesSynthesizeOrgDefaults(t *testing.T) {
	store := newFakeStore()
	store.setBal("emp-1", TypeAnnual, 2026, 12.5)
	settings := defaultTestSettings()
	settings.Policies = map[string]float64{TypePersonal: 7}
	svc := newTestService(store, newFakeDirectory(), settings)

	balances, orgPolicies, err := svc.Balances(context.Background(), "t1", "emp-1", 2026)
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	if len(balances) != len(DisplayTypes) {
		t.Fatalf("got %d balances, want %d", len(balances), len(DisplayTypes))
	}
	byType := map[string]Balance{}
	for _, b := range balances {
		byType[b.LeaveType] = b
	}
	if b := byType[TypeAnnual]; b.Balance != 12.5 || b.IsOrgDefault {
		t.Errorf("annual = %+v, want stored 12.5 not org default", b)
	}
	if b := byType[TypeSick]; b.Balance != 10 || !b.IsOrgDefault {
		t.Errorf("sick = %+v, want org default 10", b)
	}
	if b := byType[TypePersonal]; b.Balance != 7 || !b.IsOrgDefault {
		t.Errorf("personal = %+v, want tenant policy 7 flagged org default", b)
	}

	if len(orgPolicies) != len(AllTypes) {
		t.Fatalf("orgPolicies has %d entries, want one per leave type", len(orgPolicies))
	}
	if orgPolicies[TypePersonal] != 7 {
		t.Errorf("orgPolicies personal = %v, want tenant override 7", orgPolicies[TypePersonal])
	}
	if orgPolicies[TypeAnnual] != 20 || orgPolicies[TypeMaternity] != 90 {
		t.Errorf("orgPolicies defaults = %v, want annual 20 and maternity 90", orgPolicies)
	}
}
