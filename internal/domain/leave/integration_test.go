package leave_test

import (
	"context"
	"os"
	"testing"
	"time"

	"zenora/internal/domain/auth"
	"zenora/internal/domain/core"
	"zenora/internal/domain/leave"
	"zenora/internal/domain/tenant"
	"zenora/internal/platform/db"
)

// TestLeaveWorkflowIntegration exercises the request lifecycle against a real
// database. Set TEST_DATABASE_URL to run it; migrations must be applied from
// the repo root.
func TestLeaveWorkflowIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	tenantStore := tenant.NewStore(pool)
	tenantSvc := tenant.NewService(tenantStore)
	coreStore := core.NewStore(pool)
	svc := leave.NewService(leave.NewStore(pool), coreStore, tenantSvc)

	tenantID, err := tenantSvc.CreateTenant(ctx, "integration-"+time.Now().Format("20060102150405.000"))
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	var roleID string
	if err := pool.QueryRow(ctx,
		"INSERT INTO roles (tenant_id, name) VALUES ($1, $2) RETURNING id", tenantID, auth.RoleEmployee,
	).Scan(&roleID); err != nil {
		t.Fatalf("create role: %v", err)
	}

	managerID, err := coreStore.CreateEmployee(ctx, tenantID, roleID, core.CreateEmployeeInput{
		FirstName: "Mona",
		LastName:  "Manager",
		Email:     "mona-" + tenantID + "@integration.test",
		Password:  "integration-pass",
	})
	if err != nil {
		t.Fatalf("create manager: %v", err)
	}
	employeeID, err := coreStore.CreateEmployee(ctx, tenantID, roleID, core.CreateEmployeeInput{
		FirstName: "Eli",
		LastName:  "Employee",
		Email:     "eli-" + tenantID + "@integration.test",
		Password:  "integration-pass",
		ManagerID: &managerID,
	})
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}

	now := time.Now().UTC()
	start := nextMonday(now.AddDate(0, 0, 7))
	year := start.Year()

	if _, err := svc.Allocate(ctx, tenantID, leave.AllocationInput{Year: year}); err != nil {
		t.Fatalf("allocate: %v", err)
	}

	req, err := svc.CreateRequest(ctx, tenantID, employeeID, leave.CreateRequestInput{
		LeaveType: leave.TypeAnnual,
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 2),
		Reason:    "integration journey",
	}, now)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if req.Status != leave.StatusPending || req.Days != 3 {
		t.Fatalf("request = %+v, want pending 3 days", req)
	}

	managerUserID, err := coreStore.UserIDForEmployee(ctx, tenantID, managerID)
	if err != nil || managerUserID == "" {
		t.Fatalf("manager user lookup: %v", err)
	}
	approved, err := svc.Approve(ctx, tenantID, req.ID, managerUserID, false, nil)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != leave.StatusApproved {
		t.Fatalf("status = %s, want approved", approved.Status)
	}

	balances, orgPolicies, err := svc.Balances(ctx, tenantID, employeeID, year)
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if orgPolicies[leave.TypeAnnual] != 20 {
		t.Fatalf("org annual policy = %v, want default 20", orgPolicies[leave.TypeAnnual])
	}
	for _, b := range balances {
		if b.LeaveType == leave.TypeAnnual {
			if b.Balance != 17 {
				t.Fatalf("annual balance = %v, want 17 after 3-day approval", b.Balance)
			}
			if b.IsOrgDefault {
				t.Fatal("allocated balance should not be flagged org default")
			}
		}
	}

	listed, err := svc.ListRequests(ctx, tenantID, leave.RequestFilter{
		EmployeeID: employeeID, Status: leave.StatusApproved, Year: year,
	})
	if err != nil {
		t.Fatalf("list requests: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != req.ID {
		t.Fatalf("status+year filter returned %d requests, want the approved one", len(listed))
	}
	listed, err = svc.ListRequests(ctx, tenantID, leave.RequestFilter{EmployeeID: employeeID, Year: year + 1})
	if err != nil {
		t.Fatalf("list requests next year: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("year filter leaked %d requests from another year", len(listed))
	}

	entries, err := svc.ResetBalances(ctx, tenantID, employeeID, leave.TypeAnnual, year)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != leave.ResetStatusReset || entries[0].After != 20 {
		t.Fatalf("reset entries = %+v, want annual reset to 20", entries)
	}
}

func nextMonday(t time.Time) time.Time {
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	for t.Weekday() != time.Monday {
		t = t.AddDate(0, 0, 1)
	}
	return t
}
