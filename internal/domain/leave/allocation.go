package leave

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Allocate runs the yearly allocation batch. Each employee is written in its
// own transaction; one employee failing never rolls back the others. Targets
// default to every active employee unless EmployeeIDs narrows the batch.
func (s *Service) Allocate(ctx context.Context, tenantID string, input AllocationInput) (AllocationResult, error) {
	settings, err := s.settings.LeaveSettings(ctx, tenantID)
	if err != nil {
		return AllocationResult{}, err
	}
	active, err := s.directory.ListActiveEmployees(ctx, tenantID)
	if err != nil {
		return AllocationResult{}, err
	}

	result := AllocationResult{Year: input.Year}

	var targets []string
	if len(input.EmployeeIDs) > 0 {
		for _, employeeID := range input.EmployeeIDs {
			if _, ok := active[employeeID]; !ok {
				result.Errors = append(result.Errors, AllocationError{
					EmployeeID: employeeID,
					Error:      "employee not found or not active",
				})
				continue
			}
			targets = append(targets, employeeID)
		}
	} else {
		for employeeID := range active {
			targets = append(targets, employeeID)
		}
	}
	sort.Strings(targets)
	result.TotalEmployees = len(targets) + len(result.Errors)

	for _, employeeID := range targets {
		entries, totals, err := s.computeAllocation(ctx, tenantID, employeeID, active[employeeID], input, settings)
		if err == nil {
			err = s.store.AllocateEmployeeYear(ctx, tenantID, employeeID, input.Year, totals)
		}
		if err != nil {
			result.Errors = append(result.Errors, AllocationError{EmployeeID: employeeID, Error: err.Error()})
			continue
		}
		result.SuccessCount++
		result.Allocations = append(result.Allocations, entries...)
	}
	result.ErrorCount = len(result.Errors)
	return result, nil
}

// computeAllocation builds one employee's per-type totals: policy days,
// proration for first-year annual leave, and capped annual carry-forward
// from the prior year's positive balance.
func (s *Service) computeAllocation(ctx context.Context, tenantID, employeeID string, startDate *time.Time, input AllocationInput, settings LeaveSettings) ([]AllocationEntry, map[string]float64, error) {
	entries := make([]AllocationEntry, 0, len(AllTypes))
	totals := make(map[string]float64, len(AllTypes))

	for _, leaveType := range AllTypes {
		allocated := PolicyDays(settings.Policies, leaveType)
		var carry float64

		if leaveType == TypeAnnual {
			if input.Prorated {
				allocated = ProratedAnnual(allocated, startDate, input.Year)
			}
			if settings.CarryForward {
				prior, ok, err := s.store.GetBalance(ctx, tenantID, employeeID, TypeAnnual, input.Year-1)
				if err != nil {
					return nil, nil, fmt.Errorf("prior-year balance: %w", err)
				}
				if ok {
					carry = CarryForward(prior.Balance, settings.MaxCarryForwardDays)
				}
			}
		}
		totals[leaveType] = allocated + carry
		entries = append(entries, AllocationEntry{
			EmployeeID:   employeeID,
			LeaveType:    leaveType,
			Year:         input.Year,
			Allocated:    allocated,
			CarryForward: carry,
			Total:        allocated + carry,
		})
	}
	return entries, totals, nil
}

// AllocationStatus reports which active employees hold a full balance row
// set for the year, the check an admin runs after a batch.
func (s *Service) AllocationStatus(ctx context.Context, tenantID string, year int) ([]AllocationStatusEntry, error) {
	active, err := s.directory.ListActiveEmployees(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	balances, err := s.store.TenantBalancesForYear(ctx, tenantID, year)
	if err != nil {
		return nil, err
	}

	employeeIDs := make([]string, 0, len(active))
	for employeeID := range active {
		employeeIDs = append(employeeIDs, employeeID)
	}
	sort.Strings(employeeIDs)

	out := make([]AllocationStatusEntry, 0, len(employeeIDs))
	for _, employeeID := range employeeIDs {
		entry := AllocationStatusEntry{
			EmployeeID: employeeID,
			Year:       year,
			Balances:   balances[employeeID],
		}
		for _, leaveType := range AllTypes {
			if _, ok := entry.Balances[leaveType]; !ok {
				entry.MissingTypes = append(entry.MissingTypes, leaveType)
			}
		}
		entry.FullyAllocated = len(entry.MissingTypes) == 0
		out = append(out, entry)
	}
	return out, nil
}

// ResetBalances overwrites an employee's balances with the tenant policy
// defaults, the escape hatch for negative or corrupted rows. An empty
// leaveType resets every type. Carry-forward is deliberately not applied.
func (s *Service) ResetBalances(ctx context.Context, tenantID, employeeID, leaveType string, year int) ([]ResetEntry, error) {
	if leaveType != "" && !IsValidType(leaveType) {
		return nil, invalid("invalid_leave_type", fmt.Sprintf("unknown leave type %q", leaveType))
	}
	settings, err := s.settings.LeaveSettings(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	types := AllTypes
	if leaveType != "" {
		types = []string{leaveType}
	}

	out := make([]ResetEntry, 0, len(types))
	for _, t := range types {
		target := PolicyDays(settings.Policies, t)
		prior, existed, err := s.store.GetBalance(ctx, tenantID, employeeID, t, year)
		if err != nil {
			return nil, err
		}
		if _, err := s.store.SetBalance(ctx, tenantID, employeeID, t, year, target); err != nil {
			return nil, err
		}
		entry := ResetEntry{LeaveType: t, Year: year, After: target, Status: ResetStatusCreated}
		if existed {
			before := prior.Balance
			entry.Before = &before
			entry.Status = ResetStatusReset
		}
		out = append(out, entry)
	}
	return out, nil
}
