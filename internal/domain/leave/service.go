package leave

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Service struct {
	store     StoreAPI
	directory EmployeeDirectory
	settings  SettingsProvider
}

func NewService(store StoreAPI, directory EmployeeDirectory, settings SettingsProvider) *Service {
	return &Service{store: store, directory: directory, settings: settings}
}

// Balances returns the employee-facing balance set for a year, plus the
// resolved per-type policy map (tenant overrides over the org defaults).
// Types with no stored row are synthesized from that map and flagged
// IsOrgDefault so the UI can show them as untouched allocations.
func (s *Service) Balances(ctx context.Context, tenantID, employeeID string, year int) ([]Balance, map[string]float64, error) {
	settings, err := s.settings.LeaveSettings(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	stored, err := s.store.ListBalancesForYear(ctx, tenantID, employeeID, year)
	if err != nil {
		return nil, nil, err
	}

	policies := make(map[string]float64, len(AllTypes))
	for _, leaveType := range AllTypes {
		policies[leaveType] = PolicyDays(settings.Policies, leaveType)
	}

	byType := map[string]Balance{}
	for _, b := range stored {
		byType[b.LeaveType] = b
	}

	out := make([]Balance, 0, len(DisplayTypes))
	for _, leaveType := range DisplayTypes {
		if b, ok := byType[leaveType]; ok {
			out = append(out, b)
			continue
		}
		out = append(out, Balance{
			EmployeeID:   employeeID,
			LeaveType:    leaveType,
			Year:         year,
			Balance:      policies[leaveType],
			IsOrgDefault: true,
		})
	}
	return out, policies, nil
}

// availableBalance resolves the balance used for sufficiency checks: the
// stored row when present, the tenant policy default otherwise.
func (s *Service) availableBalance(ctx context.Context, tenantID, employeeID, leaveType string, year int, settings LeaveSettings) (float64, error) {
	b, ok, err := s.store.GetBalance(ctx, tenantID, employeeID, leaveType, year)
	if err != nil {
		return 0, err
	}
	if ok {
		return b.Balance, nil
	}
	return PolicyDays(settings.Policies, leaveType), nil
}

// CreateRequest runs the full validation pipeline and persists a pending
// request. Policy violations come back as *ValidationError; anything else is
// an infrastructure failure.
func (s *Service) CreateRequest(ctx context.Context, tenantID, employeeID string, input CreateRequestInput, now time.Time) (Request, error) {
	if !IsValidType(input.LeaveType) {
		return Request{}, invalid("invalid_leave_type", fmt.Sprintf("unknown leave type %q", input.LeaveType))
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		return Request{}, invalid("missing_dates", "startDate and endDate are required")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return Request{}, invalid("missing_reason", "reason is required")
	}
	if input.EndDate.Before(input.StartDate) {
		return Request{}, invalid("invalid_range", "endDate must be on or after startDate")
	}

	settings, err := s.settings.LeaveSettings(ctx, tenantID)
	if err != nil {
		return Request{}, err
	}

	days := BusinessDays(input.StartDate, input.EndDate)
	if input.DaysOverride != nil {
		override := *input.DaysOverride
		if override <= 0 {
			return Request{}, invalid("invalid_days", "days must be positive")
		}
		if override > days {
			return Request{}, invalid("invalid_days", "days cannot exceed the business days in the range")
		}
		if !settings.AllowHalfDay && !isWholeDays(override) {
			return Request{}, invalid("half_day_disabled", "half-day leave is not enabled for this organization")
		}
		days = override
	}
	if days <= 0 {
		return Request{}, invalid("no_business_days", "the selected range contains only weekends")
	}

	if notice := NoticeDays(input.StartDate, now); notice < settings.MinNoticeDays {
		return Request{}, invalid("insufficient_notice",
			fmt.Sprintf("leave requests require at least %d days notice", settings.MinNoticeDays))
	}
	if settings.MaxConsecutiveDays != nil && days > float64(*settings.MaxConsecutiveDays) {
		return Request{}, invalid("exceeds_consecutive_cap",
			fmt.Sprintf("leave requests cannot exceed %d consecutive days", *settings.MaxConsecutiveDays))
	}

	if input.LeaveType != TypeUnpaid {
		year := input.StartDate.Year()
		available, err := s.availableBalance(ctx, tenantID, employeeID, input.LeaveType, year, settings)
		if err != nil {
			return Request{}, err
		}
		if available < 0 {
			return Request{}, &ValidationError{
				Code:       "negative_balance",
				Message:    "your leave balance is negative; ask an administrator to reset it before requesting leave",
				NeedsReset: true,
			}
		}
		if days > available {
			return Request{}, invalid("insufficient_balance",
				fmt.Sprintf("insufficient %s balance: %.1f days available, %.1f requested", input.LeaveType, available, days))
		}
	}

	overlapping, err := s.store.HasOverlappingRequest(ctx, tenantID, employeeID, input.StartDate, input.EndDate)
	if err != nil {
		return Request{}, err
	}
	if overlapping {
		return Request{}, invalid("overlapping_request", "an existing pending or approved request overlaps this range")
	}

	if len(input.Documents) > 0 && input.LeaveType != TypeSick {
		return Request{}, invalid("documents_not_allowed", "supporting documents are accepted for sick leave only")
	}

	req := Request{
		EmployeeID: employeeID,
		LeaveType:  input.LeaveType,
		StartDate:  dateOnly(input.StartDate),
		EndDate:    dateOnly(input.EndDate),
		Days:       days,
		Reason:     input.Reason,
		Status:     StatusPending,
	}
	id, err := s.store.CreateRequest(ctx, tenantID, req)
	if err != nil {
		return Request{}, err
	}
	for _, doc := range input.Documents {
		if _, err := s.store.CreateDocument(ctx, tenantID, id, doc); err != nil {
			return Request{}, err
		}
	}
	return s.store.GetRequest(ctx, tenantID, id)
}

func (s *Service) GetRequest(ctx context.Context, tenantID, requestID string) (Request, error) {
	return s.store.GetRequest(ctx, tenantID, requestID)
}

func (s *Service) ListRequests(ctx context.Context, tenantID string, f RequestFilter) ([]Request, error) {
	return s.store.ListRequests(ctx, tenantID, f)
}

// Approve moves a pending request to approved and debits the balance row
// keyed by the request's start-date year. Managers may only approve their
// own reports; HR and admins approve anyone but themselves.
func (s *Service) Approve(ctx context.Context, tenantID, requestID, approverUserID string, canApproveAll bool, note *string) (Request, error) {
	req, err := s.store.GetRequest(ctx, tenantID, requestID)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusPending {
		return Request{}, ErrInvalidState
	}
	if err := s.checkDecider(ctx, tenantID, approverUserID, req.EmployeeID, canApproveAll); err != nil {
		return Request{}, err
	}

	if req.LeaveType != TypeUnpaid {
		if err := s.ensureBalanceRow(ctx, tenantID, req); err != nil {
			return Request{}, err
		}
		if err := s.store.AdjustBalance(ctx, tenantID, req.EmployeeID, req.LeaveType, req.StartDate.Year(), -req.Days); err != nil {
			return Request{}, err
		}
	}
	if err := s.store.UpdateRequestStatus(ctx, tenantID, requestID, StatusApproved, approverUserID, note); err != nil {
		return Request{}, err
	}
	return s.store.GetRequest(ctx, tenantID, requestID)
}

// ensureBalanceRow materializes the org-default balance before the debit, so
// approval of a never-allocated employee still leaves an auditable row.
func (s *Service) ensureBalanceRow(ctx context.Context, tenantID string, req Request) error {
	year := req.StartDate.Year()
	_, ok, err := s.store.GetBalance(ctx, tenantID, req.EmployeeID, req.LeaveType, year)
	if err != nil || ok {
		return err
	}
	settings, err := s.settings.LeaveSettings(ctx, tenantID)
	if err != nil {
		return err
	}
	_, err = s.store.SetBalance(ctx, tenantID, req.EmployeeID, req.LeaveType, year, PolicyDays(settings.Policies, req.LeaveType))
	return err
}

func (s *Service) Reject(ctx context.Context, tenantID, requestID, deciderUserID string, canApproveAll bool, note *string) (Request, error) {
	req, err := s.store.GetRequest(ctx, tenantID, requestID)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusPending {
		return Request{}, ErrInvalidState
	}
	if err := s.checkDecider(ctx, tenantID, deciderUserID, req.EmployeeID, canApproveAll); err != nil {
		return Request{}, err
	}
	if err := s.store.UpdateRequestStatus(ctx, tenantID, requestID, StatusRejected, deciderUserID, note); err != nil {
		return Request{}, err
	}
	return s.store.GetRequest(ctx, tenantID, requestID)
}

// Cancel withdraws the caller's own pending request. Approved requests stay
// approved; unwinding a debited balance is an administrative reset concern.
func (s *Service) Cancel(ctx context.Context, tenantID, requestID, callerUserID string) (Request, error) {
	req, err := s.store.GetRequest(ctx, tenantID, requestID)
	if err != nil {
		return Request{}, err
	}
	callerEmployeeID, err := s.directory.EmployeeIDByUserID(ctx, tenantID, callerUserID)
	if err != nil {
		return Request{}, err
	}
	if callerEmployeeID == "" || callerEmployeeID != req.EmployeeID {
		return Request{}, ErrForbidden
	}
	if req.Status != StatusPending {
		return Request{}, ErrInvalidState
	}
	if err := s.store.UpdateRequestStatus(ctx, tenantID, requestID, StatusCancelled, callerUserID, nil); err != nil {
		return Request{}, err
	}
	return s.store.GetRequest(ctx, tenantID, requestID)
}

// checkDecider enforces who may approve or reject: never the requester
// themselves, and managers only for their direct reports.
func (s *Service) checkDecider(ctx context.Context, tenantID, deciderUserID, employeeID string, canApproveAll bool) error {
	deciderEmployeeID, err := s.directory.EmployeeIDByUserID(ctx, tenantID, deciderUserID)
	if err != nil {
		return err
	}
	if deciderEmployeeID != "" && deciderEmployeeID == employeeID {
		return ErrForbidden
	}
	if canApproveAll {
		return nil
	}
	if deciderEmployeeID == "" {
		return ErrForbidden
	}
	manages, err := s.directory.IsManagerOf(ctx, tenantID, deciderEmployeeID, employeeID)
	if err != nil {
		return err
	}
	if !manages {
		return ErrForbidden
	}
	return nil
}

func (s *Service) RequestDocuments(ctx context.Context, tenantID, requestID string) ([]Document, error) {
	return s.store.ListDocuments(ctx, tenantID, requestID)
}

func (s *Service) DocumentData(ctx context.Context, tenantID, documentID string) (Document, []byte, error) {
	return s.store.DocumentData(ctx, tenantID, documentID)
}
