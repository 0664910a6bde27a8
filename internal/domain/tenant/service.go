package tenant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zenora/internal/domain/leave"
)

type Service struct {
	Store *Store
}

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

var ErrInvalidSettings = errors.New("invalid tenant settings")

func (s *Service) ListTenants(ctx context.Context) ([]Tenant, error) {
	return s.Store.List(ctx)
}

func (s *Service) CreateTenant(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: name required", ErrInvalidSettings)
	}
	id, err := s.Store.Create(ctx, name)
	if err != nil {
		return "", err
	}
	if err := s.Store.UpsertSettings(ctx, DefaultSettings(id)); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service) SetTenantStatus(ctx context.Context, tenantID, status string) error {
	if status != "active" && status != "suspended" {
		return fmt.Errorf("%w: status must be active or suspended", ErrInvalidSettings)
	}
	return s.Store.SetStatus(ctx, tenantID, status)
}

func (s *Service) GetSettings(ctx context.Context, tenantID string) (Settings, error) {
	return s.Store.GetSettings(ctx, tenantID)
}

// LeaveSettings projects tenant settings onto the slice the leave workflow
// reads, so the leave service never depends on this package.
func (s *Service) LeaveSettings(ctx context.Context, tenantID string) (leave.LeaveSettings, error) {
	settings, err := s.Store.GetSettings(ctx, tenantID)
	if err != nil {
		return leave.LeaveSettings{}, err
	}
	return leave.LeaveSettings{
		Policies:            settings.LeavePolicies,
		CarryForward:        settings.CarryForwardLeave,
		MaxCarryForwardDays: settings.MaxCarryForwardDays,
		MinNoticeDays:       settings.MinimumLeaveNoticeDays,
		MaxConsecutiveDays:  settings.MaximumConsecutiveLeaveDays,
		AllowHalfDay:        settings.AllowHalfDayLeave,
	}, nil
}

func (s *Service) UpdateSettings(ctx context.Context, settings Settings) error {
	if err := ValidateSettings(settings); err != nil {
		return err
	}
	return s.Store.UpsertSettings(ctx, settings)
}

func ValidateSettings(settings Settings) error {
	if settings.TenantID == "" {
		return fmt.Errorf("%w: tenant id required", ErrInvalidSettings)
	}
	if settings.MinimumLeaveNoticeDays < 0 {
		return fmt.Errorf("%w: minimumLeaveNoticeDays must not be negative", ErrInvalidSettings)
	}
	if settings.MaxCarryForwardDays < 0 {
		return fmt.Errorf("%w: maxCarryForwardDays must not be negative", ErrInvalidSettings)
	}
	if settings.MaximumConsecutiveLeaveDays != nil && *settings.MaximumConsecutiveLeaveDays <= 0 {
		return fmt.Errorf("%w: maximumConsecutiveLeaveDays must be positive when set", ErrInvalidSettings)
	}
	for leaveType, days := range settings.LeavePolicies {
		if days < 0 {
			return fmt.Errorf("%w: policy for %s must not be negative", ErrInvalidSettings, leaveType)
		}
	}
	if settings.LeaveAllocationDay != "" {
		if _, err := time.Parse("01-02", settings.LeaveAllocationDay); err != nil {
			return fmt.Errorf("%w: leaveAllocationDay must be MM-DD", ErrInvalidSettings)
		}
	}
	return nil
}
