package tenant

import (
	"context"
	"encoding/json"

	"zenora/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) List(ctx context.Context) ([]Tenant, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, status, created_at
    FROM tenants
    ORDER BY created_at
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, nil
}

func (s *Store) Create(ctx context.Context, name string) (string, error) {
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO tenants (name, status)
    VALUES ($1, 'active')
    RETURNING id
  `, name).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) SetStatus(ctx context.Context, tenantID, status string) error {
	_, err := s.DB.Exec(ctx, "UPDATE tenants SET status = $1 WHERE id = $2", status, tenantID)
	return err
}

func (s *Store) GetSettings(ctx context.Context, tenantID string) (Settings, error) {
	var out Settings
	var policiesJSON []byte
	err := s.DB.QueryRow(ctx, `
    SELECT tenant_id, leave_policies, carry_forward_leave, max_carry_forward_days,
           minimum_leave_notice_days, maximum_consecutive_leave_days,
           allow_half_day_leave, auto_allocate_leave, leave_allocation_day, updated_at
    FROM tenant_settings
    WHERE tenant_id = $1
  `, tenantID).Scan(
		&out.TenantID, &policiesJSON, &out.CarryForwardLeave, &out.MaxCarryForwardDays,
		&out.MinimumLeaveNoticeDays, &out.MaximumConsecutiveLeaveDays,
		&out.AllowHalfDayLeave, &out.AutoAllocateLeave, &out.LeaveAllocationDay, &out.UpdatedAt,
	)
	if err != nil {
		return Settings{}, err
	}
	out.LeavePolicies = map[string]float64{}
	if len(policiesJSON) > 0 {
		if err := json.Unmarshal(policiesJSON, &out.LeavePolicies); err != nil {
			return Settings{}, err
		}
	}
	return out, nil
}

func (s *Store) UpsertSettings(ctx context.Context, settings Settings) error {
	policiesJSON, err := json.Marshal(settings.LeavePolicies)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO tenant_settings (tenant_id, leave_policies, carry_forward_leave, max_carry_forward_days,
                                 minimum_leave_notice_days, maximum_consecutive_leave_days,
                                 allow_half_day_leave, auto_allocate_leave, leave_allocation_day)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    ON CONFLICT (tenant_id)
    DO UPDATE SET leave_policies = EXCLUDED.leave_policies,
                  carry_forward_leave = EXCLUDED.carry_forward_leave,
                  max_carry_forward_days = EXCLUDED.max_carry_forward_days,
                  minimum_leave_notice_days = EXCLUDED.minimum_leave_notice_days,
                  maximum_consecutive_leave_days = EXCLUDED.maximum_consecutive_leave_days,
                  allow_half_day_leave = EXCLUDED.allow_half_day_leave,
                  auto_allocate_leave = EXCLUDED.auto_allocate_leave,
                  leave_allocation_day = EXCLUDED.leave_allocation_day,
                  updated_at = now()
  `, settings.TenantID, policiesJSON, settings.CarryForwardLeave, settings.MaxCarryForwardDays,
		settings.MinimumLeaveNoticeDays, settings.MaximumConsecutiveLeaveDays,
		settings.AllowHalfDayLeave, settings.AutoAllocateLeave, settings.LeaveAllocationDay)
	return err
}

// ListAutoAllocating returns tenant ids with auto allocation enabled, keyed to
// their MM-DD allocation day. Used by the jobs scheduler.
func (s *Store) ListAutoAllocating(ctx context.Context) (map[string]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT tenant_id, leave_allocation_day
    FROM tenant_settings
    WHERE auto_allocate_leave = true
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var tenantID, day string
		if err := rows.Scan(&tenantID, &day); err != nil {
			return nil, err
		}
		out[tenantID] = day
	}
	return out, nil
}
