package tenant

import "time"

type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Settings is the per-tenant leave configuration read by every leave
// operation. LeavePolicies maps leave type to annual day count; types missing
// from the map fall back to the org defaults in the leave package.
type Settings struct {
	TenantID                    string             `json:"tenantId"`
	LeavePolicies               map[string]float64 `json:"leavePolicies"`
	CarryForwardLeave           bool               `json:"carryForwardLeave"`
	MaxCarryForwardDays         float64            `json:"maxCarryForwardDays"`
	MinimumLeaveNoticeDays      int                `json:"minimumLeaveNoticeDays"`
	MaximumConsecutiveLeaveDays *int               `json:"maximumConsecutiveLeaveDays"`
	AllowHalfDayLeave           bool               `json:"allowHalfDayLeave"`
	AutoAllocateLeave           bool               `json:"autoAllocateLeave"`
	LeaveAllocationDay          string             `json:"leaveAllocationDay"`
	UpdatedAt                   time.Time          `json:"updatedAt"`
}

// DefaultSettings is the settings record written when a tenant is created.
func DefaultSettings(tenantID string) Settings {
	return Settings{
		TenantID:               tenantID,
		LeavePolicies:          map[string]float64{},
		CarryForwardLeave:      true,
		MaxCarryForwardDays:    5,
		MinimumLeaveNoticeDays: 1,
		AllowHalfDayLeave:      true,
		AutoAllocateLeave:      false,
		LeaveAllocationDay:     "01-01",
	}
}
