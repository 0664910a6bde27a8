package leave

const (
	TypeAnnual    = "ANNUAL"
	TypeSick      = "SICK"
	TypePersonal  = "PERSONAL"
	TypeMaternity = "MATERNITY"
	TypePaternity = "PATERNITY"
	TypeUnpaid    = "UNPAID"
)

const (
	StatusPending   = "PENDING"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
)

// AllTypes is the full allocation/reset set.
var AllTypes = []string{TypeAnnual, TypeSick, TypePersonal, TypeMaternity, TypePaternity, TypeUnpaid}

// DisplayTypes is the employee-facing balance set. Maternity, paternity and
// unpaid balances are allocated and resettable but not shown on the employee
// dashboard.
var DisplayTypes = []string{TypeAnnual, TypeSick, TypePersonal}

// DefaultPolicies are the org fallbacks used when a tenant's policy map omits
// a leave type.
var DefaultPolicies = map[string]float64{
	TypeAnnual:    20,
	TypeSick:      10,
	TypePersonal:  5,
	TypeMaternity: 90,
	TypePaternity: 15,
	TypeUnpaid:    0,
}

func IsValidType(leaveType string) bool {
	_, ok := DefaultPolicies[leaveType]
	return ok
}

// PolicyDays resolves the annual day count for a leave type from the tenant
// policy map, falling back to the org default.
func PolicyDays(policies map[string]float64, leaveType string) float64 {
	if days, ok := policies[leaveType]; ok {
		return days
	}
	return DefaultPolicies[leaveType]
}
