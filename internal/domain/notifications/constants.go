package notifications

const (
	TypeLeaveSubmitted      = "leave_submitted"
	TypeLeaveApproved       = "leave_approved"
	TypeLeaveRejected       = "leave_rejected"
	TypeLeaveCancelled      = "leave_cancelled"
	TypeBalanceReset        = "leave_balance_reset"
	TypeAllocationCompleted = "leave_allocation_completed"
)
