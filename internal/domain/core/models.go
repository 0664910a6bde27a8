package core

import "time"

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"

	EmployeeStatusActive  = "active"
	EmployeeStatusOnLeave = "on_leave"
	EmployeeStatusExited  = "exited"
)

// Employee bridges a user account to the org structure. ManagerID is
// self-referencing and nil for the org root.
type Employee struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Email     string     `json:"email"`
	ManagerID *string    `json:"managerId,omitempty"`
	Status    string     `json:"status"`
	StartDate *time.Time `json:"startDate,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type CreateEmployeeInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	ManagerID *string
	StartDate *time.Time
}
