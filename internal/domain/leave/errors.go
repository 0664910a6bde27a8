package leave

import "errors"

var (
	ErrNotFound     = errors.New("leave request not found")
	ErrInvalidState = errors.New("leave request is not pending")
	ErrForbidden    = errors.New("not allowed to act on this leave request")
)

// ValidationError is a request-rejection with a stable code. NeedsReset is
// set when the rejection is caused by a negative balance, so callers can
// point the employee at the balance reset flow.
type ValidationError struct {
	Code       string
	Message    string
	NeedsReset bool
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}
