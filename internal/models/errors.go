package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the backend adapters, the services and the
// client-side session manager. Validation errors are raised before any I/O;
// credential and approval errors propagate to the caller for user-facing
// messaging; audit/notification failures are swallowed at the call site.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrPendingApproval    = errors.New("account created, awaiting admin approval")
	ErrSessionExpired     = errors.New("session expired")
	ErrAlreadyProcessed   = errors.New("access request already processed")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrNetwork            = errors.New("network error")
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// ValidationError flags malformed input caught before any backend call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// AccountNotApprovedError carries the current status so clients can
// differentiate pending vs rejected vs suspended messaging.
type AccountNotApprovedError struct {
	Status string
}

func (e *AccountNotApprovedError) Error() string {
	return fmt.Sprintf("account not approved (status: %s)", e.Status)
}

// Unwrap lets errors.Is(err, ErrPendingApproval) match when the account is
// still pending; rejected and suspended statuses do not match.
func (e *AccountNotApprovedError) Unwrap() error {
	if e.Status == StatusPending {
		return ErrPendingApproval
	}
	return nil
}
