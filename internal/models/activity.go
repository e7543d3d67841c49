package models

import (
	"time"

	"github.com/google/uuid"
)

// Ledger action names. The ledger is append-only; records are never mutated
// or deleted by normal operation.
const (
	ActionLogin                  = "login"
	ActionLogout                 = "logout"
	ActionAdminLogin             = "admin_login"
	ActionUserApproved           = "user_approved"
	ActionUserRejected           = "user_rejected"
	ActionUserSuspended          = "user_suspended"
	ActionUserReactivated        = "user_reactivated"
	ActionAccessRequested        = "access_requested"
	ActionAccessRequestProcessed = "access_request_processed"
)

// ActivityRecord is one entry in the audit ledger. UserID is nil for
// admin-only actions.
type ActivityRecord struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    *uuid.UUID `json:"user_id" db:"user_id"`
	Action    string     `json:"action" db:"action"`
	IP        *string    `json:"ip" db:"ip"`
	UserAgent *string    `json:"user_agent" db:"user_agent"`
	Reason    *string    `json:"reason" db:"reason"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// ActivityFilter narrows ledger queries. Zero-value fields are ignored.
type ActivityFilter struct {
	UserID *uuid.UUID `json:"user_id"`
	Action *string    `json:"action"`
	Since  *time.Time `json:"since"`
}
