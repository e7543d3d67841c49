package models

import (
	"time"

	"github.com/google/uuid"
)

// User status values. Every account is created as pending, except accounts
// created by an approved access request, which enter life already approved.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusSuspended = "suspended"
)

type User struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	Email            string     `json:"email" db:"email"`
	Name             string     `json:"name" db:"name"`
	PhotoURL         *string    `json:"photo_url" db:"photo_url"`
	Company          *string    `json:"company" db:"company"`
	GoogleID         *string    `json:"google_id" db:"google_id"`
	PasswordHash     string     `json:"-" db:"password_hash"` // Never serialize in JSON
	Status           string     `json:"status" db:"status"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	LastLogin        *time.Time `json:"last_login" db:"last_login"`
	ApprovedAt       *time.Time `json:"approved_at" db:"approved_at"`
	ApprovedBy       *string    `json:"approved_by" db:"approved_by"`
	RejectedAt       *time.Time `json:"rejected_at" db:"rejected_at"`
	RejectionReason  *string    `json:"rejection_reason" db:"rejection_reason"`
	SuspendedAt      *time.Time `json:"suspended_at" db:"suspended_at"`
	SuspensionReason *string    `json:"suspension_reason" db:"suspension_reason"`
	ReactivatedAt    *time.Time `json:"reactivated_at" db:"reactivated_at"`
}

// PublicProfile is the user shape returned on login responses.
type PublicProfile struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	PhotoURL *string   `json:"photo_url,omitempty"`
	Status   string    `json:"status"`
}

func (u *User) Public() *PublicProfile {
	return &PublicProfile{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		PhotoURL: u.PhotoURL,
		Status:   u.Status,
	}
}

// Stats summarizes the user base for the admin dashboard.
type Stats struct {
	TotalUsers      int `json:"total_users"`
	PendingUsers    int `json:"pending_users"`
	ApprovedUsers   int `json:"approved_users"`
	RejectedUsers   int `json:"rejected_users"`
	SuspendedUsers  int `json:"suspended_users"`
	TodayActivities int `json:"today_activities"`
}
