package models

import (
	"time"

	"github.com/google/uuid"
)

// AccessRequest is a self-service ask for a new account, distinct from the
// signup-then-approve flow. It is terminal-mutated exactly once by an admin;
// Processed=false implies Approved and AdminNotes carry no meaning.
type AccessRequest struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Email       string     `json:"email" db:"email"`
	Company     string     `json:"company" db:"company"`
	Reason      string     `json:"reason" db:"reason"`
	IP          *string    `json:"ip" db:"ip"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	Processed   bool       `json:"processed" db:"processed"`
	Approved    bool       `json:"approved" db:"approved"`
	AdminNotes  *string    `json:"admin_notes" db:"admin_notes"`
	ProcessedAt *time.Time `json:"processed_at" db:"processed_at"`
	ProcessedBy *string    `json:"processed_by" db:"processed_by"`
}
