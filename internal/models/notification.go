package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType represents the type of admin notification
type NotificationType string

const (
	NotificationNewUser       NotificationType = "new_user"
	NotificationAccessRequest NotificationType = "access_request"
)

// AdminNotification is created exclusively as a side effect of the approval
// state machine or access-request creation. The only mutation is mark-as-read.
type AdminNotification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Data      JSONB            `json:"data" db:"data"`
	Read      bool             `json:"read" db:"read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// JSONB represents PostgreSQL JSONB type
type JSONB map[string]interface{}
