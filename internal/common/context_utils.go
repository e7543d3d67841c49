package common

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	RoleKey   contextKey = "role"
)

// GetUserIDFromContext extracts the authenticated user ID from request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// GetRoleFromContext extracts the principal role from request context
func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status,omitempty"`
}

// SendError sends an error body in the wire format the dashboard expects:
// {"error": "..."} plus an optional account status for 403 responses.
func SendError(c echo.Context, code int, message string) error {
	return c.JSON(code, &ErrorResponse{Error: message})
}

// SendNotApproved sends the 403 shape carrying the current account status so
// the client can differentiate pending vs rejected vs suspended messaging.
func SendNotApproved(c echo.Context, status string) error {
	return c.JSON(http.StatusForbidden, &ErrorResponse{
		Error:  "account pending approval",
		Status: status,
	})
}

// ValidateEmail applies the same minimal shape check the dashboard applies
// before any network call: a local part, an "@", and a domain with a dot.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("email is malformed")
	}
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return fmt.Errorf("email domain is malformed")
	}
	return nil
}

// ClientIP resolves the caller address behind the usual proxy headers.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.Index(fwd, ","); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return fwd
	}
	if real := r.Header.Get("X-Real-Ip"); real != "" {
		return real
	}
	return r.RemoteAddr
}
