package models

import "time"

// Principal roles carried in access-token claims.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// TokenResponse is returned on every successful login and refresh.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	RefreshToken string    `json:"refresh_token"`
	Role         string    `json:"role"`
	UserID       string    `json:"user_id"`
	TokenID      string    `json:"token_id"`
	IssuedAt     time.Time `json:"issued_at"`
}
