package auth

import "time"

// SessionData represents the authenticated session context for a request
type SessionData struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	TokenID    string    `json:"token_id"`
	ExpiresAt  time.Time `json:"expires_at"`
	AuthMethod string    `json:"auth_method"` // "cookie", "bearer"
}
