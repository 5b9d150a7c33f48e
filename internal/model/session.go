package model

import "time"

// Session represents a server-side bearer session. The session ID doubles
// as the bearer token handed to the client at login.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IsActive  bool      `json:"-"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}

// IsValid reports whether the session is active and unexpired at now.
func (s *Session) IsValid(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}

// AuthContext holds the authenticated identity of a request.
// It is injected into the request context by the auth middleware.
type AuthContext struct {
	UserID    string
	SessionID string
}
