// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/moreai/moreai/internal/model"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

// LoginResponse represents a successful login.
type LoginResponse struct {
	Token     string                 `json:"token"`
	ExpiresAt time.Time              `json:"expires_at"`
	User      *model.ProfileResponse `json:"user"`
}

// UpdateProfileRequest represents the request body for profile updates.
type UpdateProfileRequest struct {
	Handle string `json:"handle"`
}

// ChangePasswordRequest represents the request body for password changes.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// SessionResponse represents a session in API responses.
type SessionResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Current   bool      `json:"current"`
}

// ToSessionResponse converts a session model, marking the caller's own.
func ToSessionResponse(s *model.Session, currentID string) SessionResponse {
	return SessionResponse{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
		IPAddress: s.IPAddress,
		UserAgent: s.UserAgent,
		Current:   s.ID == currentID,
	}
}

// EntryResponse represents a conversation entry in API responses.
type EntryResponse struct {
	Body      string    `json:"message"`
	Kind      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// ToEntryResponses converts conversation entries for API responses.
func ToEntryResponses(entries []*model.Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryResponse{
			Body:      e.Body,
			Kind:      e.Kind,
			Timestamp: e.CreatedAt,
		})
	}
	return out
}

// TranscriptionResponse represents the speech-to-text result.
type TranscriptionResponse struct {
	Text string `json:"text"`
}
