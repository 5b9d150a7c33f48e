// Package model defines domain entities for the application.
package model

import "time"

// User represents a registered account.
type User struct {
	ID           string     `json:"id"`
	Handle       string     `json:"handle"`
	PasswordHash string     `json:"-"` // Never serialize
	IsActive     bool       `json:"is_active"`
	IsAdmin      bool       `json:"is_admin"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// ProfileResponse is the public view of a user returned by the API.
type ProfileResponse struct {
	ID        string     `json:"id"`
	Handle    string     `json:"handle"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// ToProfile converts a User to its public representation.
func (u *User) ToProfile() ProfileResponse {
	return ProfileResponse{
		ID:        u.ID,
		Handle:    u.Handle,
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
}
