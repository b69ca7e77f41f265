package model

import (
	"time"
)

// User represents an account allowed to upload providers and run campaigns
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never expose password hash
	IP           string    `json:"ip,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	LastLogin    time.Time `json:"lastLogin"`
}

// UserSummary is the public view of a user returned by auth endpoints
type UserSummary struct {
	Username  string     `json:"username"`
	IP        string     `json:"ip,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

// Summary returns the public view of the user
func (u *User) Summary() UserSummary {
	created, last := u.CreatedAt, u.LastLogin
	return UserSummary{
		Username:  u.Username,
		IP:        u.IP,
		CreatedAt: &created,
		LastLogin: &last,
	}
}
