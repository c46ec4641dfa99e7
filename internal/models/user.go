package models

import (
	"strings"
	"time"
)

// User is a registered health worker. Accounts are issued elsewhere; this
// service only reads them.
type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username,omitempty"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	District    string    `json:"district,omitempty"`
	Role        string    `json:"role,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	DeviceToken *string   `json:"-"`
	IsAdmin     bool      `json:"is_admin"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// DisplayName returns "First Last", falling back to the username.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return u.Username
}
