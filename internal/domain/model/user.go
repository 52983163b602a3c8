package model

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"` // Not exposed
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Caller is the identity an operation runs on behalf of. A nil or empty Caller is anonymous.
type Caller struct {
	UserID string
	Role   string
}

func (c *Caller) Authenticated() bool {
	return c != nil && c.UserID != ""
}

func (c *Caller) IsAdmin() bool {
	return c.Authenticated() && c.Role == RoleAdmin
}

// Owns reports whether the caller is the given owner.
func (c *Caller) Owns(ownerID string) bool {
	return c.Authenticated() && c.UserID == ownerID
}
