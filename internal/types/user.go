package types

import (
	"time"

	"github.com/google/uuid"
)

// Role is the authorization level stored on a user row.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsAdmin reports whether the role grants access to admin-scoped routes.
// Authorization decisions go through this predicate and nowhere else, so
// the polarity of the check lives in exactly one place.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is a registered account. PasswordHash never leaves the auth
// package and is excluded from every JSON response.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
