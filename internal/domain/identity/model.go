package identity

import (
	"time"

	"github.com/google/uuid"
)

// Roles assignable to a user account.
const (
	RoleAdmin        = "admin"
	RoleDoctor       = "doctor"
	RolePatient      = "patient"
	RoleReceptionist = "receptionist"
)

// User maps to the users table.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Credentials is the login request payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is returned after a successful login.
type LoginResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
