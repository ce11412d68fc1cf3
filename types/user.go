package types

import "time"

// Roles recognized by the authorization layer.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Email is the user's email address. It is unique and doubles
	// as the login name.
	Email string `json:"email" db:"email"`

	// Role indicates the user's authorization level within the
	// system, either "user" or "admin".
	Role string `json:"role" db:"role"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
