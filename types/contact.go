package types

import "time"

// EmergencyContact is a person the owning user wants notified in an
// emergency. Contacts are owned exclusively by one user.
type EmergencyContact struct {
	ID int `json:"id" db:"id"`

	// UserID is the owning user. It is always derived from the
	// authenticated identity, never from client input.
	UserID int `json:"user_id" db:"user_id"`

	ContactName  string `json:"contact_name" db:"contact_name"`
	ContactPhone string `json:"contact_phone" db:"contact_phone"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
