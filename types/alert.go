package types

import "time"

// EmergencyAlert records a one-tap panic-button activation. Alerts are
// immutable once created; there is no update or delete path.
type EmergencyAlert struct {
	ID int `json:"id" db:"id"`

	// UserID is the owning user, derived from the authenticated identity.
	UserID int `json:"user_id" db:"user_id"`

	Location *string `json:"location" db:"location"`

	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// AdminAlert is an alert joined with its owner, used by the admin
// aggregate view.
type AdminAlert struct {
	EmergencyAlert
	UserName  string `json:"user_name" db:"user_name"`
	UserEmail string `json:"user_email" db:"user_email"`
}

// Stats holds the admin dashboard counters.
type Stats struct {
	Users   int `json:"users"`
	Reports int `json:"reports"`
	Alerts  int `json:"alerts"`
}
