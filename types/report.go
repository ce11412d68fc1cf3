package types

import "time"

// Incident report statuses. A report starts Pending and may be moved to
// Resolved by an admin; the reverse transition is not allowed.
const (
	ReportStatusPending  = "Pending"
	ReportStatusResolved = "Resolved"
)

// ValidReportStatus reports whether status is one of the recognized
// report status values.
func ValidReportStatus(status string) bool {
	return status == ReportStatusPending || status == ReportStatusResolved
}

// IncidentReport is a user-filed description of a safety incident.
type IncidentReport struct {
	ID int `json:"id" db:"id"`

	// UserID is the owning user, derived from the authenticated identity.
	UserID int `json:"user_id" db:"user_id"`

	Description string  `json:"description" db:"description"`
	Location    *string `json:"location" db:"location"`

	// Date is when the incident occurred, as reported by the user.
	Date time.Time `json:"date" db:"date"`

	Status string `json:"status" db:"status"`

	// EvidenceKey and EvidenceType locate an optional attachment in
	// object storage. Nil when no evidence has been uploaded.
	EvidenceKey  *string `json:"evidence_key,omitempty" db:"evidence_key"`
	EvidenceType *string `json:"evidence_type,omitempty" db:"evidence_type"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AdminReport is a report joined with its owner, used by the admin
// aggregate view.
type AdminReport struct {
	IncidentReport
	UserName  string `json:"user_name" db:"user_name"`
	UserEmail string `json:"user_email" db:"user_email"`
}
