package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/sheshield/apiserver/types"
)

// AlertRepository handles persistence for emergency alerts. Alerts are
// append-only; there is intentionally no update or delete statement.
type AlertRepository struct {
	db *sql.DB
}

func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(ctx context.Context, alert types.EmergencyAlert) (types.EmergencyAlert, error) {
	alert.Timestamp = time.Now()

	const query = `
		INSERT INTO emergency_alerts (user_id, location, timestamp)
		VALUES ($1, $2, $3)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		alert.UserID,
		alert.Location,
		alert.Timestamp,
	).Scan(&alert.ID); err != nil {
		return types.EmergencyAlert{}, err
	}
	return alert, nil
}

func (r *AlertRepository) ListByOwner(ctx context.Context, userID int) ([]types.EmergencyAlert, error) {
	const query = `
		SELECT id, user_id, location, timestamp
		FROM emergency_alerts
		WHERE user_id = $1
		ORDER BY timestamp DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := []types.EmergencyAlert{}
	for rows.Next() {
		var alert types.EmergencyAlert
		if err := rows.Scan(&alert.ID, &alert.UserID, &alert.Location, &alert.Timestamp); err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

// ListAll returns every alert joined with its owner, newest first.
// Admin use only; deliberately unscoped.
func (r *AlertRepository) ListAll(ctx context.Context) ([]types.AdminAlert, error) {
	const query = `
		SELECT a.id, a.user_id, a.location, a.timestamp,
		       u.name AS user_name, u.email AS user_email
		FROM emergency_alerts a
		JOIN users u ON a.user_id = u.id
		ORDER BY a.timestamp DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := []types.AdminAlert{}
	for rows.Next() {
		var alert types.AdminAlert
		if err := rows.Scan(
			&alert.ID,
			&alert.UserID,
			&alert.Location,
			&alert.Timestamp,
			&alert.UserName,
			&alert.UserEmail,
		); err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func (r *AlertRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM emergency_alerts`).Scan(&count)
	return count, err
}
