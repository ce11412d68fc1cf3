package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sheshield/apiserver/types"
)

// ReportRepository handles persistence for incident reports.
type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) ListByOwner(ctx context.Context, userID int) ([]types.IncidentReport, error) {
	const query = `
		SELECT id, user_id, description, location, date, status,
		       evidence_key, evidence_type, created_at
		FROM incident_reports
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []types.IncidentReport{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// GetByOwner fetches a single report, owner-scoped. Another user's
// report surfaces as ErrNotFound.
func (r *ReportRepository) GetByOwner(ctx context.Context, id, userID int) (types.IncidentReport, error) {
	const query = `
		SELECT id, user_id, description, location, date, status,
		       evidence_key, evidence_type, created_at
		FROM incident_reports
		WHERE id = $1 AND user_id = $2`
	report, err := scanReport(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.IncidentReport{}, ErrNotFound
		}
		return types.IncidentReport{}, err
	}
	return report, nil
}

// Get fetches a report without owner scoping. Admin use only.
func (r *ReportRepository) Get(ctx context.Context, id int) (types.IncidentReport, error) {
	const query = `
		SELECT id, user_id, description, location, date, status,
		       evidence_key, evidence_type, created_at
		FROM incident_reports
		WHERE id = $1`
	report, err := scanReport(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.IncidentReport{}, ErrNotFound
		}
		return types.IncidentReport{}, err
	}
	return report, nil
}

func (r *ReportRepository) Create(ctx context.Context, report types.IncidentReport) (types.IncidentReport, error) {
	report.CreatedAt = time.Now()

	const query = `
		INSERT INTO incident_reports (user_id, description, location, date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		report.UserID,
		report.Description,
		report.Location,
		report.Date,
		report.Status,
		report.CreatedAt,
	).Scan(&report.ID); err != nil {
		return types.IncidentReport{}, err
	}
	return report, nil
}

func (r *ReportRepository) UpdateStatus(ctx context.Context, id int, status string) (types.IncidentReport, error) {
	const query = `
		UPDATE incident_reports
		SET status = $1
		WHERE id = $2
		RETURNING id, user_id, description, location, date, status,
		          evidence_key, evidence_type, created_at`
	report, err := scanReport(r.db.QueryRowContext(ctx, query, status, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.IncidentReport{}, ErrNotFound
		}
		return types.IncidentReport{}, err
	}
	return report, nil
}

// SetEvidence records the object storage location of an uploaded
// attachment, owner-scoped.
func (r *ReportRepository) SetEvidence(ctx context.Context, id, userID int, key, contentType string) error {
	const query = `
		UPDATE incident_reports
		SET evidence_key = $1, evidence_type = $2
		WHERE id = $3 AND user_id = $4`
	result, err := r.db.ExecContext(ctx, query, key, contentType, id, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAll returns every report joined with its owner, newest first.
// Admin use only; deliberately unscoped.
func (r *ReportRepository) ListAll(ctx context.Context) ([]types.AdminReport, error) {
	const query = `
		SELECT r.id, r.user_id, r.description, r.location, r.date, r.status,
		       r.evidence_key, r.evidence_type, r.created_at,
		       u.name AS user_name, u.email AS user_email
		FROM incident_reports r
		JOIN users u ON r.user_id = u.id
		ORDER BY r.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []types.AdminReport{}
	for rows.Next() {
		var report types.AdminReport
		if err := rows.Scan(
			&report.ID,
			&report.UserID,
			&report.Description,
			&report.Location,
			&report.Date,
			&report.Status,
			&report.EvidenceKey,
			&report.EvidenceType,
			&report.CreatedAt,
			&report.UserName,
			&report.UserEmail,
		); err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (r *ReportRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM incident_reports`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (types.IncidentReport, error) {
	var report types.IncidentReport
	err := row.Scan(
		&report.ID,
		&report.UserID,
		&report.Description,
		&report.Location,
		&report.Date,
		&report.Status,
		&report.EvidenceKey,
		&report.EvidenceType,
		&report.CreatedAt,
	)
	return report, err
}
