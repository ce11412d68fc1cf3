package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sheshield/apiserver/types"
)

// ContactRepository handles persistence for emergency contacts. Every
// read and write is scoped to the owning user; a row belonging to
// someone else behaves as if it does not exist.
type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) ListByOwner(ctx context.Context, userID int) ([]types.EmergencyContact, error) {
	const query = `
		SELECT id, user_id, contact_name, contact_phone, created_at
		FROM emergency_contacts
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []types.EmergencyContact{}
	for rows.Next() {
		var contact types.EmergencyContact
		if err := rows.Scan(
			&contact.ID,
			&contact.UserID,
			&contact.ContactName,
			&contact.ContactPhone,
			&contact.CreatedAt,
		); err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	return contacts, rows.Err()
}

func (r *ContactRepository) Create(ctx context.Context, contact types.EmergencyContact) (types.EmergencyContact, error) {
	contact.CreatedAt = time.Now()

	const query = `
		INSERT INTO emergency_contacts (user_id, contact_name, contact_phone, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		contact.UserID,
		contact.ContactName,
		contact.ContactPhone,
		contact.CreatedAt,
	).Scan(&contact.ID); err != nil {
		return types.EmergencyContact{}, err
	}
	return contact, nil
}

func (r *ContactRepository) Update(ctx context.Context, contact types.EmergencyContact) (types.EmergencyContact, error) {
	const query = `
		UPDATE emergency_contacts
		SET contact_name = $1, contact_phone = $2
		WHERE id = $3 AND user_id = $4
		RETURNING created_at`
	err := r.db.QueryRowContext(
		ctx,
		query,
		contact.ContactName,
		contact.ContactPhone,
		contact.ID,
		contact.UserID,
	).Scan(&contact.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.EmergencyContact{}, ErrNotFound
		}
		return types.EmergencyContact{}, err
	}
	return contact, nil
}

func (r *ContactRepository) Delete(ctx context.Context, id, userID int) error {
	const query = `DELETE FROM emergency_contacts WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
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
