package services

import (
	"context"

	"github.com/sheshield/apiserver/types"
)

// ContactRepository defines persistence operations for emergency contacts.
type ContactRepository interface {
	ListByOwner(ctx context.Context, userID int) ([]types.EmergencyContact, error)
	Create(ctx context.Context, contact types.EmergencyContact) (types.EmergencyContact, error)
	Update(ctx context.Context, contact types.EmergencyContact) (types.EmergencyContact, error)
	Delete(ctx context.Context, id, userID int) error
}

// ContactService encapsulates emergency contact use-cases.
type ContactService struct {
	repo ContactRepository
}

func NewContactService(repo ContactRepository) *ContactService {
	return &ContactService{repo: repo}
}

func (s *ContactService) List(ctx context.Context, userID int) ([]types.EmergencyContact, error) {
	return s.repo.ListByOwner(ctx, userID)
}

func (s *ContactService) Create(ctx context.Context, contact types.EmergencyContact) (types.EmergencyContact, error) {
	return s.repo.Create(ctx, contact)
}

func (s *ContactService) Update(ctx context.Context, contact types.EmergencyContact) (types.EmergencyContact, error) {
	return s.repo.Update(ctx, contact)
}

func (s *ContactService) Delete(ctx context.Context, id, userID int) error {
	return s.repo.Delete(ctx, id, userID)
}
