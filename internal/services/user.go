package services

import (
	"context"

	"github.com/sheshield/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateName(ctx context.Context, id int, name string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Count(ctx context.Context) (int, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

// Create persists a new account. The role is forced to "user" here so
// no caller can mint an admin through registration.
func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	user.Role = types.RoleUser
	return s.repo.Create(ctx, user)
}

func (s *UserService) UpdateName(ctx context.Context, id int, name string) (types.User, error) {
	return s.repo.UpdateName(ctx, id, name)
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

func (s *UserService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
