package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wfm/task-system/internal/core/domain"
	"github.com/wfm/task-system/internal/core/ports"
)

// UserService handles account lookups and activation changes.
type UserService struct {
	users  ports.UserRepository
	logger zerolog.Logger
}

func NewUserService(users ports.UserRepository, logger zerolog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}

// SetActive activates or deactivates an account. Only admins may do this,
// and an admin cannot deactivate their own account.
func (s *UserService) SetActive(ctx context.Context, actor domain.Principal, id string, active bool) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: admin role required", domain.ErrAccessDenied)
	}
	if !active && actor.ID == id {
		return nil, fmt.Errorf("%w: cannot deactivate own account", domain.ErrValidation)
	}

	if err := s.users.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", id).Bool("active", active).Str("by", actor.Username).Msg("user activation changed")
	return u, nil
}
