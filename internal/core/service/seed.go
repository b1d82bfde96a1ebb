package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wfm/task-system/internal/core/domain"
	"github.com/wfm/task-system/internal/core/ports"
)

// SeedAdmin registers an ADMIN account unless the username is already taken.
// It reports whether a new account was created.
func SeedAdmin(ctx context.Context, auth ports.AuthService, username, password, email string, log zerolog.Logger) (bool, error) {
	_, err := auth.Register(ctx, ports.RegisterInput{
		Username: username,
		Password: password,
		FullName: "Administrator",
		Email:    email,
		Role:     domain.RoleAdmin,
	})
	switch {
	case err == nil:
		log.Info().Str("username", username).Msg("seeded admin account")
		return true, nil
	case errors.Is(err, domain.ErrDuplicateUsername):
		log.Debug().Str("username", username).Msg("admin account already present")
		return false, nil
	default:
		return false, fmt.Errorf("seed admin: %w", err)
	}
}
