package ports

import (
	"context"

	"github.com/wfm/task-system/internal/core/domain"
)

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	// FindByUsername returns domain.ErrUserNotFound when no user matches.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindConflicts reports, in a single query, whether the username or the
	// email is already taken.
	FindConflicts(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error)
	// Create inserts user. A unique index violation is reported as
	// domain.ErrDuplicateUsername or domain.ErrDuplicateEmail.
	Create(ctx context.Context, user *domain.User) error
	// SetActive flips the soft-delete flag. Users are never removed.
	SetActive(ctx context.Context, id string, active bool) error
}

// UserService exposes account lookups and administration.
type UserService interface {
	Get(ctx context.Context, id string) (*domain.User, error)
	SetActive(ctx context.Context, actor domain.Principal, id string, active bool) (*domain.User, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}
