package ports

import (
	"context"

	"github.com/wfm/task-system/internal/core/domain"
)

// RegisterInput carries the fields needed to open an account.
// An empty Role defaults to USER.
type RegisterInput struct {
	Username string
	Password string
	FullName string
	Email    string
	Role     domain.Role
}

// AuthResult is returned by every operation that mints a token pair.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64
	User      domain.UserInfo
}

// AuthService is the authentication use-case surface consumed by the HTTP layer.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, username, password string) (*AuthResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResult, error)
	Authenticator
}

// Authenticator resolves a bearer access token to the acting principal.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (domain.Principal, error)
}
