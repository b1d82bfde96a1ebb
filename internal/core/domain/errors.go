package domain

import (
	"errors"
	"fmt"
)

// Authentication failures.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountDeactivated  = errors.New("account deactivated")
	ErrDuplicateUsername   = errors.New("username already exists")
	ErrDuplicateEmail      = errors.New("email already exists")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrUserNotFound        = errors.New("user not found")
)

// ErrInvalidToken is what every token failure collapses to at the API
// boundary. The specific reasons below wrap it.
var ErrInvalidToken = errors.New("invalid token")

var (
	ErrTokenExpired      = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrBadSignature      = fmt.Errorf("%w: bad signature", ErrInvalidToken)
	ErrMalformedToken    = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrTokenKindMismatch = fmt.Errorf("%w: kind mismatch", ErrInvalidToken)
)

// Authorization and resource failures.
var (
	ErrAccessDenied     = errors.New("access denied")
	ErrResourceNotFound = errors.New("resource not found")
)

// Request-level failures.
var (
	ErrValidation      = errors.New("validation failed")
	ErrTooManyRequests = errors.New("too many requests")
)

// TokenFailureReason returns a short label for a token error, used in logs
// and metrics. Errors that are not token failures return "other".
func TokenFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, ErrMalformedToken):
		return "malformed"
	case errors.Is(err, ErrTokenKindMismatch):
		return "kind_mismatch"
	case errors.Is(err, ErrInvalidToken):
		return "invalid"
	default:
		return "other"
	}
}
