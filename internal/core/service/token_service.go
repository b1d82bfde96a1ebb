package service

import (
	"fmt"
	"time"

	"github.com/wfm/task-system/internal/core/domain"
	"github.com/wfm/task-system/internal/core/token"
	"github.com/wfm/task-system/internal/pkg/metrics"
)

const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenService issues and validates access and refresh tokens for users.
type TokenService struct {
	codec      *token.Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService wraps codec. Non-positive TTLs fall back to the defaults.
func NewTokenService(codec *token.Codec, accessTTL, refreshTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &TokenService{codec: codec, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// AccessTTL is the lifetime of access tokens.
func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

func (s *TokenService) IssueAccessToken(user *domain.User) (string, error) {
	return s.issue(user, token.KindAccess, s.accessTTL)
}

func (s *TokenService) IssueRefreshToken(user *domain.User) (string, error) {
	return s.issue(user, token.KindRefresh, s.refreshTTL)
}

func (s *TokenService) issue(user *domain.User, kind token.Kind, ttl time.Duration) (string, error) {
	raw, _, err := s.codec.Encode(user.Username, user.Role, kind, ttl)
	if err != nil {
		return "", err
	}
	metrics.TokensIssuedTotal.WithLabelValues(string(kind)).Inc()
	return raw, nil
}

// Validate decodes raw, requires it to be of kind want and returns its subject.
func (s *TokenService) Validate(raw string, want token.Kind) (string, error) {
	claims, err := s.codec.Decode(raw)
	if err != nil {
		metrics.TokenRejectionsTotal.WithLabelValues(domain.TokenFailureReason(err)).Inc()
		return "", err
	}
	if claims.Kind != want {
		metrics.TokenRejectionsTotal.WithLabelValues("kind_mismatch").Inc()
		return "", fmt.Errorf("%w: want %s, got %s", domain.ErrTokenKindMismatch, want, claims.Kind)
	}
	return claims.Subject, nil
}

// IsTokenValid reports whether raw is a valid token of either kind that
// belongs to user and user is still active.
func (s *TokenService) IsTokenValid(raw string, user *domain.User) bool {
	claims, err := s.codec.Decode(raw)
	if err != nil {
		return false
	}
	return belongsTo(claims.Subject, user)
}

func belongsTo(subject string, user *domain.User) bool {
	return user != nil && user.Active && subject != "" && subject == user.Username
}
