package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wfm/task-system/internal/core/domain"
	"github.com/wfm/task-system/internal/core/ports"
	"github.com/wfm/task-system/internal/core/token"
	"github.com/wfm/task-system/internal/pkg/metrics"
)

const tokenTypeBearer = "Bearer"

var tracer = otel.Tracer("github.com/wfm/task-system/internal/core/service")

// AuthService implements registration, login, token refresh and request
// authentication.
type AuthService struct {
	users  ports.UserRepository
	hasher ports.PasswordHasher
	tokens *TokenService
	audit  ports.AuditRecorder
	log    zerolog.Logger

	// dummyHash is compared against when the username is unknown so that
	// the response time does not reveal whether an account exists.
	dummyHash string
}

// NewAuthService wires the orchestrator. audit may be nil.
func NewAuthService(
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens *TokenService,
	audit ports.AuditRecorder,
	log zerolog.Logger,
) *AuthService {
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		log.Warn().Err(err).Msg("could not prepare dummy password hash")
	}
	return &AuthService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		audit:     audit,
		log:       log,
		dummyHash: dummy,
	}
}

// Register creates an active account and returns a fresh token pair.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Register", trace.WithAttributes(attribute.String("username", in.Username)))
	defer span.End()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Password == "" || in.Email == "" {
		return nil, fail(span, fmt.Errorf("%w: username, password and email are required", domain.ErrValidation))
	}
	role := domain.RoleUser
	if in.Role != "" {
		r, ok := domain.ParseRole(string(in.Role))
		if !ok {
			return nil, fail(span, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, in.Role))
		}
		role = r
	}

	usernameTaken, emailTaken, err := s.users.FindConflicts(ctx, in.Username, in.Email)
	if err != nil {
		return nil, fail(span, fmt.Errorf("register: %w", err))
	}
	if usernameTaken {
		return nil, fail(span, domain.ErrDuplicateUsername)
	}
	if emailTaken {
		return nil, fail(span, domain.ErrDuplicateEmail)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fail(span, fmt.Errorf("register: hash password: %w", err))
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		PasswordHash: hash,
		FullName:     in.FullName,
		Email:        in.Email,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateUsername) || errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, fail(span, err)
		}
		return nil, fail(span, fmt.Errorf("register: %w", err))
	}

	result, err := s.issuePair(user)
	if err != nil {
		return nil, fail(span, err)
	}

	s.record(domain.AuditRegistered, user.Username, "")
	s.log.Info().Str("username", user.Username).Str("role", string(user.Role)).Msg("user registered")
	return result, nil
}

// VerifyCredentials checks username and password. The username is trimmed
// the same way Register trims it. Unknown users and wrong passwords both
// yield domain.ErrInvalidCredentials; a correct password on a deactivated
// account yields domain.ErrAccountDeactivated.
func (s *AuthService) VerifyCredentials(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		s.hasher.Verify(s.dummyHash, password)
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.hasher.Verify(s.dummyHash, password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("verify credentials: %w", err)
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, domain.ErrAccountDeactivated
	}
	return user, nil
}

// Login verifies credentials and returns a fresh token pair.
func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.AuthResult, error) {
	username = strings.TrimSpace(username)
	ctx, span := tracer.Start(ctx, "AuthService.Login", trace.WithAttributes(attribute.String("username", username)))
	defer span.End()

	user, err := s.VerifyCredentials(ctx, username, password)
	if err != nil {
		outcome := loginOutcome(err)
		metrics.LoginsTotal.WithLabelValues(outcome).Inc()
		if outcome != "error" {
			s.record(domain.AuditLoginFailed, username, outcome)
		}
		s.log.Info().Str("username", username).Str("outcome", outcome).Msg("login rejected")
		return nil, fail(span, err)
	}

	result, err := s.issuePair(user)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fail(span, err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.record(domain.AuditLoginSucceeded, user.Username, "")
	return result, nil
}

// RefreshToken exchanges a valid refresh token for a new token pair. The
// presented refresh token stays valid until it expires.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*ports.AuthResult, error) {
	ctx, span := tracer.Start(ctx, "AuthService.RefreshToken")
	defer span.End()

	subject, err := s.tokens.Validate(refreshToken, token.KindRefresh)
	if err != nil {
		return nil, fail(span, s.rejectRefresh("", err))
	}
	span.SetAttributes(attribute.String("username", subject))

	user, err := s.users.FindByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.TokenRejectionsTotal.WithLabelValues("unknown_user").Inc()
			return nil, fail(span, s.rejectRefresh(subject, err))
		}
		return nil, fail(span, fmt.Errorf("refresh token: %w", err))
	}
	if !s.tokens.IsTokenValid(refreshToken, user) {
		metrics.TokenRejectionsTotal.WithLabelValues("inactive_user").Inc()
		return nil, fail(span, s.rejectRefresh(subject, errors.New("token not valid for user")))
	}

	result, err := s.issuePair(user)
	if err != nil {
		return nil, fail(span, err)
	}

	s.record(domain.AuditTokenRefreshed, user.Username, "")
	return result, nil
}

// Authenticate resolves an access token to the principal carried by the
// request. Every failure wraps domain.ErrInvalidToken.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (domain.Principal, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Authenticate")
	defer span.End()

	subject, err := s.tokens.Validate(accessToken, token.KindAccess)
	if err != nil {
		return domain.Principal{}, fail(span, err)
	}

	user, err := s.users.FindByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.TokenRejectionsTotal.WithLabelValues("unknown_user").Inc()
			return domain.Principal{}, fail(span, fmt.Errorf("%w: unknown subject", domain.ErrInvalidToken))
		}
		return domain.Principal{}, fail(span, fmt.Errorf("authenticate: %w", err))
	}
	if !s.tokens.IsTokenValid(accessToken, user) {
		metrics.TokenRejectionsTotal.WithLabelValues("inactive_user").Inc()
		return domain.Principal{}, fail(span, fmt.Errorf("%w: account inactive", domain.ErrInvalidToken))
	}

	return domain.Principal{ID: user.ID, Username: user.Username, Role: user.Role}, nil
}

func (s *AuthService) issuePair(user *domain.User) (*ports.AuthResult, error) {
	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &ports.AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(s.tokens.AccessTTL() / time.Second),
		User:         user.Info(),
	}, nil
}

func (s *AuthService) rejectRefresh(username string, cause error) error {
	reason := domain.TokenFailureReason(cause)
	s.record(domain.AuditRefreshRejected, username, reason)
	s.log.Info().Str("username", username).Str("reason", reason).Msg("refresh rejected")
	return fmt.Errorf("%w: %v", domain.ErrInvalidRefreshToken, cause)
}

func (s *AuthService) record(kind domain.AuditKind, username, reason string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(domain.AuditEvent{
		Kind:       kind,
		Username:   username,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	})
}

func loginOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrAccountDeactivated):
		return "deactivated"
	default:
		return "error"
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
