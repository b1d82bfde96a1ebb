package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/wfm/task-system/internal/core/domain"
)

func TestHTTPErrorHandler_Mapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"validation", fmt.Errorf("%w: username is required", domain.ErrValidation), http.StatusBadRequest, "validation failed: username is required"},
		{"duplicate username", domain.ErrDuplicateUsername, http.StatusBadRequest, "username already exists"},
		{"duplicate email", domain.ErrDuplicateEmail, http.StatusBadRequest, "email already exists"},
		{"invalid credentials", domain.ErrInvalidCredentials, http.StatusBadRequest, "invalid credentials"},
		{"deactivated looks like invalid credentials", domain.ErrAccountDeactivated, http.StatusBadRequest, "invalid credentials"},
		{"invalid refresh", fmt.Errorf("%w: expired", domain.ErrInvalidRefreshToken), http.StatusBadRequest, "invalid refresh token"},
		{"expired token", domain.ErrTokenExpired, http.StatusUnauthorized, "invalid token"},
		{"bad signature", domain.ErrBadSignature, http.StatusUnauthorized, "invalid token"},
		{"kind mismatch", domain.ErrTokenKindMismatch, http.StatusUnauthorized, "invalid token"},
		{"access denied", fmt.Errorf("project p-1: %w", domain.ErrAccessDenied), http.StatusForbidden, "access denied"},
		{"not found", domain.ErrResourceNotFound, http.StatusNotFound, "resource not found"},
		{"user not found", domain.ErrUserNotFound, http.StatusNotFound, "user not found"},
		{"rate limited", domain.ErrTooManyRequests, http.StatusTooManyRequests, "too many requests"},
		{"echo error", echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token"), http.StatusUnauthorized, "missing bearer token"},
		{"unknown", errors.New("mongo: connection reset"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.HTTPErrorHandler = NewHTTPErrorHandler(zerolog.Nop())
			e.GET("/boom", func(c echo.Context) error { return tt.err })

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rec.Code)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error != tt.msg {
				t.Fatalf("expected message %q, got %q", tt.msg, body.Error)
			}
		})
	}
}

func TestHTTPErrorHandler_UnknownErrorDoesNotLeak(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = NewHTTPErrorHandler(zerolog.Nop())
	e.GET("/boom", func(c echo.Context) error { return errors.New("dsn=postgres://secret@db") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if got := rec.Body.String(); strings.Contains(got, "secret") {
		t.Fatalf("internal detail leaked: %s", got)
	}
}

func TestHTTPErrorHandler_Head(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = NewHTTPErrorHandler(zerolog.Nop())
	e.HEAD("/boom", func(c echo.Context) error { return domain.ErrResourceNotFound })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/boom", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("HEAD must not carry a body, got %q", rec.Body.String())
	}
}
