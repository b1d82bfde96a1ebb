package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wfm/task-system/internal/core/domain"
)

// PrincipalKey is the echo context key under which the Auth middleware stores
// the authenticated domain.Principal.
const PrincipalKey = "principal"

// ctxPrincipal extracts the principal injected by the Auth middleware and
// fails fast with 401 when the middleware did not run.
func ctxPrincipal(c echo.Context) (domain.Principal, error) {
	p, ok := c.Get(PrincipalKey).(domain.Principal)
	if !ok || p.ID == "" {
		return domain.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	return p, nil
}

// bindAndValidate decodes the request body into req and runs struct validation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}
