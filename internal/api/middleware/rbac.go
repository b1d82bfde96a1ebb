package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/wfm/task-system/internal/api/handler"
	"github.com/wfm/task-system/internal/core/domain"
)

// RBAC enforces role-based access control. It must run after Auth.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, _ := c.Get(handler.PrincipalKey).(domain.Principal)
			if _, ok := allowed[p.Role]; !ok {
				return fmt.Errorf("%w: role %q not permitted", domain.ErrAccessDenied, p.Role)
			}
			return next(c)
		}
	}
}
