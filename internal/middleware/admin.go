package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/stagedoor/boxoffice/internal/tenant"
)

// Administrative switches the request's tenant context into the privileged
// cross-tenant mode.  This is the single code path that can produce the
// "no tenant" state, and it is only registered behind JWTAuth plus
// RequireRole(PLATFORM_ADMIN) on the /v1/admin group — never on a
// tenant-facing route.
func Administrative() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := tenant.WithAdministrative(c.Request().Context())
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
