package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/stagedoor/boxoffice/internal/tenant"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token,
// injects the subject and role claims into the request context, and
// resolves the tenant context for the unit of work from the tenant_id
// claim.  Resolution happens exactly once here; nothing downstream may
// change it.  Tokens without a tenant_id claim (platform admins) produce
// an unresolved tenant context, which every scoped operation rejects —
// admin routes opt into the cross-tenant mode explicitly via
// Administrative below.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			c.Set("user_id", claims["sub"])
			c.Set("role", claims["role"])

			// Numeric claims arrive as float64 from MapClaims.
			if v, ok := claims["tenant_id"].(float64); ok && v > 0 {
				ctx := tenant.WithTenant(c.Request().Context(), uint64(v))
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}
