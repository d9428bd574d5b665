package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/amida-tech/amida-auth-microservice/internal/domain"
	"github.com/amida-tech/amida-auth-microservice/pkg/httpx"
)

// RequireScopeSets gates a route behind scope-set membership: the sets are
// OR-ed, so holding all scopes of any one set is enough. Must run after
// AuthMiddleware.Handler.
func RequireScopeSets(sets ...[]string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return httpx.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			}
			if !user.HasAnyScope(sets...) {
				return httpx.Error(c, http.StatusForbidden, "FORBIDDEN", "Insufficient scope for this operation")
			}
			return next(c)
		}
	}
}

// RequireAdmin restricts a route to the admin scope.
func RequireAdmin() echo.MiddlewareFunc {
	return RequireScopeSets([]string{domain.ScopeAdmin})
}
