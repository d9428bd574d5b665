package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	repo "github.com/amida-tech/amida-auth-microservice/internal/adapters/postgres"
	"github.com/amida-tech/amida-auth-microservice/internal/domain"
	"github.com/amida-tech/amida-auth-microservice/internal/usecase"
	"github.com/amida-tech/amida-auth-microservice/pkg/httpx"
)

// UserContextKey is where the authenticated *domain.User is stored on the
// echo context.
const UserContextKey = "user"

type AuthMiddleware struct {
	signer usecase.JWTSigner
	users  repo.UserRepository
}

func NewAuthMiddleware(signer usecase.JWTSigner, users repo.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{signer: signer, users: users}
}

// Handler validates the bearer token and loads the full user record, so
// downstream handlers always see current scopes and credentials rather than
// the claims snapshot.
func (m *AuthMiddleware) Handler(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authz := c.Request().Header.Get(echo.HeaderAuthorization)
		parts := strings.SplitN(authz, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return httpx.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or malformed Authorization header")
		}
		tok, claims, err := m.signer.Parse(parts[1])
		if err != nil || tok == nil || !tok.Valid {
			return httpx.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
		}
		user, err := m.loadUser(c.Request().Context(), claims["id"])
		if err != nil {
			return httpx.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unknown token subject")
		}
		c.Set(UserContextKey, user)
		return next(c)
	}
}

// loadUser resolves the numeric id claim, which json decoding hands back as a
// float64.
func (m *AuthMiddleware) loadUser(ctx context.Context, idClaim interface{}) (*domain.User, error) {
	var id uint
	switch v := idClaim.(type) {
	case float64:
		id = uint(v)
	case int:
		id = uint(v)
	default:
		return nil, echo.ErrUnauthorized
	}
	return m.users.FindByID(ctx, id)
}

// CurrentUser fetches the user stashed by Handler; nil when the route is not
// behind it.
func CurrentUser(c echo.Context) *domain.User {
	user, _ := c.Get(UserContextKey).(*domain.User)
	return user
}
