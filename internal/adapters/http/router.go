package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/amida-tech/amida-auth-microservice/config"
	"github.com/amida-tech/amida-auth-microservice/internal/adapters/http/handlers"
)

type Router struct {
	cfg       *config.Config
	auth      *handlers.AuthHandler
	users     *handlers.UserHandler
	authMW    echo.MiddlewareFunc
	adminMW   echo.MiddlewareFunc
	rateLimit echo.MiddlewareFunc
}

func NewRouter(cfg *config.Config, auth *handlers.AuthHandler, users *handlers.UserHandler, authMW, adminMW, rateLimit echo.MiddlewareFunc) *Router {
	return &Router{cfg: cfg, auth: auth, users: users, authMW: authMW, adminMW: adminMW, rateLimit: rateLimit}
}

func (r *Router) Setup(e *echo.Echo) {
	base := r.cfg.HTTPBasePath
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	auth := e.Group(base + "/auth")
	auth.POST("/login", r.auth.Login, r.rateLimit)
	auth.POST("/token", r.auth.SubmitRefreshToken)
	auth.POST("/token/reject", r.auth.RejectRefreshToken)
	auth.POST("/update-password", r.auth.UpdatePassword, r.authMW)
	auth.POST("/reset-password", r.auth.ResetToken, r.rateLimit)
	auth.POST("/reset-password/:token", r.auth.ResetPassword)
	auth.POST("/verification/dispatch", r.auth.DispatchVerification, r.rateLimit)
	auth.POST("/verification/user", r.auth.VerifyingUser)
	auth.POST("/verification/confirm", r.auth.ConfirmVerification)

	users := e.Group(base + "/users")
	// Creation is open only when the admin-or-registrar restriction is off;
	// the handler enforces the scope policy itself.
	if r.cfg.OnlyAdminCanCreateUsers {
		users.POST("", r.users.Create, r.authMW)
	} else {
		users.POST("", r.users.Create)
	}
	users.GET("", r.users.List, r.authMW, r.adminMW)
	users.GET("/me", r.users.Me, r.authMW)
	users.GET("/:userId", r.users.Get, r.authMW)
	users.PUT("/:userId", r.users.Update, r.authMW)
	users.DELETE("/:userId", r.users.Delete, r.authMW, r.adminMW)
	users.PUT("/scopes/:userId", r.users.UpdateScopes, r.authMW, r.adminMW)
}
