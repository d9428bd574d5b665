package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/amida-tech/amida-auth-microservice/config"
	mw "github.com/amida-tech/amida-auth-microservice/internal/adapters/http/middleware"
	"github.com/amida-tech/amida-auth-microservice/internal/adapters/mailer"
	"github.com/amida-tech/amida-auth-microservice/internal/usecase"
	"github.com/amida-tech/amida-auth-microservice/pkg/httpx"
	pkglog "github.com/amida-tech/amida-auth-microservice/pkg/log"
)

type AuthHandler struct {
	cfg     *config.Config
	logger  pkglog.Logger
	service usecase.AuthService
	mailer  mailer.Mailer
}

func NewAuthHandler(cfg *config.Config, logger pkglog.Logger, service usecase.AuthService, m mailer.Mailer) *AuthHandler {
	return &AuthHandler{cfg: cfg, logger: logger, service: service, mailer: m}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Username     string `json:"username"`
	RefreshToken string `json:"refreshToken"`
}

type rejectRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type updatePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	Password    string `json:"password"`
}

type resetTokenRequest struct {
	Email        string `json:"email"`
	ResetPageURL string `json:"resetPageUrl"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

type dispatchVerificationRequest struct {
	Email         string `json:"email"`
	VerifyPageURL string `json:"verifyPageUrl"`
}

type verificationTokenRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	req := new(loginRequest)
	if err := c.Bind(req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "username and password are required")
	}
	result, err := h.service.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return httpx.JSON(c, http.StatusOK, result)
}

func (h *AuthHandler) SubmitRefreshToken(c echo.Context) error {
	req := new(refreshRequest)
	if err := c.Bind(req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if req.Username == "" || req.RefreshToken == "" {
		return badRequest(c, "username and refreshToken are required")
	}
	result, err := h.service.Refresh(c.Request().Context(), req.Username, req.RefreshToken)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return httpx.JSON(c, http.StatusOK, result)
}

func (h *AuthHandler) RejectRefreshToken(c echo.Context) error {
	req := new(rejectRequest)
	if err := c.Bind(req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if req.RefreshToken == "" {
		return badRequest(c, "refreshToken is required")
	}
	if err := h.service.RejectRefreshToken(c.Request().Context(), req.RefreshToken); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	req := new(updatePasswordRequest)
	if err := c.Bind(req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if !validPassword(req.Password) {
		return badRequest(c, "password must be between 8 and 64 characters")
	}
	user := mw.CurrentUser(c)
	if err := h.service.UpdatePassword(c.Request().Context(), user, req.OldPassword, req.Password); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.NoContent(http.StatusOK)
}

func (h *AuthHandler) ResetToken(c echo.Context) error {
	req := new(resetTokenRequest)
	if err := c.Bind(req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if !validEmail(req.Email) {
		return writeError(c, h.logger, usecase.ErrInvalidEmail)
	}
	token, err := h.service.RequestPasswordReset(c.Request().Context(), req.Email)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	domain := mailer.Domain(req.ResetPageURL)
	subject := fmt.Sprintf("Reset your password for %s", domain)
	text := fmt.Sprintf(
		"%s,\n\nA request to reset your password on %s was received.\n\nYou can reset your account password using the following link: %s\n\nIf you believe this message was sent in error, please disregard this message.",
		req.Email, domain, mailer.GenerateLink(req.ResetPageURL, token),
	)
	return h.deliverToken(c, req.Email, subject, text, token)
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	req := new(resetPasswordRequest)
	if err := c.Bind(req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if !validPassword(req.Password) {
		return badRequest(c, "password must be between 8 and 64 characters")
	}
	if err := h.service.ResetPassword(c.Request().Context(), c.Param("token"), req.Password); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.NoContent(http.StatusOK)
}

func (h *AuthHandler) DispatchVerification(c echo.Context) error {
	req := new(dispatchVerificationRequest)
	if err := c.Bind(req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if !validEmail(req.Email) {
		return writeError(c, h.logger, usecase.ErrInvalidEmail)
	}
	token, err := h.service.DispatchVerification(c.Request().Context(), req.Email)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	domain := mailer.Domain(req.VerifyPageURL)
	subject := fmt.Sprintf("Verify your email address for %s", domain)
	text := fmt.Sprintf(
		"%s,\n\nAn account has been created for you on %s.\n\nPlease verify your email address by going to the following link: %s\n\nIf you believe this message was sent in error, please disregard this message.",
		req.Email, domain, mailer.GenerateLink(req.VerifyPageURL, token),
	)
	return h.deliverToken(c, req.Email, subject, text, token)
}

func (h *AuthHandler) VerifyingUser(c echo.Context) error {
	req := new(verificationTokenRequest)
	if err := c.Bind(req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if req.Token == "" {
		return writeError(c, h.logger, usecase.ErrInvalidToken)
	}
	username, err := h.service.VerifyingUser(c.Request().Context(), req.Token)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return httpx.JSON(c, http.StatusOK, map[string]string{"username": username})
}

// ConfirmVerification consumes a verification token. In secure mode the
// account password is a required second factor.
func (h *AuthHandler) ConfirmVerification(c echo.Context) error {
	req := new(verificationTokenRequest)
	if err := c.Bind(req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if req.Token == "" {
		return writeError(c, h.logger, usecase.ErrInvalidToken)
	}
	ctx := c.Request().Context()
	if h.cfg.RequireSecureVerification {
		if req.Password == "" {
			return writeError(c, h.logger, usecase.ErrNoPassword)
		}
		if err := h.service.SecureVerifyAccount(ctx, req.Token, req.Password); err != nil {
			return writeError(c, h.logger, err)
		}
		return c.NoContent(http.StatusOK)
	}
	if err := h.service.VerifyAccount(ctx, req.Token); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.NoContent(http.StatusOK)
}

// deliverToken sends the message in production; everywhere else the mailer is
// bypassed and the token is echoed in the response body so tests can consume
// it.
func (h *AuthHandler) deliverToken(c echo.Context, email, subject, text, token string) error {
	if h.cfg.AppEnv != "production" {
		return httpx.JSON(c, http.StatusOK, map[string]any{
			"attributes": map[string]string{"token": token},
		})
	}
	if err := h.mailer.Send(email, subject, text); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.NoContent(http.StatusOK)
}
