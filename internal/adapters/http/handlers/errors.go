package handlers

import (
	"errors"
	"net/http"
	"net/mail"

	"github.com/labstack/echo/v4"

	"github.com/amida-tech/amida-auth-microservice/internal/usecase"
	"github.com/amida-tech/amida-auth-microservice/pkg/httpx"
	pkglog "github.com/amida-tech/amida-auth-microservice/pkg/log"
)

// writeError is the single place a service failure becomes a wire response.
// Operational errors render with their own code and status; anything else is
// logged in full and surfaced as an opaque 500.
func writeError(c echo.Context, logger pkglog.Logger, err error) error {
	var apiErr *usecase.APIError
	if errors.As(err, &apiErr) {
		return httpx.Error(c, apiErr.Status, apiErr.Code, apiErr.Message)
	}
	logger.Error().Err(err).Str("path", c.Path()).Msg("unexpected error")
	return httpx.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}

func badRequest(c echo.Context, message string) error {
	return httpx.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", message)
}

func validEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

// validPassword enforces the accepted plaintext length band.
func validPassword(password string) bool {
	return len(password) >= 8 && len(password) <= 64
}
