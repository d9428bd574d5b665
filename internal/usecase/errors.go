package usecase

import "net/http"

// APIError is an operational domain failure: expected, safe to surface, and
// carrying its own machine-readable code and HTTP status. Anything else that
// escapes a service is a system error and renders as an opaque 500 at the
// boundary.
type APIError struct {
	Code    string
	Message string
	Status  int
}

func (e *APIError) Error() string { return e.Message }

var (
	// Login deliberately unifies "unknown username" and "wrong password" so
	// the response carries no enumeration signal.
	ErrIncorrectUsernameOrPassword = &APIError{Code: "INCORRECT_USERNAME_OR_PASSWORD", Message: "Incorrect username or password", Status: http.StatusNotFound}
	ErrUserNotVerified             = &APIError{Code: "USER_IS_NOT_VERIFIED", Message: "User is not Verified", Status: http.StatusNotFound}
	ErrMissingRefreshToken         = &APIError{Code: "MISSING_REFRESH_TOKEN", Message: "Refresh token not found", Status: http.StatusNotFound}
	ErrRefreshNotEnabled           = &APIError{Code: "REFRESH_TOKEN_NOT_ENABLED", Message: "Refresh tokens are not enabled", Status: http.StatusNotImplemented}

	ErrIncorrectPassword = &APIError{Code: "INCORRECT_PASSWORD", Message: "Incorrect password", Status: http.StatusForbidden}
	ErrExternalAuthUsed  = &APIError{Code: "EXTERNAL_AUTH_USED", Message: "Cannot call this endpoint for user managed with external auth", Status: http.StatusForbidden}
	ErrPasswordMismatch  = &APIError{Code: "PASSWORD_MISMATCH", Message: "Password does not match.", Status: http.StatusForbidden}
	ErrForbidden         = &APIError{Code: "FORBIDDEN", Message: "Insufficient scope for this operation", Status: http.StatusForbidden}

	ErrInvalidEmail      = &APIError{Code: "INVALID_EMAIL", Message: "Invalid email", Status: http.StatusBadRequest}
	ErrResetTokenInvalid = &APIError{Code: "RESET_TOKEN_INVALID", Message: "Password reset token is invalid or has expired.", Status: http.StatusBadRequest}
	ErrInvalidToken      = &APIError{Code: "INVALID_TOKEN", Message: "Invalid Token", Status: http.StatusBadRequest}
	ErrNoPassword        = &APIError{Code: "NO_PASSWORD", Message: "No Password provided", Status: http.StatusBadRequest}
	ErrInvalidScopes     = &APIError{Code: "INVALID_SCOPES", Message: "Scopes must be a unique list of strings", Status: http.StatusBadRequest}

	ErrTokenNotFound = &APIError{Code: "TOKEN_NOT_FOUND", Message: "Token not found", Status: http.StatusNotFound}
	ErrUserNotFound  = &APIError{Code: "USER_NOT_FOUND", Message: "User does not exist", Status: http.StatusNotFound}

	ErrUserConflict = &APIError{Code: "USERNAME_OR_EMAIL_TAKEN", Message: "Username or email is already in use", Status: http.StatusConflict}
)
