package httpx

import "github.com/labstack/echo/v4"

// ErrorBody is the wire shape for every failure the service reports.
type ErrorBody struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func JSON(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, data)
}

func Error(c echo.Context, status int, code, message string) error {
	return c.JSON(status, ErrorBody{Status: "ERROR", Code: code, Message: message})
}
