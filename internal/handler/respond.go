package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// envelope is the uniform response shape for every endpoint.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respondOK(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func respondErr(c echo.Context, status int, message string) error {
	return c.JSON(status, envelope{Success: false, Message: message})
}

// respondInvalid reports field validation failures as 422 with a
// per-field error map, mirroring what browser clients expect.
func respondInvalid(c echo.Context, errs map[string][]string) error {
	return c.JSON(http.StatusUnprocessableEntity, echo.Map{
		"success": false,
		"message": "The given data was invalid.",
		"errors":  errs,
	})
}
