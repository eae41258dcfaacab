package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/parcelpoint/parcel-tracking/internal/core/domain"
)

// envelope is the response shape shared with the mobile client.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func respond(c echo.Context, status int, data any) error {
	return c.JSON(status, envelope{Success: true, Data: data})
}

// respondError renders known domain errors and returns anything else to the
// central error handler.
func respondError(c echo.Context, err error) error {
	status, msg, ok := StatusFor(err)
	if !ok {
		return err
	}
	return c.JSON(status, envelope{Success: false, Message: msg})
}

// StatusFor maps a domain error to its HTTP status and client-facing message.
// ok is false for errors that must not be exposed.
func StatusFor(err error) (status int, msg string, ok bool) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, validationMessage(err), true
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials", true
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", true
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, "user already exists", true
	case errors.Is(err, domain.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "too many login attempts, try again later", true
	}
	return 0, "", false
}

// validationMessage strips the sentinel prefix so the client sees only the
// field messages.
func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), domain.ErrValidation.Error())
	msg = strings.TrimPrefix(msg, ": ")
	if msg == "" {
		return domain.ErrValidation.Error()
	}
	return msg
}
