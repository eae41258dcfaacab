package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/parcelpoint/parcel-tracking/internal/api/middleware"
	"github.com/parcelpoint/parcel-tracking/internal/core/ports"
)

// identityFromContext reads the claims set by middleware.Auth. A missing
// subject means the route was registered without the middleware.
func identityFromContext(c echo.Context) (ports.Identity, error) {
	sub, _ := c.Get(middleware.ContextKeySubject).(string)
	if sub == "" {
		return ports.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	email, _ := c.Get(middleware.ContextKeyEmail).(string)
	return ports.Identity{ID: sub, Email: email}, nil
}
