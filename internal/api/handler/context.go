package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/assignhub/marketplace/internal/api/middleware"
	"github.com/assignhub/marketplace/internal/core/domain"
)

// ctxActor returns the user resolved by the LoadActor middleware. A missing
// actor means the route was registered without the auth chain; reject with 401
// before any service call.
func ctxActor(c echo.Context) (*domain.User, error) {
	actor, _ := c.Get(middleware.KeyActor).(*domain.User)
	if actor == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return actor, nil
}
