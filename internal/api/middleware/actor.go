package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/assignhub/marketplace/internal/core/domain"
)

// KeyActor holds the *domain.User resolved from the token.
const KeyActor = "actor"

// ActorLoader looks a user up by id.
type ActorLoader interface {
	Get(ctx context.Context, id string) (*domain.User, error)
}

// LoadActor resolves the token's user_id to a stored user. Deleted users get
// 401 and deactivated users 403, so a still-valid token loses access as soon
// as an admin acts on the account. Must run after Auth.
func LoadActor(users ActorLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, _ := c.Get(KeyUserID).(string)
			if userID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
			}

			user, err := users.Get(c.Request().Context(), userID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "user no longer exists")
				}
				return err
			}
			if !user.Active {
				return echo.NewHTTPError(http.StatusForbidden, "user account is inactive")
			}

			c.Set(KeyActor, user)
			c.Set(KeyRoles, user.Roles)
			return next(c)
		}
	}
}
