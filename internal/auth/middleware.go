package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/clinicopilot/server/domain/entities"
	"github.com/clinicopilot/server/domain/repositories"
)

const userContextKey = "auth.user"

// TokenFromRequest extracts the bearer token from the Authorization header,
// falling back to the "token" query parameter for transports that cannot set
// headers (the browser EventSource API in particular).
func TokenFromRequest(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.QueryParam("token")
}

// Required returns middleware that authenticates the request and resolves
// the clinician account, rejecting with 401 otherwise.
func Required(issuer *TokenIssuer, users repositories.UserRepository, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := Resolve(c.Request().Context(), issuer, users, TokenFromRequest(c))
			if err != nil {
				logger.Debug("rejected unauthenticated request",
					zap.String("path", c.Path()), zap.Error(err))
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error":   "unauthorized",
					"message": "Unauthorized",
				})
			}
			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// Resolve validates an access token and loads the account it names. Used by
// the middleware and directly by the viewer attach path.
func Resolve(ctx context.Context, issuer *TokenIssuer, users repositories.UserRepository, token string) (*entities.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims, err := issuer.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	user, err := users.GetByID(ctx, claims.UserID)
	if err != nil || user == nil {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// CurrentUser returns the authenticated user stored by Required.
func CurrentUser(c echo.Context) *entities.User {
	user, _ := c.Get(userContextKey).(*entities.User)
	return user
}
