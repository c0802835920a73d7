package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/imajine/core/user"
)

const bearerPrefix = "Bearer "

// authMiddleware loads the user of a valid access token into the context.
func authMiddleware(tokens *tokenIssuer, users *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, bearerPrefix) {
				return errUnauthorized
			}
			claims, err := tokens.Parse(strings.TrimSpace(header[len(bearerPrefix):]), tokenTypeAccess)
			if err != nil {
				return errUnauthorized
			}
			usr, err := users.GetByID(ctx.Request().Context(), claims.Subject)
			if err != nil {
				if errors.Cause(err) == user.ErrNotFound {
					return errUnauthorized
				}
				return errors.Wrap(err, "finding token user")
			}
			ctx.Set(contextClaimsKey, claims)
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

// roleMiddleware only lets users with one of roles through.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			for _, role := range roles {
				if usr.Role == role {
					return next(ctx)
				}
			}
			return errForbidden
		}
	}
}

// selfOrCoordinatorMiddleware lets coordinators through, and students whose ID is the path param.
func selfOrCoordinatorMiddleware(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			if usr.IsCoordinator() || usr.ID == ctx.Param(param) {
				return next(ctx)
			}
			return errForbidden
		}
	}
}
