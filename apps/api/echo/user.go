package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/imajine/core/user"
)

type userApi struct {
	api
}

func registerUserAPI(g *echo.Group, a api, authed echo.MiddlewareFunc) {
	h := userApi{api: a}

	ug := g.Group("/users", authed)
	ug.GET("/me", h.me)
	ug.PUT("/profile", h.updateProfile)
}

func (h *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	me, err := h.deps.AcademicSvc.Me(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "getting current user data")
	}
	return respond(ctx, http.StatusOK, me)
}

func (h *userApi) updateProfile(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data user.UpdateProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err = data.Validate(usr, h.deps.Validate); err != nil {
		return err
	}

	usr, err = h.deps.UserSvc.UpdateProfile(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return respond(ctx, http.StatusOK, usr.Profile())
}
