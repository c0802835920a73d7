package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/imajine/core/course"
)

type courseApi struct {
	api
}

func registerCourseAPI(g *echo.Group, a api, authed, coordinator echo.MiddlewareFunc) {
	h := courseApi{api: a}

	cg := g.Group("/courses", authed)
	cg.GET("", h.query)
	cg.GET("/:code", h.retrieve)
	cg.POST("", h.create, coordinator)
	cg.PUT("/:code", h.update, coordinator)
	cg.DELETE("/:code", h.destroy, coordinator)
}

func (h *courseApi) query(ctx echo.Context) error {
	courses, err := h.deps.AcademicSvc.CoursesWithUnits(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return respond(ctx, http.StatusOK, courses)
}

func (h *courseApi) retrieve(ctx echo.Context) error {
	c, err := h.deps.AcademicSvc.CourseWithUnits(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return respond(ctx, http.StatusOK, c)
}

func (h *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(h.deps.Validate); err != nil {
		return err
	}

	c, err := h.deps.CourseSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return respond(ctx, http.StatusCreated, c)
}

func (h *courseApi) update(ctx echo.Context) error {
	orig, err := h.deps.CourseSvc.GetByCode(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}

	var data course.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err = data.Validate(orig, h.deps.Validate); err != nil {
		return err
	}

	c, err := h.deps.CourseSvc.Update(ctx.Request().Context(), orig, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return respond(ctx, http.StatusOK, c)
}

func (h *courseApi) destroy(ctx echo.Context) error {
	if err := h.deps.CourseSvc.Delete(ctx.Request().Context(), ctx.Param("code")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return respond(ctx, http.StatusOK, echo.Map{"message": "course deleted"})
}
