package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/imajine/core/teacher"
)

type teacherApi struct {
	api
}

func registerTeacherAPI(g *echo.Group, a api, authed, coordinator echo.MiddlewareFunc) {
	h := teacherApi{api: a}

	tg := g.Group("/teachers", authed)
	tg.GET("", h.query)
	tg.GET("/stats", h.stats, coordinator)
	tg.GET("/:id", h.retrieve)
	tg.POST("", h.create, coordinator)
	tg.PUT("/:id", h.update, coordinator)
	tg.DELETE("/:id", h.destroy, coordinator)
}

func (h *teacherApi) query(ctx echo.Context) error {
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	var filter teacher.QueryFilter
	if err = bindQuery(ctx, &filter); err != nil {
		return err
	}
	filter.Clean()

	teachers, total, err := h.deps.TeacherSvc.Query(ctx.Request().Context(), filter, page)
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	return respondPage(ctx, teachers, page, total)
}

func (h *teacherApi) stats(ctx echo.Context) error {
	stats, err := h.deps.TeacherSvc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing teacher stats")
	}
	return respond(ctx, http.StatusOK, stats)
}

func (h *teacherApi) retrieve(ctx echo.Context) error {
	t, err := h.deps.TeacherSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting teacher")
	}
	return respond(ctx, http.StatusOK, t)
}

func (h *teacherApi) create(ctx echo.Context) error {
	var data teacher.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(h.deps.Validate); err != nil {
		return err
	}

	t, err := h.deps.TeacherSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}
	return respond(ctx, http.StatusCreated, t)
}

func (h *teacherApi) update(ctx echo.Context) error {
	orig, err := h.deps.TeacherSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting teacher")
	}

	var data teacher.UpdateTeacher
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTeacher")
	}
	if err = data.Validate(orig, h.deps.Validate); err != nil {
		return err
	}

	t, err := h.deps.TeacherSvc.Update(ctx.Request().Context(), orig, data)
	if err != nil {
		return errors.Wrap(err, "updating teacher")
	}
	return respond(ctx, http.StatusOK, t)
}

func (h *teacherApi) destroy(ctx echo.Context) error {
	if err := h.deps.TeacherSvc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	return respond(ctx, http.StatusOK, echo.Map{"message": "teacher deleted"})
}
