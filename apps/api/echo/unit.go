package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/imajine/core/unit"
)

type unitApi struct {
	api
}

func registerUnitAPI(g *echo.Group, a api, authed, coordinator echo.MiddlewareFunc) {
	h := unitApi{api: a}

	ug := g.Group("/units", authed)
	ug.GET("", h.query)
	ug.GET("/stats", h.stats, coordinator)
	ug.GET("/course/:courseCode", h.queryByCourse)
	ug.GET("/:code", h.retrieve)
	ug.GET("/:code/progress", h.progress, coordinator)
	ug.POST("", h.create, coordinator)
	ug.PUT("/:code", h.update, coordinator)
	ug.DELETE("/:code", h.destroy, coordinator)
}

func (h *unitApi) query(ctx echo.Context) error {
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	var filter unit.QueryFilter
	if err = bindQuery(ctx, &filter); err != nil {
		return err
	}
	filter.Clean()

	units, total, err := h.deps.UnitSvc.Query(ctx.Request().Context(), filter, page)
	if err != nil {
		return errors.Wrap(err, "querying units")
	}
	return respondPage(ctx, units, page, total)
}

func (h *unitApi) stats(ctx echo.Context) error {
	stats, err := h.deps.UnitSvc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing unit stats")
	}
	return respond(ctx, http.StatusOK, stats)
}

func (h *unitApi) queryByCourse(ctx echo.Context) error {
	units, err := h.deps.UnitSvc.QueryByCourse(ctx.Request().Context(), ctx.Param("courseCode"))
	if err != nil {
		return errors.Wrap(err, "querying course units")
	}
	return respond(ctx, http.StatusOK, units)
}

func (h *unitApi) retrieve(ctx echo.Context) error {
	detail, err := h.deps.AcademicSvc.UnitDetail(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return errors.Wrap(err, "getting unit")
	}
	return respond(ctx, http.StatusOK, detail)
}

func (h *unitApi) progress(ctx echo.Context) error {
	prog, err := h.deps.AcademicSvc.UnitProgress(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return errors.Wrap(err, "getting unit progress")
	}
	return respond(ctx, http.StatusOK, prog)
}

func (h *unitApi) create(ctx echo.Context) error {
	var data unit.NewUnit
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUnit")
	}
	if err := data.Validate(h.deps.Validate); err != nil {
		return err
	}

	u, err := h.deps.UnitSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating unit")
	}
	return respond(ctx, http.StatusCreated, u)
}

func (h *unitApi) update(ctx echo.Context) error {
	orig, err := h.deps.UnitSvc.GetByCode(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return errors.Wrap(err, "getting unit")
	}

	var data unit.UpdateUnit
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUnit")
	}
	if err = data.Validate(orig, h.deps.Validate); err != nil {
		return err
	}

	u, err := h.deps.UnitSvc.Update(ctx.Request().Context(), orig, data)
	if err != nil {
		return errors.Wrap(err, "updating unit")
	}
	return respond(ctx, http.StatusOK, u)
}

func (h *unitApi) destroy(ctx echo.Context) error {
	if err := h.deps.UnitSvc.Delete(ctx.Request().Context(), ctx.Param("code")); err != nil {
		return errors.Wrap(err, "deleting unit")
	}
	return respond(ctx, http.StatusOK, echo.Map{"message": "unit deleted"})
}
