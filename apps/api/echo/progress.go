package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/imajine/core/progress"
)

type progressApi struct {
	api
}

func registerProgressAPI(g *echo.Group, a api, authed, coordinator echo.MiddlewareFunc) {
	h := progressApi{api: a}
	self := selfOrCoordinatorMiddleware("studentId")

	pg := g.Group("/student-progress", authed)
	pg.GET("/student/:studentId", h.queryByStudent, self)
	pg.GET("/student/:studentId/unit/:unitCode", h.retrieve, self)
	pg.GET("/student/:studentId/unit/:unitCode/percentage", h.percentage, self)
	pg.PUT("/student/:studentId/unit/:unitCode", h.update, self)
	pg.GET("/unit/:unitCode", h.unitSummary, coordinator)
	pg.POST("/unit/:unitCode/initialize", h.initializeUnit, coordinator)
	pg.POST("", h.create)
}

func (h *progressApi) queryByStudent(ctx echo.Context) error {
	prog, err := h.deps.ProgressSvc.QueryByStudent(ctx.Request().Context(), ctx.Param("studentId"))
	if err != nil {
		return errors.Wrap(err, "querying student progress")
	}
	rows := make([]progress.Row, 0, len(prog))
	for _, p := range prog {
		rows = append(rows, progress.NewRow(p))
	}
	return respond(ctx, http.StatusOK, rows)
}

func (h *progressApi) retrieve(ctx echo.Context) error {
	prog, err := h.deps.ProgressSvc.Get(ctx.Request().Context(), ctx.Param("studentId"), ctx.Param("unitCode"))
	if err != nil {
		return errors.Wrap(err, "getting progress")
	}
	return respond(ctx, http.StatusOK, progress.NewRow(prog))
}

func (h *progressApi) percentage(ctx echo.Context) error {
	pct, err := h.deps.ProgressSvc.Percentage(ctx.Request().Context(), ctx.Param("studentId"), ctx.Param("unitCode"))
	if err != nil {
		return errors.Wrap(err, "computing progress percentage")
	}
	return respond(ctx, http.StatusOK, echo.Map{"percentage": pct})
}

func (h *progressApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data progress.UpdateProgress
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProgress")
	}
	if err = data.Validate(h.deps.Validate); err != nil {
		return err
	}

	prog, err := h.deps.ProgressSvc.Update(ctx.Request().Context(), ctx.Param("studentId"), ctx.Param("unitCode"), data, usr.ID)
	if err != nil {
		return errors.Wrap(err, "updating progress")
	}
	return respond(ctx, http.StatusOK, progress.NewRow(prog))
}

func (h *progressApi) unitSummary(ctx echo.Context) error {
	summary, err := h.deps.ProgressSvc.UnitSummary(ctx.Request().Context(), ctx.Param("unitCode"))
	if err != nil {
		return errors.Wrap(err, "summarising unit progress")
	}
	return respond(ctx, http.StatusOK, summary)
}

func (h *progressApi) initializeUnit(ctx echo.Context) error {
	created, err := h.deps.ProgressSvc.InitializeUnit(ctx.Request().Context(), ctx.Param("unitCode"))
	if err != nil {
		return errors.Wrap(err, "initializing unit progress")
	}
	return respond(ctx, http.StatusOK, echo.Map{
		"message":        fmt.Sprintf("initialized progress for %d students", created),
		"recordsCreated": created,
	})
}

func (h *progressApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data progress.NewProgress
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProgress")
	}
	if err = data.Validate(h.deps.Validate); err != nil {
		return err
	}
	if !usr.IsCoordinator() && usr.ID != data.StudentID {
		return errForbidden
	}

	prog, err := h.deps.ProgressSvc.Create(ctx.Request().Context(), data.StudentID, data.UnitCode)
	if err != nil {
		return errors.Wrap(err, "creating progress")
	}
	return respond(ctx, http.StatusCreated, progress.NewRow(prog))
}
