package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/imajine/core/analytics"
)

type analyticsApi struct {
	api
}

func registerAnalyticsAPI(g *echo.Group, a api, authed, coordinator echo.MiddlewareFunc) {
	h := analyticsApi{api: a}

	ag := g.Group("/analytics", authed)
	ag.GET("/overview", h.overview, coordinator)
	ag.GET("/course/:courseCode", h.course, coordinator)
	ag.GET("/unit/:unitCode", h.unit, coordinator)
	ag.GET("/student/:studentId", h.student, selfOrCoordinatorMiddleware("studentId"))
	ag.GET("/trends", h.trends, coordinator)
}

func (h *analyticsApi) overview(ctx echo.Context) error {
	ov, err := h.deps.AnalyticsSvc.Overview(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing overview")
	}
	return respond(ctx, http.StatusOK, ov)
}

func (h *analyticsApi) course(ctx echo.Context) error {
	m, err := h.deps.AnalyticsSvc.Course(ctx.Request().Context(), ctx.Param("courseCode"))
	if err != nil {
		return errors.Wrap(err, "computing course analytics")
	}
	return respond(ctx, http.StatusOK, m)
}

func (h *analyticsApi) unit(ctx echo.Context) error {
	m, err := h.deps.AnalyticsSvc.Unit(ctx.Request().Context(), ctx.Param("unitCode"))
	if err != nil {
		return errors.Wrap(err, "computing unit analytics")
	}
	return respond(ctx, http.StatusOK, m)
}

func (h *analyticsApi) student(ctx echo.Context) error {
	sa, err := h.deps.AnalyticsSvc.Student(ctx.Request().Context(), ctx.Param("studentId"))
	if err != nil {
		return errors.Wrap(err, "computing student analytics")
	}
	return respond(ctx, http.StatusOK, sa)
}

func (h *analyticsApi) trends(ctx echo.Context) error {
	var tq analytics.TrendQuery
	if err := bindQuery(ctx, &tq); err != nil {
		return err
	}
	points, err := h.deps.AnalyticsSvc.Trends(ctx.Request().Context(), tq)
	if err != nil {
		return errors.Wrap(err, "computing trends")
	}
	return respond(ctx, http.StatusOK, points)
}
