package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type academicApi struct {
	api
}

func registerAcademicAPI(g *echo.Group, a api, authed echo.MiddlewareFunc) {
	h := academicApi{api: a}

	ag := g.Group("/academic-data", authed)
	ag.GET("", h.all)
	ag.GET("/summary", h.summary)
	ag.GET("/course/:courseCode", h.course)
	ag.GET("/unit/:unitCode", h.unit)
	ag.GET("/student/:studentId", h.student, selfOrCoordinatorMiddleware("studentId"))
}

func (h *academicApi) all(ctx echo.Context) error {
	data, err := h.deps.AcademicSvc.All(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting academic data")
	}
	return respond(ctx, http.StatusOK, data)
}

func (h *academicApi) summary(ctx echo.Context) error {
	s, err := h.deps.AcademicSvc.Summary(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "summarising academic data")
	}
	return respond(ctx, http.StatusOK, s)
}

func (h *academicApi) course(ctx echo.Context) error {
	data, err := h.deps.AcademicSvc.Course(ctx.Request().Context(), ctx.Param("courseCode"))
	if err != nil {
		return errors.Wrap(err, "getting course data")
	}
	return respond(ctx, http.StatusOK, data)
}

func (h *academicApi) unit(ctx echo.Context) error {
	data, err := h.deps.AcademicSvc.Unit(ctx.Request().Context(), ctx.Param("unitCode"))
	if err != nil {
		return errors.Wrap(err, "getting unit data")
	}
	return respond(ctx, http.StatusOK, data)
}

func (h *academicApi) student(ctx echo.Context) error {
	data, err := h.deps.AcademicSvc.Student(ctx.Request().Context(), ctx.Param("studentId"))
	if err != nil {
		return errors.Wrap(err, "getting student data")
	}
	return respond(ctx, http.StatusOK, data)
}
