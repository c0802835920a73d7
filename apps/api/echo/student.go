package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/user"
)

type studentApi struct {
	api
}

func registerStudentAPI(g *echo.Group, a api, authed, coordinator echo.MiddlewareFunc) {
	h := studentApi{api: a}
	self := selfOrCoordinatorMiddleware("id")

	sg := g.Group("/students", authed)
	sg.GET("", h.query, coordinator)
	sg.GET("/with-grades", h.withGrades, coordinator)
	sg.GET("/stats", h.stats, coordinator)
	sg.GET("/:id", h.retrieve, self)
	sg.GET("/:id/units", h.units, self)
	sg.POST("", h.create, coordinator)
	sg.DELETE("/:id", h.destroy, coordinator)
}

func (h *studentApi) bindFilter(ctx echo.Context) (user.QueryFilter, error) {
	var filter user.QueryFilter
	if err := bindQuery(ctx, &filter); err != nil {
		return filter, err
	}
	filter.Clean()
	return filter, nil
}

func (h *studentApi) query(ctx echo.Context) error {
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	filter, err := h.bindFilter(ctx)
	if err != nil {
		return err
	}
	withData, err := queryBool(ctx, "includeData")
	if err != nil {
		return err
	}

	students, total, err := h.deps.AcademicSvc.Students(ctx.Request().Context(), filter, page, withData)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return respondPage(ctx, students, page, total)
}

func (h *studentApi) withGrades(ctx echo.Context) error {
	filter, err := h.bindFilter(ctx)
	if err != nil {
		return err
	}
	students, err := h.deps.AcademicSvc.StudentsWithGrades(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying students with grades")
	}
	return respond(ctx, http.StatusOK, students)
}

func (h *studentApi) stats(ctx echo.Context) error {
	stats, err := h.deps.AcademicSvc.StudentStats(ctx.Request().Context(), ctx.QueryParam("courseCode"))
	if err != nil {
		return errors.Wrap(err, "computing student stats")
	}
	return respond(ctx, http.StatusOK, stats)
}

func (h *studentApi) retrieve(ctx echo.Context) error {
	detail, err := h.deps.AcademicSvc.StudentDetail(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return respond(ctx, http.StatusOK, detail)
}

func (h *studentApi) units(ctx echo.Context) error {
	units, err := h.deps.AcademicSvc.StudentUnits(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student units")
	}
	return respond(ctx, http.StatusOK, units)
}

func (h *studentApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	data.Role = user.RoleStudent
	data.CourseManaged = nil
	if err := data.Validate(h.deps.Validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	if _, err := h.deps.CourseSvc.GetByCode(reqCtx, data.CourseCode); err != nil {
		return errors.Wrap(err, "getting student course")
	}
	usr, err := h.deps.UserSvc.Create(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return respond(ctx, http.StatusCreated, usr.Profile())
}

func (h *studentApi) destroy(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	student, err := h.deps.UserSvc.GetStudent(reqCtx, core.CleanString(ctx.Param("id")))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	if err = h.deps.UserSvc.Delete(reqCtx, student.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return respond(ctx, http.StatusOK, echo.Map{"message": "student deleted"})
}
