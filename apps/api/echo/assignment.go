package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/assignment"
	"github.com/trezcool/imajine/core/submission"
	"github.com/trezcool/imajine/core/unit"
	"github.com/trezcool/imajine/core/user"
)

type assignmentApi struct {
	api
}

func registerAssignmentAPI(g *echo.Group, a api, authed, coordinator echo.MiddlewareFunc) {
	h := assignmentApi{api: a}

	ag := g.Group("/assignments", authed)
	ag.GET("", h.query)
	ag.GET("/:id", h.retrieve)
	ag.POST("", h.create, coordinator)
	ag.PUT("/:id", h.update, coordinator)
	ag.DELETE("/:id", h.destroy, coordinator)
}

// courseUnitCodes lists the codes of the units of the student's course.
func (h *assignmentApi) courseUnitCodes(ctx context.Context, student user.User) ([]string, error) {
	codes := make([]string, 0)
	if student.CourseCode == "" {
		return codes, nil
	}
	units, _, err := h.deps.UnitSvc.Query(ctx, unit.QueryFilter{CourseCode: student.CourseCode}, core.Page{})
	if err != nil {
		return nil, errors.Wrap(err, "querying course units")
	}
	for _, u := range units {
		codes = append(codes, u.Code)
	}
	return codes, nil
}

// submissionFilter reads the submission params; students only ever see their own submissions.
func submissionFilter(ctx echo.Context, usr user.User) submission.QueryFilter {
	filter := submission.QueryFilter{Status: core.CleanCode(ctx.QueryParam("submissionStatus"))}
	if usr.IsStudent() {
		filter.StudentIDs = []string{usr.ID}
	} else if sid := core.CleanString(ctx.QueryParam("studentId")); sid != "" {
		filter.StudentIDs = []string{sid}
	}
	return filter
}

func (h *assignmentApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	var filter assignment.QueryFilter
	if err = bindQuery(ctx, &filter); err != nil {
		return err
	}
	filter.Clean()
	withSubs, err := queryBool(ctx, "includeSubmissions")
	if err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	if usr.IsStudent() {
		if filter.UnitCodes, err = h.courseUnitCodes(reqCtx, usr); err != nil {
			return err
		}
	}

	asmts, total, err := h.deps.AcademicSvc.AssignmentsWithSubmissions(reqCtx, filter, page, withSubs, submissionFilter(ctx, usr))
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	return respondPage(ctx, asmts, page, total)
}

func (h *assignmentApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	withSubs, err := queryBool(ctx, "includeSubmissions")
	if err != nil {
		return err
	}

	detail, err := h.deps.AcademicSvc.AssignmentDetail(ctx.Request().Context(), ctx.Param("id"), withSubs, submissionFilter(ctx, usr))
	if err != nil {
		return errors.Wrap(err, "getting assignment")
	}
	return respond(ctx, http.StatusOK, detail)
}

func (h *assignmentApi) create(ctx echo.Context) error {
	var data assignment.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(h.deps.Validate); err != nil {
		return err
	}

	asmt, err := h.deps.AssignmentSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return respond(ctx, http.StatusCreated, asmt)
}

func (h *assignmentApi) update(ctx echo.Context) error {
	orig, err := h.deps.AssignmentSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting assignment")
	}

	var data assignment.UpdateAssignment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}
	if err = data.Validate(orig, h.deps.Validate); err != nil {
		return err
	}

	asmt, err := h.deps.AssignmentSvc.Update(ctx.Request().Context(), orig, data)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return respond(ctx, http.StatusOK, asmt)
}

func (h *assignmentApi) destroy(ctx echo.Context) error {
	if err := h.deps.AssignmentSvc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return respond(ctx, http.StatusOK, echo.Map{"message": "assignment deleted"})
}
