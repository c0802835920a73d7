package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/imajine/core/submission"
	"github.com/trezcool/imajine/core/user"
)

type submissionApi struct {
	api
}

func registerSubmissionAPI(g *echo.Group, a api, authed, coordinator echo.MiddlewareFunc) {
	h := submissionApi{api: a}

	sg := g.Group("/submissions", authed)
	sg.GET("/student/:studentId", h.queryByStudent, selfOrCoordinatorMiddleware("studentId"))
	sg.GET("/:id", h.retrieve)
	sg.PUT("/:id/grade", h.grade, coordinator)
	sg.PUT("/:id", h.updateStatus, roleMiddleware(user.RoleStudent))
	sg.POST("", h.create, roleMiddleware(user.RoleStudent))
}

// getOwned fetches the submission of the path, checking the caller may see it.
func (h *submissionApi) getOwned(ctx echo.Context, usr user.User) (submission.Submission, error) {
	s, err := h.deps.SubmissionSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return submission.Submission{}, errors.Wrap(err, "getting submission")
	}
	if !usr.IsCoordinator() && s.StudentID != usr.ID {
		return submission.Submission{}, errForbidden
	}
	return s, nil
}

func (h *submissionApi) queryByStudent(ctx echo.Context) error {
	subs, err := h.deps.SubmissionSvc.QueryByStudent(ctx.Request().Context(), ctx.Param("studentId"))
	if err != nil {
		return errors.Wrap(err, "querying student submissions")
	}
	return respond(ctx, http.StatusOK, subs)
}

func (h *submissionApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	s, err := h.getOwned(ctx, usr)
	if err != nil {
		return err
	}
	asmt := s.Assignment
	s.Assignment = nil
	return respond(ctx, http.StatusOK, echo.Map{"submission": s, "assignment": asmt})
}

func (h *submissionApi) grade(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	orig, err := h.getOwned(ctx, usr)
	if err != nil {
		return err
	}

	var data submission.Grade
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Grade")
	}
	if err = data.Validate(h.deps.Validate); err != nil {
		return err
	}

	s, err := h.deps.SubmissionSvc.Grade(ctx.Request().Context(), orig, data, usr)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return respond(ctx, http.StatusOK, s)
}

func (h *submissionApi) updateStatus(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	orig, err := h.getOwned(ctx, usr)
	if err != nil {
		return err
	}

	var data submission.UpdateStatus
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err = data.Validate(h.deps.Validate); err != nil {
		return err
	}

	s, err := h.deps.SubmissionSvc.UpdateStatus(ctx.Request().Context(), orig, data)
	if err != nil {
		return errors.Wrap(err, "updating submission")
	}
	return respond(ctx, http.StatusOK, s)
}

func (h *submissionApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data submission.NewSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err = data.Validate(h.deps.Validate); err != nil {
		return err
	}

	s, err := h.deps.SubmissionSvc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating submission")
	}
	return respond(ctx, http.StatusCreated, s)
}
