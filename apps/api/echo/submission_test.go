package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/imajine/core/assignment"
	"github.com/trezcool/imajine/core/submission"
)

func Test_submissionApi(t *testing.T) {
	app := setup(t)
	fx := app.seed(t)
	coordToken := app.token(t, fx.coordinator)
	annToken := app.token(t, fx.ann)
	bobToken := app.token(t, fx.bob)

	rec := app.do(t, http.MethodPost, "/submissions", annToken, []byte(`{"assignmentId":"`+fx.essay.ID+`","submissionStatus":"draft"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sub submission.Submission
	decodeData(t, rec, &sub)
	assert.Equal(t, fx.ann.ID, sub.StudentID)
	assert.Equal(t, submission.StatusDraft, sub.SubmissionStatus)
	assert.Nil(t, sub.SubmittedAt)

	subPath := "/submissions/" + sub.ID
	tests := []httpTest{
		{name: "create (coordinator)", method: http.MethodPost, path: "/submissions", token: coordToken, body: []byte(`{"assignmentId":"` + fx.essay.ID + `"}`), wantCode: http.StatusForbidden},
		{
			name: "create (twice)", method: http.MethodPost, path: "/submissions", token: annToken, body: []byte(`{"assignmentId":"` + fx.essay.ID + `"}`),
			wantCode: http.StatusConflict, wantData: errBody(t, "a submission already exists for this assignment"),
		},
		{name: "create (unknown assignment)", method: http.MethodPost, path: "/submissions", token: annToken, body: []byte(`{"assignmentId":"nope"}`), wantCode: http.StatusNotFound},
		{name: "create (bad status)", method: http.MethodPost, path: "/submissions", token: annToken, body: []byte(`{"assignmentId":"` + fx.report.ID + `","submissionStatus":"LATE"}`), wantCode: http.StatusBadRequest},
		{name: "get (not the owner)", path: subPath, token: bobToken, wantCode: http.StatusForbidden},
		{name: "update (not the owner)", method: http.MethodPut, path: subPath, token: bobToken, body: []byte(`{"submissionStatus":"SUBMITTED"}`), wantCode: http.StatusForbidden},
		{name: "update (coordinator)", method: http.MethodPut, path: subPath, token: coordToken, body: []byte(`{"submissionStatus":"SUBMITTED"}`), wantCode: http.StatusForbidden},
		{name: "grade (student)", method: http.MethodPut, path: subPath + "/grade", token: annToken, body: []byte(`{"grade":100}`), wantCode: http.StatusForbidden},
		{name: "grade (out of range)", method: http.MethodPut, path: subPath + "/grade", token: coordToken, body: []byte(`{"grade":101}`), wantCode: http.StatusBadRequest},
		{name: "grade (missing)", method: http.MethodPut, path: subPath + "/grade", token: coordToken, body: []byte(`{"comment":"ok"}`), wantCode: http.StatusBadRequest},
		{name: "list (other student)", path: "/submissions/student/" + fx.ann.ID, token: bobToken, wantCode: http.StatusForbidden},
		{name: "unknown", path: "/submissions/nope", token: coordToken, wantCode: http.StatusNotFound, wantData: errBody(t, "submission not found")},
	}
	runHTTPTests(t, app, tests)

	t.Run("submit", func(t *testing.T) {
		rec := app.do(t, http.MethodPut, subPath, annToken, []byte(`{"submissionStatus":"submitted","submissionName":" essay.pdf "}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var s submission.Submission
		decodeData(t, rec, &s)
		assert.Equal(t, submission.StatusSubmitted, s.SubmissionStatus)
		assert.Equal(t, "essay.pdf", s.SubmissionName)
		require.NotNil(t, s.SubmittedAt)
	})

	t.Run("grade notifies the student", func(t *testing.T) {
		rec := app.do(t, http.MethodPut, subPath+"/grade", coordToken, []byte(`{"grade":72,"comment":"Good"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var s submission.Submission
		decodeData(t, rec, &s)
		require.NotNil(t, s.Grade)
		assert.Equal(t, 72.0, *s.Grade)
		assert.Equal(t, "Good", s.Comment)
		assert.Equal(t, fx.coordinator.ID, s.GradedBy)
		assert.NotNil(t, s.GradedAt)

		sent := app.mailSvc.Sent()
		require.Len(t, sent, 1)
		require.Len(t, sent[0].To, 1)
		assert.Equal(t, fx.ann.Email, sent[0].To[0].Address)
		assert.Equal(t, "grade_notification", sent[0].TemplateName)
	})

	t.Run("get with assignment", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, subPath, annToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var data struct {
			Submission submission.Submission `json:"submission"`
			Assignment assignment.Assignment `json:"assignment"`
		}
		decodeData(t, rec, &data)
		assert.Equal(t, sub.ID, data.Submission.ID)
		assert.Nil(t, data.Submission.Assignment)
		assert.Equal(t, fx.essay.ID, data.Assignment.ID)
		assert.Equal(t, "Essay", data.Assignment.Name)
	})

	t.Run("list by student", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/submissions/student/"+fx.ann.ID, coordToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var subs []submission.Submission
		decodeData(t, rec, &subs)
		require.Len(t, subs, 1)
		assert.Equal(t, sub.ID, subs[0].ID)
	})
}
