package echoapi

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/academic"
	"github.com/trezcool/imajine/core/progress"
	"github.com/trezcool/imajine/core/teacher"
	"github.com/trezcool/imajine/core/unit"
	"github.com/trezcool/imajine/core/user"
	"github.com/trezcool/imajine/storage/database/dbtest"
)

func Test_courseApi(t *testing.T) {
	app := setup(t)
	fx := app.seed(t)
	coordToken := app.token(t, fx.coordinator)

	tests := []httpTest{
		{name: "student cannot create", method: http.MethodPost, path: "/courses", token: app.token(t, fx.ann), body: []byte(`{"code":"ML","name":"Maths"}`), wantCode: http.StatusForbidden},
		{name: "invalid code", method: http.MethodPost, path: "/courses", token: coordToken, body: []byte(`{"code":"m l","name":"Maths"}`), wantCode: http.StatusBadRequest},
		{name: "duplicate code", method: http.MethodPost, path: "/courses", token: coordToken, body: []byte(`{"code":"bm","name":"Other"}`), wantCode: http.StatusConflict},
		{name: "create", method: http.MethodPost, path: "/courses", token: coordToken, body: []byte(`{"code":"ml","name":"Maths"}`), wantCode: http.StatusCreated},
		{name: "unknown", path: "/courses/XX", token: coordToken, wantCode: http.StatusNotFound, wantData: errBody(t, "course not found")},
		{name: "rename", method: http.MethodPut, path: "/courses/ML", token: coordToken, body: []byte(`{"name":"Mathematics"}`), wantCode: http.StatusOK},
		{name: "delete", method: http.MethodDelete, path: "/courses/ML", token: coordToken, wantCode: http.StatusOK},
		{name: "deleted", path: "/courses/ML", token: coordToken, wantCode: http.StatusNotFound},
	}
	runHTTPTests(t, app, tests)

	t.Run("list with units & assignments", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/courses", app.token(t, fx.ann))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var courses []academic.CourseWithUnits
		decodeData(t, rec, &courses)
		require.Len(t, courses, 2)
		assert.Equal(t, "BM", courses[0].Code)
		require.Len(t, courses[0].Units, 2)
		assert.Equal(t, "BM001", courses[0].Units[0].Code)
		require.Len(t, courses[0].Units[0].Assignments, 1)
		assert.Equal(t, fx.essay.ID, courses[0].Units[0].Assignments[0].ID)
		assert.Empty(t, courses[0].Units[1].Assignments)
	})
}

func Test_unitApi(t *testing.T) {
	app := setup(t)
	fx := app.seed(t)
	coordToken := app.token(t, fx.coordinator)
	studentToken := app.token(t, fx.ann)

	tests := []httpTest{
		{name: "create (unknown course)", method: http.MethodPost, path: "/units", token: coordToken, body: []byte(`{"code":"XX001","name":"X","courseCode":"XX"}`), wantCode: http.StatusNotFound},
		{name: "create (duplicate)", method: http.MethodPost, path: "/units", token: coordToken, body: []byte(`{"code":"BM001","name":"X","courseCode":"BM"}`), wantCode: http.StatusConflict},
		{name: "create", method: http.MethodPost, path: "/units", token: coordToken, body: []byte(`{"code":"cs002","name":"Databases","description":"SQL & co","courseCode":"cs"}`), wantCode: http.StatusCreated},
		{name: "update", method: http.MethodPut, path: "/units/CS002", token: coordToken, body: []byte(`{"currentWeek":3}`), wantCode: http.StatusOK},
		{name: "stats (student)", path: "/units/stats", token: studentToken, wantCode: http.StatusForbidden},
		{
			name: "stats", path: "/units/stats", token: coordToken, wantCode: http.StatusOK,
			wantData: marshalObj(t, Response{Success: true, Data: unit.Stats{
				TotalUnits:              4,
				UnitsWithAssignments:    2,
				UnitsWithoutAssignments: 2,
				CourseDistribution:      map[string]int64{"BM": 2, "CS": 2},
			}}),
		},
		{name: "by course (unknown)", path: "/units/course/XX", token: studentToken, wantCode: http.StatusNotFound},
		{name: "detail (unknown)", path: "/units/XX001", token: studentToken, wantCode: http.StatusNotFound, wantData: errBody(t, "unit not found")},
		{name: "progress (student)", path: "/units/BM001/progress", token: studentToken, wantCode: http.StatusForbidden},
		{name: "progress", path: "/units/BM001/progress", token: coordToken, wantCode: http.StatusOK},
		{name: "delete", method: http.MethodDelete, path: "/units/CS002", token: coordToken, wantCode: http.StatusOK},
	}
	runHTTPTests(t, app, tests)

	t.Run("paginated search", func(t *testing.T) {
		v := url.Values{"search": {"unit bm"}, "limit": {"1"}, "page": {"2"}}
		rec := app.do(t, http.MethodGet, "/units?"+v.Encode(), studentToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Data       []unit.Unit     `json:"data"`
			Pagination core.Pagination `json:"pagination"`
		}
		require.NoError(t, jsonUnmarshal(rec, &resp))
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "BM002", resp.Data[0].Code)
		assert.Equal(t, core.Pagination{Total: 2, Page: 2, Limit: 1, TotalPages: 2}, resp.Pagination)
	})

	t.Run("detail", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/units/bm001", studentToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var detail academic.UnitDetail
		decodeData(t, rec, &detail)
		assert.Equal(t, "BM", detail.Course.Code)
		require.Len(t, detail.Assignments, 1)
		assert.Equal(t, "Essay", detail.Assignments[0].Name)
		assert.Empty(t, detail.Teachers)
	})
}

func Test_assignmentApi(t *testing.T) {
	app := setup(t)
	fx := app.seed(t)
	coordToken := app.token(t, fx.coordinator)

	create := marshalObj(t, map[string]interface{}{"name": "Quiz", "unitCode": "BM002", "deadline": fixedDeadline(3)})
	tests := []httpTest{
		{name: "create (unknown unit)", method: http.MethodPost, path: "/assignments", token: coordToken, body: []byte(`{"name":"X","unitCode":"XX001","deadline":"2030-01-01T00:00:00Z"}`), wantCode: http.StatusNotFound},
		{name: "create (bad status)", method: http.MethodPost, path: "/assignments", token: coordToken, body: []byte(`{"name":"X","unitCode":"BM001","deadline":"2030-01-01T00:00:00Z","status":"LOL"}`), wantCode: http.StatusBadRequest},
		{name: "create", method: http.MethodPost, path: "/assignments", token: coordToken, body: create, wantCode: http.StatusCreated},
		{name: "update", method: http.MethodPut, path: "/assignments/" + fx.report.ID, token: coordToken, body: []byte(`{"status":"closed"}`), wantCode: http.StatusOK},
		{name: "unknown", path: "/assignments/nope", token: coordToken, wantCode: http.StatusNotFound},
	}
	runHTTPTests(t, app, tests)

	t.Run("students only see their course", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/assignments?includeSubmissions=true", app.token(t, fx.ann))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var asmts []academic.AssignmentWithSubmissions
		decodeData(t, rec, &asmts)
		names := make([]string, 0, len(asmts))
		for _, a := range asmts {
			names = append(names, a.Name)
			assert.NotNil(t, a.Submissions)
		}
		assert.Equal(t, []string{"Essay", "Quiz"}, names)
	})

	t.Run("coordinators see every assignment", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/assignments?status=closed", coordToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var asmts []academic.AssignmentWithSubmissions
		decodeData(t, rec, &asmts)
		require.Len(t, asmts, 1)
		assert.Equal(t, fx.report.ID, asmts[0].ID)
		assert.Nil(t, asmts[0].Submissions)
	})

	t.Run("detail counts", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/assignments/"+fx.essay.ID, coordToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var detail academic.AssignmentDetail
		decodeData(t, rec, &detail)
		assert.Equal(t, "Essay", detail.Name)
		assert.Zero(t, detail.TotalSubmissions)
	})
}

func Test_studentApi(t *testing.T) {
	app := setup(t)
	fx := app.seed(t)
	coordToken := app.token(t, fx.coordinator)

	newStudent := func(email, course string) []byte {
		return marshalObj(t, user.NewUser{
			FirstName: "Eve", LastName: "Test", Email: email, Role: user.RoleCoordinator,
			Password: dbtest.Password, PasswordConfirm: dbtest.Password, CourseCode: course,
		})
	}

	tests := []httpTest{
		{name: "enrol (unknown course)", method: http.MethodPost, path: "/students", token: coordToken, body: newStudent("eve@test.test", "XX"), wantCode: http.StatusNotFound},
		{name: "enrol (email taken)", method: http.MethodPost, path: "/students", token: coordToken, body: newStudent(fx.ann.Email, "BM"), wantCode: http.StatusConflict},
		{name: "enrol", method: http.MethodPost, path: "/students", token: coordToken, body: newStudent("eve@test.test", "CS"), wantCode: http.StatusCreated},
		{name: "stats (student)", path: "/students/stats", token: app.token(t, fx.ann), wantCode: http.StatusForbidden},
		{
			name: "stats", path: "/students/stats?courseCode=bm", token: coordToken, wantCode: http.StatusOK,
			wantData: marshalObj(t, Response{Success: true, Data: academic.StudentStats{TotalStudents: 2}}),
		},
		{name: "delete (coordinator id)", method: http.MethodDelete, path: "/students/" + fx.coordinator.ID, token: coordToken, wantCode: http.StatusNotFound},
		{name: "delete", method: http.MethodDelete, path: "/students/" + fx.bob.ID, token: coordToken, wantCode: http.StatusOK},
		{name: "deleted", path: "/students/" + fx.bob.ID, token: coordToken, wantCode: http.StatusNotFound},
	}
	runHTTPTests(t, app, tests)

	t.Run("list is ordered by first name and forced to students", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/students?role=COORDINATOR&includeData=true", coordToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var students []academic.StudentWithData
		decodeData(t, rec, &students)
		names := make([]string, 0, len(students))
		for _, s := range students {
			names = append(names, s.FirstName)
			assert.Equal(t, user.RoleStudent, s.Role)
		}
		assert.Equal(t, []string{"Ann", "Cleo", "Eve"}, names)
	})

	t.Run("units of a student", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/students/"+fx.ann.ID+"/units", app.token(t, fx.ann))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var units []academic.StudentUnit
		decodeData(t, rec, &units)
		require.Len(t, units, 2)
		assert.Equal(t, "BM001", units[0].Code)
		assert.Nil(t, units[0].Progress)
		assert.Zero(t, units[0].Percentage)
	})

	t.Run("a page carries the progress of its own students", func(t *testing.T) {
		ctx := context.Background()
		deps := app.srv.deps
		done := progress.Done
		_, err := deps.ProgressSvc.Create(ctx, fx.ann.ID, "BM001")
		require.NoError(t, err)
		_, err = deps.ProgressSvc.Update(ctx, fx.ann.ID, "BM001", progress.UpdateProgress{Week1Material: &done}, fx.coordinator.ID)
		require.NoError(t, err)
		_, err = deps.ProgressSvc.Create(ctx, fx.cleo.ID, "CS001")
		require.NoError(t, err)

		rec := app.do(t, http.MethodGet, "/students?includeData=true&limit=1&page=2", coordToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var students []academic.StudentWithData
		decodeData(t, rec, &students)
		require.Len(t, students, 1)
		assert.Equal(t, fx.cleo.ID, students[0].ID)
		require.Len(t, students[0].Progress, 1)
		assert.Equal(t, "CS001", students[0].Progress[0].UnitCode)

		rec = app.do(t, http.MethodGet, "/students/stats?courseCode=BM", coordToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var stats academic.StudentStats
		decodeData(t, rec, &stats)
		assert.Equal(t, int64(1), stats.TotalStudents) // bob was deleted
		assert.Equal(t, 25, stats.AvgProgress)
	})
}

func Test_teacherApi(t *testing.T) {
	app := setup(t)
	fx := app.seed(t)
	coordToken := app.token(t, fx.coordinator)

	body := func(email string, units ...string) []byte {
		nt := teacher.NewTeacher{FirstName: "Tom", Email: email}
		for _, code := range units {
			nt.UnitsTeached = append(nt.UnitsTeached, teacher.UnitLink{UnitCode: code})
		}
		return marshalObj(t, nt)
	}

	rec := app.do(t, http.MethodPost, "/teachers", coordToken, body("tom@test.test", "bm001", "CS001"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tom teacher.Teacher
	decodeData(t, rec, &tom)
	assert.Equal(t, []teacher.UnitLink{
		{UnitCode: "BM001", Role: teacher.DefaultUnitRole},
		{UnitCode: "CS001", Role: teacher.DefaultUnitRole},
	}, tom.UnitsTeached)

	tests := []httpTest{
		{name: "create (student)", method: http.MethodPost, path: "/teachers", token: app.token(t, fx.ann), body: body("x@test.test"), wantCode: http.StatusForbidden},
		{name: "create (email taken)", method: http.MethodPost, path: "/teachers", token: coordToken, body: body("TOM@test.test"), wantCode: http.StatusConflict},
		{name: "create (unknown unit)", method: http.MethodPost, path: "/teachers", token: coordToken, body: body("ted@test.test", "XX001"), wantCode: http.StatusNotFound},
		{name: "get", path: "/teachers/" + tom.ID, token: app.token(t, fx.ann), wantCode: http.StatusOK},
		{
			name: "stats", path: "/teachers/stats", token: coordToken, wantCode: http.StatusOK,
			wantData: marshalObj(t, Response{Success: true, Data: teacher.Stats{Total: 1, Active: 1}}),
		},
		{name: "update units", method: http.MethodPut, path: "/teachers/" + tom.ID, token: coordToken, body: []byte(`{"unitsTeached":[{"unitCode":"BM002","role":"tutor"}]}`), wantCode: http.StatusOK},
	}
	runHTTPTests(t, app, tests)

	t.Run("unit detail lists its teachers", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/units/BM002", coordToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var detail academic.UnitDetail
		decodeData(t, rec, &detail)
		require.Len(t, detail.Teachers, 1)
		assert.Equal(t, []teacher.UnitLink{{UnitCode: "BM002", Role: "TUTOR"}}, detail.Teachers[0].UnitsTeached)
	})

	t.Run("delete", func(t *testing.T) {
		rec := app.do(t, http.MethodDelete, "/teachers/"+tom.ID, coordToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		rec = app.do(t, http.MethodGet, "/teachers/"+tom.ID, coordToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
