package echoapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/imajine/core/progress"
)

func Test_progressApi(t *testing.T) {
	app := setup(t)
	fx := app.seed(t)
	coordToken := app.token(t, fx.coordinator)
	annToken := app.token(t, fx.ann)

	annPath := func(suffix string) string { return "/student-progress/student/" + fx.ann.ID + suffix }
	newProg := func(studentID, unitCode string) []byte {
		return marshalObj(t, progress.NewProgress{StudentID: studentID, UnitCode: unitCode})
	}

	tests := []httpTest{
		{name: "percentage (no row)", path: annPath("/unit/BM001/percentage"), token: annToken, wantCode: http.StatusOK, wantData: marshalObj(t, Response{Success: true, Data: map[string]int{"percentage": 0}})},
		{name: "get (no row)", path: annPath("/unit/BM001"), token: annToken, wantCode: http.StatusNotFound, wantData: errBody(t, "progress not found")},
		{name: "create for someone else", method: http.MethodPost, path: "/student-progress", token: annToken, body: newProg(fx.bob.ID, "BM001"), wantCode: http.StatusForbidden},
		{name: "create (unknown unit)", method: http.MethodPost, path: "/student-progress", token: annToken, body: newProg(fx.ann.ID, "XX001"), wantCode: http.StatusNotFound},
		{name: "create (unknown student)", method: http.MethodPost, path: "/student-progress", token: coordToken, body: newProg("ghost", "BM001"), wantCode: http.StatusNotFound},
		{name: "create", method: http.MethodPost, path: "/student-progress", token: annToken, body: newProg(fx.ann.ID, "bm001"), wantCode: http.StatusCreated},
		{name: "create again", method: http.MethodPost, path: "/student-progress", token: coordToken, body: newProg(fx.ann.ID, "BM001"), wantCode: http.StatusCreated},
		{name: "other student", path: "/student-progress/student/" + fx.bob.ID, token: annToken, wantCode: http.StatusForbidden},
		{name: "update (bad flag)", method: http.MethodPut, path: annPath("/unit/BM001"), token: annToken, body: []byte(`{"week1Material":"HALF"}`), wantCode: http.StatusBadRequest},
		{name: "update (no row)", method: http.MethodPut, path: annPath("/unit/BM002"), token: annToken, body: []byte(`{"week1Material":"DONE"}`), wantCode: http.StatusNotFound},
		{name: "unit summary (student)", path: "/student-progress/unit/BM001", token: annToken, wantCode: http.StatusForbidden},
		{name: "initialize (student)", method: http.MethodPost, path: "/student-progress/unit/BM001/initialize", token: annToken, wantCode: http.StatusForbidden},
		{name: "initialize (unknown unit)", method: http.MethodPost, path: "/student-progress/unit/XX001/initialize", token: coordToken, wantCode: http.StatusNotFound},
	}
	runHTTPTests(t, app, tests)

	t.Run("update by the coordinator", func(t *testing.T) {
		rec := app.do(t, http.MethodPut, annPath("/unit/BM001"), coordToken, []byte(`{"week1Material":"done","week3Material":"DONE"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var row progress.Row
		decodeData(t, rec, &row)
		assert.Equal(t, progress.Done, row.Week1Material)
		assert.Equal(t, progress.NotDone, row.Week2Material)
		assert.Equal(t, 2, row.CompletedWeeks)
		assert.Equal(t, 50, row.ProgressPercentage)
		assert.Equal(t, fx.coordinator.ID, row.UpdatedBy)

		rec = app.do(t, http.MethodGet, annPath("/unit/BM001/percentage"), annToken)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marshalObj(t, Response{Success: true, Data: map[string]int{"percentage": 50}}),
		}, rec)
	})

	t.Run("initialize is idempotent", func(t *testing.T) {
		for _, want := range []int64{1, 0} { // ann already has a row
			rec := app.do(t, http.MethodPost, "/student-progress/unit/BM001/initialize", coordToken)
			checkCodeAndData(t, httpTest{
				wantCode: http.StatusOK,
				wantData: marshalObj(t, Response{Success: true, Data: map[string]interface{}{
					"message":        fmt.Sprintf("initialized progress for %d students", want),
					"recordsCreated": want,
				}}),
			}, rec)
		}
	})

	t.Run("unit summary", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/student-progress/unit/BM001", coordToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var summary progress.UnitSummary
		decodeData(t, rec, &summary)
		assert.Equal(t, "BM001", summary.UnitCode)
		assert.Len(t, summary.Progress, 2)
		assert.Equal(t, 25, summary.AverageProgress) // (50 + 0) / 2
	})

	t.Run("student rows", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, annPath(""), annToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var rows []progress.Row
		decodeData(t, rec, &rows)
		require.Len(t, rows, 1)
		assert.Equal(t, "BM001", rows[0].UnitCode)
	})
}
