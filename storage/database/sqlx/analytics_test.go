package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/imajine/core/analytics"
	"github.com/trezcool/imajine/core/progress"
	"github.com/trezcool/imajine/core/submission"
	"github.com/trezcool/imajine/core/teacher"
	"github.com/trezcool/imajine/core/user"
	"github.com/trezcool/imajine/storage/database/dbtest"
	gormrepos "github.com/trezcool/imajine/storage/database/gorm"
)

func TestAnalyticsRepository(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	db.CreateCourse(t, "BM", "Business Management")
	db.CreateCourse(t, "CS", "Computer Science")
	db.CreateUnit(t, "BM001", "BM")
	db.CreateUnit(t, "CS001", "CS")
	bmAsmt := db.CreateAssignment(t, "Essay", "BM001", time.Now().Add(48*time.Hour))
	db.CreateAssignment(t, "Code", "CS001", time.Now().Add(48*time.Hour))
	ann := db.CreateUser(t, "Ann", "ann@test.test", user.RoleStudent, "BM")
	db.CreateUser(t, "Bob", "bob@test.test", user.RoleStudent, "BM")
	db.CreateUser(t, "Cid", "cid@test.test", user.RoleStudent, "CS")
	db.CreateUser(t, "Dana", "dana@test.test", user.RoleCoordinator, "")

	now := time.Now().UTC()
	_, err := gormrepos.NewTeacherRepository(db.Gorm).CreateTeacher(ctx, teacher.Teacher{
		FirstName:    "Tess",
		Email:        "tess@test.test",
		UnitsTeached: []teacher.UnitLink{{UnitCode: "BM001", Role: teacher.DefaultUnitRole}},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)

	prog := progress.New(ann.ID, "BM001", now)
	prog.Week1Material = progress.Done
	_, _, err = gormrepos.NewProgressRepository(db.Gorm).CreateProgress(ctx, prog)
	require.NoError(t, err)

	grade := 80.0
	submitted := now.Add(-time.Hour)
	_, err = gormrepos.NewSubmissionRepository(db.Gorm).CreateSubmission(ctx, submission.Submission{
		StudentID:        ann.ID,
		AssignmentID:     bmAsmt.ID,
		SubmissionStatus: submission.StatusSubmitted,
		SubmittedAt:      &submitted,
		Grade:            &grade,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	require.NoError(t, err)

	repo := db.AnalyticsRepository()

	t.Run("counts", func(t *testing.T) {
		tests := []struct {
			name  string
			count func() (int64, error)
			want  int64
		}{
			{name: "students", count: func() (int64, error) { return repo.CountStudents(ctx, "") }, want: 3},
			{name: "course students", count: func() (int64, error) { return repo.CountStudents(ctx, "BM") }, want: 2},
			{name: "courses", count: func() (int64, error) { return repo.CountCourses(ctx) }, want: 2},
			{name: "teachers", count: func() (int64, error) { return repo.CountTeachers(ctx, nil) }, want: 1},
			{name: "unit teachers", count: func() (int64, error) { return repo.CountTeachers(ctx, []string{"CS001"}) }, want: 0},
			{name: "no units", count: func() (int64, error) { return repo.CountTeachers(ctx, []string{}) }, want: 0},
			{name: "assignments", count: func() (int64, error) { return repo.CountAssignments(ctx, nil) }, want: 2},
			{name: "unit assignments", count: func() (int64, error) { return repo.CountAssignments(ctx, []string{"BM001"}) }, want: 1},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				n, err := tt.count()
				require.NoError(t, err)
				assert.Equal(t, tt.want, n)
			})
		}
	})

	t.Run("progress", func(t *testing.T) {
		rows, err := repo.QueryProgress(ctx, analytics.Scope{CourseCode: "BM"})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, 25, rows[0].Percentage())

		rows, err = repo.QueryProgress(ctx, analytics.Scope{UnitCodes: []string{"CS001"}})
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("submissions", func(t *testing.T) {
		subs, err := repo.QuerySubmissions(ctx, analytics.Scope{UnitCodes: []string{"BM001"}}, time.Time{})
		require.NoError(t, err)
		require.Len(t, subs, 1)
		require.NotNil(t, subs[0].Grade)
		assert.Equal(t, 80.0, *subs[0].Grade)
		assert.True(t, subs[0].IsSubmitted())

		subs, err = repo.QuerySubmissions(ctx, analytics.Scope{}, now.Add(time.Hour))
		require.NoError(t, err)
		assert.Empty(t, subs)
	})
}
