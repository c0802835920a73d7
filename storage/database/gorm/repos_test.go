package gormrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/course"
	"github.com/trezcool/imajine/core/progress"
	"github.com/trezcool/imajine/core/submission"
	"github.com/trezcool/imajine/core/teacher"
	"github.com/trezcool/imajine/core/unit"
	"github.com/trezcool/imajine/core/user"
	"github.com/trezcool/imajine/storage/database/dbtest"
	gormrepos "github.com/trezcool/imajine/storage/database/gorm"
)

func TestUserRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	db.CreateCourse(t, "BM", "Business Management")
	db.CreateUnit(t, "BM001", "BM")
	asmt := db.CreateAssignment(t, "Essay", "BM001", time.Now().Add(24*time.Hour))
	student := db.CreateUser(t, "Ann", "ann@test.test", user.RoleStudent, "BM")
	other := db.CreateUser(t, "Bob", "bob@test.test", user.RoleStudent, "BM")

	progRepo := gormrepos.NewProgressRepository(db.Gorm)
	subRepo := gormrepos.NewSubmissionRepository(db.Gorm)
	now := time.Now().UTC()
	for _, s := range []user.User{student, other} {
		_, _, err := progRepo.CreateProgress(ctx, progress.New(s.ID, "BM001", now))
		require.NoError(t, err)
		_, err = subRepo.CreateSubmission(ctx, submission.Submission{
			StudentID: s.ID, AssignmentID: asmt.ID, SubmissionStatus: submission.StatusDraft, CreatedAt: now, UpdatedAt: now,
		})
		require.NoError(t, err)
	}

	require.NoError(t, gormrepos.NewUserRepository(db.Gorm).DeleteUsersByID(ctx, student.ID))

	left, err := progRepo.QueryProgress(ctx, &progress.QueryFilter{StudentIDs: []string{student.ID}})
	require.NoError(t, err)
	assert.Empty(t, left)
	subs, err := subRepo.QuerySubmissions(ctx, &submission.QueryFilter{StudentIDs: []string{student.ID}})
	require.NoError(t, err)
	assert.Empty(t, subs)

	// other students are untouched
	subs, err = subRepo.QuerySubmissions(ctx, &submission.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, other.ID, subs[0].StudentID)
	require.NotNil(t, subs[0].Assignment)
	assert.Equal(t, "Essay", subs[0].Assignment.Name)
}

func TestUserRepository_QueryUsers(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	db.CreateCourse(t, "BM", "Business Management")
	db.CreateCourse(t, "CS", "Computer Science")
	db.CreateUser(t, "Zoe", "zoe@test.test", user.RoleStudent, "BM")
	db.CreateUser(t, "Adam", "adam@test.test", user.RoleStudent, "CS")
	db.CreateUser(t, "Carl", "carl@test.test", user.RoleStudent, "BM")
	db.CreateUser(t, "Dana", "dana@test.test", user.RoleCoordinator, "")

	repo := gormrepos.NewUserRepository(db.Gorm)
	ordering := []core.DBOrdering{{Field: "first_name", Ascending: true}}

	tests := []struct {
		name      string
		filter    user.QueryFilter
		page      core.Page
		wantNames []string
		wantTotal int64
	}{
		{name: "students", filter: user.QueryFilter{Role: user.RoleStudent}, wantNames: []string{"Adam", "Carl", "Zoe"}, wantTotal: 3},
		{name: "course", filter: user.QueryFilter{Role: user.RoleStudent, CourseCode: "BM"}, wantNames: []string{"Carl", "Zoe"}, wantTotal: 2},
		{name: "search is case insensitive", filter: user.QueryFilter{Search: "ZOE"}, wantNames: []string{"Zoe"}, wantTotal: 1},
		{name: "paginated", filter: user.QueryFilter{Role: user.RoleStudent}, page: core.Page{Page: 2, Limit: 2}, wantNames: []string{"Zoe"}, wantTotal: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, total, err := repo.QueryUsers(ctx, &tt.filter, tt.page, ordering)
			require.NoError(t, err)
			names := make([]string, 0, len(users))
			for _, u := range users {
				names = append(names, u.FirstName)
			}
			assert.Equal(t, tt.wantNames, names)
			assert.Equal(t, tt.wantTotal, total)
		})
	}

	err := repo.CheckEmailUniqueness(ctx, "zoe@test.test")
	assert.Equal(t, user.ErrEmailExists, err)
}

func TestCourseRepository_UpdateCodeCascades(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	c := db.CreateCourse(t, "BM", "Business Management")
	db.CreateUnit(t, "BM001", "BM")
	student := db.CreateUser(t, "Ann", "ann@test.test", user.RoleStudent, "BM")

	repo := gormrepos.NewCourseRepository(db.Gorm)
	c.Code = "BMX"
	_, err := repo.UpdateCourse(ctx, "BM", c)
	require.NoError(t, err)

	u, err := gormrepos.NewUnitRepository(db.Gorm).GetUnit(ctx, "BM001")
	require.NoError(t, err)
	assert.Equal(t, "BMX", u.CourseCode)
	usr, err := gormrepos.NewUserRepository(db.Gorm).GetUser(ctx, user.GetFilter{ID: student.ID})
	require.NoError(t, err)
	assert.Equal(t, "BMX", usr.CourseCode)

	_, err = repo.GetCourse(ctx, "BM")
	assert.Equal(t, course.ErrNotFound, err)

	_, err = repo.CreateCourse(ctx, course.Course{Code: "BMX", Name: "Dup"})
	assert.Equal(t, course.ErrCodeExists, err)
}

func TestUnitRepository_Stats(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	db.CreateCourse(t, "BM", "Business Management")
	db.CreateCourse(t, "CS", "Computer Science")
	db.CreateUnit(t, "BM001", "BM")
	db.CreateUnit(t, "BM002", "BM")
	db.CreateUnit(t, "CS001", "CS")
	db.CreateAssignment(t, "Essay", "BM001", time.Now())

	svc := unit.NewService(gormrepos.NewUnitRepository(db.Gorm), course.NewService(gormrepos.NewCourseRepository(db.Gorm), core.NoStats), core.NoStats)
	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, unit.Stats{
		TotalUnits:              3,
		UnitsWithAssignments:    1,
		UnitsWithoutAssignments: 2,
		CourseDistribution:      map[string]int64{"BM": 2, "CS": 1},
	}, stats)

	units, total, err := svc.Query(ctx, unit.QueryFilter{Search: "bm00"}, core.Page{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, units, 1)
	assert.Equal(t, "BM001", units[0].Code)
}

func TestProgressRepository_Idempotence(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	db.CreateCourse(t, "BM", "Business Management")
	db.CreateCourse(t, "CS", "Computer Science")
	db.CreateUnit(t, "BM001", "BM")
	ann := db.CreateUser(t, "Ann", "ann@test.test", user.RoleStudent, "BM")
	db.CreateUser(t, "Bob", "bob@test.test", user.RoleStudent, "BM")
	db.CreateUser(t, "Cid", "cid@test.test", user.RoleStudent, "CS")

	courses := course.NewService(gormrepos.NewCourseRepository(db.Gorm), core.NoStats)
	units := unit.NewService(gormrepos.NewUnitRepository(db.Gorm), courses, core.NoStats)
	users := user.NewService(gormrepos.NewUserRepository(db.Gorm), core.NoStats)
	svc := progress.NewService(gormrepos.NewProgressRepository(db.Gorm), users, units, core.NoStats)

	first, err := svc.Create(ctx, ann.ID, "BM001")
	require.NoError(t, err)
	done := progress.Done
	updated, err := svc.Update(ctx, ann.ID, "BM001", progress.UpdateProgress{Week1Material: &done}, "coordinator-id")
	require.NoError(t, err)
	assert.Equal(t, 25, updated.Percentage())

	// creating again returns the stored row unchanged
	again, err := svc.Create(ctx, ann.ID, "bm001")
	require.NoError(t, err)
	assert.Equal(t, first.StudentID, again.StudentID)
	assert.Equal(t, progress.Done, again.Week1Material)
	assert.Equal(t, "coordinator-id", again.UpdatedBy)

	created, err := svc.InitializeUnit(ctx, "BM001")
	require.NoError(t, err)
	assert.Equal(t, int64(1), created) // Bob only: Ann is tracked and Cid is in another course

	created, err = svc.InitializeUnit(ctx, "BM001")
	require.NoError(t, err)
	assert.Equal(t, int64(0), created)

	prog, err := svc.QueryByUnits(ctx, "BM001")
	require.NoError(t, err)
	assert.Len(t, prog, 2)

	pct, err := svc.Percentage(ctx, ann.ID, "BM001")
	require.NoError(t, err)
	assert.Equal(t, 25, pct)

	_, err = svc.Create(ctx, ann.ID, "XX999")
	assert.True(t, core.IsNotFound(err))
}

func TestTeacherRepository_Links(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	db.CreateCourse(t, "BM", "Business Management")
	db.CreateUnit(t, "BM001", "BM")
	db.CreateUnit(t, "BM002", "BM")

	courses := course.NewService(gormrepos.NewCourseRepository(db.Gorm), core.NoStats)
	units := unit.NewService(gormrepos.NewUnitRepository(db.Gorm), courses, core.NoStats)
	svc := teacher.NewService(gormrepos.NewTeacherRepository(db.Gorm), units, core.NoStats)

	created, err := svc.Create(ctx, teacher.NewTeacher{
		FirstName:    "Tess",
		Email:        "tess@test.test",
		UnitsTeached: []teacher.UnitLink{{UnitCode: "BM001", Role: teacher.DefaultUnitRole}},
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, teacher.NewTeacher{FirstName: "Twin", Email: "tess@test.test"})
	assert.Equal(t, teacher.ErrEmailExists, err)

	_, err = svc.Create(ctx, teacher.NewTeacher{
		FirstName:    "Ghost",
		Email:        "ghost@test.test",
		UnitsTeached: []teacher.UnitLink{{UnitCode: "XX999", Role: teacher.DefaultUnitRole}},
	})
	assert.Equal(t, unit.ErrNotFound, err)

	links := []teacher.UnitLink{{UnitCode: "BM002", Role: "TUTOR"}}
	updated, err := svc.Update(ctx, created, teacher.UpdateTeacher{FirstName: "Tessa", LastName: "T", Email: created.Email, UnitsTeached: &links})
	require.NoError(t, err)
	assert.Equal(t, "Tessa", updated.FirstName)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []teacher.UnitLink{{UnitCode: "BM002", Role: "TUTOR"}}, got.UnitsTeached)

	byUnit, err := svc.QueryByUnits(ctx, "BM001")
	require.NoError(t, err)
	assert.Empty(t, byUnit)
	byUnit, err = svc.QueryByUnits(ctx, "BM002")
	require.NoError(t, err)
	assert.Len(t, byUnit, 1)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, teacher.Stats{Total: 1, Active: 1}, stats)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.GetByID(ctx, created.ID)
	assert.Equal(t, teacher.ErrNotFound, err)
}
