package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/imajine/core/analytics"
	"github.com/trezcool/imajine/core/progress"
	"github.com/trezcool/imajine/core/submission"
	"github.com/trezcool/imajine/core/user"
)

type analyticsRepository struct {
	db *sqlx.DB
}

var _ analytics.Repository = (*analyticsRepository)(nil) // interface compliance check

func NewAnalyticsRepository(db *sqlx.DB) *analyticsRepository {
	return &analyticsRepository{db: db}
}

type (
	progressRow struct {
		StudentID     string    `db:"student_id"`
		UnitCode      string    `db:"unit_code"`
		Week1Material string    `db:"week1_material"`
		Week2Material string    `db:"week2_material"`
		Week3Material string    `db:"week3_material"`
		Week4Material string    `db:"week4_material"`
		LastUpdated   time.Time `db:"last_updated"`
	}

	submissionRow struct {
		StudentID        string          `db:"student_id"`
		AssignmentID     string          `db:"assignment_id"`
		SubmissionStatus string          `db:"submission_status"`
		Grade            sql.NullFloat64 `db:"grade"`
		SubmittedAt      sql.NullTime    `db:"submitted_at"`
	}
)

// query collects the where clauses of a statement written with `?` bindvars.
type query struct {
	base  string
	conds []string
	args  []interface{}
}

func (q *query) where(cond string, args ...interface{}) {
	q.conds = append(q.conds, cond)
	q.args = append(q.args, args...)
}

// build expands the IN clauses and rebinds the statement for the driver.
func (q *query) build(db *sqlx.DB) (string, []interface{}, error) {
	stmt := q.base
	if len(q.conds) > 0 {
		stmt += " WHERE " + strings.Join(q.conds, " AND ")
	}
	stmt, args, err := sqlx.In(stmt, q.args...)
	if err != nil {
		return "", nil, err
	}
	return db.Rebind(stmt), args, nil
}

func (repo analyticsRepository) count(ctx context.Context, q *query, msg string) (int64, error) {
	stmt, args, err := q.build(repo.db)
	if err != nil {
		return 0, errors.Wrap(err, msg)
	}
	var n int64
	if err = repo.db.GetContext(ctx, &n, stmt, args...); err != nil {
		return 0, errors.Wrap(err, msg)
	}
	return n, nil
}

func (repo analyticsRepository) CountStudents(ctx context.Context, courseCode string) (int64, error) {
	q := &query{base: "SELECT COUNT(*) FROM users"}
	q.where("role = ?", user.RoleStudent)
	if courseCode != "" {
		q.where("course_code = ?", courseCode)
	}
	return repo.count(ctx, q, "counting students")
}

func (repo analyticsRepository) CountCourses(ctx context.Context) (int64, error) {
	return repo.count(ctx, &query{base: "SELECT COUNT(*) FROM courses"}, "counting courses")
}

func (repo analyticsRepository) CountTeachers(ctx context.Context, unitCodes []string) (int64, error) {
	if unitCodes == nil {
		return repo.count(ctx, &query{base: "SELECT COUNT(*) FROM teachers"}, "counting teachers")
	}
	if len(unitCodes) == 0 {
		return 0, nil
	}
	q := &query{base: "SELECT COUNT(DISTINCT teacher_id) FROM unit_teachers"}
	q.where("unit_code IN (?)", unitCodes)
	return repo.count(ctx, q, "counting unit teachers")
}

func (repo analyticsRepository) CountAssignments(ctx context.Context, unitCodes []string) (int64, error) {
	q := &query{base: "SELECT COUNT(*) FROM assignments"}
	if unitCodes != nil {
		if len(unitCodes) == 0 {
			return 0, nil
		}
		q.where("unit_code IN (?)", unitCodes)
	}
	return repo.count(ctx, q, "counting assignments")
}

func (repo analyticsRepository) QueryProgress(ctx context.Context, scope analytics.Scope) ([]progress.Progress, error) {
	if scope.UnitCodes != nil && len(scope.UnitCodes) == 0 {
		return []progress.Progress{}, nil
	}
	q := &query{base: `
		SELECT p.student_id, p.unit_code, p.week1_material, p.week2_material, p.week3_material, p.week4_material, p.last_updated
		FROM student_progress p
		JOIN users u ON u.id = p.student_id`}
	if scope.UnitCodes != nil {
		q.where("p.unit_code IN (?)", scope.UnitCodes)
	}
	if scope.CourseCode != "" {
		q.where("u.course_code = ?", scope.CourseCode)
	}
	stmt, args, err := q.build(repo.db)
	if err != nil {
		return nil, errors.Wrap(err, "building progress query")
	}

	var rows []progressRow
	if err = repo.db.SelectContext(ctx, &rows, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "selecting progress")
	}
	prog := make([]progress.Progress, 0, len(rows))
	for _, r := range rows {
		prog = append(prog, progress.Progress{
			StudentID:     r.StudentID,
			UnitCode:      r.UnitCode,
			Week1Material: r.Week1Material,
			Week2Material: r.Week2Material,
			Week3Material: r.Week3Material,
			Week4Material: r.Week4Material,
			LastUpdated:   r.LastUpdated.UTC(),
		})
	}
	return prog, nil
}

func (repo analyticsRepository) QuerySubmissions(ctx context.Context, scope analytics.Scope, submittedSince time.Time) ([]submission.Submission, error) {
	if scope.UnitCodes != nil && len(scope.UnitCodes) == 0 {
		return []submission.Submission{}, nil
	}
	q := &query{base: `
		SELECT sa.student_id, sa.assignment_id, sa.submission_status, sa.grade, sa.submitted_at
		FROM student_assignments sa
		JOIN assignments a ON a.id = sa.assignment_id`}
	if scope.UnitCodes != nil {
		q.where("a.unit_code IN (?)", scope.UnitCodes)
	}
	if !submittedSince.IsZero() {
		q.where("sa.submitted_at >= ?", submittedSince.UTC())
	}
	stmt, args, err := q.build(repo.db)
	if err != nil {
		return nil, errors.Wrap(err, "building submissions query")
	}

	var rows []submissionRow
	if err = repo.db.SelectContext(ctx, &rows, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "selecting submissions")
	}
	subs := make([]submission.Submission, 0, len(rows))
	for _, r := range rows {
		s := submission.Submission{
			StudentID:        r.StudentID,
			AssignmentID:     r.AssignmentID,
			SubmissionStatus: r.SubmissionStatus,
		}
		if r.Grade.Valid {
			g := r.Grade.Float64
			s.Grade = &g
		}
		if r.SubmittedAt.Valid {
			t := r.SubmittedAt.Time.UTC()
			s.SubmittedAt = &t
		}
		subs = append(subs, s)
	}
	return subs, nil
}
