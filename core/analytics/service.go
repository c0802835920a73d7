package analytics

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/progress"
	"github.com/trezcool/imajine/core/submission"
	"github.com/trezcool/imajine/core/unit"
	"github.com/trezcool/imajine/core/user"
)

const overviewCacheKey = "analytics:overview"

type (
	// Repository runs the aggregate reads of the dashboards.
	Repository interface {
		// CountStudents counts the students of a course, or every student when courseCode is empty.
		CountStudents(ctx context.Context, courseCode string) (int64, error)
		CountCourses(ctx context.Context) (int64, error)
		// CountTeachers counts the teachers linked to unitCodes, or every teacher when unitCodes is nil.
		CountTeachers(ctx context.Context, unitCodes []string) (int64, error)
		CountAssignments(ctx context.Context, unitCodes []string) (int64, error)
		QueryProgress(ctx context.Context, scope Scope) ([]progress.Progress, error)
		// QuerySubmissions returns the status, grade and dates of the submissions in scope.
		// A non-zero submittedSince only keeps the submissions submitted after it.
		QuerySubmissions(ctx context.Context, scope Scope, submittedSince time.Time) ([]submission.Submission, error)
	}

	// Cache stores computed dashboards. Implementations may be no-ops.
	Cache interface {
		Get(ctx context.Context, key string, dest interface{}) (bool, error)
		Set(ctx context.Context, key string, value interface{}) error
		Delete(ctx context.Context, keys ...string) error
	}

	UnitGetter interface {
		GetByCode(ctx context.Context, code string) (unit.Unit, error)
		QueryByCourse(ctx context.Context, courseCode string) ([]unit.Unit, error)
	}

	StudentGetter interface {
		GetStudent(ctx context.Context, id string) (user.User, error)
	}

	SubmissionGetter interface {
		QueryByStudent(ctx context.Context, studentID string) ([]submission.Submission, error)
	}

	ProgressGetter interface {
		QueryByStudent(ctx context.Context, studentID string) ([]progress.Progress, error)
	}

	Service struct {
		repo        Repository
		cache       Cache
		logger      core.Logger
		units       UnitGetter
		students    StudentGetter
		submissions SubmissionGetter
		progress    ProgressGetter
	}
)

// NowFunc is mockable in tests.
var NowFunc = func() time.Time { return time.Now().UTC() }

func NewService(
	repo Repository,
	cache Cache,
	logger core.Logger,
	units UnitGetter,
	students StudentGetter,
	submissions SubmissionGetter,
	prog ProgressGetter,
) *Service {
	return &Service{
		repo:        repo,
		cache:       cache,
		logger:      logger,
		units:       units,
		students:    students,
		submissions: submissions,
		progress:    prog,
	}
}

// CacheInvalidator drops the cached dashboards. Writers hold it instead of the Service,
// which itself depends on them.
type CacheInvalidator struct {
	cache  Cache
	logger core.Logger
}

var _ core.StatsInvalidator = (*CacheInvalidator)(nil)

func NewCacheInvalidator(cache Cache, logger core.Logger) *CacheInvalidator {
	return &CacheInvalidator{cache: cache, logger: logger}
}

// Invalidate never fails the write that triggered it; the cache TTL bounds a failed delete.
func (inv *CacheInvalidator) Invalidate(ctx context.Context) {
	if err := inv.cache.Delete(ctx, overviewCacheKey); err != nil {
		inv.logger.Warn("invalidating analytics cache", err)
	}
}

// Invalidate drops the cached overview.
func (svc *Service) Invalidate(ctx context.Context) {
	NewCacheInvalidator(svc.cache, svc.logger).Invalidate(ctx)
}

// Overview computes the coordinator dashboard, serving it from the cache when possible.
func (svc *Service) Overview(ctx context.Context) (Overview, error) {
	var ov Overview
	if ok, err := svc.cache.Get(ctx, overviewCacheKey, &ov); err != nil {
		svc.logger.Warn("reading analytics cache", err)
	} else if ok {
		return ov, nil
	}

	var (
		prog []progress.Progress
		subs []submission.Submission
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ov.StudentCount, err = svc.repo.CountStudents(gctx, "")
		return errors.Wrap(err, "counting students")
	})
	g.Go(func() (err error) {
		ov.TeacherCount, err = svc.repo.CountTeachers(gctx, nil)
		return errors.Wrap(err, "counting teachers")
	})
	g.Go(func() (err error) {
		ov.CourseCount, err = svc.repo.CountCourses(gctx)
		return errors.Wrap(err, "counting courses")
	})
	g.Go(func() (err error) {
		prog, err = svc.repo.QueryProgress(gctx, Scope{})
		return errors.Wrap(err, "querying progress")
	})
	g.Go(func() (err error) {
		subs, err = svc.repo.QuerySubmissions(gctx, Scope{}, time.Time{})
		return errors.Wrap(err, "querying submissions")
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	metrics := submission.ComputeMetrics(subs)
	ov.AvgProgress = progress.AverageProgress(prog)
	ov.AvgGrade = metrics.AverageGrade
	ov.SubmissionRate = metrics.SubmissionRate

	if err := svc.cache.Set(ctx, overviewCacheKey, ov); err != nil {
		svc.logger.Warn("writing analytics cache", err)
	}
	return ov, nil
}

func (svc *Service) scopeMetrics(ctx context.Context, scope Scope) (ScopeMetrics, error) {
	var (
		m    ScopeMetrics
		prog []progress.Progress
		subs []submission.Submission
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		m.StudentCount, err = svc.repo.CountStudents(gctx, scope.CourseCode)
		return errors.Wrap(err, "counting students")
	})
	g.Go(func() (err error) {
		m.TeacherCount, err = svc.repo.CountTeachers(gctx, scope.UnitCodes)
		return errors.Wrap(err, "counting teachers")
	})
	g.Go(func() (err error) {
		m.AssignmentCount, err = svc.repo.CountAssignments(gctx, scope.UnitCodes)
		return errors.Wrap(err, "counting assignments")
	})
	g.Go(func() (err error) {
		prog, err = svc.repo.QueryProgress(gctx, scope)
		return errors.Wrap(err, "querying progress")
	})
	g.Go(func() (err error) {
		subs, err = svc.repo.QuerySubmissions(gctx, scope, time.Time{})
		return errors.Wrap(err, "querying submissions")
	})
	if err := g.Wait(); err != nil {
		return ScopeMetrics{}, err
	}

	metrics := submission.ComputeMetrics(subs)
	m.AvgProgress = progress.AverageProgress(prog)
	m.AvgGrade = metrics.AverageGrade
	m.SubmissionRate = metrics.SubmissionRate
	m.FailedAssignments = metrics.Failed
	return m, nil
}

// Course computes the metrics of the units of a course, for the students enrolled in it.
func (svc *Service) Course(ctx context.Context, courseCode string) (ScopeMetrics, error) {
	units, err := svc.units.QueryByCourse(ctx, courseCode)
	if err != nil {
		return ScopeMetrics{}, err
	}
	codes := make([]string, 0, len(units))
	for _, u := range units {
		codes = append(codes, u.Code)
	}
	return svc.scopeMetrics(ctx, Scope{UnitCodes: codes, CourseCode: core.CleanCode(courseCode)})
}

// Unit computes the metrics of a unit; its students are the ones enrolled in its course.
func (svc *Service) Unit(ctx context.Context, unitCode string) (ScopeMetrics, error) {
	u, err := svc.units.GetByCode(ctx, unitCode)
	if err != nil {
		return ScopeMetrics{}, err
	}
	return svc.scopeMetrics(ctx, Scope{UnitCodes: []string{u.Code}, CourseCode: u.CourseCode})
}

func (svc *Service) Student(ctx context.Context, studentID string) (StudentAnalytics, error) {
	student, err := svc.students.GetStudent(ctx, studentID)
	if err != nil {
		return StudentAnalytics{}, err
	}

	var (
		subs []submission.Submission
		prog []progress.Progress
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		subs, err = svc.submissions.QueryByStudent(gctx, student.ID)
		return err
	})
	g.Go(func() (err error) {
		prog, err = svc.progress.QueryByStudent(gctx, student.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return StudentAnalytics{}, err
	}

	metrics := submission.ComputeMetrics(subs)
	rows := make([]progress.Row, 0, len(prog))
	for _, p := range prog {
		rows = append(rows, progress.NewRow(p))
	}
	return StudentAnalytics{
		Student: student.Profile(),
		Metrics: StudentMetrics{
			TotalAssignments:     metrics.Total,
			SubmittedAssignments: metrics.Submitted,
			SubmissionRate:       metrics.SubmissionRate,
			AverageGrade:         metrics.AverageGrade,
			OverallProgress:      progress.AverageProgress(prog),
			GradedAssignments:    metrics.Graded,
		},
		Submissions: subs,
		Progress:    rows,
	}, nil
}

// Trends groups the submissions of the last tq.Days days by tq.Period.
func (svc *Service) Trends(ctx context.Context, tq TrendQuery) ([]TrendPoint, error) {
	if err := tq.Clean(); err != nil {
		return nil, err
	}
	buckets := newBuckets(tq.Period, NowFunc(), tq.Days)
	subs, err := svc.repo.QuerySubmissions(ctx, Scope{}, buckets.start())
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	return buckets.fill(subs), nil
}
