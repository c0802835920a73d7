package progress

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/unit"
	"github.com/trezcool/imajine/core/user"
)

var (
	// ErrNotFound is returned when a student has no progress on a unit.
	ErrNotFound = core.NewNotFoundError("progress")

	// NowFunc is mockable in tests.
	NowFunc = func() time.Time { return time.Now().UTC() }
)

type (
	Repository interface {
		// CreateProgress inserts p unless a row already exists for its (StudentID, UnitCode);
		// the stored row is returned either way.
		CreateProgress(ctx context.Context, p Progress) (prog Progress, created bool, err error)
		// CreateMissingProgress inserts a fresh row for each student without one on unitCode
		// and returns the number of inserted rows.
		CreateMissingProgress(ctx context.Context, unitCode string, studentIDs []string, now time.Time) (int64, error)
		QueryProgress(ctx context.Context, filter *QueryFilter) ([]Progress, error)
		GetProgress(ctx context.Context, studentID, unitCode string) (Progress, error)
		UpdateProgress(ctx context.Context, p Progress) (Progress, error)
	}

	StudentGetter interface {
		GetStudent(ctx context.Context, id string) (user.User, error)
		QueryStudents(ctx context.Context, filter user.QueryFilter, page core.Page) ([]user.User, int64, error)
	}

	UnitGetter interface {
		GetByCode(ctx context.Context, code string) (unit.Unit, error)
	}

	Service struct {
		repo     Repository
		students StudentGetter
		units    UnitGetter
		stats    core.StatsInvalidator
	}
)

func NewService(repo Repository, students StudentGetter, units UnitGetter, stats core.StatsInvalidator) *Service {
	return &Service{repo: repo, students: students, units: units, stats: stats}
}

// Create starts tracking a student on a unit. Calling it again returns the existing row unchanged.
func (svc *Service) Create(ctx context.Context, studentID, unitCode string) (Progress, error) {
	if _, err := svc.students.GetStudent(ctx, studentID); err != nil {
		return Progress{}, err
	}
	u, err := svc.units.GetByCode(ctx, unitCode)
	if err != nil {
		return Progress{}, err
	}
	prog, created, err := svc.repo.CreateProgress(ctx, New(studentID, u.Code, NowFunc()))
	if err != nil {
		return Progress{}, err
	}
	if created {
		svc.stats.Invalidate(ctx)
	}
	return prog, nil
}

func (svc *Service) Get(ctx context.Context, studentID, unitCode string) (Progress, error) {
	return svc.repo.GetProgress(ctx, studentID, core.CleanCode(unitCode))
}

func (svc *Service) QueryByStudent(ctx context.Context, studentID string) ([]Progress, error) {
	return svc.repo.QueryProgress(ctx, &QueryFilter{StudentIDs: []string{studentID}})
}

func (svc *Service) QueryByUnits(ctx context.Context, codes ...string) ([]Progress, error) {
	if codes == nil {
		codes = []string{}
	}
	return svc.repo.QueryProgress(ctx, &QueryFilter{UnitCodes: codes})
}

// QueryByStudents lists the progress rows of the given students.
func (svc *Service) QueryByStudents(ctx context.Context, ids ...string) ([]Progress, error) {
	if ids == nil {
		ids = []string{}
	}
	return svc.repo.QueryProgress(ctx, &QueryFilter{StudentIDs: ids})
}

// Percentage returns the completion of a unit by a student, 0 when not tracked yet.
func (svc *Service) Percentage(ctx context.Context, studentID, unitCode string) (int, error) {
	prog, err := svc.Get(ctx, studentID, unitCode)
	if err != nil {
		if core.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return prog.Percentage(), nil
}

// Update applies the provided week flags and records who updated them.
func (svc *Service) Update(ctx context.Context, studentID, unitCode string, up UpdateProgress, updatedBy string) (Progress, error) {
	prog, err := svc.Get(ctx, studentID, unitCode)
	if err != nil {
		return Progress{}, err
	}
	up.apply(&prog)
	prog.LastUpdated = NowFunc()
	prog.UpdatedBy = updatedBy
	if prog, err = svc.repo.UpdateProgress(ctx, prog); err != nil {
		return Progress{}, err
	}
	svc.stats.Invalidate(ctx)
	return prog, nil
}

// InitializeUnit creates the missing progress rows of every student enrolled in the unit's course.
// Running it again creates nothing.
func (svc *Service) InitializeUnit(ctx context.Context, unitCode string) (int64, error) {
	u, err := svc.units.GetByCode(ctx, unitCode)
	if err != nil {
		return 0, err
	}
	students, _, err := svc.students.QueryStudents(ctx, user.QueryFilter{CourseCode: u.CourseCode}, core.Page{})
	if err != nil {
		return 0, errors.Wrap(err, "querying course students")
	}
	if len(students) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	created, err := svc.repo.CreateMissingProgress(ctx, u.Code, ids, NowFunc())
	if err != nil {
		return 0, err
	}
	if created > 0 {
		svc.stats.Invalidate(ctx)
	}
	return created, nil
}

func (svc *Service) UnitSummary(ctx context.Context, unitCode string) (UnitSummary, error) {
	u, err := svc.units.GetByCode(ctx, unitCode)
	if err != nil {
		return UnitSummary{}, err
	}
	progress, err := svc.QueryByUnits(ctx, u.Code)
	if err != nil {
		return UnitSummary{}, err
	}
	rows := make([]Row, 0, len(progress))
	for _, p := range progress {
		rows = append(rows, NewRow(p))
	}
	return UnitSummary{UnitCode: u.Code, Progress: rows, AverageProgress: AverageProgress(progress)}, nil
}
