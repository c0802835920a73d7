package unit

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/course"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("unit")
	ErrCodeExists = core.NewConflictError("a unit with this code already exists")
)

type (
	Repository interface {
		CreateUnit(ctx context.Context, u Unit) (Unit, error)
		// QueryUnits filters units by course and by a case-insensitive search over code, name and description.
		QueryUnits(ctx context.Context, filter *QueryFilter, page core.Page) ([]Unit, int64, error)
		GetUnit(ctx context.Context, code string) (Unit, error)
		UpdateUnit(ctx context.Context, code string, u Unit) (Unit, error)
		DeleteUnit(ctx context.Context, code string) error
		CountUnitsByCourse(ctx context.Context) (map[string]int64, error)
		CountUnitsWithAssignments(ctx context.Context) (int64, error)
	}

	CourseGetter interface {
		GetByCode(ctx context.Context, code string) (course.Course, error)
	}

	Service struct {
		repo    Repository
		courses CourseGetter
		stats   core.StatsInvalidator
	}
)

func NewService(repo Repository, courses CourseGetter, stats core.StatsInvalidator) *Service {
	return &Service{repo: repo, courses: courses, stats: stats}
}

func (svc *Service) checkCode(ctx context.Context, code string) error {
	if _, err := svc.repo.GetUnit(ctx, code); err == nil {
		return ErrCodeExists
	} else if !core.IsNotFound(err) {
		return errors.Wrap(err, "checking unit code")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUnit) (Unit, error) {
	if err := svc.checkCode(ctx, nu.Code); err != nil {
		return Unit{}, err
	}
	if _, err := svc.courses.GetByCode(ctx, nu.CourseCode); err != nil {
		return Unit{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateUnit(ctx, Unit{
		Code:        nu.Code,
		Name:        nu.Name,
		Description: nu.Description,
		CourseCode:  nu.CourseCode,
		CurrentWeek: nu.CurrentWeek,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// Query lists units ordered by code.
func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Page) ([]Unit, int64, error) {
	return svc.repo.QueryUnits(ctx, &filter, page)
}

func (svc *Service) QueryByCourse(ctx context.Context, courseCode string) ([]Unit, error) {
	if _, err := svc.courses.GetByCode(ctx, courseCode); err != nil {
		return nil, err
	}
	units, _, err := svc.repo.QueryUnits(ctx, &QueryFilter{CourseCode: core.CleanCode(courseCode)}, core.Page{})
	return units, err
}

func (svc *Service) GetByCode(ctx context.Context, code string) (Unit, error) {
	return svc.repo.GetUnit(ctx, core.CleanCode(code))
}

func (svc *Service) Update(ctx context.Context, orig Unit, uu UpdateUnit) (Unit, error) {
	if uu.Code != orig.Code {
		if err := svc.checkCode(ctx, uu.Code); err != nil {
			return Unit{}, err
		}
	}
	if uu.CourseCode != orig.CourseCode {
		if _, err := svc.courses.GetByCode(ctx, uu.CourseCode); err != nil {
			return Unit{}, err
		}
	}
	u := orig
	u.Code = uu.Code
	u.Name = uu.Name
	u.Description = *uu.Description
	u.CourseCode = uu.CourseCode
	u.CurrentWeek = uu.CurrentWeek
	u.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUnit(ctx, orig.Code, u)
}

// Delete removes a unit along with the rows that depend on it.
func (svc *Service) Delete(ctx context.Context, code string) error {
	if err := svc.repo.DeleteUnit(ctx, core.CleanCode(code)); err != nil {
		return err
	}
	svc.stats.Invalidate(ctx)
	return nil
}

func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	dist, err := svc.repo.CountUnitsByCourse(ctx)
	if err != nil {
		return Stats{}, errors.Wrap(err, "counting units by course")
	}
	withAssignments, err := svc.repo.CountUnitsWithAssignments(ctx)
	if err != nil {
		return Stats{}, errors.Wrap(err, "counting units with assignments")
	}

	var total int64
	for _, n := range dist {
		total += n
	}
	return Stats{
		TotalUnits:              total,
		UnitsWithAssignments:    withAssignments,
		UnitsWithoutAssignments: total - withAssignments,
		CourseDistribution:      dist,
	}, nil
}
