package assignment

import (
	"context"
	"time"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/unit"
)

// ErrNotFound is returned when an assignment id does not exist.
var ErrNotFound = core.NewNotFoundError("assignment")

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		// QueryAssignments returns assignments ordered by deadline.
		// QueryFilter.UnitCodes, when not nil, restricts the result to those units.
		QueryAssignments(ctx context.Context, filter *QueryFilter, page core.Page) ([]Assignment, int64, error)
		GetAssignment(ctx context.Context, id string) (Assignment, error)
		UpdateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		DeleteAssignment(ctx context.Context, id string) error
		CountAssignments(ctx context.Context, filter *QueryFilter) (int64, error)
		CountSubmissions(ctx context.Context, id string) (Counts, error)
	}

	UnitGetter interface {
		GetByCode(ctx context.Context, code string) (unit.Unit, error)
	}

	Service struct {
		repo  Repository
		units UnitGetter
		stats core.StatsInvalidator
	}
)

func NewService(repo Repository, units UnitGetter, stats core.StatsInvalidator) *Service {
	return &Service{repo: repo, units: units, stats: stats}
}

func (svc *Service) Create(ctx context.Context, na NewAssignment) (Assignment, error) {
	if _, err := svc.units.GetByCode(ctx, na.UnitCode); err != nil {
		return Assignment{}, err
	}
	now := time.Now().UTC()
	a := Assignment{
		Name:        na.Name,
		UnitCode:    na.UnitCode,
		Deadline:    na.Deadline.UTC(),
		PublishedAt: now,
		Status:      na.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if na.PublishedAt != nil {
		a.PublishedAt = na.PublishedAt.UTC()
	}
	return svc.repo.CreateAssignment(ctx, a)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Page) ([]Assignment, int64, error) {
	return svc.repo.QueryAssignments(ctx, &filter, page)
}

// QueryByUnits lists every assignment of the given units.
func (svc *Service) QueryByUnits(ctx context.Context, codes ...string) ([]Assignment, error) {
	if codes == nil {
		codes = []string{}
	}
	asmts, _, err := svc.repo.QueryAssignments(ctx, &QueryFilter{UnitCodes: codes}, core.Page{})
	return asmts, err
}

func (svc *Service) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return svc.repo.CountAssignments(ctx, &filter)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Assignment, error) {
	return svc.repo.GetAssignment(ctx, id)
}

func (svc *Service) Counts(ctx context.Context, id string) (Counts, error) {
	return svc.repo.CountSubmissions(ctx, id)
}

func (svc *Service) Update(ctx context.Context, orig Assignment, ua UpdateAssignment) (Assignment, error) {
	if ua.UnitCode != orig.UnitCode {
		if _, err := svc.units.GetByCode(ctx, ua.UnitCode); err != nil {
			return Assignment{}, err
		}
	}
	a := orig
	a.Name = ua.Name
	a.UnitCode = ua.UnitCode
	a.Deadline = ua.Deadline.UTC()
	a.PublishedAt = ua.PublishedAt.UTC()
	a.Status = ua.Status
	a.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAssignment(ctx, a)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if err := svc.repo.DeleteAssignment(ctx, id); err != nil {
		return err
	}
	svc.stats.Invalidate(ctx)
	return nil
}
