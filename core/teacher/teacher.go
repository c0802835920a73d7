package teacher

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/unit"
)

const (
	DefaultUnitRole = "LECTURER"

	// a teacher updated within this window counts as active
	activeWindow = 30 * 24 * time.Hour
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("teacher")
	ErrEmailExists = core.NewConflictError("a teacher with this email already exists")

	// NowFunc is mockable in tests.
	NowFunc = func() time.Time { return time.Now().UTC() }
)

// UnitLink is a row of the teacher-unit join table.
type UnitLink struct {
	UnitCode string `json:"unitCode" validate:"required,code"`
	Role     string `json:"role"`
}

type Teacher struct {
	ID           string     `json:"id"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email"`
	Title        string     `json:"title"`
	UnitsTeached []UnitLink `json:"unitsTeached"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type NewTeacher struct {
	FirstName    string     `json:"firstName" validate:"required"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email" validate:"required,email"`
	Title        string     `json:"title"`
	UnitsTeached []UnitLink `json:"unitsTeached" validate:"omitempty,dive"`
}

func cleanLinks(links []UnitLink) []UnitLink {
	seen := make(map[string]bool, len(links))
	cleaned := make([]UnitLink, 0, len(links))
	for _, link := range links {
		link.UnitCode = core.CleanCode(link.UnitCode)
		if link.Role = core.CleanCode(link.Role); link.Role == "" {
			link.Role = DefaultUnitRole
		}
		if seen[link.UnitCode] {
			continue
		}
		seen[link.UnitCode] = true
		cleaned = append(cleaned, link)
	}
	return cleaned
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.FirstName = core.CleanString(nt.FirstName)
	nt.LastName = core.CleanString(nt.LastName)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	nt.Title = core.CleanString(nt.Title)
	nt.UnitsTeached = cleanLinks(nt.UnitsTeached)
	return validate.Struct(nt)
}

// UpdateTeacher replaces the unit links only when UnitsTeached is provided.
type UpdateTeacher struct {
	FirstName    string      `json:"firstName"`
	LastName     string      `json:"lastName"`
	Email        string      `json:"email" validate:"omitempty,email"`
	Title        string      `json:"title"`
	UnitsTeached *[]UnitLink `json:"unitsTeached" validate:"omitempty,dive"`
}

func (ut *UpdateTeacher) Validate(orig Teacher, validate *validator.Validate) error {
	if name := core.CleanString(ut.FirstName); name != "" {
		ut.FirstName = name
	} else {
		ut.FirstName = orig.FirstName
	}
	if name := core.CleanString(ut.LastName); name != "" {
		ut.LastName = name
	} else {
		ut.LastName = orig.LastName
	}
	if email := core.CleanString(ut.Email, true /* lower */); email != "" {
		ut.Email = email
	} else {
		ut.Email = orig.Email
	}
	if title := core.CleanString(ut.Title); title != "" {
		ut.Title = title
	} else {
		ut.Title = orig.Title
	}
	if ut.UnitsTeached != nil {
		links := cleanLinks(*ut.UnitsTeached)
		ut.UnitsTeached = &links
	}
	return validate.Struct(ut)
}

type QueryFilter struct {
	Search       string    `query:"search"`
	UnitCodes    []string  `query:"-"`
	UpdatedSince time.Time `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

type Stats struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
}

type (
	Repository interface {
		// CreateTeacher inserts the teacher and its unit links in one transaction.
		CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		// QueryTeachers returns teachers ordered by first name, with their unit links.
		QueryTeachers(ctx context.Context, filter *QueryFilter, page core.Page) ([]Teacher, int64, error)
		CountTeachers(ctx context.Context, filter *QueryFilter) (int64, error)
		GetTeacher(ctx context.Context, id string) (Teacher, error)
		GetTeacherByEmail(ctx context.Context, email string) (Teacher, error)
		// UpdateTeacher saves t; its unit links are replaced when replaceLinks is set.
		UpdateTeacher(ctx context.Context, t Teacher, replaceLinks bool) (Teacher, error)
		DeleteTeacher(ctx context.Context, id string) error
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

func (svc *Service) checkEmail(ctx context.Context, email string) error {
	if _, err := svc.repo.GetTeacherByEmail(ctx, email); err == nil {
		return ErrEmailExists
	} else if !core.IsNotFound(err) {
		return errors.Wrap(err, "checking teacher email")
	}
	return nil
}

func (svc *Service) checkUnits(ctx context.Context, links []UnitLink) error {
	for _, link := range links {
		if _, err := svc.units.GetByCode(ctx, link.UnitCode); err != nil {
			return err
		}
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nt NewTeacher) (Teacher, error) {
	if err := svc.checkEmail(ctx, nt.Email); err != nil {
		return Teacher{}, err
	}
	if err := svc.checkUnits(ctx, nt.UnitsTeached); err != nil {
		return Teacher{}, err
	}
	now := NowFunc()
	t, err := svc.repo.CreateTeacher(ctx, Teacher{
		FirstName:    nt.FirstName,
		LastName:     nt.LastName,
		Email:        nt.Email,
		Title:        nt.Title,
		UnitsTeached: nt.UnitsTeached,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return Teacher{}, err
	}
	svc.stats.Invalidate(ctx)
	return t, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Page) ([]Teacher, int64, error) {
	return svc.repo.QueryTeachers(ctx, &filter, page)
}

// QueryByUnits lists the teachers linked to any of the given units.
func (svc *Service) QueryByUnits(ctx context.Context, codes ...string) ([]Teacher, error) {
	if codes == nil {
		codes = []string{}
	}
	teachers, _, err := svc.repo.QueryTeachers(ctx, &QueryFilter{UnitCodes: codes}, core.Page{})
	return teachers, err
}

func (svc *Service) Count(ctx context.Context) (int64, error) {
	return svc.repo.CountTeachers(ctx, &QueryFilter{})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, id)
}

func (svc *Service) Update(ctx context.Context, orig Teacher, ut UpdateTeacher) (Teacher, error) {
	if ut.Email != orig.Email {
		if err := svc.checkEmail(ctx, ut.Email); err != nil {
			return Teacher{}, err
		}
	}
	t := orig
	t.FirstName = ut.FirstName
	t.LastName = ut.LastName
	t.Email = ut.Email
	t.Title = ut.Title
	t.UpdatedAt = NowFunc()
	if ut.UnitsTeached != nil {
		if err := svc.checkUnits(ctx, *ut.UnitsTeached); err != nil {
			return Teacher{}, err
		}
		t.UnitsTeached = *ut.UnitsTeached
	}
	return svc.repo.UpdateTeacher(ctx, t, ut.UnitsTeached != nil)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if err := svc.repo.DeleteTeacher(ctx, id); err != nil {
		return err
	}
	svc.stats.Invalidate(ctx)
	return nil
}

// Stats counts the teachers updated within the last 30 days as active.
func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	total, err := svc.repo.CountTeachers(ctx, &QueryFilter{})
	if err != nil {
		return Stats{}, err
	}
	active, err := svc.repo.CountTeachers(ctx, &QueryFilter{UpdatedSince: NowFunc().Add(-activeWindow)})
	if err != nil {
		return Stats{}, err
	}
	return Stats{Total: total, Active: active, Inactive: total - active}, nil
}
