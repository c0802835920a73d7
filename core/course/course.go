package course

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/imajine/core"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("course")
	ErrCodeExists = core.NewConflictError("a course with this code already exists")
)

type Course struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type NewCourse struct {
	Code string `json:"code" validate:"required,max=16,code"`
	Name string `json:"name" validate:"required,max=200"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Code = core.CleanCode(nc.Code)
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

type UpdateCourse struct {
	Code string `json:"code" validate:"omitempty,max=16,code"`
	Name string `json:"name" validate:"omitempty,max=200"`
}

func (uc *UpdateCourse) Validate(orig Course, validate *validator.Validate) error {
	if code := core.CleanCode(uc.Code); code != "" {
		uc.Code = code
	} else {
		uc.Code = orig.Code
	}
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}
	return validate.Struct(uc)
}

type Repository interface {
	CreateCourse(ctx context.Context, c Course) (Course, error)
	QueryCourses(ctx context.Context) ([]Course, error)
	CountCourses(ctx context.Context) (int64, error)
	GetCourse(ctx context.Context, code string) (Course, error)
	// UpdateCourse saves c; when the code changes, dependants follow it.
	UpdateCourse(ctx context.Context, code string, c Course) (Course, error)
	DeleteCourse(ctx context.Context, code string) error
}

type Service struct {
	repo  Repository
	stats core.StatsInvalidator
}

func NewService(repo Repository, stats core.StatsInvalidator) *Service {
	return &Service{repo: repo, stats: stats}
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	if _, err := svc.repo.GetCourse(ctx, nc.Code); err == nil {
		return Course{}, ErrCodeExists
	} else if !core.IsNotFound(err) {
		return Course{}, err
	}
	now := time.Now().UTC()
	c, err := svc.repo.CreateCourse(ctx, Course{Code: nc.Code, Name: nc.Name, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		return Course{}, err
	}
	svc.stats.Invalidate(ctx)
	return c, nil
}

// QueryAll returns every course ordered by code.
func (svc *Service) QueryAll(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryCourses(ctx)
}

func (svc *Service) Count(ctx context.Context) (int64, error) {
	return svc.repo.CountCourses(ctx)
}

func (svc *Service) GetByCode(ctx context.Context, code string) (Course, error) {
	return svc.repo.GetCourse(ctx, core.CleanCode(code))
}

func (svc *Service) Update(ctx context.Context, orig Course, uc UpdateCourse) (Course, error) {
	if uc.Code != orig.Code {
		if _, err := svc.repo.GetCourse(ctx, uc.Code); err == nil {
			return Course{}, ErrCodeExists
		} else if !core.IsNotFound(err) {
			return Course{}, err
		}
	}
	c := orig
	c.Code = uc.Code
	c.Name = uc.Name
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, orig.Code, c)
}

func (svc *Service) Delete(ctx context.Context, code string) error {
	if err := svc.repo.DeleteCourse(ctx, core.CleanCode(code)); err != nil {
		return err
	}
	svc.stats.Invalidate(ctx)
	return nil
}
