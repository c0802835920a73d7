package user

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/imajine/core"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("user")
	ErrStudentNotFound = core.NewNotFoundError("student")
	ErrEmailExists     = core.NewConflictError("a user with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.FirstName, User.LastName or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, page core.Page, ordering []core.DBOrdering) ([]User, int64, error)
		CountUsers(ctx context.Context, filter *QueryFilter) (int64, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		// DeleteUsersByID deletes users along with their progress and submission rows.
		DeleteUsersByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo  Repository
		stats core.StatsInvalidator
	}
)

var defaultOrdering = []core.DBOrdering{{Field: "first_name", Ascending: true}, {Field: "last_name", Ascending: true}}

func NewService(repo Repository, stats core.StatsInvalidator) *Service {
	return &Service{repo: repo, stats: stats}
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := svc.repo.CheckEmailUniqueness(ctx, nu.Email); err != nil {
		return User{}, err
	}
	now := time.Now().UTC()
	usr := User{
		ID:            nu.ID,
		FirstName:     nu.FirstName,
		LastName:      nu.LastName,
		Email:         nu.Email,
		Role:          nu.Role,
		CourseCode:    nu.CourseCode,
		Year:          nu.Year,
		Title:         nu.Title,
		AccessLevel:   nu.AccessLevel,
		CourseManaged: nu.CourseManaged,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if usr.IsStudent() && usr.Year == 0 {
		usr.Year = 1
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}
	svc.stats.Invalidate(ctx)
	return usr, nil
}

// Save updates or creates usr as is (admin CLI).
func (svc *Service) Save(ctx context.Context, usr User) (User, error) {
	usr.UpdatedAt = time.Now().UTC()
	if usr.ID != "" {
		if _, err := svc.repo.GetUser(ctx, GetFilter{ID: usr.ID}); err == nil {
			// the role or course may have changed
			if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
				return User{}, err
			}
			svc.stats.Invalidate(ctx)
			return usr, nil
		} else if errors.Cause(err) != ErrNotFound {
			return User{}, err
		}
	}
	if err := svc.repo.CheckEmailUniqueness(ctx, usr.Email); err != nil {
		return User{}, err
	}
	usr.CreatedAt = usr.UpdatedAt
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}
	svc.stats.Invalidate(ctx)
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

// GetByEmailAndRole finds the user an email + login user type refer to.
func (svc *Service) GetByEmailAndRole(ctx context.Context, email, role string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */), Role: role})
}

// GetStudent finds a user by ID and checks they are a student.
func (svc *Service) GetStudent(ctx context.Context, id string) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id, Role: RoleStudent})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrStudentNotFound
		}
		return User{}, err
	}
	return usr, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, page core.Page) ([]User, int64, error) {
	return svc.repo.QueryUsers(ctx, filter, page, defaultOrdering)
}

// QueryStudents lists students, optionally restricted to a course or a search keyword.
func (svc *Service) QueryStudents(ctx context.Context, filter QueryFilter, page core.Page) ([]User, int64, error) {
	filter.Role = RoleStudent
	return svc.repo.QueryUsers(ctx, &filter, page, defaultOrdering)
}

func (svc *Service) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return svc.repo.CountUsers(ctx, &filter)
}

func (svc *Service) UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error) {
	if up.Email != usr.Email {
		if err := svc.repo.CheckEmailUniqueness(ctx, up.Email, usr); err != nil {
			return User{}, err
		}
	}
	usr.FirstName = up.FirstName
	usr.LastName = up.LastName
	usr.Email = up.Email
	usr.Title = up.Title
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// Delete removes users along with their progress and submissions.
func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	if err := svc.repo.DeleteUsersByID(ctx, ids...); err != nil {
		return err
	}
	svc.stats.Invalidate(ctx)
	return nil
}
