package gormrepos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/user"
)

type userRepository struct {
	db *gorm.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *gorm.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) toRow(usr user.User) *userRow {
	return &userRow{
		ID:            usr.ID,
		FirstName:     usr.FirstName,
		LastName:      usr.LastName,
		Email:         usr.Email,
		Role:          usr.Role,
		PasswordHash:  usr.PasswordHash,
		CourseCode:    nullString(usr.CourseCode),
		Year:          usr.Year,
		Title:         usr.Title,
		AccessLevel:   usr.AccessLevel,
		CourseManaged: strings.Join(usr.CourseManaged, ","),
		CreatedAt:     usr.CreatedAt.UTC(),
		UpdatedAt:     usr.UpdatedAt.UTC(),
	}
}

func (repo userRepository) fromRow(u *userRow) user.User {
	if u == nil {
		return user.User{}
	}
	usr := user.User{
		ID:            u.ID,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Email:         u.Email,
		Role:          u.Role,
		PasswordHash:  u.PasswordHash,
		Year:          u.Year,
		Title:         u.Title,
		AccessLevel:   u.AccessLevel,
		CourseManaged: splitCodes(u.CourseManaged),
		CreatedAt:     u.CreatedAt.UTC(),
		UpdatedAt:     u.UpdatedAt.UTC(),
	}
	if u.CourseCode != nil {
		usr.CourseCode = *u.CourseCode
	}
	return usr
}

func (repo userRepository) fromRows(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for i := range rows {
		users = append(users, repo.fromRow(&rows[i]))
	}
	return users
}

func (repo userRepository) filtered(ctx context.Context, filter *user.QueryFilter) *gorm.DB {
	q := repo.db.WithContext(ctx).Model(&userRow{})
	if filter == nil {
		return q
	}
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.CourseCode != "" {
		q = q.Where("course_code = ?", filter.CourseCode)
	}
	if filter.IDs != nil {
		q = q.Where("id IN ?", filter.IDs)
	}
	return q.Scopes(search(filter.Search, "first_name", "last_name", "email"))
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	q := repo.db.WithContext(ctx).Model(&userRow{}).Where("email = ?", email)
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		q = q.Where("id NOT IN ?", ids)
	}

	var cnt int64
	if err := q.Count(&cnt).Error; err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if cnt > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	u := repo.toRow(usr)
	if err := repo.db.WithContext(ctx).Omit(clause.Associations).Create(u).Error; err != nil {
		return user.User{}, trapErr(err, nil, user.ErrEmailExists, "inserting user")
	}
	return repo.fromRow(u), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, page core.Page, ordering []core.DBOrdering) ([]user.User, int64, error) {
	var total int64
	if err := repo.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "counting users")
	}

	var rows []userRow
	err := repo.filtered(ctx, filter).
		Scopes(orderBy(ordering), paginate(page)).
		Find(&rows).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying users")
	}
	return repo.fromRows(rows), total, nil
}

func (repo userRepository) CountUsers(ctx context.Context, filter *user.QueryFilter) (int64, error) {
	var total int64
	if err := repo.filtered(ctx, filter).Count(&total).Error; err != nil {
		return 0, errors.Wrap(err, "counting users")
	}
	return total, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	q := repo.db.WithContext(ctx)
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		q = q.Where("id = ?", filter.ID)
	case filter.Email != "":
		q = q.Where("email = ?", filter.Email)
	default:
		return user.User{}, user.ErrNotFound
	}
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}

	var u userRow
	if err := q.Take(&u).Error; err != nil {
		return user.User{}, trapErr(err, user.ErrNotFound, nil, "finding user")
	}
	return repo.fromRow(&u), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	u := repo.toRow(usr)
	err := repo.db.WithContext(ctx).
		Model(u).
		Omit(clause.Associations, "created_at").
		Select("*").
		Updates(u).Error
	if err != nil {
		return user.User{}, trapErr(err, nil, user.ErrEmailExists, "updating user")
	}
	return repo.fromRow(u), nil
}

// DeleteUsersByID removes the users with their progress and submissions in one transaction.
func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("student_id IN ?", ids).Delete(&progressRow{}).Error; err != nil {
			return errors.Wrap(err, "deleting progress")
		}
		if err := tx.Where("student_id IN ?", ids).Delete(&submissionRow{}).Error; err != nil {
			return errors.Wrap(err, "deleting submissions")
		}
		if err := tx.Where("id IN ?", ids).Delete(&userRow{}).Error; err != nil {
			return errors.Wrap(err, "deleting users")
		}
		return nil
	})
}
