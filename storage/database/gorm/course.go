package gormrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trezcool/imajine/core/course"
)

type courseRepository struct {
	db *gorm.DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *gorm.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) toRow(c course.Course) *courseRow {
	return &courseRow{
		ID:        c.ID,
		Code:      c.Code,
		Name:      c.Name,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}

func (repo courseRepository) fromRow(c *courseRow) course.Course {
	return course.Course{
		ID:        c.ID,
		Code:      c.Code,
		Name:      c.Name,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	c.ID = uuid.New().String()
	row := repo.toRow(c)
	if err := repo.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		return course.Course{}, trapErr(err, nil, course.ErrCodeExists, "inserting course")
	}
	return repo.fromRow(row), nil
}

func (repo courseRepository) QueryCourses(ctx context.Context) ([]course.Course, error) {
	var rows []courseRow
	if err := repo.db.WithContext(ctx).Order("code ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for i := range rows {
		courses = append(courses, repo.fromRow(&rows[i]))
	}
	return courses, nil
}

func (repo courseRepository) CountCourses(ctx context.Context) (int64, error) {
	var cnt int64
	if err := repo.db.WithContext(ctx).Model(&courseRow{}).Count(&cnt).Error; err != nil {
		return 0, errors.Wrap(err, "counting courses")
	}
	return cnt, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, code string) (course.Course, error) {
	var row courseRow
	if err := repo.db.WithContext(ctx).Where("code = ?", code).Take(&row).Error; err != nil {
		return course.Course{}, trapErr(err, course.ErrNotFound, nil, "finding course")
	}
	return repo.fromRow(&row), nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, code string, c course.Course) (course.Course, error) {
	res := repo.db.WithContext(ctx).
		Model(&courseRow{}).
		Where("code = ?", code).
		Updates(map[string]interface{}{"code": c.Code, "name": c.Name, "updated_at": c.UpdatedAt.UTC()})
	if res.Error != nil {
		return course.Course{}, trapErr(res.Error, nil, course.ErrCodeExists, "updating course")
	}
	if res.RowsAffected == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, code string) error {
	res := repo.db.WithContext(ctx).Where("code = ?", code).Delete(&courseRow{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting course")
	}
	if res.RowsAffected == 0 {
		return course.ErrNotFound
	}
	return nil
}
