package gormrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/teacher"
)

type teacherRepository struct {
	db *gorm.DB
}

var _ teacher.Repository = (*teacherRepository)(nil)

func NewTeacherRepository(db *gorm.DB) *teacherRepository {
	return &teacherRepository{db: db}
}

func (repo teacherRepository) toRow(t teacher.Teacher) *teacherRow {
	return &teacherRow{
		ID:        t.ID,
		FirstName: t.FirstName,
		LastName:  t.LastName,
		Email:     t.Email,
		Title:     t.Title,
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
	}
}

func (repo teacherRepository) fromRow(t *teacherRow) teacher.Teacher {
	links := make([]teacher.UnitLink, 0, len(t.Units))
	for _, l := range t.Units {
		links = append(links, teacher.UnitLink{UnitCode: l.UnitCode, Role: l.Role})
	}
	return teacher.Teacher{
		ID:           t.ID,
		FirstName:    t.FirstName,
		LastName:     t.LastName,
		Email:        t.Email,
		Title:        t.Title,
		UnitsTeached: links,
		CreatedAt:    t.CreatedAt.UTC(),
		UpdatedAt:    t.UpdatedAt.UTC(),
	}
}

func (repo teacherRepository) linkRows(t teacher.Teacher) []unitTeacherRow {
	rows := make([]unitTeacherRow, 0, len(t.UnitsTeached))
	for _, l := range t.UnitsTeached {
		rows = append(rows, unitTeacherRow{TeacherID: t.ID, UnitCode: l.UnitCode, Role: l.Role, CreatedAt: t.UpdatedAt.UTC()})
	}
	return rows
}

func (repo teacherRepository) filtered(ctx context.Context, filter *teacher.QueryFilter) *gorm.DB {
	q := repo.db.WithContext(ctx).Model(&teacherRow{})
	if filter == nil {
		return q
	}
	if filter.UnitCodes != nil {
		q = q.Where("id IN (?)", repo.db.Model(&unitTeacherRow{}).Select("teacher_id").Where("unit_code IN ?", filter.UnitCodes))
	}
	if !filter.UpdatedSince.IsZero() {
		q = q.Where("updated_at >= ?", filter.UpdatedSince.UTC())
	}
	return q.Scopes(search(filter.Search, "first_name", "last_name", "email"))
}

func (repo teacherRepository) CreateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	t.ID = uuid.New().String()
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(repo.toRow(t)).Error; err != nil {
			return trapErr(err, nil, teacher.ErrEmailExists, "inserting teacher")
		}
		if links := repo.linkRows(t); len(links) > 0 {
			if err := tx.Create(&links).Error; err != nil {
				return errors.Wrap(err, "inserting teacher units")
			}
		}
		return nil
	})
	if err != nil {
		return teacher.Teacher{}, err
	}
	return t, nil
}

func (repo teacherRepository) QueryTeachers(ctx context.Context, filter *teacher.QueryFilter, page core.Page) ([]teacher.Teacher, int64, error) {
	var total int64
	if err := repo.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "counting teachers")
	}

	var rows []teacherRow
	err := repo.filtered(ctx, filter).
		Preload("Units", func(db *gorm.DB) *gorm.DB { return db.Order("unit_code ASC") }).
		Order("first_name ASC").
		Order("last_name ASC").
		Scopes(paginate(page)).
		Find(&rows).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying teachers")
	}
	teachers := make([]teacher.Teacher, 0, len(rows))
	for i := range rows {
		teachers = append(teachers, repo.fromRow(&rows[i]))
	}
	return teachers, total, nil
}

func (repo teacherRepository) CountTeachers(ctx context.Context, filter *teacher.QueryFilter) (int64, error) {
	var total int64
	if err := repo.filtered(ctx, filter).Count(&total).Error; err != nil {
		return 0, errors.Wrap(err, "counting teachers")
	}
	return total, nil
}

func (repo teacherRepository) get(ctx context.Context, notFound error, query string, args ...interface{}) (teacher.Teacher, error) {
	var row teacherRow
	err := repo.db.WithContext(ctx).
		Preload("Units", func(db *gorm.DB) *gorm.DB { return db.Order("unit_code ASC") }).
		Where(query, args...).
		Take(&row).Error
	if err != nil {
		return teacher.Teacher{}, trapErr(err, notFound, nil, "finding teacher")
	}
	return repo.fromRow(&row), nil
}

func (repo teacherRepository) GetTeacher(ctx context.Context, id string) (teacher.Teacher, error) {
	if _, err := uuid.Parse(id); err != nil {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	return repo.get(ctx, teacher.ErrNotFound, "id = ?", id)
}

func (repo teacherRepository) GetTeacherByEmail(ctx context.Context, email string) (teacher.Teacher, error) {
	return repo.get(ctx, teacher.ErrNotFound, "email = ?", email)
}

func (repo teacherRepository) UpdateTeacher(ctx context.Context, t teacher.Teacher, replaceLinks bool) (teacher.Teacher, error) {
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := repo.toRow(t)
		res := tx.Model(row).Omit(clause.Associations, "created_at").Select("*").Updates(row)
		if res.Error != nil {
			return trapErr(res.Error, nil, teacher.ErrEmailExists, "updating teacher")
		}
		if res.RowsAffected == 0 {
			return teacher.ErrNotFound
		}
		if !replaceLinks {
			return nil
		}

		if err := tx.Where("teacher_id = ?", t.ID).Delete(&unitTeacherRow{}).Error; err != nil {
			return errors.Wrap(err, "deleting teacher units")
		}
		if links := repo.linkRows(t); len(links) > 0 {
			if err := tx.Create(&links).Error; err != nil {
				return errors.Wrap(err, "inserting teacher units")
			}
		}
		return nil
	})
	if err != nil {
		return teacher.Teacher{}, err
	}
	return t, nil
}

func (repo teacherRepository) DeleteTeacher(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return teacher.ErrNotFound
	}
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("teacher_id = ?", id).Delete(&unitTeacherRow{}).Error; err != nil {
			return errors.Wrap(err, "deleting teacher units")
		}
		res := tx.Where("id = ?", id).Delete(&teacherRow{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "deleting teacher")
		}
		if res.RowsAffected == 0 {
			return teacher.ErrNotFound
		}
		return nil
	})
}
