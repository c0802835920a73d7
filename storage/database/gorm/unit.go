package gormrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/unit"
)

type unitRepository struct {
	db *gorm.DB
}

var _ unit.Repository = (*unitRepository)(nil)

func NewUnitRepository(db *gorm.DB) *unitRepository {
	return &unitRepository{db: db}
}

func (repo unitRepository) toRow(u unit.Unit) *unitRow {
	return &unitRow{
		ID:          u.ID,
		Code:        u.Code,
		Name:        u.Name,
		Description: u.Description,
		CourseCode:  u.CourseCode,
		CurrentWeek: u.CurrentWeek,
		CreatedAt:   u.CreatedAt.UTC(),
		UpdatedAt:   u.UpdatedAt.UTC(),
	}
}

func (repo unitRepository) fromRow(u *unitRow) unit.Unit {
	return unit.Unit{
		ID:          u.ID,
		Code:        u.Code,
		Name:        u.Name,
		Description: u.Description,
		CourseCode:  u.CourseCode,
		CurrentWeek: u.CurrentWeek,
		CreatedAt:   u.CreatedAt.UTC(),
		UpdatedAt:   u.UpdatedAt.UTC(),
	}
}

func (repo unitRepository) filtered(ctx context.Context, filter *unit.QueryFilter) *gorm.DB {
	q := repo.db.WithContext(ctx).Model(&unitRow{})
	if filter == nil {
		return q
	}
	if filter.CourseCode != "" {
		q = q.Where("course_code = ?", filter.CourseCode)
	}
	if filter.Codes != nil {
		q = q.Where("code IN ?", filter.Codes)
	}
	return q.Scopes(search(filter.Search, "code", "name", "description"))
}

func (repo unitRepository) CreateUnit(ctx context.Context, u unit.Unit) (unit.Unit, error) {
	u.ID = uuid.New().String()
	row := repo.toRow(u)
	if err := repo.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		return unit.Unit{}, trapErr(err, nil, unit.ErrCodeExists, "inserting unit")
	}
	return repo.fromRow(row), nil
}

func (repo unitRepository) QueryUnits(ctx context.Context, filter *unit.QueryFilter, page core.Page) ([]unit.Unit, int64, error) {
	var total int64
	if err := repo.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "counting units")
	}

	var rows []unitRow
	if err := repo.filtered(ctx, filter).Order("code ASC").Scopes(paginate(page)).Find(&rows).Error; err != nil {
		return nil, 0, errors.Wrap(err, "querying units")
	}
	units := make([]unit.Unit, 0, len(rows))
	for i := range rows {
		units = append(units, repo.fromRow(&rows[i]))
	}
	return units, total, nil
}

func (repo unitRepository) GetUnit(ctx context.Context, code string) (unit.Unit, error) {
	var row unitRow
	if err := repo.db.WithContext(ctx).Where("code = ?", code).Take(&row).Error; err != nil {
		return unit.Unit{}, trapErr(err, unit.ErrNotFound, nil, "finding unit")
	}
	return repo.fromRow(&row), nil
}

func (repo unitRepository) UpdateUnit(ctx context.Context, code string, u unit.Unit) (unit.Unit, error) {
	res := repo.db.WithContext(ctx).
		Model(&unitRow{}).
		Where("code = ?", code).
		Updates(map[string]interface{}{
			"code":         u.Code,
			"name":         u.Name,
			"description":  u.Description,
			"course_code":  u.CourseCode,
			"current_week": u.CurrentWeek,
			"updated_at":   u.UpdatedAt.UTC(),
		})
	if res.Error != nil {
		return unit.Unit{}, trapErr(res.Error, nil, unit.ErrCodeExists, "updating unit")
	}
	if res.RowsAffected == 0 {
		return unit.Unit{}, unit.ErrNotFound
	}
	return u, nil
}

func (repo unitRepository) DeleteUnit(ctx context.Context, code string) error {
	res := repo.db.WithContext(ctx).Where("code = ?", code).Delete(&unitRow{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting unit")
	}
	if res.RowsAffected == 0 {
		return unit.ErrNotFound
	}
	return nil
}

func (repo unitRepository) CountUnitsByCourse(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		CourseCode string
		Total      int64
	}
	err := repo.db.WithContext(ctx).
		Model(&unitRow{}).
		Select("course_code, COUNT(*) AS total").
		Group("course_code").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "counting units by course")
	}
	dist := make(map[string]int64, len(rows))
	for _, r := range rows {
		dist[r.CourseCode] = r.Total
	}
	return dist, nil
}

func (repo unitRepository) CountUnitsWithAssignments(ctx context.Context) (int64, error) {
	var cnt int64
	err := repo.db.WithContext(ctx).
		Model(&unitRow{}).
		Where("EXISTS (SELECT 1 FROM assignments a WHERE a.unit_code = units.code)").
		Count(&cnt).Error
	if err != nil {
		return 0, errors.Wrap(err, "counting units with assignments")
	}
	return cnt, nil
}
