package gormrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trezcool/imajine/core/progress"
)

type progressRepository struct {
	db *gorm.DB
}

var _ progress.Repository = (*progressRepository)(nil)

func NewProgressRepository(db *gorm.DB) *progressRepository {
	return &progressRepository{db: db}
}

func toProgressRow(p progress.Progress) *progressRow {
	return &progressRow{
		StudentID:     p.StudentID,
		UnitCode:      p.UnitCode,
		Week1Material: p.Week1Material,
		Week2Material: p.Week2Material,
		Week3Material: p.Week3Material,
		Week4Material: p.Week4Material,
		LastUpdated:   p.LastUpdated.UTC(),
		UpdatedBy:     p.UpdatedBy,
		CreatedAt:     p.CreatedAt.UTC(),
	}
}

func fromProgressRow(p *progressRow) progress.Progress {
	return progress.Progress{
		StudentID:     p.StudentID,
		UnitCode:      p.UnitCode,
		Week1Material: p.Week1Material,
		Week2Material: p.Week2Material,
		Week3Material: p.Week3Material,
		Week4Material: p.Week4Material,
		LastUpdated:   p.LastUpdated.UTC(),
		UpdatedBy:     p.UpdatedBy,
		CreatedAt:     p.CreatedAt.UTC(),
	}
}

func (repo progressRepository) CreateProgress(ctx context.Context, p progress.Progress) (progress.Progress, bool, error) {
	var (
		stored  progress.Progress
		created bool
	)
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(toProgressRow(p))
		if res.Error != nil {
			return errors.Wrap(res.Error, "inserting progress")
		}
		created = res.RowsAffected > 0

		var row progressRow
		if err := tx.Where("student_id = ? AND unit_code = ?", p.StudentID, p.UnitCode).Take(&row).Error; err != nil {
			return errors.Wrap(err, "finding progress")
		}
		stored = fromProgressRow(&row)
		return nil
	})
	return stored, created, err
}

func (repo progressRepository) CreateMissingProgress(ctx context.Context, unitCode string, studentIDs []string, now time.Time) (int64, error) {
	if len(studentIDs) == 0 {
		return 0, nil
	}
	rows := make([]progressRow, 0, len(studentIDs))
	for _, id := range studentIDs {
		rows = append(rows, *toProgressRow(progress.New(id, unitCode, now)))
	}
	res := repo.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "inserting missing progress")
	}
	return res.RowsAffected, nil
}

func (repo progressRepository) QueryProgress(ctx context.Context, filter *progress.QueryFilter) ([]progress.Progress, error) {
	q := repo.db.WithContext(ctx).Model(&progressRow{})
	if filter != nil {
		if filter.StudentIDs != nil {
			q = q.Where("student_id IN ?", filter.StudentIDs)
		}
		if filter.UnitCodes != nil {
			q = q.Where("unit_code IN ?", filter.UnitCodes)
		}
	}

	var rows []progressRow
	if err := q.Order("unit_code ASC").Order("student_id ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	prog := make([]progress.Progress, 0, len(rows))
	for i := range rows {
		prog = append(prog, fromProgressRow(&rows[i]))
	}
	return prog, nil
}

func (repo progressRepository) GetProgress(ctx context.Context, studentID, unitCode string) (progress.Progress, error) {
	var row progressRow
	err := repo.db.WithContext(ctx).
		Where("student_id = ? AND unit_code = ?", studentID, unitCode).
		Take(&row).Error
	if err != nil {
		return progress.Progress{}, trapErr(err, progress.ErrNotFound, nil, "finding progress")
	}
	return fromProgressRow(&row), nil
}

func (repo progressRepository) UpdateProgress(ctx context.Context, p progress.Progress) (progress.Progress, error) {
	res := repo.db.WithContext(ctx).
		Model(&progressRow{}).
		Where("student_id = ? AND unit_code = ?", p.StudentID, p.UnitCode).
		Updates(map[string]interface{}{
			"week1_material": p.Week1Material,
			"week2_material": p.Week2Material,
			"week3_material": p.Week3Material,
			"week4_material": p.Week4Material,
			"last_updated":   p.LastUpdated.UTC(),
			"updated_by":     p.UpdatedBy,
		})
	if res.Error != nil {
		return progress.Progress{}, errors.Wrap(res.Error, "updating progress")
	}
	if res.RowsAffected == 0 {
		return progress.Progress{}, progress.ErrNotFound
	}
	return p, nil
}
