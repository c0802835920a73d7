package gormrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/assignment"
	"github.com/trezcool/imajine/core/submission"
)

type assignmentRepository struct {
	db *gorm.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db *gorm.DB) *assignmentRepository {
	return &assignmentRepository{db: db}
}

func toAssignmentRow(a assignment.Assignment) *assignmentRow {
	return &assignmentRow{
		ID:          a.ID,
		Name:        a.Name,
		UnitCode:    a.UnitCode,
		Deadline:    a.Deadline.UTC(),
		PublishedAt: a.PublishedAt.UTC(),
		Status:      a.Status,
		CreatedAt:   a.CreatedAt.UTC(),
		UpdatedAt:   a.UpdatedAt.UTC(),
	}
}

func fromAssignmentRow(a *assignmentRow) assignment.Assignment {
	return assignment.Assignment{
		ID:          a.ID,
		Name:        a.Name,
		UnitCode:    a.UnitCode,
		Deadline:    a.Deadline.UTC(),
		PublishedAt: a.PublishedAt.UTC(),
		Status:      a.Status,
		CreatedAt:   a.CreatedAt.UTC(),
		UpdatedAt:   a.UpdatedAt.UTC(),
	}
}

func (repo assignmentRepository) filtered(ctx context.Context, filter *assignment.QueryFilter) *gorm.DB {
	q := repo.db.WithContext(ctx).Model(&assignmentRow{})
	if filter == nil {
		return q
	}
	if filter.ID != "" {
		q = q.Where("id = ?", filter.ID)
	}
	if filter.UnitCode != "" {
		q = q.Where("unit_code = ?", filter.UnitCode)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.UnitCodes != nil {
		q = q.Where("unit_code IN ?", filter.UnitCodes)
	}
	return q
}

func (repo assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	a.ID = uuid.New().String()
	row := toAssignmentRow(a)
	if err := repo.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return fromAssignmentRow(row), nil
}

func (repo assignmentRepository) QueryAssignments(ctx context.Context, filter *assignment.QueryFilter, page core.Page) ([]assignment.Assignment, int64, error) {
	var total int64
	if err := repo.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "counting assignments")
	}

	var rows []assignmentRow
	err := repo.filtered(ctx, filter).
		Order("deadline ASC").
		Order("name ASC").
		Scopes(paginate(page)).
		Find(&rows).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying assignments")
	}
	asmts := make([]assignment.Assignment, 0, len(rows))
	for i := range rows {
		asmts = append(asmts, fromAssignmentRow(&rows[i]))
	}
	return asmts, total, nil
}

func (repo assignmentRepository) GetAssignment(ctx context.Context, id string) (assignment.Assignment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	var row assignmentRow
	if err := repo.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return assignment.Assignment{}, trapErr(err, assignment.ErrNotFound, nil, "finding assignment")
	}
	return fromAssignmentRow(&row), nil
}

func (repo assignmentRepository) UpdateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	row := toAssignmentRow(a)
	res := repo.db.WithContext(ctx).
		Model(row).
		Omit(clause.Associations, "created_at").
		Select("*").
		Updates(row)
	if res.Error != nil {
		return assignment.Assignment{}, errors.Wrap(res.Error, "updating assignment")
	}
	if res.RowsAffected == 0 {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	return fromAssignmentRow(row), nil
}

func (repo assignmentRepository) DeleteAssignment(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return assignment.ErrNotFound
	}
	res := repo.db.WithContext(ctx).Where("id = ?", id).Delete(&assignmentRow{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting assignment")
	}
	if res.RowsAffected == 0 {
		return assignment.ErrNotFound
	}
	return nil
}

func (repo assignmentRepository) CountAssignments(ctx context.Context, filter *assignment.QueryFilter) (int64, error) {
	var total int64
	if err := repo.filtered(ctx, filter).Count(&total).Error; err != nil {
		return 0, errors.Wrap(err, "counting assignments")
	}
	return total, nil
}

func (repo assignmentRepository) CountSubmissions(ctx context.Context, id string) (assignment.Counts, error) {
	var counts assignment.Counts
	err := repo.db.WithContext(ctx).
		Model(&submissionRow{}).
		Select(
			"COUNT(*) AS total_submissions, "+
				"COALESCE(SUM(CASE WHEN submission_status = ? THEN 1 ELSE 0 END), 0) AS submitted_count, "+
				"COALESCE(SUM(CASE WHEN grade IS NOT NULL THEN 1 ELSE 0 END), 0) AS graded_count",
			submission.StatusSubmitted,
		).
		Where("assignment_id = ?", id).
		Scan(&counts).Error
	if err != nil {
		return assignment.Counts{}, errors.Wrap(err, "counting submissions")
	}
	return counts, nil
}
