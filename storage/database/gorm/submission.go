package gormrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trezcool/imajine/core/submission"
)

type submissionRepository struct {
	db *gorm.DB
}

var _ submission.Repository = (*submissionRepository)(nil)

func NewSubmissionRepository(db *gorm.DB) *submissionRepository {
	return &submissionRepository{db: db}
}

func (repo submissionRepository) toRow(s submission.Submission) *submissionRow {
	return &submissionRow{
		ID:               s.ID,
		StudentID:        s.StudentID,
		AssignmentID:     s.AssignmentID,
		SubmissionStatus: s.SubmissionStatus,
		SubmissionName:   s.SubmissionName,
		SubmittedAt:      s.SubmittedAt,
		Grade:            s.Grade,
		Comment:          s.Comment,
		GradedBy:         s.GradedBy,
		GradedAt:         s.GradedAt,
		CreatedAt:        s.CreatedAt.UTC(),
		UpdatedAt:        s.UpdatedAt.UTC(),
	}
}

func (repo submissionRepository) fromRow(s *submissionRow) submission.Submission {
	sub := submission.Submission{
		ID:               s.ID,
		StudentID:        s.StudentID,
		AssignmentID:     s.AssignmentID,
		SubmissionStatus: s.SubmissionStatus,
		SubmissionName:   s.SubmissionName,
		SubmittedAt:      s.SubmittedAt,
		Grade:            s.Grade,
		Comment:          s.Comment,
		GradedBy:         s.GradedBy,
		GradedAt:         s.GradedAt,
		CreatedAt:        s.CreatedAt.UTC(),
		UpdatedAt:        s.UpdatedAt.UTC(),
	}
	if s.Assignment != nil {
		a := fromAssignmentRow(s.Assignment)
		sub.Assignment = &a
	}
	return sub
}

func (repo submissionRepository) CreateSubmission(ctx context.Context, s submission.Submission) (submission.Submission, error) {
	s.ID = uuid.New().String()
	row := repo.toRow(s)
	if err := repo.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		return submission.Submission{}, trapErr(err, nil, submission.ErrExists, "inserting submission")
	}
	return repo.fromRow(row), nil
}

func (repo submissionRepository) QuerySubmissions(ctx context.Context, filter *submission.QueryFilter) ([]submission.Submission, error) {
	q := repo.db.WithContext(ctx).
		Model(&submissionRow{}).
		Joins("JOIN assignments ON assignments.id = student_assignments.assignment_id").
		Preload("Assignment")
	if filter != nil {
		if filter.StudentIDs != nil {
			q = q.Where("student_assignments.student_id IN ?", filter.StudentIDs)
		}
		if filter.AssignmentIDs != nil {
			q = q.Where("student_assignments.assignment_id IN ?", filter.AssignmentIDs)
		}
		if filter.UnitCodes != nil {
			q = q.Where("assignments.unit_code IN ?", filter.UnitCodes)
		}
		if filter.Status != "" {
			q = q.Where("student_assignments.submission_status = ?", filter.Status)
		}
	}

	var rows []submissionRow
	err := q.Order("assignments.deadline ASC").
		Order("student_assignments.created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]submission.Submission, 0, len(rows))
	for i := range rows {
		subs = append(subs, repo.fromRow(&rows[i]))
	}
	return subs, nil
}

func (repo submissionRepository) GetSubmission(ctx context.Context, id string) (submission.Submission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return submission.Submission{}, submission.ErrNotFound
	}
	var row submissionRow
	if err := repo.db.WithContext(ctx).Preload("Assignment").Where("id = ?", id).Take(&row).Error; err != nil {
		return submission.Submission{}, trapErr(err, submission.ErrNotFound, nil, "finding submission")
	}
	return repo.fromRow(&row), nil
}

func (repo submissionRepository) UpdateSubmission(ctx context.Context, s submission.Submission) (submission.Submission, error) {
	row := repo.toRow(s)
	res := repo.db.WithContext(ctx).
		Model(row).
		Omit(clause.Associations, "created_at", "student_id", "assignment_id").
		Select("*").
		Updates(row)
	if res.Error != nil {
		return submission.Submission{}, errors.Wrap(res.Error, "updating submission")
	}
	if res.RowsAffected == 0 {
		return submission.Submission{}, submission.ErrNotFound
	}
	return s, nil
}
