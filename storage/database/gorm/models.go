package gormrepos

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/trezcool/imajine/core"
)

type (
	userRow struct {
		ID            string  `gorm:"primaryKey;size:36"`
		FirstName     string  `gorm:"not null"`
		LastName      string  `gorm:"not null;default:''"`
		Email         string  `gorm:"uniqueIndex;not null"`
		Role          string  `gorm:"index;not null"`
		PasswordHash  []byte  `gorm:"not null"`
		CourseCode    *string `gorm:"index;size:16"`
		Year          int
		Title         string
		AccessLevel   string
		CourseManaged string // comma separated course codes
		CreatedAt     time.Time
		UpdatedAt     time.Time

		Course      *courseRow      `gorm:"foreignKey:CourseCode;references:Code;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
		Progress    []progressRow   `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE"`
		Submissions []submissionRow `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE"`
	}

	courseRow struct {
		ID        string `gorm:"primaryKey;size:36"`
		Code      string `gorm:"uniqueIndex;size:16;not null"`
		Name      string `gorm:"not null"`
		CreatedAt time.Time
		UpdatedAt time.Time

		Units []unitRow `gorm:"foreignKey:CourseCode;references:Code;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	}

	unitRow struct {
		ID          string `gorm:"primaryKey;size:36"`
		Code        string `gorm:"uniqueIndex;size:16;not null"`
		Name        string `gorm:"not null"`
		Description string
		CourseCode  string `gorm:"index;size:16;not null"`
		CurrentWeek int    `gorm:"not null;default:1"`
		CreatedAt   time.Time
		UpdatedAt   time.Time

		Assignments  []assignmentRow  `gorm:"foreignKey:UnitCode;references:Code;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
		Progress     []progressRow    `gorm:"foreignKey:UnitCode;references:Code;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
		UnitTeachers []unitTeacherRow `gorm:"foreignKey:UnitCode;references:Code;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	}

	assignmentRow struct {
		ID          string    `gorm:"primaryKey;size:36"`
		Name        string    `gorm:"not null"`
		UnitCode    string    `gorm:"index;size:16;not null"`
		Deadline    time.Time `gorm:"index;not null"`
		PublishedAt time.Time `gorm:"not null"`
		Status      string    `gorm:"not null;default:OPEN"`
		CreatedAt   time.Time
		UpdatedAt   time.Time

		Submissions []submissionRow `gorm:"foreignKey:AssignmentID;constraint:OnDelete:CASCADE"`
	}

	progressRow struct {
		StudentID     string `gorm:"primaryKey;size:36"`
		UnitCode      string `gorm:"primaryKey;size:16"`
		Week1Material string `gorm:"column:week1_material;not null;default:NOT_DONE"`
		Week2Material string `gorm:"column:week2_material;not null;default:NOT_DONE"`
		Week3Material string `gorm:"column:week3_material;not null;default:NOT_DONE"`
		Week4Material string `gorm:"column:week4_material;not null;default:NOT_DONE"`
		LastUpdated   time.Time
		UpdatedBy     string
		CreatedAt     time.Time
	}

	submissionRow struct {
		ID               string `gorm:"primaryKey;size:36"`
		StudentID        string `gorm:"uniqueIndex:idx_student_assignment;size:36;not null"`
		AssignmentID     string `gorm:"uniqueIndex:idx_student_assignment;index;size:36;not null"`
		SubmissionStatus string `gorm:"index;not null;default:EMPTY"`
		SubmissionName   string
		SubmittedAt      *time.Time
		Grade            *float64
		Comment          string
		GradedBy         string
		GradedAt         *time.Time
		CreatedAt        time.Time
		UpdatedAt        time.Time

		Assignment *assignmentRow `gorm:"foreignKey:AssignmentID"`
	}

	teacherRow struct {
		ID        string `gorm:"primaryKey;size:36"`
		FirstName string `gorm:"not null"`
		LastName  string `gorm:"not null;default:''"`
		Email     string `gorm:"uniqueIndex;not null"`
		Title     string
		CreatedAt time.Time
		UpdatedAt time.Time `gorm:"index"`

		Units []unitTeacherRow `gorm:"foreignKey:TeacherID;constraint:OnDelete:CASCADE"`
	}

	unitTeacherRow struct {
		TeacherID string `gorm:"primaryKey;size:36"`
		UnitCode  string `gorm:"primaryKey;size:16"`
		Role      string `gorm:"not null;default:LECTURER"`
		CreatedAt time.Time
	}
)

func (userRow) TableName() string        { return "users" }
func (courseRow) TableName() string      { return "courses" }
func (unitRow) TableName() string        { return "units" }
func (assignmentRow) TableName() string  { return "assignments" }
func (progressRow) TableName() string    { return "student_progress" }
func (submissionRow) TableName() string  { return "student_assignments" }
func (teacherRow) TableName() string     { return "teachers" }
func (unitTeacherRow) TableName() string { return "unit_teachers" }

// AutoMigrate creates or updates the tables, indexes and foreign keys of every model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&courseRow{},
		&userRow{},
		&unitRow{},
		&assignmentRow{},
		&progressRow{},
		&submissionRow{},
		&teacherRow{},
		&unitTeacherRow{},
	)
}

// trapErr maps gorm errors to domain errors.
func trapErr(err error, notFound error, conflict error, msg string) error {
	switch {
	case err == nil:
		return nil
	case notFound != nil && errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case conflict != nil && errors.Is(err, gorm.ErrDuplicatedKey):
		return conflict
	}
	return errors.Wrap(err, msg)
}

func paginate(page core.Page) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page.IsZero() {
			return db
		}
		return db.Offset(page.Offset()).Limit(page.Limit)
	}
}

// search does a case-insensitive match of keyword on any of columns.
func search(keyword string, columns ...string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if keyword == "" {
			return db
		}
		val := "%" + strings.ToLower(keyword) + "%"
		conds := make([]string, 0, len(columns))
		args := make([]interface{}, 0, len(columns))
		for _, col := range columns {
			conds = append(conds, "LOWER("+col+") LIKE ?")
			args = append(args, val)
		}
		return db.Where(strings.Join(conds, " OR "), args...)
	}
}

func orderBy(ordering []core.DBOrdering) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, ord := range ordering {
			db = db.Order(ord.String())
		}
		return db
	}
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func splitCodes(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
