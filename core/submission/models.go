package submission

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/assignment"
)

// Submission statuses
const (
	StatusEmpty       = "EMPTY"
	StatusDraft       = "DRAFT"
	StatusSubmitted   = "SUBMITTED"
	StatusUnsubmitted = "UNSUBMITTED"

	// grades under PassingGrade are failures
	PassingGrade = 60
)

var (
	statusTag  = "substatus"
	statusText = "{0} must be one of EMPTY, DRAFT, SUBMITTED or UNSUBMITTED"
)

// InitValidators registers the submission status validator & its translation.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case StatusEmpty, StatusDraft, StatusSubmitted, StatusUnsubmitted:
			return true
		}
		return false
	})
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}

// Submission is a student's deliverable for an assignment, unique per (StudentID, AssignmentID).
type Submission struct {
	ID               string     `json:"submissionId"`
	StudentID        string     `json:"studentId"`
	AssignmentID     string     `json:"assignmentId"`
	SubmissionStatus string     `json:"submissionStatus"`
	SubmissionName   string     `json:"submissionName"`
	SubmittedAt      *time.Time `json:"submittedAt"`
	Grade            *float64   `json:"grade"`
	Comment          string     `json:"comment"`
	GradedBy         string     `json:"gradedBy,omitempty"`
	GradedAt         *time.Time `json:"gradedAt"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`

	// loaded by the repository on queries
	Assignment *assignment.Assignment `json:"assignment,omitempty"`
}

func (s Submission) IsSubmitted() bool { return s.SubmissionStatus == StatusSubmitted }
func (s Submission) IsGraded() bool    { return s.Grade != nil }
func (s Submission) IsFailed() bool    { return s.Grade != nil && *s.Grade < PassingGrade }

type NewSubmission struct {
	AssignmentID     string `json:"assignmentId" validate:"required"`
	SubmissionStatus string `json:"submissionStatus" validate:"substatus"`
	SubmissionName   string `json:"submissionName"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.AssignmentID = core.CleanString(ns.AssignmentID)
	if ns.SubmissionStatus = core.CleanCode(ns.SubmissionStatus); ns.SubmissionStatus == "" {
		ns.SubmissionStatus = StatusEmpty
	}
	ns.SubmissionName = core.CleanString(ns.SubmissionName)
	return validate.Struct(ns)
}

// UpdateStatus is what a student may change on their own submission.
type UpdateStatus struct {
	SubmissionStatus string  `json:"submissionStatus" validate:"required,substatus"`
	SubmissionName   *string `json:"submissionName"`
}

func (us *UpdateStatus) Validate(validate *validator.Validate) error {
	us.SubmissionStatus = core.CleanCode(us.SubmissionStatus)
	if us.SubmissionName != nil {
		name := core.CleanString(*us.SubmissionName)
		us.SubmissionName = &name
	}
	return validate.Struct(us)
}

type Grade struct {
	Grade   *float64 `json:"grade" validate:"required,min=0,max=100"`
	Comment string   `json:"comment"`
}

func (g *Grade) Validate(validate *validator.Validate) error {
	g.Comment = core.CleanString(g.Comment)
	return validate.Struct(g)
}

type QueryFilter struct {
	StudentIDs    []string
	AssignmentIDs []string
	UnitCodes     []string
	Status        string
}

// Metrics are the submission aggregates shared by the dashboards.
type Metrics struct {
	Total          int `json:"totalSubmissions"`
	Submitted      int `json:"submittedCount"`
	Graded         int `json:"gradedCount"`
	Failed         int `json:"failedCount"`
	SubmissionRate int `json:"submissionRate"`
	AverageGrade   int `json:"averageGrade"`
}

// ComputeMetrics derives the rates of subs. Ungraded submissions are left out of the average grade.
func ComputeMetrics(subs []Submission) Metrics {
	m := Metrics{Total: len(subs)}
	grades := make([]float64, 0, len(subs))
	for _, s := range subs {
		if s.IsSubmitted() {
			m.Submitted++
		}
		if s.IsGraded() {
			m.Graded++
			grades = append(grades, *s.Grade)
		}
		if s.IsFailed() {
			m.Failed++
		}
	}
	m.SubmissionRate = core.Percent(m.Submitted, m.Total)
	m.AverageGrade = core.RoundedMean(grades)
	return m
}

// GradeNotification is the data of the grade_notification email.
type GradeNotification struct {
	StudentName    string
	AssignmentName string
	UnitCode       string
	Grade          float64
	Comment        string
}
