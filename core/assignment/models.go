package assignment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/imajine/core"
)

// Statuses
const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

type Assignment struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	UnitCode    string    `json:"unitCode"`
	Deadline    time.Time `json:"deadline"`
	PublishedAt time.Time `json:"publishedAt"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (a Assignment) IsOpen() bool { return a.Status == StatusOpen }

// Counts summarises the submissions of an assignment.
type Counts struct {
	TotalSubmissions int64 `json:"totalSubmissions"`
	SubmittedCount   int64 `json:"submittedCount"`
	GradedCount      int64 `json:"gradedCount"`
}

type NewAssignment struct {
	Name        string     `json:"name" validate:"required,max=200"`
	UnitCode    string     `json:"unitCode" validate:"required,code"`
	Deadline    time.Time  `json:"deadline" validate:"required"`
	PublishedAt *time.Time `json:"publishedAt"`
	Status      string     `json:"status" validate:"oneof=OPEN CLOSED"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Name = core.CleanString(na.Name)
	na.UnitCode = core.CleanCode(na.UnitCode)
	if na.Status = core.CleanCode(na.Status); na.Status == "" {
		na.Status = StatusOpen
	}
	return validate.Struct(na)
}

type UpdateAssignment struct {
	Name        string     `json:"name" validate:"omitempty,max=200"`
	UnitCode    string     `json:"unitCode" validate:"omitempty,code"`
	Deadline    *time.Time `json:"deadline"`
	PublishedAt *time.Time `json:"publishedAt"`
	Status      string     `json:"status" validate:"omitempty,oneof=OPEN CLOSED"`
}

func (ua *UpdateAssignment) Validate(orig Assignment, validate *validator.Validate) error {
	if name := core.CleanString(ua.Name); name != "" {
		ua.Name = name
	} else {
		ua.Name = orig.Name
	}
	if code := core.CleanCode(ua.UnitCode); code != "" {
		ua.UnitCode = code
	} else {
		ua.UnitCode = orig.UnitCode
	}
	if ua.Deadline == nil {
		ua.Deadline = &orig.Deadline
	}
	if ua.PublishedAt == nil {
		ua.PublishedAt = &orig.PublishedAt
	}
	if status := core.CleanCode(ua.Status); status != "" {
		ua.Status = status
	} else {
		ua.Status = orig.Status
	}
	return validate.Struct(ua)
}

type QueryFilter struct {
	ID        string   `query:"id"`
	UnitCode  string   `query:"unitCode"`
	Status    string   `query:"status"`
	UnitCodes []string `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.ID = core.CleanString(qf.ID)
	qf.UnitCode = core.CleanCode(qf.UnitCode)
	qf.Status = core.CleanCode(qf.Status)
}
