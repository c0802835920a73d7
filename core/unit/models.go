package unit

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/imajine/core"
)

// Weeks is the number of weekly materials a unit is made of.
const Weeks = 4

type Unit struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CourseCode  string    `json:"courseCode"`
	CurrentWeek int       `json:"currentWeek"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type NewUnit struct {
	Code        string `json:"code" validate:"required,max=16,code"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description"`
	CourseCode  string `json:"courseCode" validate:"required,code"`
	CurrentWeek int    `json:"currentWeek" validate:"min=1,max=52"`
}

func (nu *NewUnit) Validate(validate *validator.Validate) error {
	nu.Code = core.CleanCode(nu.Code)
	nu.Name = core.CleanString(nu.Name)
	nu.Description = core.CleanString(nu.Description)
	nu.CourseCode = core.CleanCode(nu.CourseCode)
	if nu.CurrentWeek == 0 {
		nu.CurrentWeek = 1
	}
	return validate.Struct(nu)
}

type UpdateUnit struct {
	Code        string  `json:"code" validate:"omitempty,max=16,code"`
	Name        string  `json:"name" validate:"omitempty,max=200"`
	Description *string `json:"description"`
	CourseCode  string  `json:"courseCode" validate:"omitempty,code"`
	CurrentWeek int     `json:"currentWeek" validate:"min=1,max=52"`
}

func (uu *UpdateUnit) Validate(orig Unit, validate *validator.Validate) error {
	if code := core.CleanCode(uu.Code); code != "" {
		uu.Code = code
	} else {
		uu.Code = orig.Code
	}
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = orig.Name
	}
	if uu.Description != nil {
		desc := core.CleanString(*uu.Description)
		uu.Description = &desc
	} else {
		uu.Description = &orig.Description
	}
	if cc := core.CleanCode(uu.CourseCode); cc != "" {
		uu.CourseCode = cc
	} else {
		uu.CourseCode = orig.CourseCode
	}
	if uu.CurrentWeek == 0 {
		uu.CurrentWeek = orig.CurrentWeek
	}
	return validate.Struct(uu)
}

type QueryFilter struct {
	CourseCode string   `query:"courseCode"`
	Search     string   `query:"search"`
	Codes      []string `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.CourseCode = core.CleanCode(qf.CourseCode)
	qf.Search = core.CleanString(qf.Search)
}

// Stats summarises the unit catalogue.
type Stats struct {
	TotalUnits              int64            `json:"totalUnits"`
	UnitsWithAssignments    int64            `json:"unitsWithAssignments"`
	UnitsWithoutAssignments int64            `json:"unitsWithoutAssignments"`
	CourseDistribution      map[string]int64 `json:"courseDistribution"`
}
