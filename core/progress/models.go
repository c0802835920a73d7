package progress

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/unit"
)

// Week material states
const (
	Done    = "DONE"
	NotDone = "NOT_DONE"
)

var (
	materialTag  = "material"
	materialText = "{0} must be one of DONE or NOT_DONE"
)

// InitValidators registers the week material validator & its translation.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(materialTag, func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		return v == Done || v == NotDone
	})
	core.RegisterCustomTranslation(validate, translator, materialTag, materialText)
}

// Progress tracks the completion of a unit's weekly materials by a student.
// There is at most one Progress per (StudentID, UnitCode).
type Progress struct {
	StudentID     string    `json:"studentId"`
	UnitCode      string    `json:"unitCode"`
	Week1Material string    `json:"week1Material"`
	Week2Material string    `json:"week2Material"`
	Week3Material string    `json:"week3Material"`
	Week4Material string    `json:"week4Material"`
	LastUpdated   time.Time `json:"lastUpdated"`
	UpdatedBy     string    `json:"updatedBy,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func New(studentID, unitCode string, now time.Time) Progress {
	return Progress{
		StudentID:     studentID,
		UnitCode:      unitCode,
		Week1Material: NotDone,
		Week2Material: NotDone,
		Week3Material: NotDone,
		Week4Material: NotDone,
		LastUpdated:   now,
		CreatedAt:     now,
	}
}

func (p Progress) weeks() [unit.Weeks]string {
	return [unit.Weeks]string{p.Week1Material, p.Week2Material, p.Week3Material, p.Week4Material}
}

func (p Progress) CompletedWeeks() int {
	var n int
	for _, w := range p.weeks() {
		if w == Done {
			n++
		}
	}
	return n
}

// Percentage is the share of DONE weeks: one of 0, 25, 50, 75 or 100.
func (p Progress) Percentage() int {
	return core.Percent(p.CompletedWeeks(), unit.Weeks)
}

// NewProgress identifies the (student, unit) pair to start tracking.
type NewProgress struct {
	StudentID string `json:"studentId" validate:"required"`
	UnitCode  string `json:"unitCode" validate:"required,code"`
}

func (np *NewProgress) Validate(validate *validator.Validate) error {
	np.StudentID = core.CleanString(np.StudentID)
	np.UnitCode = core.CleanCode(np.UnitCode)
	return validate.Struct(np)
}

// UpdateProgress is a partial update of the week flags; nil flags are left as they are.
type UpdateProgress struct {
	Week1Material *string `json:"week1Material" validate:"omitempty,material"`
	Week2Material *string `json:"week2Material" validate:"omitempty,material"`
	Week3Material *string `json:"week3Material" validate:"omitempty,material"`
	Week4Material *string `json:"week4Material" validate:"omitempty,material"`
}

func (up *UpdateProgress) Validate(validate *validator.Validate) error {
	for _, w := range []*string{up.Week1Material, up.Week2Material, up.Week3Material, up.Week4Material} {
		if w != nil {
			*w = core.CleanCode(*w)
		}
	}
	return validate.Struct(up)
}

func (up UpdateProgress) apply(p *Progress) {
	if up.Week1Material != nil {
		p.Week1Material = *up.Week1Material
	}
	if up.Week2Material != nil {
		p.Week2Material = *up.Week2Material
	}
	if up.Week3Material != nil {
		p.Week3Material = *up.Week3Material
	}
	if up.Week4Material != nil {
		p.Week4Material = *up.Week4Material
	}
}

type QueryFilter struct {
	StudentIDs []string
	UnitCodes  []string
}

// Row is a progress record with its derived completion.
type Row struct {
	Progress
	CompletedWeeks     int `json:"completedWeeks"`
	ProgressPercentage int `json:"progressPercentage"`
}

func NewRow(p Progress) Row {
	return Row{Progress: p, CompletedWeeks: p.CompletedWeeks(), ProgressPercentage: p.Percentage()}
}

type UnitSummary struct {
	UnitCode        string `json:"unitCode"`
	Progress        []Row  `json:"progress"`
	AverageProgress int    `json:"averageProgress"`
}

// AverageProgress is the rounded mean of the progress percentages, or 0 without progress.
func AverageProgress(progress []Progress) int {
	values := make([]float64, 0, len(progress))
	for _, p := range progress {
		values = append(values, float64(p.Percentage()))
	}
	return core.RoundedMean(values)
}
