package analytics

import (
	"github.com/trezcool/imajine/core/progress"
	"github.com/trezcool/imajine/core/submission"
	"github.com/trezcool/imajine/core/user"
)

// Overview is the coordinator dashboard.
type Overview struct {
	StudentCount   int64 `json:"studentCount"`
	TeacherCount   int64 `json:"teacherCount"`
	CourseCount    int64 `json:"courseCount"`
	AvgProgress    int   `json:"avgProgress"`
	AvgGrade       int   `json:"avgGrade"`
	SubmissionRate int   `json:"submissionRate"`
}

// ScopeMetrics are the metrics of a course or a unit.
type ScopeMetrics struct {
	StudentCount      int64 `json:"studentCount"`
	TeacherCount      int64 `json:"teacherCount"`
	AssignmentCount   int64 `json:"assignmentCount"`
	AvgProgress       int   `json:"avgProgress"`
	AvgGrade          int   `json:"avgGrade"`
	SubmissionRate    int   `json:"submissionRate"`
	FailedAssignments int   `json:"failedAssignments"`
}

type StudentMetrics struct {
	TotalAssignments     int `json:"totalAssignments"`
	SubmittedAssignments int `json:"submittedAssignments"`
	SubmissionRate       int `json:"submissionRate"`
	AverageGrade         int `json:"averageGrade"`
	OverallProgress      int `json:"overallProgress"`
	GradedAssignments    int `json:"gradedAssignments"`
}

type StudentAnalytics struct {
	Student     user.Profile            `json:"student"`
	Metrics     StudentMetrics          `json:"metrics"`
	Submissions []submission.Submission `json:"submissions"`
	Progress    []progress.Row          `json:"progress"`
}

// Trend periods
const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"

	DefaultPeriod = PeriodWeek
	DefaultDays   = 90
	MaxDays       = 366
)

type TrendQuery struct {
	Period string `query:"period"`
	Days   int    `query:"days"`
}

// TrendPoint aggregates the submissions of a period bucket starting on Date.
type TrendPoint struct {
	Date         string `json:"date"`
	Submissions  int    `json:"submissions"`
	AverageGrade int    `json:"averageGrade"`
}

// Scope restricts the aggregates to some units. A nil UnitCodes selects every unit.
type Scope struct {
	UnitCodes  []string
	CourseCode string
}
