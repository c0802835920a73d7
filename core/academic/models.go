package academic

import (
	"github.com/trezcool/imajine/core/assignment"
	"github.com/trezcool/imajine/core/course"
	"github.com/trezcool/imajine/core/progress"
	"github.com/trezcool/imajine/core/submission"
	"github.com/trezcool/imajine/core/teacher"
	"github.com/trezcool/imajine/core/unit"
	"github.com/trezcool/imajine/core/user"
)

type UnitWithAssignments struct {
	unit.Unit
	Assignments []assignment.Assignment `json:"assignments"`
}

type CourseWithUnits struct {
	course.Course
	Units []UnitWithAssignments `json:"units"`
}

type UnitDetail struct {
	unit.Unit
	Course      course.Course           `json:"course"`
	Assignments []assignment.Assignment `json:"assignments"`
	Teachers    []teacher.Teacher       `json:"teachers"`
}

type UnitProgress struct {
	Unit            unit.Unit               `json:"unit"`
	Progress        []progress.Row          `json:"progress"`
	AverageProgress int                     `json:"averageProgress"`
	Submissions     []submission.Submission `json:"submissions"`
}

type AssignmentWithSubmissions struct {
	assignment.Assignment
	Submissions []submission.Submission `json:"submissions"`
}

type AssignmentDetail struct {
	assignment.Assignment
	assignment.Counts
	Submissions []submission.Submission `json:"submissions,omitempty"`
}

type StudentDetail struct {
	Student     user.Profile            `json:"student"`
	Assignments []submission.Submission `json:"assignments"`
	Progress    []progress.Row          `json:"progress"`
}

type StudentUnit struct {
	unit.Unit
	Progress   *progress.Progress `json:"progress"`
	Percentage int                `json:"percentage"`
}

type StudentWithGrades struct {
	user.Profile
	AvgGrade       int `json:"avgGrade"`
	GradedCount    int `json:"gradedCount"`
	SubmissionRate int `json:"submissionRate"`
}

type StudentWithData struct {
	user.Profile
	Submissions []submission.Submission `json:"submissions"`
	Progress    []progress.Row          `json:"progress"`
}

type StudentStats struct {
	TotalStudents     int64 `json:"totalStudents"`
	AvgProgress       int   `json:"avgProgress"`
	AvgSubmissionRate int   `json:"avgSubmissionRate"`
	AvgGrade          int   `json:"avgGrade"`
}

// Me is what an authenticated user sees of themselves.
type Me struct {
	user.Profile
	Assignments []submission.Submission `json:"assignments,omitempty"`
	Progress    []progress.Row          `json:"progress,omitempty"`
}

type CourseRef struct {
	course.Course
	UnitCodes []string `json:"units"`
}

// Data is the academic reference data the frontend loads at startup.
type Data struct {
	Courses      []CourseRef             `json:"courses"`
	Units        []unit.Unit             `json:"units"`
	Assignments  []assignment.Assignment `json:"assignments"`
	Teachers     []teacher.Teacher       `json:"teachers"`
	Coordinators []user.Profile          `json:"coordinators"`
}

type Summary struct {
	Courses      int64 `json:"courses"`
	Units        int64 `json:"units"`
	Assignments  int64 `json:"assignments"`
	Teachers     int64 `json:"teachers"`
	Students     int64 `json:"students"`
	Coordinators int64 `json:"coordinators"`
}

type CourseData struct {
	Course      course.Course           `json:"course"`
	Units       []unit.Unit             `json:"units"`
	Assignments []assignment.Assignment `json:"assignments"`
	Teachers    []teacher.Teacher       `json:"teachers"`
	Students    []user.Profile          `json:"students"`
}

type UnitData struct {
	Unit        unit.Unit               `json:"unit"`
	Course      course.Course           `json:"course"`
	Assignments []assignment.Assignment `json:"assignments"`
	Teachers    []teacher.Teacher       `json:"teachers"`
}

type StudentData struct {
	Student     user.Profile            `json:"student"`
	Course      course.Course           `json:"course"`
	Units       []StudentUnit           `json:"units"`
	Submissions []submission.Submission `json:"submissions"`
}
