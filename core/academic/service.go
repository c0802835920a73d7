package academic

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/assignment"
	"github.com/trezcool/imajine/core/course"
	"github.com/trezcool/imajine/core/progress"
	"github.com/trezcool/imajine/core/submission"
	"github.com/trezcool/imajine/core/teacher"
	"github.com/trezcool/imajine/core/unit"
	"github.com/trezcool/imajine/core/user"
)

// Service composes the entity services into the nested views of the API.
type Service struct {
	Courses     *course.Service
	Units       *unit.Service
	Assignments *assignment.Service
	Teachers    *teacher.Service
	Users       *user.Service
	Progress    *progress.Service
	Submissions *submission.Service
}

// countPage only selects the total of a listing.
var countPage = core.Page{Page: 1, Limit: 1}

func unitCodes(units []unit.Unit) []string {
	codes := make([]string, 0, len(units))
	for _, u := range units {
		codes = append(codes, u.Code)
	}
	return codes
}

func progressRows(prog []progress.Progress) []progress.Row {
	rows := make([]progress.Row, 0, len(prog))
	for _, p := range prog {
		rows = append(rows, progress.NewRow(p))
	}
	return rows
}

func profiles(users []user.User) []user.Profile {
	profs := make([]user.Profile, 0, len(users))
	for _, u := range users {
		profs = append(profs, u.Profile())
	}
	return profs
}

func groupByStudent(subs []submission.Submission) map[string][]submission.Submission {
	grouped := make(map[string][]submission.Submission)
	for _, s := range subs {
		grouped[s.StudentID] = append(grouped[s.StudentID], s)
	}
	return grouped
}

// CoursesWithUnits lists every course with its units and their assignments.
func (svc *Service) CoursesWithUnits(ctx context.Context) ([]CourseWithUnits, error) {
	var (
		courses []course.Course
		units   []unit.Unit
		asmts   []assignment.Assignment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		courses, err = svc.Courses.QueryAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		units, _, err = svc.Units.Query(gctx, unit.QueryFilter{}, core.Page{})
		return err
	})
	g.Go(func() (err error) {
		asmts, _, err = svc.Assignments.Query(gctx, assignment.QueryFilter{}, core.Page{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byUnit := make(map[string][]assignment.Assignment)
	for _, a := range asmts {
		byUnit[a.UnitCode] = append(byUnit[a.UnitCode], a)
	}
	byCourse := make(map[string][]UnitWithAssignments)
	for _, u := range units {
		ua := UnitWithAssignments{Unit: u, Assignments: byUnit[u.Code]}
		if ua.Assignments == nil {
			ua.Assignments = []assignment.Assignment{}
		}
		byCourse[u.CourseCode] = append(byCourse[u.CourseCode], ua)
	}

	result := make([]CourseWithUnits, 0, len(courses))
	for _, c := range courses {
		cu := CourseWithUnits{Course: c, Units: byCourse[c.Code]}
		if cu.Units == nil {
			cu.Units = []UnitWithAssignments{}
		}
		result = append(result, cu)
	}
	return result, nil
}

func (svc *Service) CourseWithUnits(ctx context.Context, code string) (CourseWithUnits, error) {
	c, err := svc.Courses.GetByCode(ctx, code)
	if err != nil {
		return CourseWithUnits{}, err
	}
	units, err := svc.Units.QueryByCourse(ctx, c.Code)
	if err != nil {
		return CourseWithUnits{}, err
	}
	asmts, err := svc.Assignments.QueryByUnits(ctx, unitCodes(units)...)
	if err != nil {
		return CourseWithUnits{}, err
	}

	cu := CourseWithUnits{Course: c, Units: make([]UnitWithAssignments, 0, len(units))}
	for _, u := range units {
		ua := UnitWithAssignments{Unit: u, Assignments: []assignment.Assignment{}}
		for _, a := range asmts {
			if a.UnitCode == u.Code {
				ua.Assignments = append(ua.Assignments, a)
			}
		}
		cu.Units = append(cu.Units, ua)
	}
	return cu, nil
}

func (svc *Service) UnitDetail(ctx context.Context, code string) (UnitDetail, error) {
	u, err := svc.Units.GetByCode(ctx, code)
	if err != nil {
		return UnitDetail{}, err
	}

	detail := UnitDetail{Unit: u}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		detail.Course, err = svc.Courses.GetByCode(gctx, u.CourseCode)
		return err
	})
	g.Go(func() (err error) {
		detail.Assignments, err = svc.Assignments.QueryByUnits(gctx, u.Code)
		return err
	})
	g.Go(func() (err error) {
		detail.Teachers, err = svc.Teachers.QueryByUnits(gctx, u.Code)
		return err
	})
	if err := g.Wait(); err != nil {
		return UnitDetail{}, err
	}
	return detail, nil
}

// UnitProgress gathers the progress and the submissions of every student on a unit.
func (svc *Service) UnitProgress(ctx context.Context, code string) (UnitProgress, error) {
	summary, err := svc.Progress.UnitSummary(ctx, code)
	if err != nil {
		return UnitProgress{}, err
	}
	u, err := svc.Units.GetByCode(ctx, summary.UnitCode)
	if err != nil {
		return UnitProgress{}, err
	}
	subs, err := svc.Submissions.QueryByUnits(ctx, u.Code)
	if err != nil {
		return UnitProgress{}, err
	}
	return UnitProgress{
		Unit:            u,
		Progress:        summary.Progress,
		AverageProgress: summary.AverageProgress,
		Submissions:     subs,
	}, nil
}

// AssignmentsWithSubmissions lists assignments, with the submissions matching subFilter when withSubmissions is set.
func (svc *Service) AssignmentsWithSubmissions(
	ctx context.Context,
	filter assignment.QueryFilter,
	page core.Page,
	withSubmissions bool,
	subFilter submission.QueryFilter,
) ([]AssignmentWithSubmissions, int64, error) {
	asmts, total, err := svc.Assignments.Query(ctx, filter, page)
	if err != nil {
		return nil, 0, err
	}

	bySubmission := make(map[string][]submission.Submission)
	if withSubmissions && len(asmts) > 0 {
		subFilter.AssignmentIDs = make([]string, 0, len(asmts))
		for _, a := range asmts {
			subFilter.AssignmentIDs = append(subFilter.AssignmentIDs, a.ID)
		}
		subs, err := svc.Submissions.Query(ctx, subFilter)
		if err != nil {
			return nil, 0, err
		}
		for _, s := range subs {
			bySubmission[s.AssignmentID] = append(bySubmission[s.AssignmentID], s)
		}
	}

	result := make([]AssignmentWithSubmissions, 0, len(asmts))
	for _, a := range asmts {
		aws := AssignmentWithSubmissions{Assignment: a}
		if withSubmissions {
			if aws.Submissions = bySubmission[a.ID]; aws.Submissions == nil {
				aws.Submissions = []submission.Submission{}
			}
		}
		result = append(result, aws)
	}
	return result, total, nil
}

func (svc *Service) AssignmentDetail(ctx context.Context, id string, withSubmissions bool, subFilter submission.QueryFilter) (AssignmentDetail, error) {
	a, err := svc.Assignments.GetByID(ctx, id)
	if err != nil {
		return AssignmentDetail{}, err
	}
	detail := AssignmentDetail{Assignment: a}
	if detail.Counts, err = svc.Assignments.Counts(ctx, a.ID); err != nil {
		return AssignmentDetail{}, err
	}
	if withSubmissions {
		subFilter.AssignmentIDs = []string{a.ID}
		if detail.Submissions, err = svc.Submissions.Query(ctx, subFilter); err != nil {
			return AssignmentDetail{}, err
		}
	}
	return detail, nil
}

func (svc *Service) studentRecords(ctx context.Context, studentID string) ([]submission.Submission, []progress.Progress, error) {
	var (
		subs []submission.Submission
		prog []progress.Progress
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		subs, err = svc.Submissions.QueryByStudent(gctx, studentID)
		return err
	})
	g.Go(func() (err error) {
		prog, err = svc.Progress.QueryByStudent(gctx, studentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return subs, prog, nil
}

func (svc *Service) StudentDetail(ctx context.Context, studentID string) (StudentDetail, error) {
	student, err := svc.Users.GetStudent(ctx, studentID)
	if err != nil {
		return StudentDetail{}, err
	}
	subs, prog, err := svc.studentRecords(ctx, student.ID)
	if err != nil {
		return StudentDetail{}, err
	}
	return StudentDetail{Student: student.Profile(), Assignments: subs, Progress: progressRows(prog)}, nil
}

// StudentUnits lists the units of a student's course with their progress on each.
func (svc *Service) StudentUnits(ctx context.Context, studentID string) ([]StudentUnit, error) {
	student, err := svc.Users.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student.CourseCode == "" {
		return []StudentUnit{}, nil
	}

	var (
		units []unit.Unit
		prog  []progress.Progress
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		units, _, err = svc.Units.Query(gctx, unit.QueryFilter{CourseCode: student.CourseCode}, core.Page{})
		return err
	})
	g.Go(func() (err error) {
		prog, err = svc.Progress.QueryByStudent(gctx, student.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byUnit := make(map[string]progress.Progress, len(prog))
	for _, p := range prog {
		byUnit[p.UnitCode] = p
	}
	result := make([]StudentUnit, 0, len(units))
	for _, u := range units {
		su := StudentUnit{Unit: u}
		if p, ok := byUnit[u.Code]; ok {
			su.Progress = &p
			su.Percentage = p.Percentage()
		}
		result = append(result, su)
	}
	return result, nil
}

func (svc *Service) Me(ctx context.Context, usr user.User) (Me, error) {
	me := Me{Profile: usr.Profile()}
	if !usr.IsStudent() {
		return me, nil
	}
	subs, prog, err := svc.studentRecords(ctx, usr.ID)
	if err != nil {
		return Me{}, err
	}
	me.Assignments = subs
	me.Progress = progressRows(prog)
	return me, nil
}

// Students lists students, with their submissions and progress when withData is set.
func (svc *Service) Students(ctx context.Context, filter user.QueryFilter, page core.Page, withData bool) ([]StudentWithData, int64, error) {
	students, total, err := svc.Users.QueryStudents(ctx, filter, page)
	if err != nil {
		return nil, 0, err
	}
	result := make([]StudentWithData, 0, len(students))
	if !withData || len(students) == 0 {
		for _, s := range students {
			result = append(result, StudentWithData{Profile: s.Profile()})
		}
		return result, total, nil
	}

	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	subs, err := svc.Submissions.Query(ctx, submission.QueryFilter{StudentIDs: ids})
	if err != nil {
		return nil, 0, err
	}
	prog, err := svc.Progress.QueryByStudents(ctx, ids...)
	if err != nil {
		return nil, 0, err
	}

	subsByStudent := groupByStudent(subs)
	progByStudent := make(map[string][]progress.Progress)
	for _, p := range prog {
		progByStudent[p.StudentID] = append(progByStudent[p.StudentID], p)
	}
	for _, s := range students {
		sd := StudentWithData{Profile: s.Profile(), Submissions: subsByStudent[s.ID], Progress: progressRows(progByStudent[s.ID])}
		if sd.Submissions == nil {
			sd.Submissions = []submission.Submission{}
		}
		result = append(result, sd)
	}
	return result, total, nil
}

// StudentsWithGrades computes the grade metrics of each student.
func (svc *Service) StudentsWithGrades(ctx context.Context, filter user.QueryFilter) ([]StudentWithGrades, error) {
	students, _, err := svc.Users.QueryStudents(ctx, filter, core.Page{})
	if err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return []StudentWithGrades{}, nil
	}
	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	subs, err := svc.Submissions.Query(ctx, submission.QueryFilter{StudentIDs: ids})
	if err != nil {
		return nil, err
	}

	byStudent := groupByStudent(subs)
	result := make([]StudentWithGrades, 0, len(students))
	for _, s := range students {
		m := submission.ComputeMetrics(byStudent[s.ID])
		result = append(result, StudentWithGrades{
			Profile:        s.Profile(),
			AvgGrade:       m.AverageGrade,
			GradedCount:    m.Graded,
			SubmissionRate: m.SubmissionRate,
		})
	}
	return result, nil
}

// StudentStats averages the per-student metrics of a course, or of every student.
func (svc *Service) StudentStats(ctx context.Context, courseCode string) (StudentStats, error) {
	students, total, err := svc.Users.QueryStudents(ctx, user.QueryFilter{CourseCode: core.CleanCode(courseCode)}, core.Page{})
	if err != nil {
		return StudentStats{}, err
	}
	stats := StudentStats{TotalStudents: total}
	if len(students) == 0 {
		return stats, nil
	}
	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}

	var (
		subs []submission.Submission
		prog []progress.Progress
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		subs, err = svc.Submissions.Query(gctx, submission.QueryFilter{StudentIDs: ids})
		return err
	})
	g.Go(func() (err error) {
		prog, err = svc.Progress.QueryByStudents(gctx, ids...)
		return err
	})
	if err := g.Wait(); err != nil {
		return StudentStats{}, err
	}

	subsByStudent := groupByStudent(subs)
	progByStudent := make(map[string][]progress.Progress)
	for _, p := range prog {
		progByStudent[p.StudentID] = append(progByStudent[p.StudentID], p)
	}
	progs, rates, grades := make([]float64, 0, len(students)), make([]float64, 0, len(students)), make([]float64, 0, len(students))
	for _, s := range students {
		progs = append(progs, float64(progress.AverageProgress(progByStudent[s.ID])))
		m := submission.ComputeMetrics(subsByStudent[s.ID])
		rates = append(rates, float64(m.SubmissionRate))
		if m.Graded > 0 {
			grades = append(grades, float64(m.AverageGrade))
		}
	}
	stats.AvgProgress = core.RoundedMean(progs)
	stats.AvgSubmissionRate = core.RoundedMean(rates)
	stats.AvgGrade = core.RoundedMean(grades)
	return stats, nil
}

// All returns the whole academic reference data.
func (svc *Service) All(ctx context.Context) (Data, error) {
	var (
		data    Data
		courses []course.Course
		coords  []user.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		courses, err = svc.Courses.QueryAll(gctx)
		return errors.Wrap(err, "querying courses")
	})
	g.Go(func() (err error) {
		data.Units, _, err = svc.Units.Query(gctx, unit.QueryFilter{}, core.Page{})
		return errors.Wrap(err, "querying units")
	})
	g.Go(func() (err error) {
		data.Assignments, _, err = svc.Assignments.Query(gctx, assignment.QueryFilter{}, core.Page{})
		return errors.Wrap(err, "querying assignments")
	})
	g.Go(func() (err error) {
		data.Teachers, _, err = svc.Teachers.Query(gctx, teacher.QueryFilter{}, core.Page{})
		return errors.Wrap(err, "querying teachers")
	})
	g.Go(func() (err error) {
		coords, _, err = svc.Users.Query(gctx, &user.QueryFilter{Role: user.RoleCoordinator}, core.Page{})
		return errors.Wrap(err, "querying coordinators")
	})
	if err := g.Wait(); err != nil {
		return Data{}, err
	}

	codesByCourse := make(map[string][]string)
	for _, u := range data.Units {
		codesByCourse[u.CourseCode] = append(codesByCourse[u.CourseCode], u.Code)
	}
	data.Courses = make([]CourseRef, 0, len(courses))
	for _, c := range courses {
		ref := CourseRef{Course: c, UnitCodes: codesByCourse[c.Code]}
		if ref.UnitCodes == nil {
			ref.UnitCodes = []string{}
		}
		data.Courses = append(data.Courses, ref)
	}
	data.Coordinators = profiles(coords)
	return data, nil
}

func (svc *Service) Summary(ctx context.Context) (Summary, error) {
	var s Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.Courses, err = svc.Courses.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		_, s.Units, err = svc.Units.Query(gctx, unit.QueryFilter{}, countPage)
		return err
	})
	g.Go(func() (err error) {
		s.Assignments, err = svc.Assignments.Count(gctx, assignment.QueryFilter{})
		return err
	})
	g.Go(func() (err error) {
		s.Teachers, err = svc.Teachers.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		s.Students, err = svc.Users.Count(gctx, user.QueryFilter{Role: user.RoleStudent})
		return err
	})
	g.Go(func() (err error) {
		s.Coordinators, err = svc.Users.Count(gctx, user.QueryFilter{Role: user.RoleCoordinator})
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return s, nil
}

func (svc *Service) Course(ctx context.Context, code string) (CourseData, error) {
	c, err := svc.Courses.GetByCode(ctx, code)
	if err != nil {
		return CourseData{}, err
	}
	units, err := svc.Units.QueryByCourse(ctx, c.Code)
	if err != nil {
		return CourseData{}, err
	}
	codes := unitCodes(units)

	data := CourseData{Course: c, Units: units}
	var students []user.User
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.Assignments, err = svc.Assignments.QueryByUnits(gctx, codes...)
		return err
	})
	g.Go(func() (err error) {
		data.Teachers, err = svc.Teachers.QueryByUnits(gctx, codes...)
		return err
	})
	g.Go(func() (err error) {
		students, _, err = svc.Users.QueryStudents(gctx, user.QueryFilter{CourseCode: c.Code}, core.Page{})
		return err
	})
	if err := g.Wait(); err != nil {
		return CourseData{}, err
	}
	data.Students = profiles(students)
	return data, nil
}

func (svc *Service) Unit(ctx context.Context, code string) (UnitData, error) {
	detail, err := svc.UnitDetail(ctx, code)
	if err != nil {
		return UnitData{}, err
	}
	return UnitData{
		Unit:        detail.Unit,
		Course:      detail.Course,
		Assignments: detail.Assignments,
		Teachers:    detail.Teachers,
	}, nil
}

// Student returns the academic data of an enrolled student.
func (svc *Service) Student(ctx context.Context, studentID string) (StudentData, error) {
	student, err := svc.Users.GetStudent(ctx, studentID)
	if err != nil {
		return StudentData{}, err
	}
	if student.CourseCode == "" {
		return StudentData{}, user.ErrStudentNotFound
	}

	data := StudentData{Student: student.Profile()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.Course, err = svc.Courses.GetByCode(gctx, student.CourseCode)
		return err
	})
	g.Go(func() (err error) {
		data.Units, err = svc.StudentUnits(gctx, student.ID)
		return err
	})
	g.Go(func() (err error) {
		data.Submissions, err = svc.Submissions.QueryByStudent(gctx, student.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return StudentData{}, err
	}
	return data, nil
}
