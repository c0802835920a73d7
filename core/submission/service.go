package submission

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/assignment"
	"github.com/trezcool/imajine/core/user"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("submission")
	ErrExists   = core.NewConflictError("a submission already exists for this assignment")

	// NowFunc is mockable in tests.
	NowFunc = func() time.Time { return time.Now().UTC() }
)

type (
	Repository interface {
		// CreateSubmission fails with ErrExists when the student already has a row for the assignment.
		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		// QuerySubmissions returns submissions with their assignment, ordered by assignment deadline.
		QuerySubmissions(ctx context.Context, filter *QueryFilter) ([]Submission, error)
		GetSubmission(ctx context.Context, id string) (Submission, error)
		UpdateSubmission(ctx context.Context, s Submission) (Submission, error)
	}

	AssignmentGetter interface {
		GetByID(ctx context.Context, id string) (assignment.Assignment, error)
	}

	StudentGetter interface {
		GetStudent(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		conf        *core.Config
		logger      core.Logger
		repo        Repository
		assignments AssignmentGetter
		students    StudentGetter
		mailSvc     core.EmailService
		stats       core.StatsInvalidator
	}
)

func NewService(
	conf *core.Config,
	logger core.Logger,
	repo Repository,
	assignments AssignmentGetter,
	students StudentGetter,
	mailSvc core.EmailService,
	stats core.StatsInvalidator,
) *Service {
	return &Service{
		conf:        conf,
		logger:      logger,
		repo:        repo,
		assignments: assignments,
		students:    students,
		mailSvc:     mailSvc,
		stats:       stats,
	}
}

// Create opens the submission of a student for an assignment.
func (svc *Service) Create(ctx context.Context, student user.User, ns NewSubmission) (Submission, error) {
	asmt, err := svc.assignments.GetByID(ctx, ns.AssignmentID)
	if err != nil {
		return Submission{}, err
	}
	existing, err := svc.repo.QuerySubmissions(ctx, &QueryFilter{
		StudentIDs:    []string{student.ID},
		AssignmentIDs: []string{asmt.ID},
	})
	if err != nil {
		return Submission{}, errors.Wrap(err, "checking existing submission")
	}
	if len(existing) > 0 {
		return Submission{}, ErrExists
	}

	now := NowFunc()
	s := Submission{
		StudentID:        student.ID,
		AssignmentID:     asmt.ID,
		SubmissionStatus: ns.SubmissionStatus,
		SubmissionName:   ns.SubmissionName,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if s.IsSubmitted() {
		s.SubmittedAt = &now
	}
	s, err = svc.repo.CreateSubmission(ctx, s)
	if err != nil {
		return Submission{}, err
	}
	svc.stats.Invalidate(ctx)
	s.Assignment = &asmt
	return s, nil
}

// GetByID returns the submission with its assignment.
func (svc *Service) GetByID(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmission(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, &filter)
}

// QueryByStudent lists a student's submissions ordered by assignment deadline.
func (svc *Service) QueryByStudent(ctx context.Context, studentID string) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, &QueryFilter{StudentIDs: []string{studentID}})
}

func (svc *Service) QueryByUnits(ctx context.Context, codes ...string) ([]Submission, error) {
	if codes == nil {
		codes = []string{}
	}
	return svc.repo.QuerySubmissions(ctx, &QueryFilter{UnitCodes: codes})
}

// UpdateStatus changes the status of a submission; SubmittedAt is stamped on the first SUBMITTED.
func (svc *Service) UpdateStatus(ctx context.Context, orig Submission, us UpdateStatus) (Submission, error) {
	s := orig
	now := NowFunc()
	s.SubmissionStatus = us.SubmissionStatus
	if us.SubmissionName != nil {
		s.SubmissionName = *us.SubmissionName
	}
	if s.IsSubmitted() && s.SubmittedAt == nil {
		s.SubmittedAt = &now
	}
	s.UpdatedAt = now
	s, err := svc.repo.UpdateSubmission(ctx, s)
	if err != nil {
		return Submission{}, err
	}
	svc.stats.Invalidate(ctx)
	return s, nil
}

// Grade records the grade given by grader and notifies the student by email.
// The grade stands even when the notification cannot be sent.
func (svc *Service) Grade(ctx context.Context, orig Submission, g Grade, grader user.User) (Submission, error) {
	s := orig
	now := NowFunc()
	grade := *g.Grade
	s.Grade = &grade
	s.Comment = g.Comment
	s.GradedBy = grader.ID
	s.GradedAt = &now
	s.UpdatedAt = now
	s, err := svc.repo.UpdateSubmission(ctx, s)
	if err != nil {
		return Submission{}, err
	}
	svc.stats.Invalidate(ctx)
	if err := svc.notifyGrade(ctx, s); err != nil {
		svc.logger.Error(fmt.Sprintf("grade notification of submission %s: %v", s.ID, err), err)
	}
	return s, nil
}

func (svc *Service) notifyGrade(ctx context.Context, s Submission) error {
	student, err := svc.students.GetStudent(ctx, s.StudentID)
	if err != nil {
		return errors.Wrap(err, "fetching graded student")
	}
	asmt := s.Assignment
	if asmt == nil {
		a, err := svc.assignments.GetByID(ctx, s.AssignmentID)
		if err != nil {
			return errors.Wrap(err, "fetching graded assignment")
		}
		asmt = &a
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.FullName(), Address: student.Email}},
		Subject:      "Your submission has been graded",
		TemplateName: "grade_notification",
		TemplateData: GradeNotification{
			StudentName:    student.FullName(),
			AssignmentName: asmt.Name,
			UnitCode:       asmt.UnitCode,
			Grade:          *s.Grade,
			Comment:        s.Comment,
		},
		FrontendBaseURL: svc.conf.FrontendBaseURL,
	})
	return nil
}
