package service

import (
	"encoding/json"
	"errors"
	"time"

	"edulearn_backend/internal/model"
	"edulearn_backend/internal/util"
	"edulearn_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TestReader supplies test definitions to the submission state machine.
type TestReader interface {
	FindTestByID(id uint) (*model.Test, error)
	QuestionsWithOptions(testID uint) ([]model.Question, error)
}

// SubmissionStore persists attempts. CreateAttempt must serialize concurrent
// starts for the same (test, user); Finalize and ApplyManualGrades must
// commit the submission, its answers and the test statistics in one
// transaction.
type SubmissionStore interface {
	CreateAttempt(sub *model.TestSubmission) error
	Update(sub *model.TestSubmission) error
	FindByID(id uint) (*model.TestSubmission, error)
	FindInProgress(testID, userID uint) (*model.TestSubmission, error)
	CountCompleted(testID, userID uint) (int64, error)
	Finalize(sub *model.TestSubmission, answers []model.SubmissionAnswer) error
	ApplyManualGrades(sub *model.TestSubmission, answers []model.SubmissionAnswer) error
	Answers(submissionID uint) ([]model.SubmissionAnswer, error)
}

// AccessChecker is the external access-control collaborator: may this user
// view/take content owned by the given entity?
type AccessChecker interface {
	CanAccess(userID uint, ref model.TestableRef) (bool, error)
}

// EnrollmentReader supplies the user's current enrollment for a course so
// submissions can be stamped with it. Read-only collaborator.
type EnrollmentReader interface {
	ActiveEnrollmentID(userID, courseID uint) (*uint, error)
}

// CourseResolver maps a testable reference to its owning course.
type CourseResolver interface {
	OwningCourseID(ref model.TestableRef) (uint, error)
}

type SubmissionService struct {
	Tests       TestReader
	Submissions SubmissionStore
	Access      AccessChecker
	Enrollments EnrollmentReader
	Resolver    CourseResolver
	Ownership   OwnershipChecker

	now func() time.Time
}

func NewSubmissionService(tests TestReader, subs SubmissionStore, access AccessChecker, enrollments EnrollmentReader, resolver CourseResolver, ownership OwnershipChecker) *SubmissionService {
	return &SubmissionService{
		Tests:       tests,
		Submissions: subs,
		Access:      access,
		Enrollments: enrollments,
		Resolver:    resolver,
		Ownership:   ownership,
		now:         time.Now,
	}
}

// StartTest opens a new attempt, or resumes an unexpired in-progress one.
// The attempt limit counts only completed (submitted/graded) attempts; the
// attempt number is allocated by the store under its uniqueness guarantee.
func (s *SubmissionService) StartTest(testID, userID uint) (*model.TestSubmission, error) {
	test, err := s.Tests.FindTestByID(testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}

	if !test.IsPublished {
		return nil, util.ErrTestNotTakeable
	}

	ok, err := s.Access.CanAccess(userID, test.Testable())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrTestNotTakeable
	}

	// Resume an open attempt rather than stacking a second one.
	if existing, err := s.Submissions.FindInProgress(testID, userID); err == nil && existing != nil {
		if expired, err := s.MarkExpiredIfNeeded(existing); err != nil {
			return nil, err
		} else if !expired {
			return existing, nil
		}
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if test.MaxAttempts > 0 {
		completed, err := s.Submissions.CountCompleted(testID, userID)
		if err != nil {
			return nil, err
		}
		if completed >= int64(test.MaxAttempts) {
			return nil, util.ErrAttemptLimitExceeded
		}
	}

	questions, err := s.Tests.QuestionsWithOptions(testID)
	if err != nil {
		return nil, err
	}
	totalPoints := 0.0
	for _, q := range questions {
		totalPoints += float64(q.Points)
	}

	now := s.now()
	sub := &model.TestSubmission{
		TestID:      testID,
		UserID:      userID,
		Status:      model.SubmissionInProgress,
		StartedAt:   now,
		TotalPoints: totalPoints,
	}

	if test.DurationMinutes > 0 {
		expires := now.Add(time.Duration(test.DurationMinutes) * time.Minute)
		sub.ExpiresAt = &expires
	}

	if courseID, err := s.Resolver.OwningCourseID(test.Testable()); err == nil {
		if enrollmentID, err := s.Enrollments.ActiveEnrollmentID(userID, courseID); err == nil {
			sub.EnrollmentID = enrollmentID
		}
	}

	if err := s.Submissions.CreateAttempt(sub); err != nil {
		return nil, err
	}

	logger.Log.Info("test attempt started",
		zap.Uint("testId", testID),
		zap.Uint("userId", userID),
		zap.Int("attempt", sub.AttemptNumber))

	return sub, nil
}

// SaveDraft overwrites the draft answers of an open attempt. No grading
// side effects.
func (s *SubmissionService) SaveDraft(submissionID, userID uint, answers []AnswerInput) (*model.TestSubmission, error) {
	sub, err := s.loadOwned(submissionID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.requireOpen(sub); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(answers)
	if err != nil {
		return nil, err
	}
	sub.DraftAnswers = raw

	if err := s.Submissions.Update(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// SubmitTest grades every answer, persists them with the submission in one
// transaction and, when nothing needs manual review, finalizes the score
// immediately.
func (s *SubmissionService) SubmitTest(submissionID, userID uint, answers []AnswerInput) (*model.TestSubmission, error) {
	sub, err := s.loadOwned(submissionID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.requireOpen(sub); err != nil {
		return nil, err
	}

	questions, err := s.Tests.QuestionsWithOptions(sub.TestID)
	if err != nil {
		return nil, err
	}
	questionByID := make(map[uint]*model.Question, len(questions))
	for i := range questions {
		questionByID[questions[i].ID] = &questions[i]
	}

	rows := make([]model.SubmissionAnswer, 0, len(answers))
	manualPending := false
	pointsEarned := 0.0

	for _, in := range answers {
		q, ok := questionByID[in.QuestionID]
		if !ok {
			continue // answer to a question no longer on the test
		}

		result := GradeAnswer(q, in)
		if result.RequiresManualReview {
			manualPending = true
		}
		pointsEarned += result.PointsEarned

		row := model.SubmissionAnswer{
			SubmissionID:         sub.ID,
			QuestionID:           q.ID,
			TextAnswer:           in.Text,
			ArtifactPath:         in.ArtifactPath,
			IsCorrect:            result.IsCorrect,
			PointsEarned:         result.PointsEarned,
			PointsPossible:       float64(q.Points),
			RequiresManualReview: result.RequiresManualReview,
		}
		row.SetSelectedOptions(in.SelectedOptionIDs)
		rows = append(rows, row)
	}

	now := s.now()
	sub.SubmittedAt = &now
	sub.TimeSpentSeconds = int(now.Sub(sub.StartedAt).Seconds())
	sub.PointsEarned = pointsEarned
	sub.DraftAnswers = nil

	if manualPending {
		sub.Status = model.SubmissionSubmitted
	} else {
		test, err := s.Tests.FindTestByID(sub.TestID)
		if err != nil {
			return nil, err
		}
		s.applyScore(sub, test, now, nil, "")
	}

	if err := s.Submissions.Finalize(sub, rows); err != nil {
		return nil, err
	}

	logger.Log.Info("test attempt submitted",
		zap.Uint("submissionId", sub.ID),
		zap.String("status", string(sub.Status)),
		zap.Bool("manualPending", manualPending))

	return sub, nil
}

// ManualGrading carries one grader verdict for a single answer.
type ManualGrading struct {
	QuestionID   uint    `json:"questionId" binding:"required"`
	PointsEarned float64 `json:"pointsEarned"`
	Feedback     string  `json:"feedback"`
}

// GradeManually resolves the pending manual-review answers, recomputes the
// final score and moves the submission to graded. Grading rights follow
// ownership of the test's parent, same as authoring; elevated callers
// (admins) bypass the ownership check.
func (s *SubmissionService) GradeManually(submissionID, graderID uint, elevated bool, gradings []ManualGrading, comments string) (*model.TestSubmission, error) {
	sub, err := s.Submissions.FindByID(submissionID)
	if err != nil {
		return nil, err
	}

	test, err := s.Tests.FindTestByID(sub.TestID)
	if err != nil {
		return nil, err
	}

	if !elevated {
		owns, err := s.Ownership.Owns(graderID, test.Testable())
		if err != nil {
			return nil, err
		}
		if !owns {
			return nil, util.ErrPermissionDenied
		}
	}

	if sub.Status != model.SubmissionSubmitted {
		return nil, util.ErrInvalidState
	}

	answers, err := s.Submissions.Answers(sub.ID)
	if err != nil {
		return nil, err
	}

	pending := false
	for i := range answers {
		if answers[i].RequiresManualReview {
			pending = true
			break
		}
	}
	if !pending {
		return nil, util.ErrNothingToGrade
	}

	gradingByQuestion := make(map[uint]ManualGrading, len(gradings))
	for _, g := range gradings {
		gradingByQuestion[g.QuestionID] = g
	}

	pointsEarned := 0.0
	for i := range answers {
		a := &answers[i]
		if g, ok := gradingByQuestion[a.QuestionID]; ok {
			earned := g.PointsEarned
			if earned < 0 {
				earned = 0
			}
			if earned > a.PointsPossible {
				earned = a.PointsPossible
			}
			correct := earned >= a.PointsPossible && a.PointsPossible > 0
			a.PointsEarned = earned
			a.IsCorrect = &correct
			a.RequiresManualReview = false
			if g.Feedback != "" {
				a.Feedback = g.Feedback
			}
		}
		pointsEarned += a.PointsEarned
	}

	now := s.now()
	sub.PointsEarned = pointsEarned
	s.applyScore(sub, test, now, &graderID, comments)

	if err := s.Submissions.ApplyManualGrades(sub, answers); err != nil {
		return nil, err
	}

	logger.Log.Info("test attempt graded manually",
		zap.Uint("submissionId", sub.ID),
		zap.Uint("graderId", graderID),
		zap.Float64p("score", sub.Score))

	return sub, nil
}

// CalculateScore derives the percentage score, pass flag and grade tier
// from the submission's earned points against its snapshot total.
func (s *SubmissionService) CalculateScore(sub *model.TestSubmission, test *model.Test) (float64, bool, model.GradeTier) {
	score := PercentageScore(sub.PointsEarned, sub.TotalPoints)
	passed := score >= test.PassingScore
	return score, passed, GradeTierFor(score, test.PassingScore)
}

// MarkExpiredIfNeeded flips an in-progress submission past its deadline to
// expired. Called at every lifecycle checkpoint instead of hiding the
// mutation inside reads. Returns whether the submission is now expired.
func (s *SubmissionService) MarkExpiredIfNeeded(sub *model.TestSubmission) (bool, error) {
	if sub.Status != model.SubmissionInProgress {
		return sub.Status == model.SubmissionExpired, nil
	}
	if !sub.IsExpired(s.now()) {
		return false, nil
	}

	sub.Status = model.SubmissionExpired
	if err := s.Submissions.Update(sub); err != nil {
		return true, err
	}

	logger.Log.Info("test attempt expired", zap.Uint("submissionId", sub.ID))
	return true, nil
}

// GetSubmission returns one attempt with its answers, settling lazy expiry
// first so callers always observe an authoritative status.
func (s *SubmissionService) GetSubmission(submissionID, userID uint, elevated bool) (*model.TestSubmission, []model.SubmissionAnswer, error) {
	sub, err := s.Submissions.FindByID(submissionID)
	if err != nil {
		return nil, nil, err
	}
	if !elevated && sub.UserID != userID {
		return nil, nil, util.ErrPermissionDenied
	}

	if _, err := s.MarkExpiredIfNeeded(sub); err != nil {
		return nil, nil, err
	}

	answers, err := s.Submissions.Answers(sub.ID)
	if err != nil {
		return nil, nil, err
	}
	return sub, answers, nil
}

// EnsureOpen verifies the caller owns the attempt and that it is still
// accepting answers. Used by the artifact upload endpoint before storing
// anything.
func (s *SubmissionService) EnsureOpen(submissionID, userID uint) error {
	sub, err := s.loadOwned(submissionID, userID)
	if err != nil {
		return err
	}
	return s.requireOpen(sub)
}

func (s *SubmissionService) applyScore(sub *model.TestSubmission, test *model.Test, now time.Time, graderID *uint, comments string) {
	score, passed, tier := s.CalculateScore(sub, test)
	sub.Score = &score
	sub.Passed = passed
	sub.Grade = tier
	sub.Status = model.SubmissionGraded
	sub.GradedAt = &now
	sub.GradedBy = graderID
	if comments != "" {
		sub.GraderComments = comments
	}
}

func (s *SubmissionService) loadOwned(submissionID, userID uint) (*model.TestSubmission, error) {
	sub, err := s.Submissions.FindByID(submissionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	return sub, nil
}

// requireOpen enforces the in_progress precondition shared by saveDraft and
// submit, settling expiry first.
func (s *SubmissionService) requireOpen(sub *model.TestSubmission) error {
	expired, err := s.MarkExpiredIfNeeded(sub)
	if err != nil {
		return err
	}
	if expired {
		return util.ErrSubmissionExpired
	}
	if sub.Status != model.SubmissionInProgress {
		return util.ErrInvalidState
	}
	return nil
}
