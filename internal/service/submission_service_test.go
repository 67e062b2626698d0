package service

import (
	"testing"
	"time"

	"edulearn_backend/internal/model"
	"edulearn_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeTestReader struct {
	tests     map[uint]*model.Test
	questions map[uint][]model.Question
}

func (f *fakeTestReader) FindTestByID(id uint) (*model.Test, error) {
	t, ok := f.tests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (f *fakeTestReader) QuestionsWithOptions(testID uint) ([]model.Question, error) {
	return f.questions[testID], nil
}

type fakeSubmissionStore struct {
	nextID  uint
	subs    map[uint]*model.TestSubmission
	answers map[uint][]model.SubmissionAnswer
}

func newFakeSubmissionStore() *fakeSubmissionStore {
	return &fakeSubmissionStore{
		subs:    make(map[uint]*model.TestSubmission),
		answers: make(map[uint][]model.SubmissionAnswer),
	}
}

func (f *fakeSubmissionStore) CreateAttempt(sub *model.TestSubmission) error {
	f.nextID++
	sub.ID = f.nextID
	attempt := 0
	for _, s := range f.subs {
		if s.TestID == sub.TestID && s.UserID == sub.UserID && s.AttemptNumber > attempt {
			attempt = s.AttemptNumber
		}
	}
	sub.AttemptNumber = attempt + 1
	f.subs[sub.ID] = sub
	return nil
}

func (f *fakeSubmissionStore) Update(sub *model.TestSubmission) error {
	f.subs[sub.ID] = sub
	return nil
}

func (f *fakeSubmissionStore) FindByID(id uint) (*model.TestSubmission, error) {
	sub, ok := f.subs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return sub, nil
}

func (f *fakeSubmissionStore) FindInProgress(testID, userID uint) (*model.TestSubmission, error) {
	for _, s := range f.subs {
		if s.TestID == testID && s.UserID == userID && s.Status == model.SubmissionInProgress {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubmissionStore) CountCompleted(testID, userID uint) (int64, error) {
	var n int64
	for _, s := range f.subs {
		if s.TestID == testID && s.UserID == userID &&
			(s.Status == model.SubmissionSubmitted || s.Status == model.SubmissionGraded) {
			n++
		}
	}
	return n, nil
}

func (f *fakeSubmissionStore) Finalize(sub *model.TestSubmission, answers []model.SubmissionAnswer) error {
	f.subs[sub.ID] = sub
	f.answers[sub.ID] = answers
	return nil
}

func (f *fakeSubmissionStore) ApplyManualGrades(sub *model.TestSubmission, answers []model.SubmissionAnswer) error {
	f.subs[sub.ID] = sub
	f.answers[sub.ID] = answers
	return nil
}

func (f *fakeSubmissionStore) Answers(submissionID uint) ([]model.SubmissionAnswer, error) {
	return f.answers[submissionID], nil
}

type fakeAccess struct{ allow bool }

func (f *fakeAccess) CanAccess(userID uint, ref model.TestableRef) (bool, error) {
	return f.allow, nil
}

type fakeEnrollments struct{ id *uint }

func (f *fakeEnrollments) ActiveEnrollmentID(userID, courseID uint) (*uint, error) {
	return f.id, nil
}

type fakeResolver struct{ courseID uint }

func (f *fakeResolver) OwningCourseID(ref model.TestableRef) (uint, error) {
	return f.courseID, nil
}

const (
	fixtureTestID   = uint(1)
	fixtureUserID   = uint(42)
	fixtureGraderID = uint(77)
)

// fixture wires the service against in-memory fakes and a controllable
// clock. The test has one auto-gradable single-choice question (5 pts,
// correct option 3) and one multiple-choice question (10 pts, correct
// {2, 5}).
type fixture struct {
	svc   *SubmissionService
	store *fakeSubmissionStore
	test  *model.Test
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	q1 := *choiceQuestion(model.QuestionSingleChoice, 5, 3)
	q1.ID = 11
	q2 := *choiceQuestion(model.QuestionMultipleChoice, 10, 2, 5)
	q2.ID = 12

	test := &model.Test{
		BaseModel:       model.BaseModel{ID: fixtureTestID},
		Title:           "Unit checkpoint",
		TestableKind:    model.TestableLesson,
		TestableID:      7,
		DurationMinutes: 30,
		MaxAttempts:     2,
		PassingScore:    60,
		IsPublished:     true,
	}

	reader := &fakeTestReader{
		tests:     map[uint]*model.Test{fixtureTestID: test},
		questions: map[uint][]model.Question{fixtureTestID: {q1, q2}},
	}
	store := newFakeSubmissionStore()

	f := &fixture{
		svc:   NewSubmissionService(reader, store, &fakeAccess{allow: true}, &fakeEnrollments{}, &fakeResolver{courseID: 3}, &fakeOwnership{owner: fixtureGraderID}),
		store: store,
		test:  test,
		clock: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func (f *fixture) addManualQuestion() {
	reader := f.svc.Tests.(*fakeTestReader)
	q := model.Question{BaseModel: model.BaseModel{ID: 13}, Type: model.QuestionLongAnswer, Points: 5}
	reader.questions[fixtureTestID] = append(reader.questions[fixtureTestID], q)
}

func TestStartTest(t *testing.T) {
	t.Run("opens first attempt with snapshot and deadline", func(t *testing.T) {
		f := newFixture(t)

		sub, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		require.NoError(t, err)

		assert.Equal(t, 1, sub.AttemptNumber)
		assert.Equal(t, model.SubmissionInProgress, sub.Status)
		assert.Equal(t, 15.0, sub.TotalPoints)
		require.NotNil(t, sub.ExpiresAt)
		assert.Equal(t, f.clock.Add(30*time.Minute), *sub.ExpiresAt)
	})

	t.Run("no deadline without a duration", func(t *testing.T) {
		f := newFixture(t)
		f.test.DurationMinutes = 0

		sub, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		require.NoError(t, err)
		assert.Nil(t, sub.ExpiresAt)
	})

	t.Run("unpublished test is not takeable", func(t *testing.T) {
		f := newFixture(t)
		f.test.IsPublished = false

		_, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		assert.ErrorIs(t, err, util.ErrTestNotTakeable)
	})

	t.Run("inaccessible test is not takeable", func(t *testing.T) {
		f := newFixture(t)
		f.svc.Access = &fakeAccess{allow: false}

		_, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		assert.ErrorIs(t, err, util.ErrTestNotTakeable)
	})

	t.Run("unknown test", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.StartTest(999, fixtureUserID)
		assert.ErrorIs(t, err, util.ErrTestNotFound)
	})

	t.Run("resumes the open attempt instead of stacking", func(t *testing.T) {
		f := newFixture(t)

		first, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		require.NoError(t, err)

		again, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
	})

	t.Run("expired open attempt yields a fresh one", func(t *testing.T) {
		f := newFixture(t)

		first, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		require.NoError(t, err)

		f.advance(31 * time.Minute)

		second, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
		assert.Equal(t, 2, second.AttemptNumber)
		assert.Equal(t, model.SubmissionExpired, f.store.subs[first.ID].Status)
	})

	t.Run("attempt limit counts completed attempts only", func(t *testing.T) {
		f := newFixture(t)
		answers := []AnswerInput{{QuestionID: 11, SelectedOptionIDs: []uint{3}}}

		for i := 0; i < 2; i++ {
			sub, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
			require.NoError(t, err)
			_, err = f.svc.SubmitTest(sub.ID, fixtureUserID, answers)
			require.NoError(t, err)
		}

		_, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		assert.ErrorIs(t, err, util.ErrAttemptLimitExceeded)
	})

	t.Run("unlimited attempts when max is zero", func(t *testing.T) {
		f := newFixture(t)
		f.test.MaxAttempts = 0
		answers := []AnswerInput{{QuestionID: 11, SelectedOptionIDs: []uint{3}}}

		for i := 0; i < 5; i++ {
			sub, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
			require.NoError(t, err)
			_, err = f.svc.SubmitTest(sub.ID, fixtureUserID, answers)
			require.NoError(t, err)
		}
	})
}

func TestSaveDraft(t *testing.T) {
	t.Run("stores draft on an open attempt", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		require.NoError(t, err)

		updated, err := f.svc.SaveDraft(sub.ID, fixtureUserID, []AnswerInput{{QuestionID: 11, SelectedOptionIDs: []uint{3}}})
		require.NoError(t, err)
		assert.NotEmpty(t, updated.DraftAnswers)
		assert.Equal(t, model.SubmissionInProgress, updated.Status)
	})

	t.Run("rejects another user's attempt", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		require.NoError(t, err)

		_, err = f.svc.SaveDraft(sub.ID, 99, nil)
		assert.ErrorIs(t, err, util.ErrPermissionDenied)
	})

	t.Run("rejects a submitted attempt", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		require.NoError(t, err)
		_, err = f.svc.SubmitTest(sub.ID, fixtureUserID, nil)
		require.NoError(t, err)

		_, err = f.svc.SaveDraft(sub.ID, fixtureUserID, nil)
		assert.ErrorIs(t, err, util.ErrInvalidState)
	})

	t.Run("expires a stale attempt instead of accepting the draft", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		require.NoError(t, err)

		f.advance(45 * time.Minute)

		_, err = f.svc.SaveDraft(sub.ID, fixtureUserID, nil)
		assert.ErrorIs(t, err, util.ErrSubmissionExpired)
		assert.Equal(t, model.SubmissionExpired, f.store.subs[sub.ID].Status)
	})
}

func TestSubmitTest(t *testing.T) {
	t.Run("fully auto-gradable attempt lands graded", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		require.NoError(t, err)

		f.advance(10 * time.Minute)

		graded, err := f.svc.SubmitTest(sub.ID, fixtureUserID, []AnswerInput{
			{QuestionID: 11, SelectedOptionIDs: []uint{3}}, // correct, 5 pts
			{QuestionID: 12, SelectedOptionIDs: []uint{2}}, // half of {2,5}, 5 pts
		})
		require.NoError(t, err)

		assert.Equal(t, model.SubmissionGraded, graded.Status)
		require.NotNil(t, graded.Score)
		assert.Equal(t, 66.67, *graded.Score) // 10/15
		assert.True(t, graded.Passed)
		assert.Equal(t, model.GradePass, graded.Grade)
		assert.Equal(t, 600, graded.TimeSpentSeconds)
		assert.Nil(t, graded.DraftAnswers)
		assert.Len(t, f.store.answers[graded.ID], 2)
	})

	t.Run("manual question parks the attempt at submitted", func(t *testing.T) {
		f := newFixture(t)
		f.addManualQuestion()

		sub, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		require.NoError(t, err)

		submitted, err := f.svc.SubmitTest(sub.ID, fixtureUserID, []AnswerInput{
			{QuestionID: 11, SelectedOptionIDs: []uint{3}},
			{QuestionID: 13, Text: "an essay"},
		})
		require.NoError(t, err)

		assert.Equal(t, model.SubmissionSubmitted, submitted.Status)
		assert.Nil(t, submitted.Score)
		assert.Equal(t, 5.0, submitted.PointsEarned, "auto-graded part only")
	})

	t.Run("answers to removed questions are skipped", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		require.NoError(t, err)

		graded, err := f.svc.SubmitTest(sub.ID, fixtureUserID, []AnswerInput{
			{QuestionID: 11, SelectedOptionIDs: []uint{3}},
			{QuestionID: 999, Text: "stale client state"},
		})
		require.NoError(t, err)
		assert.Len(t, f.store.answers[graded.ID], 1)
	})

	t.Run("double submit is rejected", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		require.NoError(t, err)
		_, err = f.svc.SubmitTest(sub.ID, fixtureUserID, nil)
		require.NoError(t, err)

		_, err = f.svc.SubmitTest(sub.ID, fixtureUserID, nil)
		assert.ErrorIs(t, err, util.ErrInvalidState)
	})

	t.Run("expired attempt cannot be submitted", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		require.NoError(t, err)

		f.advance(31 * time.Minute)

		_, err = f.svc.SubmitTest(sub.ID, fixtureUserID, []AnswerInput{{QuestionID: 11, SelectedOptionIDs: []uint{3}}})
		assert.ErrorIs(t, err, util.ErrSubmissionExpired)
	})

	t.Run("empty submission of a zero-point test scores zero", func(t *testing.T) {
		f := newFixture(t)
		reader := f.svc.Tests.(*fakeTestReader)
		reader.questions[fixtureTestID] = nil

		sub, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		require.NoError(t, err)

		graded, err := f.svc.SubmitTest(sub.ID, fixtureUserID, nil)
		require.NoError(t, err)
		require.NotNil(t, graded.Score)
		assert.Equal(t, 0.0, *graded.Score)
		assert.False(t, graded.Passed)
	})
}

func TestGradeManually(t *testing.T) {
	submitWithEssay := func(t *testing.T, f *fixture) *model.TestSubmission {
		t.Helper()
		f.addManualQuestion()
		sub, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		require.NoError(t, err)
		submitted, err := f.svc.SubmitTest(sub.ID, fixtureUserID, []AnswerInput{
			{QuestionID: 11, SelectedOptionIDs: []uint{3}}, // 5 pts auto
			{QuestionID: 12, SelectedOptionIDs: []uint{2, 5}}, // 10 pts auto
			{QuestionID: 13, Text: "an essay"}, // 5 pts manual
		})
		require.NoError(t, err)
		return submitted
	}

	t.Run("resolves pending answers and finalizes", func(t *testing.T) {
		f := newFixture(t)
		sub := submitWithEssay(t, f)

		graded, err := f.svc.GradeManually(sub.ID, fixtureGraderID, false, []ManualGrading{
			{QuestionID: 13, PointsEarned: 4, Feedback: "solid"},
		}, "good work")
		require.NoError(t, err)

		assert.Equal(t, model.SubmissionGraded, graded.Status)
		require.NotNil(t, graded.Score)
		assert.Equal(t, 95.0, *graded.Score) // 19/20
		assert.Equal(t, model.GradeExcellent, graded.Grade)
		require.NotNil(t, graded.GradedBy)
		assert.Equal(t, uint(77), *graded.GradedBy)
		assert.Equal(t, "good work", graded.GraderComments)

		for _, a := range f.store.answers[graded.ID] {
			assert.False(t, a.RequiresManualReview)
		}
	})

	t.Run("grader points are clamped to the possible range", func(t *testing.T) {
		f := newFixture(t)
		sub := submitWithEssay(t, f)

		graded, err := f.svc.GradeManually(sub.ID, fixtureGraderID, false, []ManualGrading{
			{QuestionID: 13, PointsEarned: 50},
		}, "")
		require.NoError(t, err)
		require.NotNil(t, graded.Score)
		assert.Equal(t, 100.0, *graded.Score)

		f2 := newFixture(t)
		sub2 := submitWithEssay(t, f2)
		graded2, err := f2.svc.GradeManually(sub2.ID, fixtureGraderID, false, []ManualGrading{
			{QuestionID: 13, PointsEarned: -3},
		}, "")
		require.NoError(t, err)
		assert.Equal(t, 15.0, graded2.PointsEarned)
	})

	t.Run("ungraded pending answers score zero rather than blocking", func(t *testing.T) {
		f := newFixture(t)
		sub := submitWithEssay(t, f)

		graded, err := f.svc.GradeManually(sub.ID, fixtureGraderID, false, nil, "")
		require.NoError(t, err)
		assert.Equal(t, model.SubmissionGraded, graded.Status)
		assert.Equal(t, 15.0, graded.PointsEarned)
	})

	t.Run("grader must own the test's parent", func(t *testing.T) {
		f := newFixture(t)
		sub := submitWithEssay(t, f)

		_, err := f.svc.GradeManually(sub.ID, 99, false, []ManualGrading{
			{QuestionID: 13, PointsEarned: 4},
		}, "")
		assert.ErrorIs(t, err, util.ErrPermissionDenied)
		assert.Equal(t, model.SubmissionSubmitted, f.store.subs[sub.ID].Status)
	})

	t.Run("elevated grader bypasses ownership", func(t *testing.T) {
		f := newFixture(t)
		sub := submitWithEssay(t, f)

		graded, err := f.svc.GradeManually(sub.ID, 99, true, []ManualGrading{
			{QuestionID: 13, PointsEarned: 5},
		}, "")
		require.NoError(t, err)
		assert.Equal(t, model.SubmissionGraded, graded.Status)
	})

	t.Run("only submitted attempts can be graded", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		require.NoError(t, err)

		_, err = f.svc.GradeManually(sub.ID, fixtureGraderID, false, nil, "")
		assert.ErrorIs(t, err, util.ErrInvalidState)
	})

	t.Run("nothing pending means nothing to grade", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		require.NoError(t, err)
		graded, err := f.svc.SubmitTest(sub.ID, fixtureUserID, []AnswerInput{
			{QuestionID: 11, SelectedOptionIDs: []uint{3}},
		})
		require.NoError(t, err)

		// Force the stored row back to submitted with no pending answers.
		f.store.subs[graded.ID].Status = model.SubmissionSubmitted

		_, err = f.svc.GradeManually(graded.ID, fixtureGraderID, false, nil, "")
		assert.ErrorIs(t, err, util.ErrNothingToGrade)
	})

	t.Run("graded attempt cannot be regraded", func(t *testing.T) {
		f := newFixture(t)
		sub := submitWithEssay(t, f)

		_, err := f.svc.GradeManually(sub.ID, fixtureGraderID, false, []ManualGrading{{QuestionID: 13, PointsEarned: 5}}, "")
		require.NoError(t, err)

		_, err = f.svc.GradeManually(sub.ID, fixtureGraderID, false, nil, "")
		assert.ErrorIs(t, err, util.ErrInvalidState)
	})
}

func TestGetSubmission(t *testing.T) {
	t.Run("owner sees attempt with answers", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		require.NoError(t, err)
		_, err = f.svc.SubmitTest(sub.ID, fixtureUserID, []AnswerInput{{QuestionID: 11, SelectedOptionIDs: []uint{3}}})
		require.NoError(t, err)

		got, answers, err := f.svc.GetSubmission(sub.ID, fixtureUserID, false)
		require.NoError(t, err)
		assert.Equal(t, sub.ID, got.ID)
		assert.Len(t, answers, 1)
	})

	t.Run("stranger is rejected, elevated reader is not", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		require.NoError(t, err)

		_, _, err = f.svc.GetSubmission(sub.ID, 99, false)
		assert.ErrorIs(t, err, util.ErrPermissionDenied)

		_, _, err = f.svc.GetSubmission(sub.ID, 99, true)
		assert.NoError(t, err)
	})

	t.Run("settles lazy expiry on read", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.svc.StartTest(fixtureTestID, fixtureUserID)
		require.NoError(t, err)

		f.advance(31 * time.Minute)

		got, _, err := f.svc.GetSubmission(sub.ID, fixtureUserID, false)
		require.NoError(t, err)
		assert.Equal(t, model.SubmissionExpired, got.Status)
	})
}
