package service

import (
	"testing"

	"edulearn_backend/internal/model"
	"edulearn_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeTestStore struct {
	nextID    uint
	tests     map[uint]*model.Test
	questions map[uint]*model.Question
	options   map[uint][]model.QuestionOption
	attempts  int64
	scores    []float64
	stats     map[uint]model.Test
}

func newFakeTestStore() *fakeTestStore {
	return &fakeTestStore{
		tests:     make(map[uint]*model.Test),
		questions: make(map[uint]*model.Question),
		options:   make(map[uint][]model.QuestionOption),
		stats:     make(map[uint]model.Test),
	}
}

func (f *fakeTestStore) FindTestByID(id uint) (*model.Test, error) {
	t, ok := f.tests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (f *fakeTestStore) QuestionsWithOptions(testID uint) ([]model.Question, error) {
	var out []model.Question
	for _, q := range f.questions {
		if q.TestID == testID {
			q.Options = f.options[q.ID]
			out = append(out, *q)
		}
	}
	return out, nil
}

func (f *fakeTestStore) CreateTest(test *model.Test) error {
	f.nextID++
	test.ID = f.nextID
	f.tests[test.ID] = test
	return nil
}

func (f *fakeTestStore) UpdateTest(test *model.Test) error {
	f.tests[test.ID] = test
	return nil
}

func (f *fakeTestStore) SoftDeleteTest(id uint) error {
	delete(f.tests, id)
	return nil
}

func (f *fakeTestStore) ListTests(ref model.TestableRef) ([]model.Test, error) {
	var out []model.Test
	for _, t := range f.tests {
		if t.TestableKind == ref.Kind && t.TestableID == ref.ID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTestStore) CreateQuestion(q *model.Question, options []model.QuestionOption) error {
	f.nextID++
	q.ID = f.nextID
	f.questions[q.ID] = q
	f.options[q.ID] = options
	return nil
}

func (f *fakeTestStore) UpdateQuestion(q *model.Question, options []model.QuestionOption) error {
	f.questions[q.ID] = q
	f.options[q.ID] = options
	return nil
}

func (f *fakeTestStore) DeleteQuestion(id uint) error {
	delete(f.questions, id)
	delete(f.options, id)
	return nil
}

func (f *fakeTestStore) FindQuestionByID(id uint) (*model.Question, error) {
	q, ok := f.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return q, nil
}

func (f *fakeTestStore) CountQuestions(testID uint) (int64, error) {
	var n int64
	for _, q := range f.questions {
		if q.TestID == testID {
			n++
		}
	}
	return n, nil
}

func (f *fakeTestStore) SumQuestionPoints(testID uint) (float64, error) {
	sum := 0.0
	for _, q := range f.questions {
		if q.TestID == testID {
			sum += float64(q.Points)
		}
	}
	return sum, nil
}

func (f *fakeTestStore) CountAttempts(testID uint) (int64, error) {
	return f.attempts, nil
}

func (f *fakeTestStore) CompletedScores(testID uint) ([]float64, error) {
	return f.scores, nil
}

func (f *fakeTestStore) UpdateStats(testID uint, stats model.Test) error {
	f.stats[testID] = stats
	if t, ok := f.tests[testID]; ok {
		t.TotalQuestions = stats.TotalQuestions
		t.TotalPoints = stats.TotalPoints
		t.AttemptsCount = stats.AttemptsCount
		t.AverageScore = stats.AverageScore
	}
	return nil
}

type fakeOwnership struct{ owner uint }

func (f *fakeOwnership) Owns(userID uint, ref model.TestableRef) (bool, error) {
	return userID == f.owner, nil
}

const ownerID = uint(5)

func newTestService() (*TestService, *fakeTestStore) {
	store := newFakeTestStore()
	return NewTestService(store, &fakeOwnership{owner: ownerID}), store
}

func strPtr(s string) *string { return &s }

func lessonRef() *model.TestableRef {
	return &model.TestableRef{Kind: model.TestableLesson, ID: 7}
}

func TestCreateTest(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		svc, _ := newTestService()

		test, err := svc.CreateTest(ownerID, TestReq{Title: strPtr("Checkpoint"), Testable: lessonRef()})
		require.NoError(t, err)

		assert.Equal(t, model.TestFormative, test.Type)
		assert.Equal(t, 60.0, test.PassingScore)
		assert.False(t, test.IsPublished)
	})

	t.Run("rejects non-owners", func(t *testing.T) {
		svc, _ := newTestService()

		_, err := svc.CreateTest(99, TestReq{Title: strPtr("Checkpoint"), Testable: lessonRef()})
		assert.ErrorIs(t, err, util.ErrPermissionDenied)
	})

	t.Run("requires title and a valid parent", func(t *testing.T) {
		svc, _ := newTestService()

		_, err := svc.CreateTest(ownerID, TestReq{Testable: lessonRef()})
		assert.Error(t, err)

		_, err = svc.CreateTest(ownerID, TestReq{Title: strPtr("Checkpoint")})
		assert.Error(t, err)

		_, err = svc.CreateTest(ownerID, TestReq{
			Title:    strPtr("Checkpoint"),
			Testable: &model.TestableRef{Kind: "worksheet", ID: 1},
		})
		assert.Error(t, err)
	})
}

func mustCreateTest(t *testing.T, svc *TestService) *model.Test {
	t.Helper()
	test, err := svc.CreateTest(ownerID, TestReq{Title: strPtr("Checkpoint"), Testable: lessonRef()})
	require.NoError(t, err)
	return test
}

func TestAddQuestion(t *testing.T) {
	t.Run("creates and refreshes stats", func(t *testing.T) {
		svc, _ := newTestService()
		test := mustCreateTest(t, svc)

		_, err := svc.AddQuestion(ownerID, test.ID, QuestionReq{
			Text:   "2+2?",
			Type:   model.QuestionSingleChoice,
			Points: 5,
			Options: []QuestionOptionReq{
				{Text: "3"},
				{Text: "4", IsCorrect: true},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, 1, test.TotalQuestions)
		assert.Equal(t, 5.0, test.TotalPoints)
	})

	t.Run("defaults points to one", func(t *testing.T) {
		svc, _ := newTestService()
		test := mustCreateTest(t, svc)

		q, err := svc.AddQuestion(ownerID, test.ID, QuestionReq{
			Text: "essay",
			Type: model.QuestionLongAnswer,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, q.Points)
	})

	t.Run("single choice needs exactly one correct option", func(t *testing.T) {
		svc, _ := newTestService()
		test := mustCreateTest(t, svc)

		for _, options := range [][]QuestionOptionReq{
			{{Text: "a"}, {Text: "b"}},
			{{Text: "a", IsCorrect: true}, {Text: "b", IsCorrect: true}},
		} {
			_, err := svc.AddQuestion(ownerID, test.ID, QuestionReq{
				Text:    "pick one",
				Type:    model.QuestionSingleChoice,
				Options: options,
			})
			assert.Error(t, err)
		}
	})

	t.Run("true/false follows the same invariant", func(t *testing.T) {
		svc, _ := newTestService()
		test := mustCreateTest(t, svc)

		_, err := svc.AddQuestion(ownerID, test.ID, QuestionReq{
			Text: "the sky is green",
			Type: model.QuestionTrueFalse,
			Options: []QuestionOptionReq{
				{Text: "true"},
				{Text: "false", IsCorrect: true},
			},
		})
		assert.NoError(t, err)
	})

	t.Run("multiple choice needs options", func(t *testing.T) {
		svc, _ := newTestService()
		test := mustCreateTest(t, svc)

		_, err := svc.AddQuestion(ownerID, test.ID, QuestionReq{
			Text: "pick any",
			Type: model.QuestionMultipleChoice,
		})
		assert.Error(t, err)
	})

	t.Run("rejects non-owners", func(t *testing.T) {
		svc, _ := newTestService()
		test := mustCreateTest(t, svc)

		_, err := svc.AddQuestion(99, test.ID, QuestionReq{Text: "essay", Type: model.QuestionLongAnswer})
		assert.ErrorIs(t, err, util.ErrPermissionDenied)
	})
}

func TestDeleteQuestion(t *testing.T) {
	svc, _ := newTestService()
	test := mustCreateTest(t, svc)

	q, err := svc.AddQuestion(ownerID, test.ID, QuestionReq{Text: "essay", Type: model.QuestionLongAnswer, Points: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, test.TotalQuestions)

	require.NoError(t, svc.DeleteQuestion(ownerID, q.ID))
	assert.Equal(t, 0, test.TotalQuestions)
	assert.Equal(t, 0.0, test.TotalPoints)
}

func TestRecomputeStats(t *testing.T) {
	t.Run("derives averages from completed scores", func(t *testing.T) {
		svc, store := newTestService()
		test := mustCreateTest(t, svc)
		store.attempts = 3
		store.scores = []float64{80, 90, 70.5}

		require.NoError(t, svc.RecomputeStats(test.ID))

		assert.Equal(t, 3, test.AttemptsCount)
		assert.Equal(t, 80.17, test.AverageScore)
	})

	t.Run("attempts pending manual review count without a score", func(t *testing.T) {
		svc, store := newTestService()
		test := mustCreateTest(t, svc)
		store.attempts = 4
		store.scores = []float64{80, 90, 70.5}

		require.NoError(t, svc.RecomputeStats(test.ID))

		assert.Equal(t, 4, test.AttemptsCount)
		assert.Equal(t, 80.17, test.AverageScore)
	})

	t.Run("repeated recomputes land on the same values", func(t *testing.T) {
		svc, store := newTestService()
		test := mustCreateTest(t, svc)
		store.attempts = 2
		store.scores = []float64{66.67, 33.33}

		require.NoError(t, svc.RecomputeStats(test.ID))
		first := *test

		require.NoError(t, svc.RecomputeStats(test.ID))
		assert.Equal(t, first.AttemptsCount, test.AttemptsCount)
		assert.Equal(t, first.AverageScore, test.AverageScore)
		assert.Equal(t, first.TotalQuestions, test.TotalQuestions)
		assert.Equal(t, first.TotalPoints, test.TotalPoints)
	})

	t.Run("no attempts means zero average", func(t *testing.T) {
		svc, _ := newTestService()
		test := mustCreateTest(t, svc)

		require.NoError(t, svc.RecomputeStats(test.ID))
		assert.Equal(t, 0, test.AttemptsCount)
		assert.Equal(t, 0.0, test.AverageScore)
	})
}
