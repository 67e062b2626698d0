package service

import (
	"errors"

	"edulearn_backend/internal/model"
	"edulearn_backend/internal/util"
	"edulearn_backend/pkg/logger"

	"go.uber.org/zap"
)

// TestStore persists test and question definitions and serves the raw
// aggregates the statistics recompute is derived from.
type TestStore interface {
	TestReader
	CreateTest(test *model.Test) error
	UpdateTest(test *model.Test) error
	SoftDeleteTest(id uint) error
	ListTests(ref model.TestableRef) ([]model.Test, error)

	CreateQuestion(q *model.Question, options []model.QuestionOption) error
	UpdateQuestion(q *model.Question, options []model.QuestionOption) error
	DeleteQuestion(id uint) error
	FindQuestionByID(id uint) (*model.Question, error)

	// Aggregates for RecomputeStats.
	CountQuestions(testID uint) (int64, error)
	SumQuestionPoints(testID uint) (float64, error)
	CountAttempts(testID uint) (int64, error)
	CompletedScores(testID uint) ([]float64, error)
	UpdateStats(testID uint, stats model.Test) error
}

// OwnershipChecker answers whether a user owns the entity a test attaches
// to; authoring is restricted to owners.
type OwnershipChecker interface {
	Owns(userID uint, ref model.TestableRef) (bool, error)
}

type TestService struct {
	Store     TestStore
	Ownership OwnershipChecker
}

func NewTestService(store TestStore, ownership OwnershipChecker) *TestService {
	return &TestService{Store: store, Ownership: ownership}
}

type TestReq struct {
	Title           *string               `json:"title"`
	Description     *string               `json:"description"`
	Type            *model.TestType       `json:"type"`
	Testable        *model.TestableRef    `json:"testable"`
	DurationMinutes *int                  `json:"durationMinutes"`
	MaxAttempts     *int                  `json:"maxAttempts"`
	PassingScore    *float64              `json:"passingScore"`
	ValidationMode  *model.ValidationMode `json:"validationMode"`
	IsPublished     *bool                 `json:"isPublished"`
}

func (s *TestService) CreateTest(userID uint, req TestReq) (*model.Test, error) {
	if req.Title == nil || *req.Title == "" {
		return nil, errors.New("title is required")
	}
	if req.Testable == nil || !req.Testable.Valid() {
		return nil, errors.New("testable parent is required")
	}

	if err := s.requireOwner(userID, *req.Testable); err != nil {
		return nil, err
	}

	test := &model.Test{
		Title:        *req.Title,
		Type:         model.TestFormative,
		TestableKind: req.Testable.Kind,
		TestableID:   req.Testable.ID,
		PassingScore: 60,
	}
	applyTestReq(test, req)

	if err := s.Store.CreateTest(test); err != nil {
		return nil, err
	}
	return test, nil
}

func (s *TestService) UpdateTest(userID, testID uint, req TestReq) (*model.Test, error) {
	test, err := s.Store.FindTestByID(testID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(userID, test.Testable()); err != nil {
		return nil, err
	}

	applyTestReq(test, req)

	if err := s.Store.UpdateTest(test); err != nil {
		return nil, err
	}
	return test, nil
}

// DeleteTest soft-deletes; attempts referencing the test stay for audit.
func (s *TestService) DeleteTest(userID, testID uint) error {
	test, err := s.Store.FindTestByID(testID)
	if err != nil {
		return err
	}
	if err := s.requireOwner(userID, test.Testable()); err != nil {
		return err
	}
	return s.Store.SoftDeleteTest(testID)
}

func (s *TestService) GetTest(testID uint) (*model.Test, []model.Question, error) {
	test, err := s.Store.FindTestByID(testID)
	if err != nil {
		return nil, nil, err
	}
	questions, err := s.Store.QuestionsWithOptions(testID)
	return test, questions, err
}

func (s *TestService) ListTests(ref model.TestableRef) ([]model.Test, error) {
	return s.Store.ListTests(ref)
}

type QuestionOptionReq struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"isCorrect"`
	Position  int    `json:"position"`
	Feedback  string `json:"feedback"`
}

type QuestionReq struct {
	Text          string              `json:"text" binding:"required"`
	Type          model.QuestionType  `json:"type" binding:"required"`
	Points        int                 `json:"points"`
	Position      int                 `json:"position"`
	ManualGrading bool                `json:"manualGrading"`
	Options       []QuestionOptionReq `json:"options"`
}

// AddQuestion creates a question and recomputes the test statistics. The
// single-correct-option invariant for single_choice/true_false is enforced
// here, at authoring time.
func (s *TestService) AddQuestion(userID, testID uint, req QuestionReq) (*model.Question, error) {
	test, err := s.Store.FindTestByID(testID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(userID, test.Testable()); err != nil {
		return nil, err
	}
	if err := validateQuestionReq(req); err != nil {
		return nil, err
	}

	q := &model.Question{
		TestID:        testID,
		Text:          req.Text,
		Type:          req.Type,
		Points:        req.Points,
		Position:      req.Position,
		ManualGrading: req.ManualGrading,
	}
	if q.Points <= 0 {
		q.Points = 1
	}

	if err := s.Store.CreateQuestion(q, optionRows(req.Options)); err != nil {
		return nil, err
	}

	if err := s.RecomputeStats(testID); err != nil {
		logger.Log.Error("stats recompute after question add failed",
			zap.Uint("testId", testID), zap.Error(err))
	}
	return q, nil
}

func (s *TestService) UpdateQuestion(userID, questionID uint, req QuestionReq) (*model.Question, error) {
	q, err := s.Store.FindQuestionByID(questionID)
	if err != nil {
		return nil, err
	}
	test, err := s.Store.FindTestByID(q.TestID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(userID, test.Testable()); err != nil {
		return nil, err
	}
	if err := validateQuestionReq(req); err != nil {
		return nil, err
	}

	q.Text = req.Text
	q.Type = req.Type
	q.Points = req.Points
	q.Position = req.Position
	q.ManualGrading = req.ManualGrading
	if q.Points <= 0 {
		q.Points = 1
	}

	if err := s.Store.UpdateQuestion(q, optionRows(req.Options)); err != nil {
		return nil, err
	}

	if err := s.RecomputeStats(q.TestID); err != nil {
		logger.Log.Error("stats recompute after question update failed",
			zap.Uint("testId", q.TestID), zap.Error(err))
	}
	return q, nil
}

func (s *TestService) DeleteQuestion(userID, questionID uint) error {
	q, err := s.Store.FindQuestionByID(questionID)
	if err != nil {
		return err
	}
	test, err := s.Store.FindTestByID(q.TestID)
	if err != nil {
		return err
	}
	if err := s.requireOwner(userID, test.Testable()); err != nil {
		return err
	}

	if err := s.Store.DeleteQuestion(questionID); err != nil {
		return err
	}
	return s.RecomputeStats(q.TestID)
}

// RecomputeStats rebuilds the denormalized statistics from current state.
// It is a full recompute, never an incremental patch, so repeated calls
// with unchanged data always land on the same values.
func (s *TestService) RecomputeStats(testID uint) error {
	questionCount, err := s.Store.CountQuestions(testID)
	if err != nil {
		return err
	}
	totalPoints, err := s.Store.SumQuestionPoints(testID)
	if err != nil {
		return err
	}
	attempts, err := s.Store.CountAttempts(testID)
	if err != nil {
		return err
	}
	scores, err := s.Store.CompletedScores(testID)
	if err != nil {
		return err
	}

	average := 0.0
	if len(scores) > 0 {
		sum := 0.0
		for _, sc := range scores {
			sum += sc
		}
		average = util.Round2(sum / float64(len(scores)))
	}

	return s.Store.UpdateStats(testID, model.Test{
		TotalQuestions: int(questionCount),
		TotalPoints:    totalPoints,
		AttemptsCount:  int(attempts),
		AverageScore:   average,
	})
}

func applyTestReq(test *model.Test, req TestReq) {
	if req.Title != nil {
		test.Title = *req.Title
	}
	if req.Description != nil {
		test.Description = *req.Description
	}
	if req.Type != nil {
		test.Type = *req.Type
	}
	if req.DurationMinutes != nil {
		test.DurationMinutes = *req.DurationMinutes
	}
	if req.MaxAttempts != nil {
		test.MaxAttempts = *req.MaxAttempts
	}
	if req.PassingScore != nil {
		test.PassingScore = *req.PassingScore
	}
	if req.ValidationMode != nil {
		test.ValidationMode = *req.ValidationMode
	}
	if req.IsPublished != nil {
		test.IsPublished = *req.IsPublished
	}
}

func validateQuestionReq(req QuestionReq) error {
	if !req.Type.IsChoice() {
		return nil
	}
	correct := 0
	for _, o := range req.Options {
		if o.IsCorrect {
			correct++
		}
	}
	switch req.Type {
	case model.QuestionSingleChoice, model.QuestionTrueFalse:
		if correct != 1 {
			return errors.New("single-choice questions need exactly one correct option")
		}
	case model.QuestionMultipleChoice:
		if len(req.Options) == 0 {
			return errors.New("choice questions need options")
		}
	}
	return nil
}

func optionRows(reqs []QuestionOptionReq) []model.QuestionOption {
	rows := make([]model.QuestionOption, 0, len(reqs))
	for _, o := range reqs {
		rows = append(rows, model.QuestionOption{
			Text:      o.Text,
			IsCorrect: o.IsCorrect,
			Position:  o.Position,
			Feedback:  o.Feedback,
		})
	}
	return rows
}

func (s *TestService) requireOwner(userID uint, ref model.TestableRef) error {
	owns, err := s.Ownership.Owns(userID, ref)
	if err != nil {
		return err
	}
	if !owns {
		return util.ErrPermissionDenied
	}
	return nil
}
