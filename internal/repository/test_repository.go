package repository

import (
	"edulearn_backend/internal/model"

	"gorm.io/gorm"
)

type TestRepository struct {
	DB *gorm.DB
}

func NewTestRepository(db *gorm.DB) *TestRepository {
	return &TestRepository{DB: db}
}

func (r *TestRepository) FindTestByID(id uint) (*model.Test, error) {
	var test model.Test
	err := r.DB.First(&test, id).Error
	return &test, err
}

func (r *TestRepository) QuestionsWithOptions(testID uint) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("test_id = ?", testID).
		Order("position ASC").
		Find(&questions).Error
	return questions, err
}

func (r *TestRepository) CreateTest(test *model.Test) error {
	return r.DB.Create(test).Error
}

func (r *TestRepository) UpdateTest(test *model.Test) error {
	return r.DB.Save(test).Error
}

func (r *TestRepository) SoftDeleteTest(id uint) error {
	return r.DB.Delete(&model.Test{}, id).Error
}

func (r *TestRepository) ListTests(ref model.TestableRef) ([]model.Test, error) {
	var tests []model.Test
	err := r.DB.
		Where("testable_kind = ? AND testable_id = ?", ref.Kind, ref.ID).
		Order("created_at ASC").
		Find(&tests).Error
	return tests, err
}

func (r *TestRepository) CreateQuestion(q *model.Question, options []model.QuestionOption) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(q).Error; err != nil {
			return err
		}
		for i := range options {
			options[i].QuestionID = q.ID
		}
		if len(options) > 0 {
			if err := tx.Create(&options).Error; err != nil {
				return err
			}
		}
		q.Options = options
		return nil
	})
}

// UpdateQuestion replaces the option set wholesale. Submitted answers keep
// their own point snapshots, so rewriting options does not rewrite history.
func (r *TestRepository) UpdateQuestion(q *model.Question, options []model.QuestionOption) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(q).Error; err != nil {
			return err
		}
		if err := tx.Where("question_id = ?", q.ID).Delete(&model.QuestionOption{}).Error; err != nil {
			return err
		}
		for i := range options {
			options[i].ID = 0
			options[i].QuestionID = q.ID
		}
		if len(options) > 0 {
			if err := tx.Create(&options).Error; err != nil {
				return err
			}
		}
		q.Options = options
		return nil
	})
}

func (r *TestRepository) DeleteQuestion(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", id).Delete(&model.QuestionOption{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Question{}, id).Error
	})
}

func (r *TestRepository) FindQuestionByID(id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.Preload("Options").First(&q, id).Error
	return &q, err
}

func (r *TestRepository) CountQuestions(testID uint) (int64, error) {
	var n int64
	err := r.DB.Model(&model.Question{}).Where("test_id = ?", testID).Count(&n).Error
	return n, err
}

func (r *TestRepository) SumQuestionPoints(testID uint) (float64, error) {
	var sum float64
	err := r.DB.Model(&model.Question{}).
		Where("test_id = ?", testID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&sum).Error
	return sum, err
}

// CountAttempts counts the submissions that consumed an attempt: submitted
// and graded ones.
func (r *TestRepository) CountAttempts(testID uint) (int64, error) {
	var n int64
	err := r.DB.Model(&model.TestSubmission{}).
		Where("test_id = ? AND status IN ?",
			testID, []model.SubmissionStatus{model.SubmissionSubmitted, model.SubmissionGraded}).
		Count(&n).Error
	return n, err
}

// CompletedScores returns the final scores of graded attempts; attempts
// still pending manual review carry no score yet and are excluded.
func (r *TestRepository) CompletedScores(testID uint) ([]float64, error) {
	var scores []float64
	err := r.DB.Model(&model.TestSubmission{}).
		Where("test_id = ? AND status = ? AND score IS NOT NULL", testID, model.SubmissionGraded).
		Pluck("score", &scores).Error
	return scores, err
}

func (r *TestRepository) UpdateStats(testID uint, stats model.Test) error {
	return r.DB.Model(&model.Test{}).
		Where("id = ?", testID).
		Updates(map[string]interface{}{
			"total_questions": stats.TotalQuestions,
			"total_points":    stats.TotalPoints,
			"attempts_count":  stats.AttemptsCount,
			"average_score":   stats.AverageScore,
		}).Error
}
