package repository

import (
	"math"

	"edulearn_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

// CreateAttempt allocates the attempt number under a row lock so two
// concurrent starts for the same (test, user) cannot pick the same one.
// The unique index on (test_id, user_id, attempt_number) backstops the
// lock.
func (r *SubmissionRepository) CreateAttempt(sub *model.TestSubmission) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var last int
		err := tx.Model(&model.TestSubmission{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("test_id = ? AND user_id = ?", sub.TestID, sub.UserID).
			Select("COALESCE(MAX(attempt_number), 0)").
			Scan(&last).Error
		if err != nil {
			return err
		}
		sub.AttemptNumber = last + 1
		return tx.Create(sub).Error
	})
}

func (r *SubmissionRepository) Update(sub *model.TestSubmission) error {
	return r.DB.Save(sub).Error
}

func (r *SubmissionRepository) FindByID(id uint) (*model.TestSubmission, error) {
	var sub model.TestSubmission
	err := r.DB.First(&sub, id).Error
	return &sub, err
}

func (r *SubmissionRepository) FindInProgress(testID, userID uint) (*model.TestSubmission, error) {
	var sub model.TestSubmission
	err := r.DB.
		Where("test_id = ? AND user_id = ? AND status = ?", testID, userID, model.SubmissionInProgress).
		Order("attempt_number DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CountCompleted counts the attempts that consume the attempt budget:
// submitted and graded ones. In-progress and expired attempts do not.
func (r *SubmissionRepository) CountCompleted(testID, userID uint) (int64, error) {
	var n int64
	err := r.DB.Model(&model.TestSubmission{}).
		Where("test_id = ? AND user_id = ? AND status IN ?",
			testID, userID, []model.SubmissionStatus{model.SubmissionSubmitted, model.SubmissionGraded}).
		Count(&n).Error
	return n, err
}

// Finalize commits the submission, its answer rows and the refreshed test
// statistics in one transaction.
func (r *SubmissionRepository) Finalize(sub *model.TestSubmission, answers []model.SubmissionAnswer) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(sub).Error; err != nil {
			return err
		}
		for i := range answers {
			answers[i].SubmissionID = sub.ID
		}
		if len(answers) > 0 {
			if err := tx.Create(&answers).Error; err != nil {
				return err
			}
		}
		return refreshTestStats(tx, sub.TestID)
	})
}

// ApplyManualGrades persists grader verdicts together with the finalized
// submission and the refreshed statistics.
func (r *SubmissionRepository) ApplyManualGrades(sub *model.TestSubmission, answers []model.SubmissionAnswer) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(sub).Error; err != nil {
			return err
		}
		for i := range answers {
			if err := tx.Save(&answers[i]).Error; err != nil {
				return err
			}
		}
		return refreshTestStats(tx, sub.TestID)
	})
}

func (r *SubmissionRepository) Answers(submissionID uint) ([]model.SubmissionAnswer, error) {
	var answers []model.SubmissionAnswer
	err := r.DB.
		Where("submission_id = ?", submissionID).
		Order("question_id ASC").
		Find(&answers).Error
	return answers, err
}

// refreshTestStats rebuilds the attempt statistics, a full recompute
// rather than an incremental patch. Attempts pending manual review count
// as attempts but carry no score yet, so the average covers graded
// attempts only.
func refreshTestStats(tx *gorm.DB, testID uint) error {
	var attempts int64
	err := tx.Model(&model.TestSubmission{}).
		Where("test_id = ? AND status IN ?",
			testID, []model.SubmissionStatus{model.SubmissionSubmitted, model.SubmissionGraded}).
		Count(&attempts).Error
	if err != nil {
		return err
	}

	var avg float64
	err = tx.Model(&model.TestSubmission{}).
		Where("test_id = ? AND status = ? AND score IS NOT NULL", testID, model.SubmissionGraded).
		Select("COALESCE(AVG(score), 0)").
		Scan(&avg).Error
	if err != nil {
		return err
	}

	return tx.Model(&model.Test{}).
		Where("id = ?", testID).
		Updates(map[string]interface{}{
			"attempts_count": attempts,
			"average_score":  math.Round(avg*100) / 100,
		}).Error
}
