package model

import (
	"encoding/json"
	"time"
)

type SubmissionStatus string

const (
	SubmissionInProgress SubmissionStatus = "in_progress"
	SubmissionSubmitted  SubmissionStatus = "submitted"
	SubmissionGraded     SubmissionStatus = "graded"
	SubmissionExpired    SubmissionStatus = "expired"
)

type GradeTier string

const (
	GradeExcellent GradeTier = "excellent"
	GradeVeryGood  GradeTier = "very_good"
	GradeGood      GradeTier = "good"
	GradePass      GradeTier = "pass"
	GradeFail      GradeTier = "fail"
)

// swagger:model TestSubmission
type TestSubmission struct {
	BaseModel
	TestID        uint             `gorm:"uniqueIndex:idx_test_user_attempt;type:bigint unsigned" json:"testId"`
	UserID        uint             `gorm:"uniqueIndex:idx_test_user_attempt;type:bigint unsigned" json:"userId"`
	AttemptNumber int              `gorm:"uniqueIndex:idx_test_user_attempt" json:"attemptNumber"`
	EnrollmentID  *uint            `gorm:"type:bigint unsigned" json:"enrollmentId,omitempty"`
	Status        SubmissionStatus `gorm:"size:20;default:'in_progress';index" json:"status"`

	StartedAt        time.Time  `json:"startedAt"`
	SubmittedAt      *time.Time `json:"submittedAt,omitempty"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
	TimeSpentSeconds int        `gorm:"default:0" json:"timeSpentSeconds"`

	// TotalPoints is snapshot at start time; the test may change afterwards.
	Score        *float64  `json:"score,omitempty"`
	PointsEarned float64   `gorm:"default:0" json:"pointsEarned"`
	TotalPoints  float64   `gorm:"default:0" json:"totalPoints"`
	Passed       bool      `gorm:"default:false" json:"passed"`
	Grade        GradeTier `gorm:"size:20" json:"grade,omitempty"`

	GradedBy       *uint      `gorm:"type:bigint unsigned" json:"gradedBy,omitempty"`
	GradedAt       *time.Time `json:"gradedAt,omitempty"`
	GraderComments string     `gorm:"type:text" json:"graderComments,omitempty"`

	DraftAnswers json.RawMessage `gorm:"type:json" json:"draftAnswers,omitempty"`
}

func (TestSubmission) TableName() string {
	return "test_submissions"
}

// IsExpired is the pure expiry predicate; mutation happens only in
// SubmissionService.MarkExpiredIfNeeded.
func (s *TestSubmission) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

func (s *TestSubmission) IsFinal() bool {
	return s.Status == SubmissionGraded || s.Status == SubmissionExpired
}

// swagger:model SubmissionAnswer
type SubmissionAnswer struct {
	BaseModel
	SubmissionID uint `gorm:"uniqueIndex:idx_submission_question;type:bigint unsigned" json:"submissionId"`
	QuestionID   uint `gorm:"uniqueIndex:idx_submission_question;type:bigint unsigned" json:"questionId"`

	TextAnswer        string          `gorm:"type:text" json:"textAnswer,omitempty"`
	SelectedOptionIDs json.RawMessage `gorm:"type:json" json:"selectedOptionIds,omitempty"`
	ArtifactPath      string          `gorm:"size:512" json:"artifactPath,omitempty"`

	IsCorrect            *bool   `json:"isCorrect,omitempty"` // nil until graded
	PointsEarned         float64 `gorm:"default:0" json:"pointsEarned"`
	PointsPossible       float64 `gorm:"default:0" json:"pointsPossible"`
	RequiresManualReview bool    `gorm:"default:false" json:"requiresManualReview"`
	Feedback             string  `gorm:"type:text" json:"feedback,omitempty"`
}

func (SubmissionAnswer) TableName() string {
	return "submission_answers"
}

func (a *SubmissionAnswer) SetSelectedOptions(ids []uint) {
	if len(ids) == 0 {
		a.SelectedOptionIDs = nil
		return
	}
	raw, _ := json.Marshal(ids)
	a.SelectedOptionIDs = raw
}

func (a *SubmissionAnswer) SelectedOptions() []uint {
	if len(a.SelectedOptionIDs) == 0 {
		return nil
	}
	var ids []uint
	if err := json.Unmarshal(a.SelectedOptionIDs, &ids); err != nil {
		return nil
	}
	return ids
}
