package model

import "time"

type TestType string

const (
	TestFormative TestType = "formative"
	TestSummative TestType = "summative"
)

type ValidationMode string

const (
	ValidationAutomatic ValidationMode = "automatic"
	ValidationManual    ValidationMode = "manual"
	ValidationMixed     ValidationMode = "mixed"
)

// swagger:model Test
type Test struct {
	BaseModel
	Title           string         `gorm:"size:255;not null" json:"title"`
	Description     string         `gorm:"type:text" json:"description"`
	Type            TestType       `gorm:"size:20;default:'formative'" json:"type"`
	TestableKind    TestableKind   `gorm:"size:20;index:idx_testable" json:"testableKind"`
	TestableID      uint           `gorm:"index:idx_testable;type:bigint unsigned" json:"testableId"`
	DurationMinutes int            `gorm:"default:0" json:"durationMinutes"` // 0 = no time limit
	MaxAttempts     int            `gorm:"default:0" json:"maxAttempts"`     // 0 = unlimited
	PassingScore    float64        `gorm:"default:60" json:"passingScore"`   // percentage 0-100
	ValidationMode  ValidationMode `gorm:"size:20;default:'automatic'" json:"validationMode"`
	IsPublished     bool           `gorm:"default:false" json:"isPublished"`
	PublishedAt     *time.Time     `json:"publishedAt,omitempty"`

	// Denormalized statistics, maintained by full recompute only.
	TotalQuestions int     `gorm:"default:0" json:"totalQuestions"`
	TotalPoints    float64 `gorm:"default:0" json:"totalPoints"`
	AttemptsCount  int     `gorm:"default:0" json:"attemptsCount"`
	AverageScore   float64 `gorm:"default:0" json:"averageScore"`
}

func (Test) TableName() string {
	return "tests"
}

func (t *Test) Testable() TestableRef {
	return TestableRef{Kind: t.TestableKind, ID: t.TestableID}
}

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionLongAnswer     QuestionType = "long_answer"
	QuestionAudio          QuestionType = "audio"
	QuestionVideo          QuestionType = "video"
	QuestionFileUpload     QuestionType = "file_upload"
)

// swagger:model Question
type Question struct {
	BaseModel
	TestID        uint             `gorm:"index;type:bigint unsigned" json:"testId"`
	Text          string           `gorm:"type:text;not null" json:"text"`
	Type          QuestionType     `gorm:"size:30;not null" json:"type"`
	Points        int              `gorm:"default:1" json:"points"`
	Position      int              `gorm:"default:0" json:"position"`
	ManualGrading bool             `gorm:"default:false" json:"manualGrading"`
	Options       []QuestionOption `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

func (t QuestionType) IsChoice() bool {
	switch t {
	case QuestionMultipleChoice, QuestionSingleChoice, QuestionTrueFalse:
		return true
	}
	return false
}

// RequiresManualGrading reports the effective manual-grading flag: free-form
// and media answers always need a human regardless of the stored flag.
func (q *Question) RequiresManualGrading() bool {
	switch q.Type {
	case QuestionShortAnswer, QuestionLongAnswer, QuestionAudio, QuestionVideo, QuestionFileUpload:
		return true
	}
	return q.ManualGrading
}

func (q *Question) CorrectOptionIDs() []uint {
	var ids []uint
	for _, o := range q.Options {
		if o.IsCorrect {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// swagger:model QuestionOption
type QuestionOption struct {
	BaseModel
	QuestionID uint   `gorm:"index;type:bigint unsigned" json:"questionId"`
	Text       string `gorm:"type:text;not null" json:"text"`
	IsCorrect  bool   `gorm:"default:false" json:"isCorrect"`
	Position   int    `gorm:"default:0" json:"position"`
	Feedback   string `gorm:"type:text" json:"feedback,omitempty"`
}

func (QuestionOption) TableName() string {
	return "question_options"
}
