package model

import "time"

// swagger:model Course
type Course struct {
	BaseModel
	OwnerID     uint       `gorm:"index;type:bigint unsigned" json:"ownerId"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	IsPublished bool       `gorm:"default:false" json:"isPublished"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

type Chapter struct {
	BaseModel
	CourseID uint   `gorm:"index;type:bigint unsigned" json:"courseId"`
	Title    string `gorm:"size:255;not null" json:"title"`
	Position int    `gorm:"default:0" json:"position"`
}

func (Chapter) TableName() string {
	return "chapters"
}

type Lesson struct {
	BaseModel
	ChapterID uint   `gorm:"index;type:bigint unsigned" json:"chapterId"`
	Title     string `gorm:"size:255;not null" json:"title"`
	Content   string `gorm:"type:text" json:"content"`
	Position  int    `gorm:"default:0" json:"position"`
}

func (Lesson) TableName() string {
	return "lessons"
}

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentDropped   EnrollmentStatus = "dropped"
)

type Enrollment struct {
	BaseModel
	UserID   uint             `gorm:"uniqueIndex:idx_user_course;type:bigint unsigned" json:"userId"`
	CourseID uint             `gorm:"uniqueIndex:idx_user_course;type:bigint unsigned" json:"courseId"`
	Status   EnrollmentStatus `gorm:"size:20;default:'active'" json:"status"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

type LiveSession struct {
	BaseModel
	OwnerID         uint      `gorm:"index;type:bigint unsigned" json:"ownerId"`
	CourseID        *uint     `gorm:"index;type:bigint unsigned" json:"courseId,omitempty"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	ScheduledAt     time.Time `json:"scheduledAt"`
	DurationMinutes int       `gorm:"default:60" json:"durationMinutes"`
}

func (LiveSession) TableName() string {
	return "live_sessions"
}

type StudyGroup struct {
	BaseModel
	OwnerID  uint   `gorm:"index;type:bigint unsigned" json:"ownerId"`
	Name     string `gorm:"size:255;not null" json:"name"`
	Capacity int    `gorm:"default:0" json:"capacity"`
}

func (StudyGroup) TableName() string {
	return "study_groups"
}

type QuestionPack struct {
	BaseModel
	OwnerID     uint   `gorm:"index;type:bigint unsigned" json:"ownerId"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
}

func (QuestionPack) TableName() string {
	return "question_packs"
}
