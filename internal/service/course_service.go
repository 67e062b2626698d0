package service

import (
	"time"

	"edulearn_backend/internal/model"
	"edulearn_backend/internal/util"
	"edulearn_backend/pkg/logger"

	"go.uber.org/zap"
)

// ResourceStore persists the quota-tracked instructor resources. Every
// Create method must insert the row, increment the owner's usage counter
// and re-check it against the given limit in one transaction, rolling the
// insert back when the increment lands past the limit; every Delete must
// soft-delete the owned row and decrement the counter the same way, so the
// tracked counts cannot drift on a partial failure. A limit of -1 means
// unlimited.
type ResourceStore interface {
	CreateCourse(c *model.Course, limit int) error
	DeleteCourse(ownerID, id uint) error
	FindCourseByID(id uint) (*model.Course, error)
	ListCoursesByOwner(ownerID uint) ([]model.Course, error)

	CreateSession(s *model.LiveSession, limit int) error
	DeleteSession(ownerID, id uint) error

	CreateGroup(g *model.StudyGroup, limit int) error
	DeleteGroup(ownerID, id uint) error

	CreatePack(p *model.QuestionPack, limit int) error
	DeletePack(ownerID, id uint) error

	CreateChapter(ch *model.Chapter) error
	FindChapterByID(id uint) (*model.Chapter, error)
	CreateLesson(l *model.Lesson) error

	Enroll(e *model.Enrollment) error
	Unenroll(userID, courseID uint) error
}

// QuotaChecker is the slice of the subscription service the resource
// endpoints depend on.
type QuotaChecker interface {
	RequireCapacity(userID uint, rt model.ResourceType) error
	CapacityLimit(userID uint, rt model.ResourceType) (int, error)
}

type CourseService struct {
	Store ResourceStore
	Quota QuotaChecker
}

func NewCourseService(store ResourceStore, quota QuotaChecker) *CourseService {
	return &CourseService{Store: store, Quota: quota}
}

type CourseReq struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// reserveCapacity rejects exhausted quotas up front and resolves the plan
// limit the store re-checks inside the creation transaction. The up-front
// check gives the detailed violation error; the transactional re-check
// closes the window where two concurrent creations both pass it.
func (s *CourseService) reserveCapacity(ownerID uint, rt model.ResourceType) (int, error) {
	if err := s.Quota.RequireCapacity(ownerID, rt); err != nil {
		return 0, err
	}
	return s.Quota.CapacityLimit(ownerID, rt)
}

func (s *CourseService) CreateCourse(ownerID uint, req CourseReq) (*model.Course, error) {
	limit, err := s.reserveCapacity(ownerID, model.ResourceCourses)
	if err != nil {
		return nil, err
	}
	course := &model.Course{
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
	}
	if err := s.Store.CreateCourse(course, limit); err != nil {
		return nil, err
	}
	logger.Log.Info("course created",
		zap.Uint("ownerId", ownerID), zap.Uint("courseId", course.ID))
	return course, nil
}

func (s *CourseService) DeleteCourse(ownerID, courseID uint) error {
	return s.Store.DeleteCourse(ownerID, courseID)
}

func (s *CourseService) GetCourse(courseID uint) (*model.Course, error) {
	return s.Store.FindCourseByID(courseID)
}

func (s *CourseService) ListOwned(ownerID uint) ([]model.Course, error) {
	return s.Store.ListCoursesByOwner(ownerID)
}

type SessionReq struct {
	Title           string    `json:"title" binding:"required"`
	CourseID        *uint     `json:"courseId"`
	ScheduledAt     time.Time `json:"scheduledAt" binding:"required"`
	DurationMinutes int       `json:"durationMinutes"`
}

func (s *CourseService) CreateSession(ownerID uint, req SessionReq) (*model.LiveSession, error) {
	limit, err := s.reserveCapacity(ownerID, model.ResourceSessions)
	if err != nil {
		return nil, err
	}
	session := &model.LiveSession{
		OwnerID:         ownerID,
		CourseID:        req.CourseID,
		Title:           req.Title,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
	}
	if session.DurationMinutes <= 0 {
		session.DurationMinutes = 60
	}
	if err := s.Store.CreateSession(session, limit); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *CourseService) DeleteSession(ownerID, sessionID uint) error {
	return s.Store.DeleteSession(ownerID, sessionID)
}

type GroupReq struct {
	Name     string `json:"name" binding:"required"`
	Capacity int    `json:"capacity"`
}

func (s *CourseService) CreateGroup(ownerID uint, req GroupReq) (*model.StudyGroup, error) {
	limit, err := s.reserveCapacity(ownerID, model.ResourceGroups)
	if err != nil {
		return nil, err
	}
	group := &model.StudyGroup{OwnerID: ownerID, Name: req.Name, Capacity: req.Capacity}
	if err := s.Store.CreateGroup(group, limit); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *CourseService) DeleteGroup(ownerID, groupID uint) error {
	return s.Store.DeleteGroup(ownerID, groupID)
}

type PackReq struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

func (s *CourseService) CreatePack(ownerID uint, req PackReq) (*model.QuestionPack, error) {
	limit, err := s.reserveCapacity(ownerID, model.ResourcePacks)
	if err != nil {
		return nil, err
	}
	pack := &model.QuestionPack{OwnerID: ownerID, Title: req.Title, Description: req.Description}
	if err := s.Store.CreatePack(pack, limit); err != nil {
		return nil, err
	}
	return pack, nil
}

func (s *CourseService) DeletePack(ownerID, packID uint) error {
	return s.Store.DeletePack(ownerID, packID)
}

type ChapterReq struct {
	CourseID uint   `json:"courseId" binding:"required"`
	Title    string `json:"title" binding:"required"`
	Position int    `json:"position"`
}

// AddChapter attaches a chapter to an owned course. Chapters and lessons
// are not quota-tracked, only top-level resources are.
func (s *CourseService) AddChapter(ownerID uint, req ChapterReq) (*model.Chapter, error) {
	course, err := s.Store.FindCourseByID(req.CourseID)
	if err != nil {
		return nil, err
	}
	if course.OwnerID != ownerID {
		return nil, util.ErrPermissionDenied
	}
	ch := &model.Chapter{CourseID: req.CourseID, Title: req.Title, Position: req.Position}
	if err := s.Store.CreateChapter(ch); err != nil {
		return nil, err
	}
	return ch, nil
}

type LessonReq struct {
	ChapterID uint   `json:"chapterId" binding:"required"`
	Title     string `json:"title" binding:"required"`
	Content   string `json:"content"`
	Position  int    `json:"position"`
}

func (s *CourseService) AddLesson(ownerID uint, req LessonReq) (*model.Lesson, error) {
	ch, err := s.Store.FindChapterByID(req.ChapterID)
	if err != nil {
		return nil, err
	}
	course, err := s.Store.FindCourseByID(ch.CourseID)
	if err != nil {
		return nil, err
	}
	if course.OwnerID != ownerID {
		return nil, util.ErrPermissionDenied
	}
	l := &model.Lesson{
		ChapterID: req.ChapterID,
		Title:     req.Title,
		Content:   req.Content,
		Position:  req.Position,
	}
	if err := s.Store.CreateLesson(l); err != nil {
		return nil, err
	}
	return l, nil
}

// Enroll registers a student on a published course. The unique
// (user, course) index makes re-enrollment a no-op at the database.
func (s *CourseService) Enroll(userID, courseID uint) (*model.Enrollment, error) {
	course, err := s.Store.FindCourseByID(courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsPublished {
		return nil, util.ErrCourseNotPublished
	}
	e := &model.Enrollment{UserID: userID, CourseID: courseID, Status: model.EnrollmentActive}
	if err := s.Store.Enroll(e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *CourseService) Unenroll(userID, courseID uint) error {
	return s.Store.Unenroll(userID, courseID)
}
