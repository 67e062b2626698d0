package repository

import (
	"edulearn_backend/internal/model"
	"edulearn_backend/internal/util"

	"gorm.io/gorm"
)

// CourseRepository persists the instructor-owned resources and answers the
// ownership/access questions the test layer asks about them.
type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

// bumpUsage mirrors UsageRepository's atomic statements so resource writes
// can move the counter inside their own transaction.
func bumpUsage(tx *gorm.DB, userID uint, rt model.ResourceType, delta int) error {
	if delta >= 0 {
		return tx.Exec(
			"INSERT INTO usage_tracking (user_id, resource_type, current_count, created_at, updated_at) "+
				"VALUES (?, ?, ?, NOW(3), NOW(3)) "+
				"ON DUPLICATE KEY UPDATE current_count = current_count + VALUES(current_count), updated_at = NOW(3)",
			userID, rt, delta,
		).Error
	}
	return tx.Exec(
		"UPDATE usage_tracking SET current_count = GREATEST(current_count - ?, 0), updated_at = NOW(3) "+
			"WHERE user_id = ? AND resource_type = ? AND deleted_at IS NULL",
		-delta, userID, rt,
	).Error
}

// takeQuota bumps the counter and re-reads it inside the caller's
// transaction. A result past the limit fails the transaction, rolling the
// resource insert back with it; this is what stops two concurrent
// creations that both passed the service-level check. A limit of -1 skips
// the re-check.
func takeQuota(tx *gorm.DB, userID uint, rt model.ResourceType, limit int) error {
	if err := bumpUsage(tx, userID, rt, 1); err != nil {
		return err
	}
	if limit < 0 {
		return nil
	}
	var count int
	err := tx.Raw(
		"SELECT current_count FROM usage_tracking WHERE user_id = ? AND resource_type = ? AND deleted_at IS NULL",
		userID, rt,
	).Scan(&count).Error
	if err != nil {
		return err
	}
	if count > limit {
		return &util.LimitViolationError{Violations: []util.LimitViolation{{
			ResourceType: rt,
			CurrentUsage: count - 1,
			Limit:        limit,
		}}}
	}
	return nil
}

func (r *CourseRepository) CreateCourse(c *model.Course, limit int) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return takeQuota(tx, c.OwnerID, model.ResourceCourses, limit)
	})
}

func (r *CourseRepository) DeleteCourse(ownerID, id uint) error {
	return r.deleteOwned(&model.Course{}, ownerID, id, model.ResourceCourses)
}

func (r *CourseRepository) FindCourseByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.First(&course, id).Error
	return &course, err
}

func (r *CourseRepository) ListCoursesByOwner(ownerID uint) ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) CreateSession(s *model.LiveSession, limit int) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(s).Error; err != nil {
			return err
		}
		return takeQuota(tx, s.OwnerID, model.ResourceSessions, limit)
	})
}

func (r *CourseRepository) DeleteSession(ownerID, id uint) error {
	return r.deleteOwned(&model.LiveSession{}, ownerID, id, model.ResourceSessions)
}

func (r *CourseRepository) CreateGroup(g *model.StudyGroup, limit int) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(g).Error; err != nil {
			return err
		}
		return takeQuota(tx, g.OwnerID, model.ResourceGroups, limit)
	})
}

func (r *CourseRepository) DeleteGroup(ownerID, id uint) error {
	return r.deleteOwned(&model.StudyGroup{}, ownerID, id, model.ResourceGroups)
}

func (r *CourseRepository) CreatePack(p *model.QuestionPack, limit int) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		return takeQuota(tx, p.OwnerID, model.ResourcePacks, limit)
	})
}

func (r *CourseRepository) DeletePack(ownerID, id uint) error {
	return r.deleteOwned(&model.QuestionPack{}, ownerID, id, model.ResourcePacks)
}

// deleteOwned soft-deletes an owned row and decrements the counter in one
// transaction. Deleting someone else's row, or a missing one, is a
// not-found, and the counter stays put.
func (r *CourseRepository) deleteOwned(entity interface{}, ownerID, id uint, rt model.ResourceType) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND owner_id = ?", id, ownerID).Delete(entity)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return bumpUsage(tx, ownerID, rt, -1)
	})
}

func (r *CourseRepository) CreateChapter(ch *model.Chapter) error {
	return r.DB.Create(ch).Error
}

func (r *CourseRepository) FindChapterByID(id uint) (*model.Chapter, error) {
	var ch model.Chapter
	if err := r.DB.First(&ch, id).Error; err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *CourseRepository) CreateLesson(l *model.Lesson) error {
	return r.DB.Create(l).Error
}

func (r *CourseRepository) Enroll(e *model.Enrollment) error {
	return r.DB.Create(e).Error
}

func (r *CourseRepository) Unenroll(userID, courseID uint) error {
	return r.DB.Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Update("status", model.EnrollmentDropped).
		Error
}

// CountOwned serves the authoritative count behind the usage sync.
func (r *CourseRepository) CountOwned(userID uint, rt model.ResourceType) (int, error) {
	var entity interface{}
	switch rt {
	case model.ResourceCourses:
		entity = &model.Course{}
	case model.ResourceSessions:
		entity = &model.LiveSession{}
	case model.ResourceGroups:
		entity = &model.StudyGroup{}
	case model.ResourcePacks:
		entity = &model.QuestionPack{}
	default:
		return 0, nil
	}

	var n int64
	err := r.DB.Model(entity).Where("owner_id = ?", userID).Count(&n).Error
	return int(n), err
}

// OwningCourseID resolves the course a testable entity belongs to.
func (r *CourseRepository) OwningCourseID(ref model.TestableRef) (uint, error) {
	switch ref.Kind {
	case model.TestableCourse:
		return ref.ID, nil
	case model.TestableChapter:
		var chapter model.Chapter
		if err := r.DB.First(&chapter, ref.ID).Error; err != nil {
			return 0, err
		}
		return chapter.CourseID, nil
	case model.TestableLesson:
		var courseID uint
		err := r.DB.Model(&model.Lesson{}).
			Joins("JOIN chapters ON chapters.id = lessons.chapter_id").
			Where("lessons.id = ?", ref.ID).
			Select("chapters.course_id").
			Scan(&courseID).Error
		if err != nil {
			return 0, err
		}
		if courseID == 0 {
			return 0, gorm.ErrRecordNotFound
		}
		return courseID, nil
	}
	return 0, gorm.ErrRecordNotFound
}

// Owns reports whether the user owns the course a testable entity hangs
// off. Authoring rights follow course ownership all the way down.
func (r *CourseRepository) Owns(userID uint, ref model.TestableRef) (bool, error) {
	courseID, err := r.OwningCourseID(ref)
	if err != nil {
		return false, err
	}
	course, err := r.FindCourseByID(courseID)
	if err != nil {
		return false, err
	}
	return course.OwnerID == userID, nil
}

// CanAccess grants the owner and actively enrolled students.
func (r *CourseRepository) CanAccess(userID uint, ref model.TestableRef) (bool, error) {
	courseID, err := r.OwningCourseID(ref)
	if err != nil {
		return false, err
	}
	course, err := r.FindCourseByID(courseID)
	if err != nil {
		return false, err
	}
	if course.OwnerID == userID {
		return true, nil
	}
	if !course.IsPublished {
		return false, nil
	}

	var n int64
	err = r.DB.Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, model.EnrollmentActive).
		Count(&n).Error
	return n > 0, err
}

// ActiveEnrollmentID stamps new attempts with the enrollment they ran
// under, when there is one.
func (r *CourseRepository) ActiveEnrollmentID(userID, courseID uint) (*uint, error) {
	var enrollment model.Enrollment
	err := r.DB.
		Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, model.EnrollmentActive).
		First(&enrollment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	id := enrollment.ID
	return &id, nil
}
