package controller

import (
	"edulearn_backend/internal/service"
	"edulearn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// CreateCourse godoc
// @Summary Create a course
// @Description Creation counts against the courses quota of the active plan.
// @Tags courses
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.CourseReq true "course definition"
// @Success 201 {object} util.Response{data=model.Course}
// @Failure 402 {object} util.Response "no active plan"
// @Failure 409 {object} util.Response "quota exhausted"
// @Router /api/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CourseReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.CreateCourse(claims.UserID, req)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// ListCourses godoc
// @Summary List the caller's courses
// @Tags courses
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Course}
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	courses, err := c.CourseService.ListOwned(claims.UserID)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// GetCourse godoc
// @Summary Fetch one course
// @Tags courses
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "course id"
// @Success 200 {object} util.Response{data=model.Course}
// @Router /api/courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	course, err := c.CourseService.GetCourse(id)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// DeleteCourse godoc
// @Summary Delete an owned course
// @Description Deletion releases one unit of the courses quota.
// @Tags courses
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "course id"
// @Success 200 {object} util.Response
// @Router /api/courses/{id} [delete]
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.CourseService.DeleteCourse(claims.UserID, id); err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// AddChapter godoc
// @Summary Add a chapter to an owned course
// @Tags courses
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.ChapterReq true "chapter definition"
// @Success 201 {object} util.Response{data=model.Chapter}
// @Router /api/chapters [post]
func (c *CourseController) AddChapter(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ChapterReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	chapter, err := c.CourseService.AddChapter(claims.UserID, req)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Created(ctx, chapter)
}

// AddLesson godoc
// @Summary Add a lesson to a chapter
// @Tags courses
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.LessonReq true "lesson definition"
// @Success 201 {object} util.Response{data=model.Lesson}
// @Router /api/lessons [post]
func (c *CourseController) AddLesson(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.LessonReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.CourseService.AddLesson(claims.UserID, req)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Created(ctx, lesson)
}

// Enroll godoc
// @Summary Enroll in a published course
// @Tags courses
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "course id"
// @Success 201 {object} util.Response{data=model.Enrollment}
// @Router /api/courses/{id}/enroll [post]
func (c *CourseController) Enroll(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	enrollment, err := c.CourseService.Enroll(claims.UserID, id)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Created(ctx, enrollment)
}

// Unenroll godoc
// @Summary Drop out of a course
// @Tags courses
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "course id"
// @Success 200 {object} util.Response
// @Router /api/courses/{id}/enroll [delete]
func (c *CourseController) Unenroll(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.CourseService.Unenroll(claims.UserID, id); err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// CreateSession godoc
// @Summary Schedule a live session
// @Description Creation counts against the sessions quota.
// @Tags resources
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.SessionReq true "session definition"
// @Success 201 {object} util.Response{data=model.LiveSession}
// @Failure 409 {object} util.Response "quota exhausted"
// @Router /api/sessions [post]
func (c *CourseController) CreateSession(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SessionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	session, err := c.CourseService.CreateSession(claims.UserID, req)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Created(ctx, session)
}

// DeleteSession godoc
// @Summary Delete an owned live session
// @Tags resources
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "session id"
// @Success 200 {object} util.Response
// @Router /api/sessions/{id} [delete]
func (c *CourseController) DeleteSession(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.CourseService.DeleteSession(claims.UserID, id); err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// CreateGroup godoc
// @Summary Create a study group
// @Description Creation counts against the groups quota.
// @Tags resources
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.GroupReq true "group definition"
// @Success 201 {object} util.Response{data=model.StudyGroup}
// @Failure 409 {object} util.Response "quota exhausted"
// @Router /api/groups [post]
func (c *CourseController) CreateGroup(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.GroupReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	group, err := c.CourseService.CreateGroup(claims.UserID, req)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Created(ctx, group)
}

// DeleteGroup godoc
// @Summary Delete an owned study group
// @Tags resources
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "group id"
// @Success 200 {object} util.Response
// @Router /api/groups/{id} [delete]
func (c *CourseController) DeleteGroup(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.CourseService.DeleteGroup(claims.UserID, id); err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// CreatePack godoc
// @Summary Create a question pack
// @Description Creation counts against the packs quota.
// @Tags resources
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.PackReq true "pack definition"
// @Success 201 {object} util.Response{data=model.QuestionPack}
// @Failure 409 {object} util.Response "quota exhausted"
// @Router /api/packs [post]
func (c *CourseController) CreatePack(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.PackReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	pack, err := c.CourseService.CreatePack(claims.UserID, req)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Created(ctx, pack)
}

// DeletePack godoc
// @Summary Delete an owned question pack
// @Tags resources
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "pack id"
// @Success 200 {object} util.Response
// @Router /api/packs/{id} [delete]
func (c *CourseController) DeletePack(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.CourseService.DeletePack(claims.UserID, id); err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
