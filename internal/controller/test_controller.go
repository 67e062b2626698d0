package controller

import (
	"strconv"

	"edulearn_backend/internal/model"
	"edulearn_backend/internal/service"
	"edulearn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TestController struct {
	TestService *service.TestService
}

func NewTestController(testService *service.TestService) *TestController {
	return &TestController{TestService: testService}
}

func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// CreateTest godoc
// @Summary Create a test on a course, chapter or lesson
// @Tags tests
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.TestReq true "test definition"
// @Success 201 {object} util.Response{data=model.Test}
// @Failure 403 {object} util.Response "not the owner"
// @Router /api/tests [post]
func (c *TestController) CreateTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.TestReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.TestService.CreateTest(claims.UserID, req)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Created(ctx, test)
}

// GetTest godoc
// @Summary Fetch a test with its questions
// @Tags tests
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "test id"
// @Success 200 {object} util.Response{data=object}
// @Failure 404 {object} util.Response "not found"
// @Router /api/tests/{id} [get]
func (c *TestController) GetTest(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	test, questions, err := c.TestService.GetTest(id)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"test": test, "questions": questions})
}

// ListTests godoc
// @Summary List the tests attached to an entity
// @Tags tests
// @Produce  json
// @Security BearerAuth
// @Param   kind query string true "course, chapter or lesson"
// @Param   id query int true "entity id"
// @Success 200 {object} util.Response{data=[]model.Test}
// @Router /api/tests [get]
func (c *TestController) ListTests(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Query("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid id")
		return
	}
	ref := model.TestableRef{Kind: model.TestableKind(ctx.Query("kind")), ID: uint(id)}
	if !ref.Valid() {
		util.BadRequest(ctx, "invalid testable reference")
		return
	}

	tests, err := c.TestService.ListTests(ref)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Success(ctx, tests)
}

// UpdateTest godoc
// @Summary Update a test definition
// @Tags tests
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "test id"
// @Param   body body service.TestReq true "fields to change"
// @Success 200 {object} util.Response{data=model.Test}
// @Failure 403 {object} util.Response "not the owner"
// @Router /api/tests/{id} [put]
func (c *TestController) UpdateTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req service.TestReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.TestService.UpdateTest(claims.UserID, id, req)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Success(ctx, test)
}

// DeleteTest godoc
// @Summary Delete a test
// @Tags tests
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "test id"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response "not the owner"
// @Router /api/tests/{id} [delete]
func (c *TestController) DeleteTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.TestService.DeleteTest(claims.UserID, id); err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// AddQuestion godoc
// @Summary Add a question to a test
// @Tags tests
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "test id"
// @Param   body body service.QuestionReq true "question definition"
// @Success 201 {object} util.Response{data=model.Question}
// @Failure 400 {object} util.Response "invalid question"
// @Router /api/tests/{id}/questions [post]
func (c *TestController) AddQuestion(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req service.QuestionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.TestService.AddQuestion(claims.UserID, id, req)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Created(ctx, question)
}

// UpdateQuestion godoc
// @Summary Update a question
// @Tags tests
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "question id"
// @Param   body body service.QuestionReq true "question definition"
// @Success 200 {object} util.Response{data=model.Question}
// @Router /api/questions/{id} [put]
func (c *TestController) UpdateQuestion(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req service.QuestionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.TestService.UpdateQuestion(claims.UserID, id, req)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Success(ctx, question)
}

// DeleteQuestion godoc
// @Summary Delete a question
// @Tags tests
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "question id"
// @Success 200 {object} util.Response
// @Router /api/questions/{id} [delete]
func (c *TestController) DeleteQuestion(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.TestService.DeleteQuestion(claims.UserID, id); err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
