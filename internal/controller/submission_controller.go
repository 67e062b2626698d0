package controller

import (
	"edulearn_backend/internal/model"
	"edulearn_backend/internal/service"
	"edulearn_backend/internal/util"
	"edulearn_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	SubmissionService *service.SubmissionService
	StorageService    *service.StorageService
}

func NewSubmissionController(submissionService *service.SubmissionService, storageService *service.StorageService) *SubmissionController {
	return &SubmissionController{
		SubmissionService: submissionService,
		StorageService:    storageService,
	}
}

// StartTest godoc
// @Summary Start or resume a test attempt
// @Tags submissions
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "test id"
// @Success 201 {object} util.Response{data=model.TestSubmission}
// @Failure 409 {object} util.Response "attempt limit exceeded"
// @Failure 422 {object} util.Response "test not takeable"
// @Router /api/tests/{id}/start [post]
func (c *SubmissionController) StartTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	testID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	sub, err := c.SubmissionService.StartTest(testID, claims.UserID)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Created(ctx, sub)
}

type answersPayload struct {
	Answers []service.AnswerInput `json:"answers"`
}

// SaveDraft godoc
// @Summary Save draft answers on an open attempt
// @Tags submissions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "submission id"
// @Param   body body answersPayload true "draft answers"
// @Success 200 {object} util.Response{data=model.TestSubmission}
// @Failure 422 {object} util.Response "attempt not open or expired"
// @Router /api/submissions/{id}/draft [put]
func (c *SubmissionController) SaveDraft(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req answersPayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.SubmissionService.SaveDraft(id, claims.UserID, req.Answers)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// SubmitTest godoc
// @Summary Submit an attempt for grading
// @Description Auto-gradable answers are scored immediately; attempts with
// @Description answers pending manual review stay in submitted.
// @Tags submissions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "submission id"
// @Param   body body answersPayload true "final answers"
// @Success 200 {object} util.Response{data=model.TestSubmission}
// @Failure 422 {object} util.Response "attempt not open or expired"
// @Router /api/submissions/{id}/submit [post]
func (c *SubmissionController) SubmitTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req answersPayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.SubmissionService.SubmitTest(id, claims.UserID, req.Answers)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	if sub.Status == model.SubmissionGraded {
		monitoring.SubmissionsGraded.WithLabelValues("auto").Inc()
	}
	util.Success(ctx, sub)
}

// UploadArtifact godoc
// @Summary Upload an audio/video/file answer artifact
// @Description Stores the file and returns the artifact path to reference
// @Description from the answer payload. Media files are probed for duration.
// @Tags submissions
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "submission id"
// @Param   file formData file true "artifact"
// @Success 201 {object} util.Response{data=service.Artifact}
// @Router /api/submissions/{id}/artifacts [post]
func (c *SubmissionController) UploadArtifact(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.SubmissionService.EnsureOpen(id, claims.UserID); err != nil {
		util.BusinessError(ctx, err)
		return
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "missing file")
		return
	}

	artifact, err := c.StorageService.SaveAnswerArtifact(ctx.Request.Context(), id, header)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, artifact)
}

type manualGradePayload struct {
	Gradings []service.ManualGrading `json:"gradings" binding:"required"`
	Comments string                  `json:"comments"`
}

// GradeManually godoc
// @Summary Resolve pending manual-review answers
// @Tags submissions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "submission id"
// @Param   body body manualGradePayload true "grader verdicts"
// @Success 200 {object} util.Response{data=model.TestSubmission}
// @Failure 422 {object} util.Response "not in submitted state"
// @Router /api/submissions/{id}/grade [post]
func (c *SubmissionController) GradeManually(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	if claims.Role != model.Instructor && claims.Role != model.Admin {
		util.Forbidden(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req manualGradePayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.SubmissionService.GradeManually(id, claims.UserID, claims.Role == model.Admin, req.Gradings, req.Comments)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	monitoring.SubmissionsGraded.WithLabelValues("manual").Inc()
	util.Success(ctx, sub)
}

// GetSubmission godoc
// @Summary Fetch an attempt with its answers
// @Tags submissions
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "submission id"
// @Success 200 {object} util.Response{data=object}
// @Failure 403 {object} util.Response "not yours"
// @Router /api/submissions/{id} [get]
func (c *SubmissionController) GetSubmission(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	elevated := claims.Role == model.Instructor || claims.Role == model.Admin
	sub, answers, err := c.SubmissionService.GetSubmission(id, claims.UserID, elevated)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"submission": sub, "answers": answers})
}
