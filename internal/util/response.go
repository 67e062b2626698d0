package util

import (
	"errors"
	"net/http"

	"edulearn_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Response is the unified API envelope.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.Error(err))
	InternalServerError(c)
}

// BusinessError translates the typed errors of the core services into HTTP
// responses. Anything unrecognized is treated as a storage failure.
func BusinessError(c *gin.Context, err error) {
	if lve, ok := AsLimitViolation(err); ok {
		c.JSON(http.StatusConflict, Response{
			Code:    http.StatusConflict,
			Message: lve.Error(),
			Data:    gin.H{"violations": lve.Violations},
		})
		return
	}

	switch {
	case errors.Is(err, ErrAttemptLimitExceeded):
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrTestNotTakeable),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrSubmissionExpired),
		errors.Is(err, ErrInvalidDirection),
		errors.Is(err, ErrNothingToGrade),
		errors.Is(err, ErrCourseNotPublished):
		Error(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrNoActivePlan):
		Error(c, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, ErrPermissionDenied):
		Forbidden(c)
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, ErrTestNotFound),
		errors.Is(err, ErrUserNotFound):
		NotFound(c)
	default:
		LogInternalError(c, err)
	}
}
