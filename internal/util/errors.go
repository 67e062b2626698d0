package util

import (
	"errors"
	"fmt"
	"strings"

	"edulearn_backend/internal/model"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailRegistered      = errors.New("email already registered")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrTestNotFound         = errors.New("test not found")
	ErrTestNotTakeable      = errors.New("test not published or not accessible")
	ErrAttemptLimitExceeded = errors.New("attempt limit exceeded")
	ErrInvalidState         = errors.New("submission is not in the required state")
	ErrSubmissionExpired    = errors.New("submission time limit exceeded")
	ErrNoActivePlan         = errors.New("no active subscription plan")
	ErrInvalidDirection     = errors.New("target plan does not satisfy the required priority ordering")
	ErrNothingToGrade       = errors.New("submission has no answers pending manual review")
	ErrCourseNotPublished   = errors.New("course is not published")
)

// LimitViolation describes one resource whose current usage exceeds the
// limit of a target plan.
type LimitViolation struct {
	ResourceType model.ResourceType `json:"resourceType"`
	CurrentUsage int                `json:"currentUsage"`
	Limit        int                `json:"limit"`
}

// LimitViolationError rejects a plan transition and enumerates every
// offending resource, never just the first.
type LimitViolationError struct {
	Violations []LimitViolation
}

func (e *LimitViolationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %d/%d", v.ResourceType, v.CurrentUsage, v.Limit))
	}
	return "usage exceeds target plan limits: " + strings.Join(parts, ", ")
}

func AsLimitViolation(err error) (*LimitViolationError, bool) {
	var lve *LimitViolationError
	if errors.As(err, &lve) {
		return lve, true
	}
	return nil, false
}
