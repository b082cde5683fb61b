package controller

import (
	"errors"
	"institute_backend/internal/service"
	"institute_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError 把考试引擎的错误映射为 HTTP 状态
func respondError(ctx *gin.Context, err error) {
	var closed *service.SessionClosedError
	var submitErr *service.SubmissionError

	switch {
	case errors.As(err, &closed):
		util.ErrorWithData(ctx, http.StatusConflict, "session already submitted", gin.H{"resultId": closed.ResultID})
	case errors.As(err, &submitErr):
		util.ErrorWithData(ctx, http.StatusServiceUnavailable, "submission failed, please retry", gin.H{"retryable": submitErr.Retryable()})
	case errors.Is(err, service.ErrTestUnavailable):
		util.Error(ctx, http.StatusNotFound, "test not available")
	case errors.Is(err, service.ErrSessionNotFound):
		util.Error(ctx, http.StatusNotFound, "no active session for this test")
	case errors.Is(err, service.ErrResultNotFound):
		util.NotFound(ctx)
	case errors.Is(err, service.ErrRegistrationMismatch):
		util.Error(ctx, http.StatusForbidden, "registration does not match this account or test")
	case errors.Is(err, service.ErrInvalidIndex):
		util.BadRequest(ctx, "question or option index out of range")
	case errors.Is(err, service.ErrSessionFrozen):
		util.Conflict(ctx, "session no longer accepts changes")
	case errors.Is(err, service.ErrSubmissionInProgress):
		util.Conflict(ctx, "submission already in progress")
	default:
		util.LogInternalError(ctx, err)
	}
}
