package service

import (
	"errors"
	"fmt"
)

var (
	// ErrTestUnavailable 试卷不存在或未发布，本次作答无法开始
	ErrTestUnavailable = errors.New("test is not available")

	ErrSessionNotFound      = errors.New("exam session not found")
	ErrSubmissionInProgress = errors.New("submission already in progress")
	ErrSessionFrozen        = errors.New("exam session is frozen")
	ErrInvalidIndex         = errors.New("question or option index out of range")
	ErrRegistrationMismatch = errors.New("registration does not belong to this user or test")
	ErrRankUnavailable      = errors.New("rank unavailable")
	ErrResultNotFound       = errors.New("result not found")
)

// SessionClosedError 会话已提交，不可再次提交
type SessionClosedError struct {
	ResultID string
}

func (e *SessionClosedError) Error() string {
	return "exam session already submitted as result " + e.ResultID
}

// ErrSessionClosed 用于 errors.Is 判断
var ErrSessionClosed = &SessionClosedError{}

func (e *SessionClosedError) Is(target error) bool {
	_, ok := target.(*SessionClosedError)
	return ok
}

// SubmissionError 成绩写入失败，答题状态保留，可由用户重试
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed (retryable): %v", e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

func (e *SubmissionError) Retryable() bool {
	return true
}
