package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrResultImmutable = errors.New("result records are immutable")

type SubmitTrigger string

const (
	TriggerManual SubmitTrigger = "manual"
	TriggerAuto   SubmitTrigger = "auto"
)

// Response 单题作答结果，SelectedOption 为 nil 表示未作答
type Response struct {
	QuestionID     string `json:"questionId"`
	SelectedOption *int   `json:"selectedOption"`
	IsCorrect      bool   `json:"isCorrect"`
	MarksAwarded   int    `json:"marksAwarded"`
}

type ResponseList []Response

func (l ResponseList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]Response(l))
	return string(b), err
}

func (l *ResponseList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// swagger:model Result
type Result struct {
	UUIDBase
	TakerKey         string        `gorm:"size:100;index;not null" json:"takerKey"`
	StudentName      string        `gorm:"size:100" json:"studentDisplayName"`
	TestID           string        `gorm:"index;type:varchar(36);not null" json:"testId"`
	TestName         string        `gorm:"size:255" json:"testName"`
	Score            int           `gorm:"not null" json:"score"`
	TotalMarks       int           `gorm:"not null" json:"totalMarks"`
	CorrectCount     int           `json:"correctCount"`
	AttemptedCount   int           `json:"attemptedCount"`
	Accuracy         float64       `gorm:"type:decimal(5,2)" json:"accuracy"`
	TimeTakenSeconds int           `json:"timeTakenSeconds"`
	Responses        ResponseList  `gorm:"type:json" json:"responses"`
	CertificateRefID string        `gorm:"size:64;uniqueIndex" json:"certificateReferenceId"`
	IdempotencyKey   string        `gorm:"size:64;uniqueIndex" json:"-"`
	Trigger          SubmitTrigger `gorm:"size:10" json:"trigger"`
	SubmittedAt      time.Time     `gorm:"index" json:"submittedAt"`
}

func (Result) TableName() string {
	return "results"
}

// 成绩一旦写入便不可修改或删除
func (r *Result) BeforeUpdate(tx *gorm.DB) error {
	return ErrResultImmutable
}

func (r *Result) BeforeDelete(tx *gorm.DB) error {
	return ErrResultImmutable
}
