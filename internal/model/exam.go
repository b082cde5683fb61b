package model

import (
	"fmt"
)

// swagger:model Test
type Test struct {
	UUIDBase
	Title           string     `gorm:"size:255;not null" json:"title"`
	DurationMinutes int        `gorm:"not null" json:"durationMinutes"`
	TotalMarks      int        `gorm:"default:0" json:"totalMarks"`
	IsPublished     bool       `gorm:"default:false" json:"isPublished"`
	Questions       []Question `gorm:"foreignKey:TestID" json:"questions"`
}

func (Test) TableName() string {
	return "tests"
}

// DurationSeconds 计划作答时长
func (t *Test) DurationSeconds() int {
	return t.DurationMinutes * 60
}

// MaxMarks 未配置总分时按题目分值求和
func (t *Test) MaxMarks() int {
	if t.TotalMarks > 0 {
		return t.TotalMarks
	}
	total := 0
	for _, q := range t.Questions {
		total += q.Marks
	}
	return total
}

// Validate 在加载题目定义时校验，不在使用时再做类型判断
func (t *Test) Validate() error {
	if t.DurationMinutes <= 0 {
		return fmt.Errorf("test %s: duration must be positive", t.ID)
	}
	for i, q := range t.Questions {
		if q.Marks <= 0 {
			return fmt.Errorf("test %s: question %d marks must be positive", t.ID, i)
		}
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			return fmt.Errorf("test %s: question %d correct option out of range", t.ID, i)
		}
	}
	return nil
}

// swagger:model Question
type Question struct {
	UUIDBase
	TestID        string     `gorm:"index;type:varchar(36)" json:"testId"`
	Text          string     `gorm:"type:text;not null" json:"text"`
	Options       StringList `gorm:"type:json" json:"options"`
	CorrectOption int        `gorm:"not null" json:"correctOptionIndex"`
	Marks         int        `gorm:"default:1" json:"marks"`
	Explanation   string     `gorm:"type:text" json:"explanation,omitempty"`
	Order         int        `gorm:"default:0" json:"order"`
}

func (Question) TableName() string {
	return "test_questions"
}

// PublicQuestion 作答页面使用，不包含答案与解析
type PublicQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Marks   int      `json:"marks"`
}

func (q Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:      q.ID,
		Text:    q.Text,
		Options: q.Options,
		Marks:   q.Marks,
	}
}
