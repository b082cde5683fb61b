package service

import (
	"institute_backend/internal/model"
	"math"
)

type Grading struct {
	Responses      []model.Response
	Score          int
	CorrectCount   int
	AttemptedCount int
	Accuracy       float64
}

// Grade 按题目顺序逐题判分。answers 长度与题目数一致，nil 表示未作答
func Grade(questions []model.Question, answers []*int) Grading {
	g := Grading{Responses: make([]model.Response, len(questions))}
	for i, q := range questions {
		var selected *int
		if i < len(answers) && answers[i] != nil {
			v := *answers[i]
			selected = &v
		}

		resp := model.Response{QuestionID: q.ID, SelectedOption: selected}
		if selected != nil {
			g.AttemptedCount++
			if *selected == q.CorrectOption {
				resp.IsCorrect = true
				resp.MarksAwarded = q.Marks
				g.CorrectCount++
			}
		}
		g.Score += resp.MarksAwarded
		g.Responses[i] = resp
	}

	if g.AttemptedCount > 0 {
		g.Accuracy = roundTo2(float64(g.CorrectCount) / float64(g.AttemptedCount) * 100)
	}
	return g
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// TimeTaken 迟到的节拍或时钟偏差都不能产生负数
func TimeTaken(durationSeconds, timeLeft int) int {
	return max(0, durationSeconds-timeLeft)
}
