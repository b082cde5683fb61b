package service

import (
	"context"
	"fmt"
	"institute_backend/internal/model"
	"institute_backend/pkg/monitoring"
	"institute_backend/pkg/tracing"
	"sort"

	"go.opentelemetry.io/otel/attribute"
)

type RankService struct {
	Results ResultStore
}

func NewRankService(results ResultStore) *RankService {
	return &RankService{Results: results}
}

// ComputeRank 只读。找不到对应记录时返回 ErrRankUnavailable（例如刚写入尚不可见）
func (s *RankService) ComputeRank(ctx context.Context, result *model.Result) (int, error) {
	ctx, span := tracing.Tracer.Start(ctx, "exam.rank")
	defer span.End()
	span.SetAttributes(attribute.String("exam.test_id", result.TestID))

	all, err := s.Results.ListByTest(ctx, result.TestID)
	if err != nil {
		monitoring.RankLookups.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("list results for test %s: %w", result.TestID, err)
	}

	rank, ok := RankOf(all, result)
	if !ok {
		monitoring.RankLookups.WithLabelValues("unavailable").Inc()
		return 0, ErrRankUnavailable
	}
	monitoring.RankLookups.WithLabelValues("ok").Inc()
	return rank, nil
}

// Standing 排行榜中的一行
type Standing struct {
	Rank             int     `json:"rank"`
	ResultID         string  `json:"resultId"`
	StudentName      string  `json:"studentDisplayName"`
	Score            int     `json:"score"`
	TotalMarks       int     `json:"totalMarks"`
	Accuracy         float64 `json:"accuracy"`
	TimeTakenSeconds int     `json:"timeTakenSeconds"`
}

// Standings 教师查看某试卷的全部成绩排名
func (s *RankService) Standings(ctx context.Context, testID string) ([]Standing, error) {
	ctx, span := tracing.Tracer.Start(ctx, "exam.standings")
	defer span.End()
	span.SetAttributes(attribute.String("exam.test_id", testID))

	all, err := s.Results.ListByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("list results for test %s: %w", testID, err)
	}

	sorted := rankOrder(all)
	out := make([]Standing, len(sorted))
	for i, r := range sorted {
		out[i] = Standing{
			Rank:             i + 1,
			ResultID:         r.ID,
			StudentName:      r.StudentName,
			Score:            r.Score,
			TotalMarks:       r.TotalMarks,
			Accuracy:         r.Accuracy,
			TimeTakenSeconds: r.TimeTakenSeconds,
		}
	}
	return out, nil
}

// rankOrder 分数降序，同分用时少者在前；其余保持读取顺序
func rankOrder(results []model.Result) []model.Result {
	sorted := make([]model.Result, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].TimeTakenSeconds < sorted[j].TimeTakenSeconds
	})
	return sorted
}

// RankOf 按 (TakerKey, SubmittedAt) 定位，返回从 1 开始的名次
func RankOf(results []model.Result, target *model.Result) (int, bool) {
	for i, r := range rankOrder(results) {
		if r.TakerKey == target.TakerKey && r.SubmittedAt.Equal(target.SubmittedAt) {
			return i + 1, true
		}
	}
	return 0, false
}
