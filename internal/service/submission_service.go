package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"institute_backend/internal/model"
	"institute_backend/internal/repository"
	"institute_backend/pkg/logger"
	"institute_backend/pkg/tracing"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// TestSource 内容管理侧提供的试卷读取
type TestSource interface {
	FindTestByID(ctx context.Context, id string) (*model.Test, error)
}

// ResultStore 成绩持久化，只追加
type ResultStore interface {
	CreateResult(ctx context.Context, result *model.Result) (*model.Result, error)
	FindByID(ctx context.Context, id string) (*model.Result, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*model.Result, error)
	ListByTest(ctx context.Context, testID string) ([]model.Result, error)
	ListByTaker(ctx context.Context, takerKey string) ([]model.Result, error)
}

// CertificatePublisher 证书签发方按 CertificateRefID 领取成绩
type CertificatePublisher interface {
	Publish(ctx context.Context, result *model.Result) error
}

type SubmissionInput struct {
	Test      *model.Test
	Taker     model.Taker
	Answers   []*int
	TimeLeft  int
	StartedAt time.Time
	Trigger   model.SubmitTrigger
}

type SubmissionPipeline struct {
	Results      ResultStore
	Identity     IdentityResolver
	Certificates CertificatePublisher

	Now               func() time.Time
	NewCertificateRef func() string
}

func NewSubmissionPipeline(results ResultStore, identity IdentityResolver, certs CertificatePublisher) *SubmissionPipeline {
	return &SubmissionPipeline{
		Results:      results,
		Identity:     identity,
		Certificates: certs,
		Now:          time.Now,
		NewCertificateRef: func() string {
			return "CERT-" + model.GenerateUUID()
		},
	}
}

// Run 判分并写入成绩。返回错误时调用方负责将会话置为可重试状态
func (p *SubmissionPipeline) Run(ctx context.Context, in SubmissionInput) (*model.Result, error) {
	ctx, span := tracing.Tracer.Start(ctx, "exam.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("exam.test_id", in.Test.ID),
		attribute.String("exam.taker_key", in.Taker.Key),
		attribute.String("exam.trigger", string(in.Trigger)),
	)

	// 正式考试以报名记录中的姓名为准，不信任客户端缓存
	name, err := p.Identity.DisplayName(ctx, in.Taker)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve taker")
		return nil, fmt.Errorf("resolve taker name: %w", err)
	}

	g := Grade(in.Test.Questions, in.Answers)
	result := &model.Result{
		TakerKey:         in.Taker.Key,
		StudentName:      name,
		TestID:           in.Test.ID,
		TestName:         in.Test.Title,
		Score:            g.Score,
		TotalMarks:       in.Test.MaxMarks(),
		CorrectCount:     g.CorrectCount,
		AttemptedCount:   g.AttemptedCount,
		Accuracy:         g.Accuracy,
		TimeTakenSeconds: TimeTaken(in.Test.DurationSeconds(), in.TimeLeft),
		Responses:        g.Responses,
		CertificateRefID: p.NewCertificateRef(),
		IdempotencyKey:   IdempotencyKey(in.Taker.Key, in.Test.ID, in.StartedAt),
		Trigger:          in.Trigger,
		SubmittedAt:      p.Now(),
	}

	saved, err := p.Results.CreateResult(ctx, result)
	if errors.Is(err, repository.ErrDuplicateResult) {
		logger.Log.Info("Result already recorded for attempt",
			zap.String("testId", in.Test.ID),
			zap.String("takerKey", in.Taker.Key),
			zap.String("resultId", saved.ID))
		return saved, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist result")
		return nil, fmt.Errorf("persist result: %w", err)
	}

	if p.Certificates != nil {
		if err := p.Certificates.Publish(ctx, saved); err != nil {
			logger.Log.Warn("Certificate hand-off failed",
				zap.String("resultId", saved.ID),
				zap.String("certificateRefId", saved.CertificateRefID),
				zap.Error(err))
		}
	}
	return saved, nil
}

// IdempotencyKey 由作答人、试卷与会话开始时间确定，同一次作答重复提交会得到相同的键
func IdempotencyKey(takerKey, testID string, startedAt time.Time) string {
	sum := blake2b.Sum256([]byte(takerKey + "|" + testID + "|" + strconv.FormatInt(startedAt.UnixNano(), 10)))
	return hex.EncodeToString(sum[:])
}
