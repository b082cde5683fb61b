package repository

import (
	"context"
	"errors"
	"institute_backend/internal/model"

	"gorm.io/gorm"
)

// ErrDuplicateResult 同一次作答（幂等键相同）已经写入过成绩
var ErrDuplicateResult = errors.New("result already recorded for this attempt")

type ResultRepository struct {
	DB *gorm.DB
}

func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{DB: db}
}

// CreateResult 只追加，不更新。幂等键冲突时返回已存在的记录和 ErrDuplicateResult
func (r *ResultRepository) CreateResult(ctx context.Context, result *model.Result) (*model.Result, error) {
	err := r.DB.WithContext(ctx).Create(result).Error
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) || result.IdempotencyKey == "" {
		return nil, err
	}

	existing, findErr := r.FindByIdempotencyKey(ctx, result.IdempotencyKey)
	if findErr != nil {
		return nil, err
	}
	return existing, ErrDuplicateResult
}

func (r *ResultRepository) FindByIdempotencyKey(ctx context.Context, key string) (*model.Result, error) {
	var result model.Result
	err := r.DB.WithContext(ctx).Where("idempotency_key = ?", key).First(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *ResultRepository) FindByID(ctx context.Context, id string) (*model.Result, error) {
	var result model.Result
	err := r.DB.WithContext(ctx).First(&result, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *ResultRepository) ListByTest(ctx context.Context, testID string) ([]model.Result, error) {
	var results []model.Result
	err := r.DB.WithContext(ctx).
		Where("test_id = ?", testID).
		Order("score desc, time_taken_seconds asc").
		Find(&results).Error
	return results, err
}

func (r *ResultRepository) ListByTaker(ctx context.Context, takerKey string) ([]model.Result, error) {
	var results []model.Result
	err := r.DB.WithContext(ctx).
		Where("taker_key = ?", takerKey).
		Order("submitted_at desc").
		Find(&results).Error
	return results, err
}
