package repository

import (
	"context"
	"institute_backend/internal/model"

	"gorm.io/gorm"
)

type TestRepository struct {
	DB *gorm.DB
}

func NewTestRepository(db *gorm.DB) *TestRepository {
	return &TestRepository{DB: db}
}

// FindTestByID 返回题目按 order 排序的完整试卷（含答案，仅供服务端判分）
func (r *TestRepository) FindTestByID(ctx context.Context, id string) (*model.Test, error) {
	var test model.Test
	err := r.DB.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("`order` asc, created_at asc")
		}).
		First(&test, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

// SaveTest 导入脚本使用：整卷替换题目
func (r *TestRepository) SaveTest(ctx context.Context, test *model.Test) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("test_id = ?", test.ID).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		questions := test.Questions
		test.Questions = nil
		if err := tx.Save(test).Error; err != nil {
			return err
		}
		for i := range questions {
			questions[i].TestID = test.ID
			if questions[i].Order == 0 {
				questions[i].Order = i + 1
			}
		}
		if len(questions) > 0 {
			if err := tx.Create(&questions).Error; err != nil {
				return err
			}
		}
		test.Questions = questions
		return nil
	})
}
