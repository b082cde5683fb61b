package repository

import (
	"context"
	"institute_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Upsert 供导入脚本使用，按邮箱去重
func (r *UserRepository) Upsert(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "role"}),
	}).Create(user).Error
}

type RegistrationRepository struct {
	DB *gorm.DB
}

func NewRegistrationRepository(db *gorm.DB) *RegistrationRepository {
	return &RegistrationRepository{DB: db}
}

func (r *RegistrationRepository) FindByRegistrationNo(ctx context.Context, registrationNo string) (*model.Registration, error) {
	var reg model.Registration
	err := r.DB.WithContext(ctx).Where("registration_no = ?", registrationNo).First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *RegistrationRepository) Upsert(ctx context.Context, reg *model.Registration) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "registration_no"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "test_id", "student_name"}),
	}).Create(reg).Error
}
