package service

import (
	"context"
	"errors"
	"fmt"
	"institute_backend/internal/model"

	"gorm.io/gorm"
)

// IdentityResolver 身份/报名信息由外部维护，引擎只读
type IdentityResolver interface {
	ResolveTaker(ctx context.Context, userID uint, testID, registrationNo string) (model.Taker, error)
	DisplayName(ctx context.Context, taker model.Taker) (string, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

type registrationFinder interface {
	FindByRegistrationNo(ctx context.Context, registrationNo string) (*model.Registration, error)
}

type IdentityService struct {
	Users         userFinder
	Registrations registrationFinder
}

func NewIdentityService(users userFinder, registrations registrationFinder) *IdentityService {
	return &IdentityService{Users: users, Registrations: registrations}
}

// ResolveTaker 带报名号即为正式考试；testID 为空时不校验试卷（查询历史成绩）
func (s *IdentityService) ResolveTaker(ctx context.Context, userID uint, testID, registrationNo string) (model.Taker, error) {
	if registrationNo == "" {
		return model.PracticeTaker(userID), nil
	}

	reg, err := s.Registrations.FindByRegistrationNo(ctx, registrationNo)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Taker{}, ErrRegistrationMismatch
	}
	if err != nil {
		return model.Taker{}, fmt.Errorf("find registration: %w", err)
	}
	if reg.UserID != userID || (testID != "" && reg.TestID != testID) {
		return model.Taker{}, ErrRegistrationMismatch
	}
	return model.OfficialTaker(userID, reg.RegistrationNo), nil
}

func (s *IdentityService) DisplayName(ctx context.Context, taker model.Taker) (string, error) {
	if taker.Kind == model.TakerOfficial {
		reg, err := s.Registrations.FindByRegistrationNo(ctx, taker.RegistrationNo)
		if err != nil {
			return "", err
		}
		return reg.StudentName, nil
	}

	user, err := s.Users.FindByID(ctx, taker.UserID)
	if err != nil {
		return "", err
	}
	return user.Name, nil
}
