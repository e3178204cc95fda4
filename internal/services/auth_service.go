package services

import (
	"smartdalali_backend/internal/auth"
	"smartdalali_backend/internal/dto"
	"smartdalali_backend/internal/models"
	"smartdalali_backend/internal/repositories"
	"smartdalali_backend/pkg/apperrors"
)

type AuthService interface {
	Login(req *dto.LoginRequest) (*dto.LoginResponse, error)
}

type authService struct {
	users repositories.UserRepository
}

func NewAuthService(users repositories.UserRepository) AuthService {
	return &authService{users: users}
}

func (s *authService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.users.FindByEmail(req.Email)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			// Same answer for unknown email and wrong password.
			return nil, apperrors.NewUnauthorizedError("Invalid email or password")
		}
		return nil, err
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, apperrors.NewUnauthorizedError("Invalid email or password")
	}

	if user.Status == models.UserStatusSuspended {
		return nil, apperrors.NewForbiddenError("Account is suspended")
	}

	token, err := auth.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.LoginResponse{
		Token: token,
		User: dto.UserInfo{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.DisplayName(),
			Role:  string(user.Role),
		},
	}, nil
}
