package users

import (
	"context"
	"errors"

	"github.com/avlobanov/aerobook/internal/auth"
	"github.com/avlobanov/aerobook/internal/domain"
	"github.com/avlobanov/aerobook/internal/repository"
)

type UserUseCase interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, string, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
}

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type UserService struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
}

func NewUserService(users repository.UserRepository, tokens *auth.TokenManager) *UserService {
	return &UserService{users: users, tokens: tokens}
}

func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, string, error) {
	fields := map[string]string{}
	if input.Email == "" {
		fields["email"] = "is required"
	}
	if len(input.Password) < 8 {
		fields["password"] = "must be at least 8 characters"
	}
	if input.FullName == "" {
		fields["full_name"] = "is required"
	}
	if len(fields) > 0 {
		return nil, "", domain.Validation(fields)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, "", err
	}

	user := &domain.User{
		Email:        input.Email,
		PasswordHash: hash,
		FullName:     input.FullName,
		Role:         domain.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", domain.Conflict("email is already registered")
		}
		return nil, "", err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", domain.Unauthorized("invalid credentials")
		}
		return nil, "", err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, "", domain.Unauthorized("invalid credentials")
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

var _ UserUseCase = (*UserService)(nil)
