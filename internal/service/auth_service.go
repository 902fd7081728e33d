package service

import (
	"context"
	"errors"
	"fmt"

	"go-digital-inventory/internal/model"
	"go-digital-inventory/internal/repository"
	"go-digital-inventory/pkg/jwt"

	"go.uber.org/zap"
)

var ErrWrongPassword = errors.New("current password is incorrect")

type AuthService interface {
	Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error)
	ChangePassword(ctx context.Context, req *ChangePasswordRequest) error
	// Authenticate resolves a bearer token to the user it was issued for.
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	Username    string `json:"username" validate:"required"`
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresIn int64       `json:"expires_in"`
	User      *model.User `json:"user"`
}

type authService struct {
	users  repository.UserRepository
	issuer *jwt.Issuer
	log    *zap.Logger
}

func NewAuthService(users repository.UserRepository, issuer *jwt.Issuer, log *zap.Logger) AuthService {
	return &authService{
		users:  users,
		issuer: issuer,
		log:    log.Named("auth"),
	}
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, persistence("loading user", err)
	}
	if !user.CheckPassword(req.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.issuer.GenerateToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}

	s.log.Info("user logged in", zap.String("username", user.Username))
	return &LoginResponse{
		Token:     token,
		ExpiresIn: int64(s.issuer.TTL().Seconds()),
		User:      user,
	}, nil
}

func (s *authService) ChangePassword(ctx context.Context, req *ChangePasswordRequest) error {
	if err := validate(req); err != nil {
		return err
	}

	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return persistence("loading user", err)
	}
	if !user.CheckPassword(req.OldPassword) {
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, ErrWrongPassword)
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.users.Update(ctx, user); err != nil {
		return persistence("updating user", err)
	}
	return nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.issuer.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, jwt.ErrInvalidToken
		}
		return nil, persistence("loading user", err)
	}
	return user, nil
}
