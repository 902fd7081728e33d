package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-digital-inventory/internal/model"
	"go-digital-inventory/internal/repository"

	"go.uber.org/zap"
)

type UserService interface {
	// CreateUser registers a back-office user. Only admins may do this.
	CreateUser(ctx context.Context, req *CreateUserRequest, creator *model.User) (*model.User, error)
	// EnsureAdmin creates the admin account when no user with that name
	// exists yet.
	EnsureAdmin(ctx context.Context, username, password string) (bool, error)
	// ResetPassword sets a new password without checking the old one.
	ResetPassword(ctx context.Context, username, password string) error
}

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,role"`
}

type userService struct {
	users repository.UserRepository
	audit AuditService
	log   *zap.Logger
	now   func() time.Time
}

func NewUserService(users repository.UserRepository, audit AuditService, log *zap.Logger) UserService {
	return &userService{
		users: users,
		audit: audit,
		log:   log.Named("users"),
		now:   time.Now,
	}
}

func (s *userService) CreateUser(ctx context.Context, req *CreateUserRequest, creator *model.User) (*model.User, error) {
	if creator == nil || !creator.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins can create users", ErrForbidden)
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(req.Username)
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("username %q %w", username, ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, persistence("loading user", err)
	}

	role := model.RoleStaff
	if req.Role != "" {
		role = model.Role(req.Role)
	}
	user := &model.User{
		Username:  username,
		Role:      role,
		CreatedAt: s.now(),
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("username %q %w", username, ErrConflict)
		}
		return nil, persistence("creating user", err)
	}

	s.audit.Record(ctx, AuditEntry{
		Action:  model.ActionCreateUser,
		Actor:   creator.Username,
		Details: fmt.Sprintf("Created user %s with role %s", user.Username, user.Role),
	})
	return user, nil
}

func (s *userService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	_, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	admin := &model.User{
		Username:  username,
		Role:      model.RoleAdmin,
		CreatedAt: s.now(),
	}
	if err := admin.SetPassword(password); err != nil {
		return false, err
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return false, err
	}
	s.log.Info("admin user created", zap.String("username", username))
	return true, nil
}

func (s *userService) ResetPassword(ctx context.Context, username, password string) error {
	if len(password) < 6 {
		return invalid("password must be at least 6 characters")
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("user %q %w", username, ErrNotFound)
		}
		return persistence("loading user", err)
	}
	if err := user.SetPassword(password); err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.users.Update(ctx, user); err != nil {
		return persistence("updating user", err)
	}
	return nil
}
