package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/felipe-nonato/task-manager/internal/auth"
	"github.com/felipe-nonato/task-manager/internal/config"
	"github.com/felipe-nonato/task-manager/internal/domain"
	"github.com/felipe-nonato/task-manager/internal/events"
	"github.com/felipe-nonato/task-manager/internal/repository"
)

// LoginGate limits repeated failed login attempts. Implementations must be
// best-effort; a nil gate disables throttling entirely.
type LoginGate interface {
	Allow(ctx context.Context, email string) bool
	RecordFailure(ctx context.Context, email string)
	Reset(ctx context.Context, email string)
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	gate       LoginGate
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.AuthConfig
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	LoginGate  LoginGate
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		gate:       deps.LoginGate,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// Register creates a new account with a salted one-way password hash.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrMissingFields
	}
	if len(password) < s.minPasswordLength() {
		return nil, ErrPasswordTooShort
	}

	hash, err := auth.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if err == repository.ErrDuplicateEmail {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.publish(ctx, events.Event{
		Type:   events.EventUserRegistered,
		UserID: &user.ID,
	})
	return user, nil
}

// Authenticate verifies credentials and returns the matching account. Wrong
// password and unknown email fail with distinct errors.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	if s.gate != nil && !s.gate.Allow(ctx, email) {
		return nil, ErrTooManyAttempts
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if s.gate != nil {
			s.gate.RecordFailure(ctx, email)
		}
		return nil, ErrInvalidCredentials
	}

	if s.gate != nil {
		s.gate.Reset(ctx, email)
	}
	return user, nil
}

// ListUsers returns every registered account.
func (s *AuthService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

func (s *AuthService) minPasswordLength() int {
	if s.cfg.MinPasswordLength <= 0 {
		return 6
	}
	return s.cfg.MinPasswordLength
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	stampEvent(&event)
	_ = s.dispatcher.Publish(ctx, event)
}
