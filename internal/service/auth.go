package service

import (
	"context"
	"strings"
	"time"

	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var authTracer = otel.Tracer("service/auth")

// AuthService is a thin identity layer: signup, login and profile lookup.
// Hashing and token issuance live behind ports so the core never touches
// credential material directly.
type AuthService struct {
	users  port.UserStore
	hasher port.PasswordHasher
	tokens port.TokenIssuer
	logger *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(users port.UserStore, hasher port.PasswordHasher, tokens port.TokenIssuer, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens, logger: logger}
}

func (s *AuthService) Register(ctx context.Context, in *domain.RegisterInput) (*domain.User, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Register")
	defer span.End()

	if !domain.IsNotEmpty(in.Name) {
		return nil, &domain.ErrInvalidInput{Field: "name", Message: "required"}
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !strings.Contains(email, "@") {
		return nil, &domain.ErrInvalidInput{Field: "email", Message: "must be a valid email"}
	}
	if len(in.Password) < 8 {
		return nil, &domain.ErrInvalidInput{Field: "password", Message: "must have at least 8 characters"}
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &domain.ErrConflict{Message: "email already registered"}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return nil, err
	}

	now := time.Now()
	user, err := s.users.CreateUser(ctx, &domain.User{
		ID:           uuid.New().String(),
		Name:         in.Name,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, in *domain.LoginInput) (*domain.AuthResult, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(in.Email))
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	// Same error for unknown email and wrong password.
	if user == nil || !user.Active {
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}
	if err := s.hasher.Compare(user.PasswordHash, in.Password); err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to issue token", zap.String("user_id", user.ID), zap.Error(err))
		return nil, err
	}

	return &domain.AuthResult{
		User:        user,
		AccessToken: token,
		ExpiresAt:   time.Unix(expiresAt, 0),
	}, nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.GetProfile")
	defer span.End()

	return s.users.GetUser(ctx, userID)
}
