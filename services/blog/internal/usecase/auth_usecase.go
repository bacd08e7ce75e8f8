package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tutorial-blog/pkg/jwt"
	"tutorial-blog/pkg/logger"
	"tutorial-blog/pkg/metrics"
	"tutorial-blog/services/blog/internal/entity"
	"tutorial-blog/services/blog/internal/repo/persistent"

	"golang.org/x/crypto/bcrypt"
)

// TokenService is satisfied by *jwt.Service.
type TokenService interface {
	GenerateToken(userID, username string) (string, error)
	ValidateToken(token string) (*jwt.Claims, error)
}

// TokenRevoker is satisfied by *cache.TokenBlacklist.
type TokenRevoker interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
}

type AuthUseCase interface {
	Register(ctx context.Context, username, email, password string) (*entity.User, string, error)
	Login(ctx context.Context, username, password string) (*entity.User, string, error)
	Logout(ctx context.Context, token string) error
	GetUser(ctx context.Context, userID string) (*entity.User, error)
}

type authUseCase struct {
	userRepo persistent.UserRepository
	tokens   TokenService
	revoker  TokenRevoker
	logger   *logger.Logger
}

func NewAuthUseCase(
	userRepo persistent.UserRepository,
	tokens TokenService,
	revoker TokenRevoker,
	logger *logger.Logger,
) AuthUseCase {
	return &authUseCase{
		userRepo: userRepo,
		tokens:   tokens,
		revoker:  revoker,
		logger:   logger,
	}
}

func (uc *authUseCase) Register(ctx context.Context, username, email, password string) (*entity.User, string, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if _, err := uc.userRepo.GetByUsername(ctx, username); err == nil {
		return nil, "", fmt.Errorf("username already taken: %w", entity.ErrUserExists)
	} else if !errors.Is(err, entity.ErrNotFound) {
		return nil, "", err
	}

	if email != "" {
		if _, err := uc.userRepo.GetByEmail(ctx, email); err == nil {
			return nil, "", fmt.Errorf("email already registered: %w", entity.ErrUserExists)
		} else if !errors.Is(err, entity.ErrNotFound) {
			return nil, "", err
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		uc.logger.Error("Failed to hash password: %v", err)
		return nil, "", fmt.Errorf("failed to process registration")
	}

	user := &entity.User{
		Username: username,
		Email:    email,
		Password: string(hashedPassword),
		IsActive: true,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, entity.ErrUserExists) {
			return nil, "", err
		}
		uc.logger.Error("Failed to create user: %v", err)
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := uc.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		uc.logger.Error("Failed to generate token: %v", err)
		return nil, "", fmt.Errorf("failed to generate token")
	}

	user.Password = ""
	return user, token, nil
}

func (uc *authUseCase) Login(ctx context.Context, username, password string) (*entity.User, string, error) {
	user, err := uc.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			metrics.Logins.WithLabelValues("failure").Inc()
			return nil, "", entity.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		metrics.Logins.WithLabelValues("failure").Inc()
		return nil, "", entity.ErrInvalidCredentials
	}

	if !user.IsActive {
		metrics.Logins.WithLabelValues("inactive").Inc()
		return nil, "", entity.ErrInactiveUser
	}

	token, err := uc.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		uc.logger.Error("Failed to generate token: %v", err)
		return nil, "", fmt.Errorf("failed to generate token")
	}

	metrics.Logins.WithLabelValues("success").Inc()
	user.Password = ""
	return user, token, nil
}

// Logout revokes token for the rest of its lifetime. Tokens that no longer
// validate need no revoking.
func (uc *authUseCase) Logout(ctx context.Context, token string) error {
	claims, err := uc.tokens.ValidateToken(token)
	if err != nil {
		return nil
	}

	var ttl time.Duration
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if err := uc.revoker.Revoke(ctx, token, ttl); err != nil {
		uc.logger.Error("Failed to revoke token: %v", err)
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (uc *authUseCase) GetUser(ctx context.Context, userID string) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}
