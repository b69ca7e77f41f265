package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LUCIFER14144/email-marketing-platform/internal/auth"
	"github.com/LUCIFER14144/email-marketing-platform/internal/config"
	"github.com/LUCIFER14144/email-marketing-platform/internal/logger"
	"github.com/LUCIFER14144/email-marketing-platform/internal/model"
	"github.com/LUCIFER14144/email-marketing-platform/internal/repository"
)

// Common service errors
var (
	ErrInvalidCredentials    = errors.New("invalid username or password")
	ErrUsernameAlreadyExists = errors.New("username already exists")
	ErrInvalidUsername       = errors.New("invalid username")
	ErrPasswordTooWeak       = errors.New("password does not meet requirements")
	ErrInvalidToken          = errors.New("invalid or expired token")
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo    *repository.UserRepository
	tokenSvc    *auth.TokenService
	argonParams *auth.Argon2Params
	cfg         *config.Config
	log         *logger.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo *repository.UserRepository, tokenSvc *auth.TokenService, cfg *config.Config, log *logger.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokenSvc: tokenSvc,
		argonParams: auth.NewParams(
			cfg.Security.Password.Argon2Memory,
			cfg.Security.Password.Argon2Iterations,
			cfg.Security.Password.Argon2Parallelism,
		),
		cfg: cfg,
		log: log.WithComponent("auth_service"),
	}
}

// Credentials is the username/password pair presented on register and login
type Credentials struct {
	Username  string
	Password  string
	IPAddress string
}

// Session is an authenticated user and the token issued for it
type Session struct {
	User  *model.User
	Token *auth.AccessToken
}

// Register creates a new user account and signs it in
func (s *AuthService) Register(ctx context.Context, req Credentials) (*Session, error) {
	username := strings.TrimSpace(req.Username)
	if err := auth.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidUsername, err.Error())
	}
	if err := auth.ValidatePassword(req.Password, s.cfg.Security.Password.MinLength); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPasswordTooWeak, err.Error())
	}

	passwordHash, err := auth.HashPassword(req.Password, s.argonParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           generateID("usr"),
		Username:     username,
		PasswordHash: passwordHash,
		IP:           req.IPAddress,
		CreatedAt:    now,
		LastLogin:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokenSvc.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, err
	}

	s.log.AuditLog(user.ID, "user.register", "user", user.ID, map[string]interface{}{
		"username": user.Username,
		"ip":       req.IPAddress,
	})

	return &Session{User: user, Token: token}, nil
}

// Login authenticates a user and issues a fresh access token
func (s *AuthService) Login(ctx context.Context, req Credentials) (*Session, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	match, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		s.log.AuditLog(user.ID, "user.login_failed", "user", user.ID, map[string]interface{}{
			"reason": "invalid_password",
			"ip":     req.IPAddress,
		})
		return nil, ErrInvalidCredentials
	}

	// Upgrade hashes made under older cost settings
	if auth.NeedsRehash(user.PasswordHash, s.argonParams) {
		if rehashed, err := auth.HashPassword(req.Password, s.argonParams); err == nil {
			if err := s.userRepo.UpdatePasswordHash(ctx, user.ID, rehashed); err != nil {
				s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to upgrade password hash")
			}
		}
	}

	now := time.Now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now, req.IPAddress); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	}
	user.LastLogin = now
	if req.IPAddress != "" {
		user.IP = req.IPAddress
	}

	token, err := s.tokenSvc.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, err
	}

	s.log.AuditLog(user.ID, "user.login", "user", user.ID, map[string]interface{}{
		"ip": req.IPAddress,
	})

	return &Session{User: user, Token: token}, nil
}

// Authenticate resolves an access token to its user
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.tokenSvc.ValidateAccessToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.userRepo.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// User returns the account for userID
func (s *AuthService) User(ctx context.Context, userID string) (*model.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// Logout records the sign-out. Access tokens are stateless and simply expire.
func (s *AuthService) Logout(_ context.Context, userID string) {
	s.log.AuditLog(userID, "user.logout", "user", userID, nil)
}

// Helper functions

func generateID(prefix string) string {
	clean := strings.ReplaceAll(uuid.New().String(), "-", "")
	if len(prefix) > 0 {
		return prefix + "_" + clean[:min(26, len(clean))]
	}
	return clean
}
