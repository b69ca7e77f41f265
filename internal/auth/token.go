// Package auth hashes passwords and issues the access tokens API clients present.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/LUCIFER14144/email-marketing-platform/internal/config"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or issuer checks
var ErrInvalidToken = errors.New("invalid token")

// TokenService handles JWT token creation and validation.
// Tokens are HS256 signed with the configured secret.
type TokenService struct {
	cfg    config.TokenConfig
	secret []byte
	now    func() time.Time
}

// TokenClaims represents the claims in an access token.
type TokenClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// AccessToken is a signed token and its lifetime
type AccessToken struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	ExpiresIn int       `json:"expiresIn"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewTokenService creates a new TokenService
func NewTokenService(cfg config.TokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 24 * time.Hour
	}
	return &TokenService{
		cfg:    cfg,
		secret: []byte(cfg.Secret),
		now:    time.Now,
	}, nil
}

// TTL returns the access token lifetime
func (s *TokenService) TTL() time.Duration {
	return s.cfg.AccessTokenTTL
}

// GenerateAccessToken signs a token for the user
func (s *TokenService) GenerateAccessToken(userID, username string) (*AccessToken, error) {
	now := s.now()
	expiry := now.Add(s.cfg.AccessTokenTTL)

	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
			ID:        uuid.New().String(),
		},
		Username: username,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return &AccessToken{
		Token:     signed,
		TokenType: "Bearer",
		ExpiresIn: int(s.cfg.AccessTokenTTL.Seconds()),
		ExpiresAt: expiry,
	}, nil
}

// ValidateAccessToken validates an access token and returns the claims
func (s *TokenService) ValidateAccessToken(tokenString string) (*TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
