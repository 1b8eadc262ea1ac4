package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"crmhub_backend/platform/apperr"
	"crmhub_backend/platform/config"
	"crmhub_backend/platform/logger"
)

const accessTokenType = "access"

// TokenPair is one issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Service issues and rotates agent credentials.
type Service struct {
	repo *Repository
	cfg  config.AuthServiceConfig
	log  *logger.Logger
}

// NewService creates a new auth service.
func NewService(repo *Repository, cfg config.AuthServiceConfig, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, log: log}
}

// Login verifies credentials and issues a token pair. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, plainPassword string) (TokenPair, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		s.log.AuthEvent("login", email, false, "unknown user")
		return TokenPair{}, apperr.Unauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(plainPassword)); err != nil {
		s.log.AuthEvent("login", email, false, "wrong password")
		return TokenPair{}, apperr.Unauthorized("invalid credentials")
	}

	s.log.AuthEvent("login", email, true, "")
	return s.issueTokens(ctx, user)
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	hash := hashToken(refreshToken)
	userID, expiresAt, err := s.repo.GetRefreshToken(ctx, hash)
	if err != nil {
		return TokenPair{}, apperr.Unauthorized("invalid refresh token")
	}

	if time.Now().After(expiresAt) {
		_ = s.repo.RevokeRefreshToken(ctx, hash)
		return TokenPair{}, apperr.Unauthorized("refresh token expired")
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return TokenPair{}, apperr.Unauthorized("invalid refresh token")
	}

	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil {
		return TokenPair{}, err
	}
	return s.issueTokens(ctx, user)
}

// Logout revokes the presented refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.repo.RevokeRefreshToken(ctx, hashToken(refreshToken))
}

// UserEmail resolves a user ID to their email address. Used by notification
// subscribers.
func (s *Service) UserEmail(ctx context.Context, userID uuid.UUID) (string, string, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	return user.Email, user.Name, nil
}

func (s *Service) issueTokens(ctx context.Context, user User) (TokenPair, error) {
	accessToken, err := s.signJWT(user)
	if err != nil {
		return TokenPair{}, err
	}

	refreshToken, err := generateRandomToken(48)
	if err != nil {
		return TokenPair{}, err
	}

	expiresAt := time.Now().Add(s.cfg.GetRefreshTokenTTL())
	if err := s.repo.CreateRefreshToken(ctx, user.ID, hashToken(refreshToken), expiresAt); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *Service) signJWT(user User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":       user.ID.String(),
		"type":      accessTokenType,
		"roles":     user.Roles,
		"tenant_id": user.TenantID.String(),
		"exp":       now.Add(s.cfg.GetAccessTokenTTL()).Unix(),
		"iat":       now.Unix(),
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenObj.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}
