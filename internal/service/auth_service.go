package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/snackpdf/pdf-api/internal/models"
	appErrors "github.com/snackpdf/pdf-api/pkg/errors"
)

type authUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindSessionByToken(ctx context.Context, token string) (*models.Session, error)
	DeactivateSession(ctx context.Context, id string) error
}

// AuthConfig defines configuration for token validation.
type AuthConfig struct {
	TokenSecret string
}

// AuthService resolves bearer tokens issued by the main platform into user
// accounts. It never issues tokens itself.
type AuthService struct {
	repo   authUserRepository
	logger *zap.Logger
	config AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{repo: repo, logger: logger, config: config}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

// Authenticate resolves a bearer token into a live user account. The token
// must carry valid claims and its session row must be active and unexpired.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	session, err := s.repo.FindSessionByToken(ctx, tokenString)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	if !session.IsActive {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session is revoked")
	}
	if time.Now().UTC().After(session.ExpiresAt) {
		if err := s.repo.DeactivateSession(ctx, session.ID); err != nil {
			s.logger.Warn("failed to deactivate expired session", zap.String("session_id", session.ID), zap.Error(err))
		}
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session expired")
	}
	if session.UserID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token does not match session")
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "associated user no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if !user.IsActive {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	return user, nil
}
