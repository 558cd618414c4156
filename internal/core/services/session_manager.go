package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/turdes/auth/internal/core/domain"
	"github.com/turdes/auth/internal/core/ports"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type SessionConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// RotateRefreshTokens makes Refresh replace the stored refresh token
	// instead of leaving it valid until logout.
	RotateRefreshTokens bool
}

type accessClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	UserID string `json:"userId"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

type SessionManager struct {
	users  ports.UserRepository
	cfg    SessionConfig
	logger zerolog.Logger
	now    func() time.Time
}

type SessionOption func(*SessionManager)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionManager) {
		s.now = now
	}
}

func NewSessionManager(users ports.UserRepository, cfg SessionConfig, logger zerolog.Logger, opts ...SessionOption) (*SessionManager, error) {
	if len(bytes.TrimSpace(cfg.Secret)) == 0 {
		return nil, domain.ErrEmptySecret
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}

	s := &SessionManager{
		users:  users,
		cfg:    cfg,
		logger: logger.With().Str("component", "sessions").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SessionManager) Issue(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.signAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, err := s.signRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	// Concurrent logins race here; the last write wins.
	if err := s.users.SetRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	user.RefreshToken = &refreshToken

	return &domain.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *SessionManager) VerifyAccess(token string) (*domain.AccessClaims, error) {
	claims := &accessClaims{}
	if err := s.parse(token, claims); err != nil {
		s.logger.Warn().Err(err).Msg("access token rejected")
		return nil, domain.ErrUnauthenticated
	}
	if claims.Type != tokenTypeAccess {
		s.logger.Warn().Str("typ", claims.Type).Msg("access token rejected: wrong token type")
		return nil, domain.ErrUnauthenticated
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("access token rejected: malformed user id")
		return nil, domain.ErrUnauthenticated
	}

	return &domain.AccessClaims{
		UserID: userID,
		Email:  claims.Email,
		Role:   domain.Role(claims.Role),
	}, nil
}

func (s *SessionManager) VerifyRefresh(ctx context.Context, token string) (*domain.User, error) {
	claims := &refreshClaims{}
	if err := s.parse(token, claims); err != nil {
		s.logger.Warn().Err(err).Msg("refresh token rejected")
		return nil, domain.ErrUnauthenticated
	}
	if claims.Type != tokenTypeRefresh {
		s.logger.Warn().Str("typ", claims.Type).Msg("refresh token rejected: wrong token type")
		return nil, domain.ErrUnauthenticated
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("refresh token rejected: malformed user id")
		return nil, domain.ErrUnauthenticated
	}

	user, err := s.users.GetByIDAndRefreshToken(ctx, userID, token)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to look up refresh token")
		return nil, domain.ErrUnauthenticated
	}
	if user == nil {
		s.logger.Warn().Str("user_id", userID.String()).Msg("refresh token rejected: not the stored token")
		return nil, domain.ErrUnauthenticated
	}

	return user, nil
}

func (s *SessionManager) Refresh(ctx context.Context, token string) (*domain.TokenPair, error) {
	user, err := s.VerifyRefresh(ctx, token)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.signAccessToken(user)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to sign access token")
		return nil, domain.ErrUnauthenticated
	}

	pair := &domain.TokenPair{AccessToken: accessToken}
	if !s.cfg.RotateRefreshTokens {
		return pair, nil
	}

	next, err := s.signRefreshToken(user.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to sign refresh token")
		return nil, domain.ErrUnauthenticated
	}

	swapped, err := s.users.SwapRefreshToken(ctx, user.ID, token, next)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to rotate refresh token")
		return nil, domain.ErrUnauthenticated
	}
	if !swapped {
		s.logger.Warn().Str("user_id", user.ID.String()).Msg("refresh token already rotated")
		return nil, domain.ErrUnauthenticated
	}

	pair.RefreshToken = next
	return pair, nil
}

func (s *SessionManager) Revoke(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.ClearRefreshToken(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}
	return nil
}

func (s *SessionManager) signAccessToken(user *domain.User) (string, error) {
	claims := accessClaims{
		UserID:           user.ID.String(),
		Email:            user.Email,
		Role:             string(user.Role),
		Type:             tokenTypeAccess,
		RegisteredClaims: s.registeredClaims(user.ID, s.cfg.AccessTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
}

func (s *SessionManager) signRefreshToken(userID uuid.UUID) (string, error) {
	claims := refreshClaims{
		UserID:           userID.String(),
		Type:             tokenTypeRefresh,
		RegisteredClaims: s.registeredClaims(userID, s.cfg.RefreshTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
}

func (s *SessionManager) registeredClaims(userID uuid.UUID, ttl time.Duration) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		Issuer:    s.cfg.Issuer,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
}

func (s *SessionManager) parse(token string, claims jwt.Claims) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	}, opts...)
	return err
}
