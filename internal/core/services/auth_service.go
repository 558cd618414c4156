package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/turdes/auth/internal/core/domain"
	"github.com/turdes/auth/internal/core/ports"
)

const minPasswordLength = 8

// AuthEvent is published on every successful register, login, refresh and logout.
type AuthEvent struct {
	UserID     uuid.UUID          `json:"userId"`
	Email      string             `json:"email,omitempty"`
	Action     domain.AuditAction `json:"action"`
	OccurredAt time.Time          `json:"occurredAt"`
}

type AuthService struct {
	userRepo            ports.UserRepository
	sessions            ports.SessionManager
	hasher              ports.PasswordHasher
	auditRepo           ports.AuditRepository
	events              ports.EventPublisher
	googleTokenVerifier ports.TokenVerifier
	googleClientID      string
	logger              zerolog.Logger
	dummyHash           string
}

type AuthOption func(*AuthService)

func WithAuditRepository(repo ports.AuditRepository) AuthOption {
	return func(s *AuthService) {
		s.auditRepo = repo
	}
}

func WithEventPublisher(events ports.EventPublisher) AuthOption {
	return func(s *AuthService) {
		s.events = events
	}
}

// WithGoogle enables LoginWithGoogle for ID tokens issued to clientID.
func WithGoogle(verifier ports.TokenVerifier, clientID string) AuthOption {
	return func(s *AuthService) {
		s.googleTokenVerifier = verifier
		s.googleClientID = clientID
	}
}

func WithLogger(logger zerolog.Logger) AuthOption {
	return func(s *AuthService) {
		s.logger = logger
	}
}

func NewAuthService(userRepo ports.UserRepository, sessions ports.SessionManager, hasher ports.PasswordHasher, opts ...AuthOption) *AuthService {
	s := &AuthService{
		userRepo: userRepo,
		sessions: sessions,
		hasher:   hasher,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Unknown emails are checked against this hash so they cost the same as a wrong password.
	if hash, err := hasher.Hash(uuid.NewString()); err == nil {
		s.dummyHash = hash
	}
	return s
}

func (s *AuthService) Register(ctx context.Context, input ports.RegisterInput) (*domain.User, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if len(input.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrAlreadyExists
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		Name:         name,
		Role:         domain.RoleUser,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.record(ctx, domain.AuditUserRegistered, user.ID, user.Email, nil)
	return user, nil
}

func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		if s.dummyHash != "" {
			_, _ = s.hasher.Verify(password, s.dummyHash)
		}
		return nil, domain.ErrUnauthenticated
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID.String()).Msg("stored password hash is unreadable")
		return nil, domain.ErrUnauthenticated
	}
	if !ok {
		return nil, domain.ErrUnauthenticated
	}

	return user, nil
}

func (s *AuthService) Login(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	pair, err := s.sessions.Issue(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	s.record(ctx, domain.AuditUserLoggedIn, user.ID, user.Email, nil)
	return pair, nil
}

func (s *AuthService) LoginWithGoogle(ctx context.Context, googleToken string) (*domain.TokenPair, error) {
	if s.googleTokenVerifier == nil {
		return nil, domain.ErrUnauthenticated
	}

	payload, err := s.googleTokenVerifier.Verify(ctx, googleToken, s.googleClientID)
	if err != nil {
		s.logger.Debug().Err(err).Msg("google token rejected")
		return nil, domain.ErrUnauthenticated
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user == nil {
		user = &domain.User{
			Email: email,
			Name:  payload.Name,
			Role:  domain.RoleUser,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		s.record(ctx, domain.AuditUserRegistered, user.ID, user.Email, map[string]any{"provider": "google"})
	}

	return s.Login(ctx, user)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	pair, err := s.sessions.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}

	if claims, err := s.sessions.VerifyAccess(pair.AccessToken); err == nil {
		s.record(ctx, domain.AuditTokenRefreshed, claims.UserID, claims.Email, map[string]any{"rotated": pair.RefreshToken != ""})
	}
	return pair, nil
}

func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.sessions.Revoke(ctx, userID); err != nil {
		return err
	}

	s.record(ctx, domain.AuditUserLoggedOut, userID, "", nil)
	return nil
}

// record writes the audit entry and publishes the event. Failures are logged
// and never fail the request that triggered them.
func (s *AuthService) record(ctx context.Context, action domain.AuditAction, userID uuid.UUID, email string, metadata map[string]any) {
	if s.auditRepo != nil {
		entry := &domain.AuditEntry{
			ActorID:  &userID,
			Action:   action,
			Metadata: metadata,
		}
		if err := s.auditRepo.Record(ctx, entry); err != nil {
			s.logger.Warn().Err(err).Str("action", string(action)).Msg("failed to record audit entry")
		}
	}

	if s.events != nil {
		event := AuthEvent{
			UserID:     userID,
			Email:      email,
			Action:     action,
			OccurredAt: time.Now().UTC(),
		}
		if err := s.events.Publish(ctx, "auth."+string(action), event); err != nil {
			s.logger.Warn().Err(err).Str("action", string(action)).Msg("failed to publish auth event")
		}
	}
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", fmt.Errorf("%w: email is not valid", domain.ErrInvalidInput)
	}
	return strings.ToLower(addr.Address), nil
}
