package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/turdes/auth/internal/core/domain"
)

// SessionManager issues, verifies and revokes the token pair bound to a user.
// Every verification failure is reported as domain.ErrUnauthenticated.
type SessionManager interface {
	Issue(ctx context.Context, user *domain.User) (*domain.TokenPair, error)
	VerifyAccess(token string) (*domain.AccessClaims, error)
	VerifyRefresh(ctx context.Context, token string) (*domain.User, error)
	Refresh(ctx context.Context, token string) (*domain.TokenPair, error)
	Revoke(ctx context.Context, userID uuid.UUID) error
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	Login(ctx context.Context, user *domain.User) (*domain.TokenPair, error)
	LoginWithGoogle(ctx context.Context, googleToken string) (*domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID) error
}

type TokenPayload struct {
	Email string
	Name  string
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string, clientID string) (*TokenPayload, error)
}

// EventPublisher fans out authentication events to other services.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, v any) error
}
