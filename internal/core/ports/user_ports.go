package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/turdes/auth/internal/core/domain"
)

// UserRepository lookups return (nil, nil) when no row matches.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByIDAndRefreshToken(ctx context.Context, id uuid.UUID, refreshToken string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	SetRefreshToken(ctx context.Context, id uuid.UUID, refreshToken string) error
	// SwapRefreshToken replaces oldToken with newToken only if oldToken is
	// still the stored value. It reports whether the swap happened.
	SwapRefreshToken(ctx context.Context, id uuid.UUID, oldToken, newToken string) (bool, error)
	ClearRefreshToken(ctx context.Context, id uuid.UUID) error
}

type AuditRepository interface {
	Record(ctx context.Context, entry *domain.AuditEntry) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}
