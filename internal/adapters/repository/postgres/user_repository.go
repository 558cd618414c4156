package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/turdes/auth/internal/core/domain"
	"github.com/turdes/auth/internal/core/ports"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) ports.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) GetByIDAndRefreshToken(ctx context.Context, id uuid.UUID, refreshToken string) (*domain.User, error) {
	return r.first(ctx, "id = ? AND refresh_token = ?", id, refreshToken)
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	m := newUserModel(user)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return err
	}
	*user = *m.toDomain()
	return nil
}

func (r *UserRepository) SetRefreshToken(ctx context.Context, id uuid.UUID, refreshToken string) error {
	return r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id = ?", id).
		Update("refresh_token", refreshToken).Error
}

func (r *UserRepository) SwapRefreshToken(ctx context.Context, id uuid.UUID, oldToken, newToken string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id = ? AND refresh_token = ?", id, oldToken).
		Update("refresh_token", newToken)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *UserRepository) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id = ?", id).
		Update("refresh_token", gorm.Expr("NULL")).Error
}

func (r *UserRepository) first(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var m userModel
	err := r.db.WithContext(ctx).Where(query, args...).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return m.toDomain(), nil
}
