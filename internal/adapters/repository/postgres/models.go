package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/turdes/auth/internal/core/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type userModel struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string         `gorm:"type:text;uniqueIndex;not null"`
	Name         string         `gorm:"type:text;not null"`
	Role         string         `gorm:"type:text;not null;default:USER"`
	PasswordHash string         `gorm:"type:text;not null"`
	RefreshToken *string        `gorm:"type:text"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (userModel) TableName() string { return "users" }

func newUserModel(u *domain.User) *userModel {
	return &userModel{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         string(u.Role),
		PasswordHash: u.PasswordHash,
		RefreshToken: u.RefreshToken,
	}
}

func (m *userModel) toDomain() *domain.User {
	return &domain.User{
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name,
		Role:         domain.Role(m.Role),
		PasswordHash: m.PasswordHash,
		RefreshToken: m.RefreshToken,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

type auditLogModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ActorID   *uuid.UUID     `gorm:"type:uuid;index"`
	Action    string         `gorm:"type:text;not null"`
	Metadata  datatypes.JSON `gorm:"type:jsonb;default:'{}'::jsonb"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
}

func (auditLogModel) TableName() string { return "audit_logs" }
