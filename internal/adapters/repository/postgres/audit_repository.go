package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/turdes/auth/internal/core/domain"
	"github.com/turdes/auth/internal/core/ports"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) ports.AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Record(ctx context.Context, entry *domain.AuditEntry) error {
	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode audit metadata: %w", err)
	}

	m := &auditLogModel{
		ActorID:  entry.ActorID,
		Action:   string(entry.Action),
		Metadata: datatypes.JSON(raw),
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	entry.ID = m.ID
	entry.CreatedAt = m.CreatedAt
	return nil
}
