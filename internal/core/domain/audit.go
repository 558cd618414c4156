package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditUserRegistered AuditAction = "user.registered"
	AuditUserLoggedIn   AuditAction = "user.logged_in"
	AuditTokenRefreshed AuditAction = "user.token_refreshed"
	AuditUserLoggedOut  AuditAction = "user.logged_out"
)

// AuditEntry records an authentication event for a user.
type AuditEntry struct {
	ID        uuid.UUID      `json:"id"`
	ActorID   *uuid.UUID     `json:"actor_id,omitempty"`
	Action    AuditAction    `json:"action"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
