package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	AuditShiftForceClosed = "shift.force_closed"
	AuditClosingCommitted = "closing.committed"
)

// AuditLog records who did what to which entity. Rows are written
// asynchronously by the audit worker and never updated.
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Action     string    `gorm:"type:varchar(40);not null;index"`
	ActorID    uuid.UUID `gorm:"type:uuid;not null;index"`
	EntityType string    `gorm:"type:varchar(20);not null"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Details    string    `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt  time.Time
}
