package model

import (
	"time"

	"github.com/google/uuid"
)

// Register is a physical or logical POS terminal with drawer custody.
// At any instant it owns at most one open Shift (enforced by a partial
// unique index on shifts, see infra.applySchemaPatches).
type Register struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"not null;uniqueIndex"`
	Location  *string
	Active    bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
