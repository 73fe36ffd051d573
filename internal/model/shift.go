package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ShiftStatusOpen   = "open"
	ShiftStatusClosed = "closed"
)

// Shift is one drawer custody session on a Register.
// Lifecycle: created open → closed exactly once. Never re-opened, never deleted.
// The closing fields stay NULL until the shift is closed; they are set together
// in a single guarded UPDATE so a failed write cannot leave a half-closed row.
type Shift struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RegisterID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	OpenedBy    uuid.UUID       `gorm:"type:uuid;not null"`
	OpeningCash decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status      string          `gorm:"type:varchar(10);not null;default:'open'"`
	OpenedAt    time.Time       `gorm:"not null"`
	ClosedAt    *time.Time

	// ClosingCash is the physically counted amount declared by staff.
	// ExpectedCash = opening float + net cash takings for [OpenedAt, ClosedAt).
	// CashDifference = ClosingCash − ExpectedCash (negative = shortage, kept raw).
	ClosingCash    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ExpectedCash   *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CashDifference *decimal.Decimal `gorm:"type:decimal(12,2)"`
	// ClosedBy differs from OpenedBy on a force-close.
	ClosedBy *uuid.UUID `gorm:"type:uuid"`

	Register *Register `gorm:"foreignKey:RegisterID"`
}
