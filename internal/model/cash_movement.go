package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MovementIn  = "in"
	MovementOut = "out"
)

// CashMovement is a manual drawer adjustment unrelated to sales: petty cash
// pay-ins, supplier payouts, change-fund top-ups. Amount is always positive;
// Type says which direction the cash moved. Movements are never modified or
// deleted; corrections are new movements in the opposite direction.
type CashMovement struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Type       string          `gorm:"type:varchar(5);not null"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Reason     string          `gorm:"not null"`
	ShiftID    *uuid.UUID      `gorm:"type:uuid;index"`
	OperatorID uuid.UUID       `gorm:"type:uuid;not null;index"`
	CreatedAt  time.Time       `gorm:"not null;index"`
}
