package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PeriodManual  = "manual"
	PeriodDaily   = "daily"
	PeriodMonthly = "monthly"
	PeriodCustom  = "custom"
	PeriodShift   = "shift"
)

const (
	AdjustmentAdd      = "ADD"
	AdjustmentSubtract = "SUBTRACT"
)

// CashClosing is an immutable reconciliation snapshot for [StartAt, EndAt).
// Once committed, the expected/declared/difference fields are never touched
// again; corrections go through ClosingAdjustment rows. Consecutive closings
// on the same scope partition time with no gaps and no overlaps.
type CashClosing struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PeriodType string    `gorm:"type:varchar(10);not null"`
	// EmployeeID scopes the closing to one operator's takings; nil = all.
	EmployeeID *uuid.UUID `gorm:"type:uuid;index"`
	StartAt    time.Time  `gorm:"not null"`
	EndAt      time.Time  `gorm:"not null;index"`

	ExpectedCashAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ExpectedNonCashAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ExpectedTotalAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DeclaredCashAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DeclaredNonCashAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DifferenceCash        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DifferenceNonCash     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DifferenceTotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	PaymentCount int `gorm:"not null"`
	Notes        *string
	CreatedBy    uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt    time.Time

	Adjustments []ClosingAdjustment `gorm:"foreignKey:ClosingID"`
}

// ClosingAdjustment is a post-hoc correction attached to a committed closing.
// It never rewrites the snapshot; consumers combine
// declared + Σ(ADD) − Σ(SUBTRACT) for the final balance.
type ClosingAdjustment struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ClosingID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type      string          `gorm:"type:varchar(10);not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Reason    string          `gorm:"not null"`
	CreatedBy uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt time.Time
}
