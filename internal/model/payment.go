package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tender methods. Cash is the only method that touches the physical drawer;
// everything else is reconciled as non-cash.
const (
	MethodCash     = "cash"
	MethodCard     = "card"
	MethodTransfer = "transfer"
	MethodOther    = "other"
)

const (
	PaymentStatusCompleted         = "completed"
	PaymentStatusRefunded          = "refunded"
	PaymentStatusPartiallyRefunded = "partially_refunded"
)

// Payment is a completed sale or subscription payment. Immutable once recorded
// except for RefundedTotal/Status, which only move through Refund rows.
type Payment struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	MemberID      *uuid.UUID      `gorm:"type:uuid"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Method        string          `gorm:"type:varchar(10);not null"`
	Status        string          `gorm:"type:varchar(20);not null;default:'completed'"`
	RefundedTotal decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Concept       string          `gorm:"not null"`
	PaidAt        time.Time       `gorm:"not null;index"`
	// ShiftID links the payment to the drawer session active when it was taken.
	ShiftID    *uuid.UUID `gorm:"type:uuid;index"`
	OperatorID uuid.UUID  `gorm:"type:uuid;not null;index"`
	CreatedAt  time.Time

	Refunds []Refund `gorm:"foreignKey:PaymentID"`
}

// Refund is an append-only reduction against a Payment. The original Payment
// row is never deleted; cumulative RefundedTotal never exceeds Amount.
type Refund struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PaymentID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Reason     string          `gorm:"not null"`
	RefundedAt time.Time       `gorm:"not null;index"`
	CreatedBy  uuid.UUID       `gorm:"type:uuid;not null"`

	// Payment is preloaded by the ledger reader so the calculator can net the
	// refund against the original tender bucket.
	Payment *Payment `gorm:"foreignKey:PaymentID"`
}
