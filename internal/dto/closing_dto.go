package dto

import (
	"github.com/shopspring/decimal"

	"github.com/funkypatns/Progym-sub001/internal/reconcile"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateClosingRequest struct {
	PeriodType string `json:"period_type" validate:"required,oneof=manual daily monthly custom shift"`
	// EndAt defaults to "now" when omitted (RFC 3339).
	EndAt           *string         `json:"end_at"           validate:"omitempty"`
	EmployeeID      *string         `json:"employee_id"      validate:"omitempty,uuid"`
	DeclaredCash    decimal.Decimal `json:"declared_cash_amount"     validate:"min=0"`
	DeclaredNonCash decimal.Decimal `json:"declared_non_cash_amount" validate:"min=0"`
	Notes           *string         `json:"notes"`
}

type AddAdjustmentRequest struct {
	Type   string          `json:"type"   validate:"required,oneof=ADD SUBTRACT"`
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Reason string          `json:"reason" validate:"required,min=3"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type PeriodRange struct {
	StartAt string `json:"start_at"`
	EndAt   string `json:"end_at"`
}

// ClosingPreviewResponse is the transient, never-persisted view of the current
// open period. Calling preview twice with no intervening writes returns
// identical figures.
type ClosingPreviewResponse struct {
	Range      PeriodRange        `json:"range"`
	EmployeeID *string            `json:"employee_id,omitempty"`
	Expected   reconcile.Expected `json:"expected"`
}

type AdjustmentResponse struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	CreatedBy string          `json:"created_by"`
	CreatedAt string          `json:"created_at"`
}

type ClosingResponse struct {
	ID         string      `json:"id"`
	PeriodType string      `json:"period_type"`
	EmployeeID *string     `json:"employee_id,omitempty"`
	Range      PeriodRange `json:"range"`

	ExpectedCashAmount    decimal.Decimal `json:"expected_cash_amount"`
	ExpectedNonCashAmount decimal.Decimal `json:"expected_non_cash_amount"`
	ExpectedTotalAmount   decimal.Decimal `json:"expected_total_amount"`
	DeclaredCashAmount    decimal.Decimal `json:"declared_cash_amount"`
	DeclaredNonCashAmount decimal.Decimal `json:"declared_non_cash_amount"`
	DifferenceCash        decimal.Decimal `json:"difference_cash"`
	DifferenceNonCash     decimal.Decimal `json:"difference_non_cash"`
	DifferenceTotal       decimal.Decimal `json:"difference_total"`

	// Status: balanced | overage | shortage. Derived, never stored.
	Status       string `json:"status"`
	PaymentCount int    `json:"payment_count"`
	Notes        *string `json:"notes,omitempty"`
	CreatedBy    string  `json:"created_by"`
	CreatedAt    string  `json:"created_at"`

	Adjustments []AdjustmentResponse `json:"adjustments"`
	// FinalCashBalance = declared cash + Σ(ADD) − Σ(SUBTRACT).
	FinalCashBalance decimal.Decimal `json:"final_cash_balance"`
}

type ClosingListResponse struct {
	Data  []ClosingResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
