package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type RecordPaymentRequest struct {
	MemberID *string         `json:"member_id" validate:"omitempty,uuid"`
	Amount   decimal.Decimal `json:"amount"    validate:"required,gt=0"`
	Method   string          `json:"method"    validate:"required,oneof=cash card transfer other"`
	Concept  string          `json:"concept"   validate:"required,min=3"`
	ShiftID  *string         `json:"shift_id"  validate:"omitempty,uuid"`
}

type RefundRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Reason string          `json:"reason" validate:"required,min=3"`
}

type CashMovementRequest struct {
	Type    string          `json:"type"    validate:"required,oneof=in out"`
	Amount  decimal.Decimal `json:"amount"  validate:"required,gt=0"`
	Reason  string          `json:"reason"  validate:"required,min=3"`
	ShiftID *string         `json:"shift_id" validate:"omitempty,uuid"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type RefundResponse struct {
	ID         string          `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	RefundedAt string          `json:"refunded_at"`
}

type PaymentResponse struct {
	ID            string          `json:"id"`
	MemberID      *string         `json:"member_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	Status        string          `json:"status"`
	RefundedTotal decimal.Decimal `json:"refunded_total"`
	Concept       string          `json:"concept"`
	PaidAt        string          `json:"paid_at"`
	ShiftID       *string         `json:"shift_id,omitempty"`
	OperatorID    string          `json:"operator_id"`
	Refunds       []RefundResponse `json:"refunds,omitempty"`
}

type PaymentListResponse struct {
	Data  []PaymentResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type CashMovementResponse struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	ShiftID    *string         `json:"shift_id,omitempty"`
	OperatorID string          `json:"operator_id"`
	CreatedAt  string          `json:"created_at"`
}
