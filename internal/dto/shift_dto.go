package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenShiftRequest struct {
	RegisterID  string          `json:"register_id"  validate:"required,uuid"`
	OpeningCash decimal.Decimal `json:"opening_cash" validate:"min=0"`
}

type CloseShiftRequest struct {
	ClosingCash decimal.Decimal `json:"closing_cash" validate:"min=0"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ShiftResponse struct {
	ID          string          `json:"id"`
	RegisterID  string          `json:"register_id"`
	Register    string          `json:"register,omitempty"`
	OpenedBy    string          `json:"opened_by"`
	OpeningCash decimal.Decimal `json:"opening_cash"`
	Status      string          `json:"status"`
	OpenedAt    string          `json:"opened_at"`
	ClosedAt    *string         `json:"closed_at,omitempty"`

	ClosingCash    *decimal.Decimal `json:"closing_cash,omitempty"`
	ExpectedCash   *decimal.Decimal `json:"expected_cash,omitempty"`
	CashDifference *decimal.Decimal `json:"cash_difference,omitempty"`
	// DifferenceStatus: balanced | overage | shortage (closed shifts only)
	DifferenceStatus string  `json:"difference_status,omitempty"`
	ClosedBy         *string `json:"closed_by,omitempty"`
}

type ShiftListResponse struct {
	Data  []ShiftResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}
