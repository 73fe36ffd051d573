// Package reconcile holds the pure expected-amount arithmetic for cash
// reconciliation. Nothing here touches storage: the ledger reader feeds a
// LedgerSet in, expected figures come out. All math is fixed-point
// (shopspring/decimal); equality against declared amounts is always judged
// through the Tolerance band, never by exact comparison.
package reconcile

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/funkypatns/Progym-sub001/internal/model"
)

// Tolerance is the ε band for declared-vs-expected status classification.
// Differences within ±0.01 currency units count as balanced.
var Tolerance = decimal.New(1, -2)

// DrawerIncludesOpeningFloat fixes the expected-cash composition at shift
// close: the drawer expectation is openingCash + net cash takings, while
// period closings (CashClosing) reconcile takings only and never include any
// opening float. Both call sites are tested against this constant.
const DrawerIncludesOpeningFloat = true

// Status classification of a declared amount against an expected amount.
const (
	StatusBalanced = "balanced"
	StatusOverage  = "overage"
	StatusShortage = "shortage"
)

// Window is a half-open time interval [StartAt, EndAt). Every ledger query
// uses the same semantics so a record at a closing boundary is counted in
// exactly one period.
type Window struct {
	StartAt time.Time
	EndAt   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.StartAt) && t.Before(w.EndAt)
}

// LedgerSet is one consistent snapshot of the records relevant to a window.
// Refunds carry their parent Payment so they can be netted against the
// original tender bucket.
type LedgerSet struct {
	Payments      []model.Payment
	Refunds       []model.Refund
	CashMovements []model.CashMovement
}

// Expected is the derived reconciliation figure set for a window.
// Cash may be negative (payouts exceeding takings); the raw value is kept for
// audit and only clamped at presentation time.
type Expected struct {
	Cash    decimal.Decimal `json:"expected_cash_amount"`
	NonCash decimal.Decimal `json:"expected_non_cash_amount"`
	Total   decimal.Decimal `json:"expected_total_amount"`

	CardTotal     decimal.Decimal `json:"card_total"`
	TransferTotal decimal.Decimal `json:"transfer_total"`
	OtherTotal    decimal.Decimal `json:"other_total"`
	PayInsTotal   decimal.Decimal `json:"pay_ins_total"`
	PayoutsTotal  decimal.Decimal `json:"payouts_total"`

	PaymentCount int `json:"payment_count"`
	RefundCount  int `json:"refund_count"`
}

// Calculate derives the expected figures from one ledger snapshot.
//
// Payments count at full amount in the window they were paid; refunds count in
// the window they were issued, netted against the parent payment's tender.
// A refund therefore never moves money between tender buckets, and every
// ledger row contributes to exactly one period, the partition property that
// makes consecutive closings gapless and overlap-free.
func Calculate(set LedgerSet) Expected {
	var e Expected
	cash := decimal.Zero

	for _, p := range set.Payments {
		switch p.Method {
		case model.MethodCash:
			cash = cash.Add(p.Amount)
		case model.MethodCard:
			e.CardTotal = e.CardTotal.Add(p.Amount)
		case model.MethodTransfer:
			e.TransferTotal = e.TransferTotal.Add(p.Amount)
		default:
			e.OtherTotal = e.OtherTotal.Add(p.Amount)
		}
		e.PaymentCount++
	}

	for _, r := range set.Refunds {
		method := model.MethodCash
		if r.Payment != nil {
			method = r.Payment.Method
		}
		switch method {
		case model.MethodCash:
			cash = cash.Sub(r.Amount)
		case model.MethodCard:
			e.CardTotal = e.CardTotal.Sub(r.Amount)
		case model.MethodTransfer:
			e.TransferTotal = e.TransferTotal.Sub(r.Amount)
		default:
			e.OtherTotal = e.OtherTotal.Sub(r.Amount)
		}
		e.RefundCount++
	}

	for _, m := range set.CashMovements {
		if m.Type == model.MovementOut {
			e.PayoutsTotal = e.PayoutsTotal.Add(m.Amount)
		} else {
			e.PayInsTotal = e.PayInsTotal.Add(m.Amount)
		}
	}

	e.Cash = cash.Add(e.PayInsTotal).Sub(e.PayoutsTotal).Round(2)
	e.NonCash = e.CardTotal.Add(e.TransferTotal).Add(e.OtherTotal).Round(2)
	e.Total = e.Cash.Add(e.NonCash)
	e.CardTotal = e.CardTotal.Round(2)
	e.TransferTotal = e.TransferTotal.Round(2)
	e.OtherTotal = e.OtherTotal.Round(2)
	return e
}

// ExpectedDrawerCash is the shift-close expectation: what should physically be
// in the drawer after a custody session, opening float included.
func ExpectedDrawerCash(openingCash decimal.Decimal, e Expected) decimal.Decimal {
	if !DrawerIncludesOpeningFloat {
		return e.Cash
	}
	return openingCash.Add(e.Cash).Round(2)
}

// Classify compares a declared amount against an expected amount within
// the Tolerance band.
func Classify(declared, expected decimal.Decimal) string {
	diff := declared.Sub(expected)
	switch {
	case diff.Abs().LessThanOrEqual(Tolerance):
		return StatusBalanced
	case diff.IsPositive():
		return StatusOverage
	default:
		return StatusShortage
	}
}
