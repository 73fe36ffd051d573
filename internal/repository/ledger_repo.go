package repository

import (
	"context"
	"database/sql"

	"github.com/funkypatns/Progym-sub001/internal/model"
	"github.com/funkypatns/Progym-sub001/internal/reconcile"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerFilter narrows a window read to one operator and/or one shift.
type LedgerFilter struct {
	OperatorID *uuid.UUID
	ShiftID    *uuid.UUID
}

// LedgerRepository is the read-only view over payments, refunds, and cash
// movements. It never writes to those tables.
type LedgerRepository interface {
	// FetchWindow reads all three record kinds for the half-open window
	// [w.StartAt, w.EndAt) inside one repeatable-read transaction: either a
	// complete consistent snapshot comes back, or an error, never partial data.
	FetchWindow(ctx context.Context, w reconcile.Window, f LedgerFilter) (*reconcile.LedgerSet, error)
	// FetchWindowTx is the same read participating in an enclosing transaction
	// (the closing commit re-reads the ledger inside its own tx).
	FetchWindowTx(ctx context.Context, tx *gorm.DB, w reconcile.Window, f LedgerFilter) (*reconcile.LedgerSet, error)
}

type ledgerRepo struct{ db *gorm.DB }

func NewLedgerRepository(db *gorm.DB) LedgerRepository { return &ledgerRepo{db: db} }

func (r *ledgerRepo) FetchWindow(ctx context.Context, w reconcile.Window, f LedgerFilter) (*reconcile.LedgerSet, error) {
	var set *reconcile.LedgerSet
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		set, txErr = r.FetchWindowTx(ctx, tx, w, f)
		return txErr
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	return set, nil
}

func (r *ledgerRepo) FetchWindowTx(ctx context.Context, tx *gorm.DB, w reconcile.Window, f LedgerFilter) (*reconcile.LedgerSet, error) {
	set := &reconcile.LedgerSet{}

	pq := tx.WithContext(ctx).
		Where("paid_at >= ? AND paid_at < ?", w.StartAt, w.EndAt)
	if f.OperatorID != nil {
		pq = pq.Where("operator_id = ?", *f.OperatorID)
	}
	if f.ShiftID != nil {
		pq = pq.Where("shift_id = ?", *f.ShiftID)
	}
	if err := pq.Order("paid_at ASC").Find(&set.Payments).Error; err != nil {
		return nil, err
	}

	// Refunds join their parent payment so the calculator can attribute the
	// tender bucket. Operator/shift scoping follows the parent payment: a
	// refund belongs to whoever took the original money.
	rq := tx.WithContext(ctx).Preload("Payment").
		Where("refunded_at >= ? AND refunded_at < ?", w.StartAt, w.EndAt)
	if f.OperatorID != nil {
		rq = rq.Where("payment_id IN (?)",
			tx.Model(&model.Payment{}).Select("id").Where("operator_id = ?", *f.OperatorID))
	}
	if f.ShiftID != nil {
		rq = rq.Where("payment_id IN (?)",
			tx.Model(&model.Payment{}).Select("id").Where("shift_id = ?", *f.ShiftID))
	}
	if err := rq.Order("refunded_at ASC").Find(&set.Refunds).Error; err != nil {
		return nil, err
	}

	mq := tx.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", w.StartAt, w.EndAt)
	if f.OperatorID != nil {
		mq = mq.Where("operator_id = ?", *f.OperatorID)
	}
	if f.ShiftID != nil {
		mq = mq.Where("shift_id = ?", *f.ShiftID)
	}
	if err := mq.Order("created_at ASC").Find(&set.CashMovements).Error; err != nil {
		return nil, err
	}

	return set, nil
}
