package repository

import (
	"context"
	"time"

	"github.com/funkypatns/Progym-sub001/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentRepository is the write side of the payments store. The reconciliation
// core only reads through LedgerRepository; refunds mutate payments here.
type PaymentRepository interface {
	DB() *gorm.DB
	Create(ctx context.Context, p *model.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	// ApplyRefund bumps the parent payment's refunded_total/status with a
	// guarded UPDATE and inserts the refund row in the same transaction.
	// Zero rows means the remaining refundable amount no longer covers
	// ref.Amount (a concurrent refund won the race); nothing is written.
	ApplyRefund(ctx context.Context, tx *gorm.DB, ref *model.Refund) (int64, error)
	List(ctx context.Context, startAt, endAt time.Time, page, limit int) ([]model.Payment, int64, error)
	CreateMovement(ctx context.Context, m *model.CashMovement) error
	ListMovements(ctx context.Context, startAt, endAt time.Time) ([]model.CashMovement, error)
}

type paymentRepo struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) PaymentRepository { return &paymentRepo{db: db} }

func (r *paymentRepo) DB() *gorm.DB { return r.db }

func (r *paymentRepo) Create(ctx context.Context, p *model.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *paymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).Preload("Refunds").First(&p, id).Error
	return &p, err
}

func (r *paymentRepo) ApplyRefund(ctx context.Context, tx *gorm.DB, ref *model.Refund) (int64, error) {
	// The remaining-amount check runs at write time, against current row
	// state, so cumulative refunds can never exceed the payment amount.
	res := tx.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND amount - refunded_total >= ?", ref.PaymentID, ref.Amount).
		Updates(map[string]interface{}{
			"refunded_total": gorm.Expr("refunded_total + ?", ref.Amount),
			"status": gorm.Expr(
				"CASE WHEN refunded_total + ? >= amount THEN ? ELSE ? END",
				ref.Amount, model.PaymentStatusRefunded, model.PaymentStatusPartiallyRefunded,
			),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, nil
	}
	return res.RowsAffected, tx.WithContext(ctx).Create(ref).Error
}

func (r *paymentRepo) List(ctx context.Context, startAt, endAt time.Time, page, limit int) ([]model.Payment, int64, error) {
	var payments []model.Payment
	var total int64
	q := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("paid_at >= ? AND paid_at < ?", startAt, endAt)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Preload("Refunds").
		Order("paid_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&payments).Error
	return payments, total, err
}

func (r *paymentRepo) CreateMovement(ctx context.Context, m *model.CashMovement) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *paymentRepo) ListMovements(ctx context.Context, startAt, endAt time.Time) ([]model.CashMovement, error) {
	var movs []model.CashMovement
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Order("created_at ASC").
		Find(&movs).Error
	return movs, err
}
