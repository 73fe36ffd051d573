package repository

import (
	"context"

	"github.com/funkypatns/Progym-sub001/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ShiftRepository interface {
	Create(ctx context.Context, s *model.Shift) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Shift, error)
	FindOpenByRegister(ctx context.Context, registerID uuid.UUID) (*model.Shift, error)
	// Close applies the terminal transition as a single guarded UPDATE.
	// Returns the number of rows affected: 0 means the shift was not open.
	Close(ctx context.Context, s *model.Shift) (int64, error)
	List(ctx context.Context, page, limit int) ([]model.Shift, int64, error)
}

type shiftRepo struct{ db *gorm.DB }

func NewShiftRepository(db *gorm.DB) ShiftRepository { return &shiftRepo{db: db} }

func (r *shiftRepo) Create(ctx context.Context, s *model.Shift) error {
	// The partial unique index on (register_id) WHERE status='open' makes
	// concurrent opens on one register fail here with gorm.ErrDuplicatedKey
	// rather than both succeeding past an application-level check.
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *shiftRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Shift, error) {
	var s model.Shift
	err := r.db.WithContext(ctx).Preload("Register").First(&s, id).Error
	return &s, err
}

func (r *shiftRepo) FindOpenByRegister(ctx context.Context, registerID uuid.UUID) (*model.Shift, error) {
	var s model.Shift
	err := r.db.WithContext(ctx).
		Where("register_id = ? AND status = ?", registerID, model.ShiftStatusOpen).
		First(&s).Error
	return &s, err
}

func (r *shiftRepo) Close(ctx context.Context, s *model.Shift) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Shift{}).
		Where("id = ? AND status = ?", s.ID, model.ShiftStatusOpen).
		Updates(map[string]interface{}{
			"status":          model.ShiftStatusClosed,
			"closed_at":       s.ClosedAt,
			"closing_cash":    s.ClosingCash,
			"expected_cash":   s.ExpectedCash,
			"cash_difference": s.CashDifference,
			"closed_by":       s.ClosedBy,
		})
	return res.RowsAffected, res.Error
}

func (r *shiftRepo) List(ctx context.Context, page, limit int) ([]model.Shift, int64, error) {
	var shifts []model.Shift
	var total int64
	q := r.db.WithContext(ctx).Model(&model.Shift{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Preload("Register").
		Order("opened_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&shifts).Error
	return shifts, total, err
}
