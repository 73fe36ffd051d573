package repository

import (
	"context"
	"time"

	"github.com/funkypatns/Progym-sub001/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClosingRepository interface {
	// DB exposes the handle for transaction creation in the service layer.
	DB() *gorm.DB
	// LockScope serializes closing commits for one scope within the current
	// transaction (advisory lock, released on commit/rollback).
	LockScope(ctx context.Context, tx *gorm.DB, scopeKey string) error
	// LastPeriodEnd returns max(end_at) for the scope, nil when no closing exists.
	LastPeriodEnd(ctx context.Context, tx *gorm.DB, employeeID *uuid.UUID) (*time.Time, error)
	CountOverlapping(ctx context.Context, tx *gorm.DB, employeeID *uuid.UUID, startAt, endAt time.Time) (int64, error)
	Create(ctx context.Context, tx *gorm.DB, c *model.CashClosing) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CashClosing, error)
	List(ctx context.Context, employeeID *uuid.UUID, page, limit int) ([]model.CashClosing, int64, error)
	CreateAdjustment(ctx context.Context, a *model.ClosingAdjustment) error
}

type closingRepo struct{ db *gorm.DB }

func NewClosingRepository(db *gorm.DB) ClosingRepository { return &closingRepo{db: db} }

func (r *closingRepo) DB() *gorm.DB { return r.db }

func (r *closingRepo) LockScope(ctx context.Context, tx *gorm.DB, scopeKey string) error {
	return tx.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", scopeKey).Error
}

func scopeQuery(q *gorm.DB, employeeID *uuid.UUID) *gorm.DB {
	if employeeID == nil {
		return q.Where("employee_id IS NULL")
	}
	return q.Where("employee_id = ?", *employeeID)
}

func (r *closingRepo) LastPeriodEnd(ctx context.Context, tx *gorm.DB, employeeID *uuid.UUID) (*time.Time, error) {
	var end *time.Time
	q := scopeQuery(tx.WithContext(ctx).Model(&model.CashClosing{}), employeeID)
	if err := q.Select("max(end_at)").Scan(&end).Error; err != nil {
		return nil, err
	}
	return end, nil
}

func (r *closingRepo) CountOverlapping(ctx context.Context, tx *gorm.DB, employeeID *uuid.UUID, startAt, endAt time.Time) (int64, error) {
	var n int64
	q := scopeQuery(tx.WithContext(ctx).Model(&model.CashClosing{}), employeeID).
		Where("start_at < ? AND end_at > ?", endAt, startAt)
	err := q.Count(&n).Error
	return n, err
}

func (r *closingRepo) Create(ctx context.Context, tx *gorm.DB, c *model.CashClosing) error {
	return tx.WithContext(ctx).Create(c).Error
}

func (r *closingRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CashClosing, error) {
	var c model.CashClosing
	err := r.db.WithContext(ctx).
		Preload("Adjustments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&c, id).Error
	return &c, err
}

func (r *closingRepo) List(ctx context.Context, employeeID *uuid.UUID, page, limit int) ([]model.CashClosing, int64, error) {
	var closings []model.CashClosing
	var total int64
	q := r.db.WithContext(ctx).Model(&model.CashClosing{})
	if employeeID != nil {
		q = q.Where("employee_id = ?", *employeeID)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Preload("Adjustments").
		Order("end_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&closings).Error
	return closings, total, err
}

func (r *closingRepo) CreateAdjustment(ctx context.Context, a *model.ClosingAdjustment) error {
	return r.db.WithContext(ctx).Create(a).Error
}
