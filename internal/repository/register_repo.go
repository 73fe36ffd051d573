package repository

import (
	"context"

	"github.com/funkypatns/Progym-sub001/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RegisterRepository interface {
	Create(ctx context.Context, reg *model.Register) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Register, error)
	List(ctx context.Context) ([]model.Register, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type registerRepo struct{ db *gorm.DB }

func NewRegisterRepository(db *gorm.DB) RegisterRepository { return &registerRepo{db: db} }

func (r *registerRepo) Create(ctx context.Context, reg *model.Register) error {
	return r.db.WithContext(ctx).Create(reg).Error
}

func (r *registerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Register, error) {
	var reg model.Register
	err := r.db.WithContext(ctx).First(&reg, id).Error
	return &reg, err
}

func (r *registerRepo) List(ctx context.Context) ([]model.Register, error) {
	var regs []model.Register
	err := r.db.WithContext(ctx).Order("name ASC").Find(&regs).Error
	return regs, err
}

func (r *registerRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).Model(&model.Register{}).Where("id = ?", id).Update("active", active).Error
}
