package service

import (
	"context"
	"errors"

	"github.com/funkypatns/Progym-sub001/internal/apierror"
	"github.com/funkypatns/Progym-sub001/internal/dto"
	"github.com/funkypatns/Progym-sub001/internal/model"
	"github.com/funkypatns/Progym-sub001/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RegisterService interface {
	Create(ctx context.Context, req dto.CreateRegisterRequest) (*dto.RegisterResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.RegisterResponse, error)
	List(ctx context.Context) ([]dto.RegisterResponse, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type registerService struct {
	repo repository.RegisterRepository
}

func NewRegisterService(repo repository.RegisterRepository) RegisterService {
	return &registerService{repo: repo}
}

func (s *registerService) Create(ctx context.Context, req dto.CreateRegisterRequest) (*dto.RegisterResponse, error) {
	reg := &model.Register{
		Name:     req.Name,
		Location: req.Location,
		Active:   true,
	}
	if err := s.repo.Create(ctx, reg); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierror.Validation("a register with that name already exists")
		}
		return nil, apierror.Storage(err)
	}
	resp := registerToResponse(reg)
	return &resp, nil
}

func (s *registerService) Get(ctx context.Context, id uuid.UUID) (*dto.RegisterResponse, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFound("register not found")
	}
	resp := registerToResponse(reg)
	return &resp, nil
}

func (s *registerService) List(ctx context.Context) ([]dto.RegisterResponse, error) {
	regs, err := s.repo.List(ctx)
	if err != nil {
		return nil, apierror.Storage(err)
	}
	out := make([]dto.RegisterResponse, len(regs))
	for i := range regs {
		out[i] = registerToResponse(&regs[i])
	}
	return out, nil
}

func (s *registerService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return apierror.NotFound("register not found")
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return apierror.Storage(err)
	}
	return nil
}

func registerToResponse(r *model.Register) dto.RegisterResponse {
	return dto.RegisterResponse{
		ID:       r.ID.String(),
		Name:     r.Name,
		Location: r.Location,
		Active:   r.Active,
	}
}
