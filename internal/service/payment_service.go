package service

import (
	"context"
	"time"

	"github.com/funkypatns/Progym-sub001/internal/apierror"
	"github.com/funkypatns/Progym-sub001/internal/dto"
	"github.com/funkypatns/Progym-sub001/internal/model"
	"github.com/funkypatns/Progym-sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type PaymentService interface {
	Record(ctx context.Context, operatorID uuid.UUID, req dto.RecordPaymentRequest) (*dto.PaymentResponse, error)
	// Refund appends a refund row and bumps the payment's refunded total in one
	// transaction. The original payment is never deleted.
	Refund(ctx context.Context, paymentID, createdBy uuid.UUID, req dto.RefundRequest) (*dto.PaymentResponse, error)
	RecordMovement(ctx context.Context, operatorID uuid.UUID, req dto.CashMovementRequest) (*dto.CashMovementResponse, error)
	List(ctx context.Context, startAt, endAt time.Time, page, limit int) (*dto.PaymentListResponse, error)
	ListMovements(ctx context.Context, startAt, endAt time.Time) ([]dto.CashMovementResponse, error)
}

type paymentService struct {
	repo      repository.PaymentRepository
	shiftRepo repository.ShiftRepository
}

func NewPaymentService(repo repository.PaymentRepository, shiftRepo repository.ShiftRepository) PaymentService {
	return &paymentService{repo: repo, shiftRepo: shiftRepo}
}

func (s *paymentService) Record(ctx context.Context, operatorID uuid.UUID, req dto.RecordPaymentRequest) (*dto.PaymentResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, apierror.Validation("amount must be positive")
	}

	payment := &model.Payment{
		Amount:     req.Amount,
		Method:     req.Method,
		Status:     model.PaymentStatusCompleted,
		Concept:    req.Concept,
		PaidAt:     time.Now().UTC(),
		OperatorID: operatorID,
	}
	if req.MemberID != nil {
		id, err := uuid.Parse(*req.MemberID)
		if err != nil {
			return nil, apierror.Validation("invalid member_id")
		}
		payment.MemberID = &id
	}
	if req.ShiftID != nil {
		id, err := uuid.Parse(*req.ShiftID)
		if err != nil {
			return nil, apierror.Validation("invalid shift_id")
		}
		shift, err := s.shiftRepo.FindByID(ctx, id)
		if err != nil {
			return nil, apierror.NotFound("shift not found")
		}
		if shift.Status != model.ShiftStatusOpen {
			return nil, apierror.InvalidState("shift is not open")
		}
		payment.ShiftID = &id
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		log.Error().Err(err).Msg("payment insert failed")
		return nil, apierror.Storage(err)
	}
	return paymentToResponse(payment), nil
}

func (s *paymentService) Refund(ctx context.Context, paymentID, createdBy uuid.UUID, req dto.RefundRequest) (*dto.PaymentResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, apierror.Validation("refund amount must be positive")
	}

	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, apierror.NotFound("payment not found")
	}
	if payment.Status == model.PaymentStatusRefunded {
		return nil, apierror.InvalidState("payment is already fully refunded")
	}

	remaining := payment.Amount.Sub(payment.RefundedTotal)
	if req.Amount.GreaterThan(remaining) {
		return nil, apierror.Validation("refund exceeds the remaining refundable amount")
	}

	refund := &model.Refund{
		PaymentID:  payment.ID,
		Amount:     req.Amount,
		Reason:     req.Reason,
		RefundedAt: time.Now().UTC(),
		CreatedBy:  createdBy,
	}

	// The pre-checks above only shape the error message; the invariant
	// refunded_total <= amount is enforced by the guarded UPDATE, which
	// re-checks the remaining amount against row state at write time.
	var rows int64
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		rows, err = s.repo.ApplyRefund(ctx, tx, refund)
		return err
	})
	if txErr != nil {
		log.Error().Err(txErr).Str("payment_id", paymentID.String()).Msg("refund failed")
		return nil, apierror.Storage(txErr)
	}
	if rows == 0 {
		// A concurrent refund consumed the remaining amount between our read
		// and the guarded write.
		return nil, apierror.Validation("refund exceeds the remaining refundable amount")
	}

	updated, err := s.repo.FindByID(ctx, payment.ID)
	if err != nil {
		return nil, apierror.Storage(err)
	}
	return paymentToResponse(updated), nil
}

func (s *paymentService) RecordMovement(ctx context.Context, operatorID uuid.UUID, req dto.CashMovementRequest) (*dto.CashMovementResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, apierror.Validation("amount must be positive")
	}

	mov := &model.CashMovement{
		Type:       req.Type,
		Amount:     req.Amount,
		Reason:     req.Reason,
		OperatorID: operatorID,
		CreatedAt:  time.Now().UTC(),
	}
	if req.ShiftID != nil {
		id, err := uuid.Parse(*req.ShiftID)
		if err != nil {
			return nil, apierror.Validation("invalid shift_id")
		}
		mov.ShiftID = &id
	}

	if err := s.repo.CreateMovement(ctx, mov); err != nil {
		return nil, apierror.Storage(err)
	}
	return movementToResponse(mov), nil
}

func (s *paymentService) List(ctx context.Context, startAt, endAt time.Time, page, limit int) (*dto.PaymentListResponse, error) {
	payments, total, err := s.repo.List(ctx, startAt, endAt, page, limit)
	if err != nil {
		return nil, apierror.Storage(err)
	}
	data := make([]dto.PaymentResponse, 0, len(payments))
	for i := range payments {
		data = append(data, *paymentToResponse(&payments[i]))
	}
	return &dto.PaymentListResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

func (s *paymentService) ListMovements(ctx context.Context, startAt, endAt time.Time) ([]dto.CashMovementResponse, error) {
	movs, err := s.repo.ListMovements(ctx, startAt, endAt)
	if err != nil {
		return nil, apierror.Storage(err)
	}
	data := make([]dto.CashMovementResponse, 0, len(movs))
	for i := range movs {
		data = append(data, *movementToResponse(&movs[i]))
	}
	return data, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func paymentToResponse(p *model.Payment) *dto.PaymentResponse {
	resp := &dto.PaymentResponse{
		ID:            p.ID.String(),
		Amount:        p.Amount,
		Method:        p.Method,
		Status:        p.Status,
		RefundedTotal: p.RefundedTotal,
		Concept:       p.Concept,
		PaidAt:        p.PaidAt.Format(time.RFC3339),
		OperatorID:    p.OperatorID.String(),
	}
	if p.MemberID != nil {
		id := p.MemberID.String()
		resp.MemberID = &id
	}
	if p.ShiftID != nil {
		id := p.ShiftID.String()
		resp.ShiftID = &id
	}
	for _, r := range p.Refunds {
		resp.Refunds = append(resp.Refunds, dto.RefundResponse{
			ID:         r.ID.String(),
			Amount:     r.Amount,
			Reason:     r.Reason,
			RefundedAt: r.RefundedAt.Format(time.RFC3339),
		})
	}
	return resp
}

func movementToResponse(m *model.CashMovement) *dto.CashMovementResponse {
	resp := &dto.CashMovementResponse{
		ID:         m.ID.String(),
		Type:       m.Type,
		Amount:     m.Amount,
		Reason:     m.Reason,
		OperatorID: m.OperatorID.String(),
		CreatedAt:  m.CreatedAt.Format(time.RFC3339),
	}
	if m.ShiftID != nil {
		id := m.ShiftID.String()
		resp.ShiftID = &id
	}
	return resp
}
