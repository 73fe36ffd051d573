package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/funkypatns/Progym-sub001/internal/apierror"
	"github.com/funkypatns/Progym-sub001/internal/dto"
	"github.com/funkypatns/Progym-sub001/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── In-memory PaymentRepository ──────────────────────────────────────────────

type fakePaymentRepo struct {
	payments  map[uuid.UUID]*model.Payment
	refunds   []model.Refund
	movements []model.CashMovement

	// beforeApply runs between the service's read and the guarded write,
	// standing in for a concurrent refund committing first.
	beforeApply func()
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[uuid.UUID]*model.Payment)}
}

func (r *fakePaymentRepo) DB() *gorm.DB { return nil }

func (r *fakePaymentRepo) Create(_ context.Context, p *model.Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.payments[p.ID] = p
	return nil
}

func (r *fakePaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *p
	return &cp, nil
}

// ApplyRefund mirrors the SQL guard: the remaining amount is re-checked
// against stored state at write time, not against the caller's snapshot.
func (r *fakePaymentRepo) ApplyRefund(_ context.Context, _ *gorm.DB, ref *model.Refund) (int64, error) {
	if r.beforeApply != nil {
		r.beforeApply()
	}
	stored, ok := r.payments[ref.PaymentID]
	if !ok {
		return 0, errors.New("not found")
	}
	if stored.Amount.Sub(stored.RefundedTotal).LessThan(ref.Amount) {
		return 0, nil
	}
	stored.RefundedTotal = stored.RefundedTotal.Add(ref.Amount)
	if stored.RefundedTotal.GreaterThanOrEqual(stored.Amount) {
		stored.Status = model.PaymentStatusRefunded
	} else {
		stored.Status = model.PaymentStatusPartiallyRefunded
	}
	if ref.ID == uuid.Nil {
		ref.ID = uuid.New()
	}
	r.refunds = append(r.refunds, *ref)
	return 1, nil
}

func (r *fakePaymentRepo) List(_ context.Context, startAt, endAt time.Time, _, _ int) ([]model.Payment, int64, error) {
	var out []model.Payment
	for _, p := range r.payments {
		if !p.PaidAt.Before(startAt) && p.PaidAt.Before(endAt) {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakePaymentRepo) CreateMovement(_ context.Context, m *model.CashMovement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.movements = append(r.movements, *m)
	return nil
}

func (r *fakePaymentRepo) ListMovements(_ context.Context, startAt, endAt time.Time) ([]model.CashMovement, error) {
	var out []model.CashMovement
	for _, m := range r.movements {
		if !m.CreatedAt.Before(startAt) && m.CreatedAt.Before(endAt) {
			out = append(out, m)
		}
	}
	return out, nil
}

// ── Tests ────────────────────────────────────────────────────────────────────

func paymentHarness() (PaymentService, *fakePaymentRepo, *fakeShiftRepo) {
	repo := newFakePaymentRepo()
	shifts := newFakeShiftRepo()
	return NewPaymentService(repo, shifts), repo, shifts
}

func TestRecordPayment_Success(t *testing.T) {
	svc, _, _ := paymentHarness()

	resp, err := svc.Record(context.Background(), uuid.New(), dto.RecordPaymentRequest{
		Amount: dec("49.90"), Method: model.MethodCard, Concept: "monthly membership",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, resp.Status)
	assert.True(t, resp.RefundedTotal.IsZero())
}

func TestRecordPayment_ClosedShiftRejected(t *testing.T) {
	svc, _, shifts := paymentHarness()
	closed := &model.Shift{ID: uuid.New(), Status: model.ShiftStatusClosed}
	shifts.shifts[closed.ID] = closed
	shiftID := closed.ID.String()

	_, err := svc.Record(context.Background(), uuid.New(), dto.RecordPaymentRequest{
		Amount: dec("10.00"), Method: model.MethodCash, Concept: "day pass", ShiftID: &shiftID,
	})
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.CodeInvalidState, apiErr.Code)
}

func TestRefund_PartialThenFull(t *testing.T) {
	svc, _, _ := paymentHarness()
	operator := uuid.New()

	payment, err := svc.Record(context.Background(), operator, dto.RecordPaymentRequest{
		Amount: dec("100.00"), Method: model.MethodCash, Concept: "personal training",
	})
	require.NoError(t, err)
	paymentID := uuid.MustParse(payment.ID)

	partial, err := svc.Refund(context.Background(), paymentID, operator, dto.RefundRequest{
		Amount: dec("30.00"), Reason: "session cancelled",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPartiallyRefunded, partial.Status)
	assert.True(t, partial.RefundedTotal.Equal(dec("30.00")))

	full, err := svc.Refund(context.Background(), paymentID, operator, dto.RefundRequest{
		Amount: dec("70.00"), Reason: "membership cancelled",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusRefunded, full.Status)
	assert.True(t, full.RefundedTotal.Equal(dec("100.00")))
}

func TestRefund_ExceedingRemainingRejected(t *testing.T) {
	svc, _, _ := paymentHarness()
	operator := uuid.New()

	payment, err := svc.Record(context.Background(), operator, dto.RecordPaymentRequest{
		Amount: dec("50.00"), Method: model.MethodCash, Concept: "day pass",
	})
	require.NoError(t, err)
	paymentID := uuid.MustParse(payment.ID)

	_, err = svc.Refund(context.Background(), paymentID, operator, dto.RefundRequest{
		Amount: dec("20.00"), Reason: "partial refund",
	})
	require.NoError(t, err)

	_, err = svc.Refund(context.Background(), paymentID, operator, dto.RefundRequest{
		Amount: dec("40.00"), Reason: "too much",
	})
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.CodeValidation, apiErr.Code)
}

func TestRefund_FullyRefundedRejected(t *testing.T) {
	svc, _, _ := paymentHarness()
	operator := uuid.New()

	payment, err := svc.Record(context.Background(), operator, dto.RecordPaymentRequest{
		Amount: dec("25.00"), Method: model.MethodCard, Concept: "guest fee",
	})
	require.NoError(t, err)
	paymentID := uuid.MustParse(payment.ID)

	_, err = svc.Refund(context.Background(), paymentID, operator, dto.RefundRequest{
		Amount: dec("25.00"), Reason: "full refund",
	})
	require.NoError(t, err)

	_, err = svc.Refund(context.Background(), paymentID, operator, dto.RefundRequest{
		Amount: dec("1.00"), Reason: "again",
	})
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.CodeInvalidState, apiErr.Code)
}

func TestRefund_OriginalPaymentPreserved(t *testing.T) {
	svc, repo, _ := paymentHarness()
	operator := uuid.New()

	payment, err := svc.Record(context.Background(), operator, dto.RecordPaymentRequest{
		Amount: dec("80.00"), Method: model.MethodCash, Concept: "merchandise",
	})
	require.NoError(t, err)
	paymentID := uuid.MustParse(payment.ID)

	_, err = svc.Refund(context.Background(), paymentID, operator, dto.RefundRequest{
		Amount: dec("80.00"), Reason: "returned goods",
	})
	require.NoError(t, err)

	stored := repo.payments[paymentID]
	assert.True(t, stored.Amount.Equal(dec("80.00")), "original amount never mutated")
	require.Len(t, repo.refunds, 1)
	assert.True(t, repo.refunds[0].Amount.Equal(dec("80.00")))
}

func TestRefund_ConcurrentRefundCannotOverdraw(t *testing.T) {
	svc, repo, _ := paymentHarness()
	operator := uuid.New()

	payment, err := svc.Record(context.Background(), operator, dto.RecordPaymentRequest{
		Amount: dec("100.00"), Method: model.MethodCash, Concept: "annual membership",
	})
	require.NoError(t, err)
	paymentID := uuid.MustParse(payment.ID)

	// A rival refund of 60 commits after our read but before our write.
	repo.beforeApply = func() {
		repo.beforeApply = nil
		stored := repo.payments[paymentID]
		stored.RefundedTotal = dec("60.00")
		stored.Status = model.PaymentStatusPartiallyRefunded
	}

	_, err = svc.Refund(context.Background(), paymentID, operator, dto.RefundRequest{
		Amount: dec("60.00"), Reason: "duplicate charge",
	})
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.CodeValidation, apiErr.Code)

	stored := repo.payments[paymentID]
	assert.True(t, stored.RefundedTotal.Equal(dec("60.00")), "losing refund must not be applied")
	assert.True(t, stored.RefundedTotal.LessThanOrEqual(stored.Amount))
	assert.Empty(t, repo.refunds, "no refund row written for the rejected attempt")
}

func TestRecordMovement_Success(t *testing.T) {
	svc, repo, _ := paymentHarness()

	resp, err := svc.RecordMovement(context.Background(), uuid.New(), dto.CashMovementRequest{
		Type: model.MovementOut, Amount: dec("45.00"), Reason: "cleaning supplies",
	})
	require.NoError(t, err)
	assert.Equal(t, model.MovementOut, resp.Type)
	assert.Len(t, repo.movements, 1)
}

func TestRecordMovement_NonPositiveAmount(t *testing.T) {
	svc, _, _ := paymentHarness()

	_, err := svc.RecordMovement(context.Background(), uuid.New(), dto.CashMovementRequest{
		Type: model.MovementIn, Amount: dec("0"), Reason: "nothing",
	})
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.CodeValidation, apiErr.Code)
}
