package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/funkypatns/Progym-sub001/internal/apierror"
	"github.com/funkypatns/Progym-sub001/internal/dto"
	"github.com/funkypatns/Progym-sub001/internal/model"
	"github.com/funkypatns/Progym-sub001/internal/reconcile"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── In-memory ClosingRepository ──────────────────────────────────────────────

type fakeClosingRepo struct {
	closings    map[uuid.UUID]*model.CashClosing
	adjustments []model.ClosingAdjustment
}

func newFakeClosingRepo() *fakeClosingRepo {
	return &fakeClosingRepo{closings: make(map[uuid.UUID]*model.CashClosing)}
}

// DB returns nil so runTx executes the commit callback directly.
func (r *fakeClosingRepo) DB() *gorm.DB { return nil }

func (r *fakeClosingRepo) LockScope(_ context.Context, _ *gorm.DB, _ string) error { return nil }

func sameScope(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *fakeClosingRepo) LastPeriodEnd(_ context.Context, _ *gorm.DB, employeeID *uuid.UUID) (*time.Time, error) {
	var last *time.Time
	for _, c := range r.closings {
		if !sameScope(c.EmployeeID, employeeID) {
			continue
		}
		if last == nil || c.EndAt.After(*last) {
			end := c.EndAt
			last = &end
		}
	}
	return last, nil
}

func (r *fakeClosingRepo) CountOverlapping(_ context.Context, _ *gorm.DB, employeeID *uuid.UUID, startAt, endAt time.Time) (int64, error) {
	var n int64
	for _, c := range r.closings {
		if sameScope(c.EmployeeID, employeeID) && c.StartAt.Before(endAt) && c.EndAt.After(startAt) {
			n++
		}
	}
	return n, nil
}

func (r *fakeClosingRepo) Create(_ context.Context, _ *gorm.DB, c *model.CashClosing) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now().UTC()
	r.closings[c.ID] = c
	return nil
}

func (r *fakeClosingRepo) FindByID(_ context.Context, id uuid.UUID) (*model.CashClosing, error) {
	c, ok := r.closings[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *c
	cp.Adjustments = nil
	for _, a := range r.adjustments {
		if a.ClosingID == id {
			cp.Adjustments = append(cp.Adjustments, a)
		}
	}
	return &cp, nil
}

func (r *fakeClosingRepo) List(_ context.Context, employeeID *uuid.UUID, _, _ int) ([]model.CashClosing, int64, error) {
	var out []model.CashClosing
	for _, c := range r.closings {
		if employeeID == nil || sameScope(c.EmployeeID, employeeID) {
			out = append(out, *c)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeClosingRepo) CreateAdjustment(_ context.Context, a *model.ClosingAdjustment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now().UTC()
	r.adjustments = append(r.adjustments, *a)
	return nil
}

// ── Test harness ─────────────────────────────────────────────────────────────

type closingHarness struct {
	svc    ClosingService
	repo   *fakeClosingRepo
	ledger *fakeLedgerRepo
	userID uuid.UUID
}

func newClosingHarness(t *testing.T) *closingHarness {
	t.Helper()
	repo := newFakeClosingRepo()
	ledger := &fakeLedgerRepo{}
	return &closingHarness{
		svc:    NewClosingService(repo, ledger, nil),
		repo:   repo,
		ledger: ledger,
		userID: uuid.New(),
	}
}

func rfc(t time.Time) *string {
	s := t.Format(time.RFC3339)
	return &s
}

func (h *closingHarness) commit(t *testing.T, endAt time.Time, declaredCash, declaredNonCash string) *dto.ClosingResponse {
	t.Helper()
	resp, err := h.svc.Create(context.Background(), h.userID, dto.CreateClosingRequest{
		PeriodType:      model.PeriodManual,
		EndAt:           rfc(endAt),
		DeclaredCash:    dec(declaredCash),
		DeclaredNonCash: dec(declaredNonCash),
	})
	require.NoError(t, err)
	return resp
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestClosingPreview_Idempotent(t *testing.T) {
	h := newClosingHarness(t)
	h.ledger.payments = []model.Payment{
		{Amount: dec("150.00"), Method: model.MethodCash, PaidAt: time.Now().UTC().Add(-time.Hour), OperatorID: h.userID},
		{Amount: dec("90.00"), Method: model.MethodCard, PaidAt: time.Now().UTC().Add(-time.Hour), OperatorID: h.userID},
	}

	first, err := h.svc.Preview(context.Background(), nil)
	require.NoError(t, err)
	second, err := h.svc.Preview(context.Background(), nil)
	require.NoError(t, err)

	assert.True(t, first.Expected.Cash.Equal(second.Expected.Cash))
	assert.True(t, first.Expected.NonCash.Equal(second.Expected.NonCash))
	assert.Equal(t, first.Range.StartAt, second.Range.StartAt)
	// Nothing persisted by previews.
	assert.Empty(t, h.repo.closings)
}

func TestClosingCreate_FirstPeriodStartsAtEpoch(t *testing.T) {
	h := newClosingHarness(t)
	endAt := time.Now().UTC().Add(-time.Minute).Truncate(time.Second)

	resp := h.commit(t, endAt, "0", "0")

	assert.Equal(t, periodEpoch.Format(time.RFC3339), resp.Range.StartAt)
	assert.Equal(t, endAt.Format(time.RFC3339), resp.Range.EndAt)
}

func TestClosingCreate_ComputedFigures(t *testing.T) {
	h := newClosingHarness(t)
	paidAt := time.Now().UTC().Add(-2 * time.Hour)
	cardPayment := model.Payment{Amount: dec("100.00"), Method: model.MethodCard, PaidAt: paidAt, OperatorID: h.userID}
	h.ledger.payments = []model.Payment{
		{Amount: dec("300.00"), Method: model.MethodCash, PaidAt: paidAt, OperatorID: h.userID},
		cardPayment,
	}
	h.ledger.refunds = []model.Refund{
		{Amount: dec("40.00"), RefundedAt: paidAt.Add(time.Minute), Payment: &cardPayment},
	}
	h.ledger.movements = []model.CashMovement{
		{Type: model.MovementOut, Amount: dec("50.00"), CreatedAt: paidAt, OperatorID: h.userID},
	}

	resp := h.commit(t, time.Now().UTC().Add(-time.Minute), "250.00", "60.00")

	assert.True(t, resp.ExpectedCashAmount.Equal(dec("250.00")))
	assert.True(t, resp.ExpectedNonCashAmount.Equal(dec("60.00")))
	assert.True(t, resp.ExpectedTotalAmount.Equal(dec("310.00")))
	assert.True(t, resp.DifferenceCash.IsZero())
	assert.True(t, resp.DifferenceNonCash.IsZero())
	assert.Equal(t, reconcile.StatusBalanced, resp.Status)
	assert.Equal(t, 2, resp.PaymentCount)
}

func TestClosingCreate_ShortageClassified(t *testing.T) {
	h := newClosingHarness(t)
	h.ledger.payments = []model.Payment{
		{Amount: dec("500.00"), Method: model.MethodCash, PaidAt: time.Now().UTC().Add(-time.Hour), OperatorID: h.userID},
	}

	resp := h.commit(t, time.Now().UTC().Add(-time.Minute), "480.00", "0")

	assert.True(t, resp.DifferenceCash.Equal(dec("-20.00")))
	assert.Equal(t, reconcile.StatusShortage, resp.Status)
}

func TestClosingCreate_ConsecutivePeriodsAreContiguous(t *testing.T) {
	h := newClosingHarness(t)
	t1 := time.Now().UTC().Add(-3 * time.Hour).Truncate(time.Second)
	t2 := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	first := h.commit(t, t1, "0", "0")
	second := h.commit(t, t2, "0", "0")

	// No gap, no overlap: second window starts exactly where the first ended.
	assert.Equal(t, first.Range.EndAt, second.Range.StartAt)
}

func TestClosingCreate_BoundaryPaymentCountedOnce(t *testing.T) {
	h := newClosingHarness(t)
	t1 := time.Now().UTC().Add(-3 * time.Hour).Truncate(time.Second)
	t2 := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	// One payment exactly at the boundary, one just before it.
	h.ledger.payments = []model.Payment{
		{Amount: dec("10.00"), Method: model.MethodCash, PaidAt: t1.Add(-time.Second), OperatorID: h.userID},
		{Amount: dec("25.00"), Method: model.MethodCash, PaidAt: t1, OperatorID: h.userID},
	}

	first := h.commit(t, t1, "10.00", "0")
	second := h.commit(t, t2, "25.00", "0")

	// Half-open windows: the boundary payment lands in the second period only.
	assert.True(t, first.ExpectedCashAmount.Equal(dec("10.00")))
	assert.True(t, second.ExpectedCashAmount.Equal(dec("25.00")))
}

func TestClosingCreate_EmptyPeriodRejected(t *testing.T) {
	h := newClosingHarness(t)
	t1 := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	h.commit(t, t1, "0", "0")

	_, err := h.svc.Create(context.Background(), h.userID, dto.CreateClosingRequest{
		PeriodType:   model.PeriodManual,
		EndAt:        rfc(t1),
		DeclaredCash: dec("0"), DeclaredNonCash: dec("0"),
	})
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.CodeInvalidState, apiErr.Code)
}

func TestClosingCreate_FutureEndRejected(t *testing.T) {
	h := newClosingHarness(t)

	_, err := h.svc.Create(context.Background(), h.userID, dto.CreateClosingRequest{
		PeriodType:   model.PeriodManual,
		EndAt:        rfc(time.Now().UTC().Add(time.Hour)),
		DeclaredCash: dec("0"), DeclaredNonCash: dec("0"),
	})
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.CodeValidation, apiErr.Code)
}

func TestClosingCreate_EmployeeScopeIsIndependent(t *testing.T) {
	h := newClosingHarness(t)
	employee := uuid.New()
	empID := employee.String()
	t1 := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)

	// Commit on the employee scope only.
	_, err := h.svc.Create(context.Background(), h.userID, dto.CreateClosingRequest{
		PeriodType: model.PeriodManual,
		EndAt:      rfc(t1),
		EmployeeID: &empID,
		DeclaredCash: dec("0"), DeclaredNonCash: dec("0"),
	})
	require.NoError(t, err)

	// The global scope still starts at the epoch.
	preview, err := h.svc.Preview(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, periodEpoch.Format(time.RFC3339), preview.Range.StartAt)
}

func TestAddAdjustment_SnapshotUntouched(t *testing.T) {
	h := newClosingHarness(t)
	h.ledger.payments = []model.Payment{
		{Amount: dec("200.00"), Method: model.MethodCash, PaidAt: time.Now().UTC().Add(-time.Hour), OperatorID: h.userID},
	}
	committed := h.commit(t, time.Now().UTC().Add(-time.Minute), "200.00", "0")
	closingID := uuid.MustParse(committed.ID)

	withAdj, err := h.svc.AddAdjustment(context.Background(), closingID, h.userID, dto.AddAdjustmentRequest{
		Type: model.AdjustmentSubtract, Amount: dec("15.00"), Reason: "bank deposit",
	})
	require.NoError(t, err)

	// Snapshot fields are byte-for-byte what was committed.
	assert.True(t, withAdj.ExpectedCashAmount.Equal(committed.ExpectedCashAmount))
	assert.True(t, withAdj.DeclaredCashAmount.Equal(committed.DeclaredCashAmount))
	assert.True(t, withAdj.DifferenceCash.Equal(committed.DifferenceCash))
	// The adjustment only moves the derived balance.
	assert.True(t, withAdj.FinalCashBalance.Equal(dec("185.00")))
	require.Len(t, withAdj.Adjustments, 1)
	assert.Equal(t, "bank deposit", withAdj.Adjustments[0].Reason)
}

func TestAddAdjustment_FinalBalanceAccumulates(t *testing.T) {
	h := newClosingHarness(t)
	committed := h.commit(t, time.Now().UTC().Add(-time.Minute), "100.00", "0")
	closingID := uuid.MustParse(committed.ID)

	_, err := h.svc.AddAdjustment(context.Background(), closingID, h.userID, dto.AddAdjustmentRequest{
		Type: model.AdjustmentAdd, Amount: dec("30.00"), Reason: "found in back office",
	})
	require.NoError(t, err)
	resp, err := h.svc.AddAdjustment(context.Background(), closingID, h.userID, dto.AddAdjustmentRequest{
		Type: model.AdjustmentSubtract, Amount: dec("10.00"), Reason: "till short refill",
	})
	require.NoError(t, err)

	assert.True(t, resp.FinalCashBalance.Equal(dec("120.00")))
	assert.Len(t, resp.Adjustments, 2)
}

func TestAddAdjustment_InvalidType(t *testing.T) {
	h := newClosingHarness(t)
	committed := h.commit(t, time.Now().UTC().Add(-time.Minute), "0", "0")

	_, err := h.svc.AddAdjustment(context.Background(), uuid.MustParse(committed.ID), h.userID, dto.AddAdjustmentRequest{
		Type: "REMOVE", Amount: dec("5.00"), Reason: "typo",
	})
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.CodeValidation, apiErr.Code)
}

func TestExport_JSONRoundTrip(t *testing.T) {
	h := newClosingHarness(t)
	committed := h.commit(t, time.Now().UTC().Add(-time.Minute), "150.00", "75.00")

	result, err := h.svc.Export(context.Background(), uuid.MustParse(committed.ID), "json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", result.ContentType)

	var decoded dto.ClosingResponse
	require.NoError(t, json.Unmarshal(result.Data, &decoded))
	assert.Equal(t, committed.ID, decoded.ID)
	assert.True(t, decoded.DeclaredCashAmount.Equal(dec("150.00")))
}

func TestExport_CSVAndXLSX(t *testing.T) {
	h := newClosingHarness(t)
	committed := h.commit(t, time.Now().UTC().Add(-time.Minute), "0", "0")
	id := uuid.MustParse(committed.ID)

	csvResult, err := h.svc.Export(context.Background(), id, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", csvResult.ContentType)
	assert.Contains(t, string(csvResult.Data), "declared_cash_amount")

	xlsxResult, err := h.svc.Export(context.Background(), id, "xlsx")
	require.NoError(t, err)
	assert.NotEmpty(t, xlsxResult.Data)
	assert.Contains(t, xlsxResult.Filename, ".xlsx")
}

func TestExport_UnknownFormat(t *testing.T) {
	h := newClosingHarness(t)
	committed := h.commit(t, time.Now().UTC().Add(-time.Minute), "0", "0")

	_, err := h.svc.Export(context.Background(), uuid.MustParse(committed.ID), "pdf")
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.CodeValidation, apiErr.Code)
}
