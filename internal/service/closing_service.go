package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"github.com/funkypatns/Progym-sub001/internal/apierror"
	"github.com/funkypatns/Progym-sub001/internal/dto"
	"github.com/funkypatns/Progym-sub001/internal/model"
	"github.com/funkypatns/Progym-sub001/internal/reconcile"
	"github.com/funkypatns/Progym-sub001/internal/repository"
	"github.com/funkypatns/Progym-sub001/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// periodEpoch anchors the very first open period of a scope: before any
// closing exists, the window starts here.
var periodEpoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

type ClosingService interface {
	// Preview computes the current open period without persisting anything.
	// Safe to call repeatedly and concurrently.
	Preview(ctx context.Context, employeeID *uuid.UUID) (*dto.ClosingPreviewResponse, error)
	// Create commits an immutable closing snapshot. Expected figures are
	// recomputed inside the transaction; a stale preview is never trusted.
	Create(ctx context.Context, createdBy uuid.UUID, req dto.CreateClosingRequest) (*dto.ClosingResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.ClosingResponse, error)
	List(ctx context.Context, employeeID *uuid.UUID, page, limit int) (*dto.ClosingListResponse, error)
	AddAdjustment(ctx context.Context, closingID, createdBy uuid.UUID, req dto.AddAdjustmentRequest) (*dto.ClosingResponse, error)
	// Export renders the snapshot + adjustments. Formats: json, csv, xlsx.
	Export(ctx context.Context, closingID uuid.UUID, format string) (*ExportResult, error)
}

// ExportResult carries a rendered closing for download.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

type closingService struct {
	repo       repository.ClosingRepository
	ledger     repository.LedgerRepository
	dispatcher *worker.Dispatcher
}

func NewClosingService(
	repo repository.ClosingRepository,
	ledger repository.LedgerRepository,
	dispatcher *worker.Dispatcher,
) ClosingService {
	return &closingService{repo: repo, ledger: ledger, dispatcher: dispatcher}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

func scopeKey(employeeID *uuid.UUID) string {
	if employeeID == nil {
		return "closing:all"
	}
	return "closing:" + employeeID.String()
}

// ── Preview ───────────────────────────────────────────────────────────────────

func (s *closingService) Preview(ctx context.Context, employeeID *uuid.UUID) (*dto.ClosingPreviewResponse, error) {
	startAt, err := s.openPeriodStart(ctx, nil, employeeID)
	if err != nil {
		return nil, apierror.Storage(err)
	}
	now := time.Now().UTC()
	window := reconcile.Window{StartAt: startAt, EndAt: now}

	set, err := s.ledger.FetchWindow(ctx, window, repository.LedgerFilter{OperatorID: employeeID})
	if err != nil {
		log.Error().Err(err).Msg("ledger read failed on closing preview")
		return nil, apierror.Storage(err)
	}

	resp := &dto.ClosingPreviewResponse{
		Range: dto.PeriodRange{
			StartAt: startAt.Format(time.RFC3339),
			EndAt:   now.Format(time.RFC3339),
		},
		Expected: reconcile.Calculate(*set),
	}
	if employeeID != nil {
		id := employeeID.String()
		resp.EmployeeID = &id
	}
	return resp, nil
}

// openPeriodStart is the later of the scope's last committed closing end and
// the fixed epoch. Kept as an explicit max(end_at) query, never a cached value.
func (s *closingService) openPeriodStart(ctx context.Context, tx *gorm.DB, employeeID *uuid.UUID) (time.Time, error) {
	if tx == nil {
		tx = s.repo.DB()
	}
	last, err := s.repo.LastPeriodEnd(ctx, tx, employeeID)
	if err != nil {
		return time.Time{}, err
	}
	if last == nil || last.Before(periodEpoch) {
		return periodEpoch, nil
	}
	return *last, nil
}

// ── Create ────────────────────────────────────────────────────────────────────

func (s *closingService) Create(ctx context.Context, createdBy uuid.UUID, req dto.CreateClosingRequest) (*dto.ClosingResponse, error) {
	if req.DeclaredCash.IsNegative() || req.DeclaredNonCash.IsNegative() {
		return nil, apierror.Validation("declared amounts must not be negative")
	}

	var employeeID *uuid.UUID
	if req.EmployeeID != nil {
		id, err := uuid.Parse(*req.EmployeeID)
		if err != nil {
			return nil, apierror.Validation("invalid employee_id")
		}
		employeeID = &id
	}

	endAt := time.Now().UTC()
	if req.EndAt != nil {
		t, err := time.Parse(time.RFC3339, *req.EndAt)
		if err != nil {
			return nil, apierror.Validation("end_at must be RFC 3339")
		}
		if t.After(endAt) {
			return nil, apierror.Validation("end_at must not be in the future")
		}
		endAt = t.UTC()
	}

	var closing *model.CashClosing
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		// Serialize commits per scope so two concurrent closings cannot both
		// read the same open period and produce overlapping windows.
		if tx != nil {
			if err := s.repo.LockScope(ctx, tx, scopeKey(employeeID)); err != nil {
				return err
			}
		}

		startAt, err := s.openPeriodStart(ctx, tx, employeeID)
		if err != nil {
			return err
		}
		if !endAt.After(startAt) {
			return apierror.InvalidState("closing period is empty: end_at is not after the last closing")
		}

		// Partition precondition: the new window must not overlap any
		// committed closing on this scope.
		overlapping, err := s.repo.CountOverlapping(ctx, tx, employeeID, startAt, endAt)
		if err != nil {
			return err
		}
		if overlapping > 0 {
			return apierror.InvalidState("closing period overlaps a committed closing")
		}

		window := reconcile.Window{StartAt: startAt, EndAt: endAt}
		set, err := s.ledger.FetchWindowTx(ctx, tx, window, repository.LedgerFilter{OperatorID: employeeID})
		if err != nil {
			return err
		}
		expected := reconcile.Calculate(*set)

		closing = &model.CashClosing{
			PeriodType: req.PeriodType,
			EmployeeID: employeeID,
			StartAt:    startAt,
			EndAt:      endAt,

			ExpectedCashAmount:    expected.Cash,
			ExpectedNonCashAmount: expected.NonCash,
			ExpectedTotalAmount:   expected.Total,
			DeclaredCashAmount:    req.DeclaredCash,
			DeclaredNonCashAmount: req.DeclaredNonCash,
			DifferenceCash:        req.DeclaredCash.Sub(expected.Cash).Round(2),
			DifferenceNonCash:     req.DeclaredNonCash.Sub(expected.NonCash).Round(2),
			DifferenceTotal: req.DeclaredCash.Add(req.DeclaredNonCash).
				Sub(expected.Total).Round(2),

			PaymentCount: expected.PaymentCount,
			Notes:        req.Notes,
			CreatedBy:    createdBy,
		}
		return s.repo.Create(ctx, tx, closing)
	})
	if txErr != nil {
		if apiErr, ok := apierror.As(txErr); ok {
			return nil, apiErr
		}
		log.Error().Err(txErr).Msg("closing commit failed")
		return nil, apierror.Storage(txErr)
	}

	log.Info().
		Str("closing_id", closing.ID.String()).
		Str("period_type", closing.PeriodType).
		Str("difference_cash", closing.DifferenceCash.String()).
		Msg("cash closing committed")

	if s.dispatcher != nil {
		_ = s.dispatcher.EnqueueAudit(ctx, worker.AuditEvent{
			Action:     model.AuditClosingCommitted,
			ActorID:    createdBy,
			EntityType: "cash_closing",
			EntityID:   closing.ID,
			Details: map[string]string{
				"period_type":     closing.PeriodType,
				"difference_cash": closing.DifferenceCash.String(),
			},
		})
	}

	return closingToResponse(closing), nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *closingService) Get(ctx context.Context, id uuid.UUID) (*dto.ClosingResponse, error) {
	closing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFound("closing not found")
	}
	return closingToResponse(closing), nil
}

func (s *closingService) List(ctx context.Context, employeeID *uuid.UUID, page, limit int) (*dto.ClosingListResponse, error) {
	closings, total, err := s.repo.List(ctx, employeeID, page, limit)
	if err != nil {
		return nil, apierror.Storage(err)
	}
	data := make([]dto.ClosingResponse, 0, len(closings))
	for i := range closings {
		data = append(data, *closingToResponse(&closings[i]))
	}
	return &dto.ClosingListResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

// ── Adjustments ───────────────────────────────────────────────────────────────

func (s *closingService) AddAdjustment(ctx context.Context, closingID, createdBy uuid.UUID, req dto.AddAdjustmentRequest) (*dto.ClosingResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, apierror.Validation("adjustment amount must be positive")
	}
	if req.Type != model.AdjustmentAdd && req.Type != model.AdjustmentSubtract {
		return nil, apierror.Validation("adjustment type must be ADD or SUBTRACT")
	}

	if _, err := s.repo.FindByID(ctx, closingID); err != nil {
		return nil, apierror.NotFound("closing not found")
	}

	adj := &model.ClosingAdjustment{
		ClosingID: closingID,
		Type:      req.Type,
		Amount:    req.Amount,
		Reason:    req.Reason,
		CreatedBy: createdBy,
	}
	if err := s.repo.CreateAdjustment(ctx, adj); err != nil {
		return nil, apierror.Storage(err)
	}

	// Re-read so the response reflects the appended adjustment; the snapshot
	// fields themselves are untouched.
	closing, err := s.repo.FindByID(ctx, closingID)
	if err != nil {
		return nil, apierror.Storage(err)
	}
	return closingToResponse(closing), nil
}

// ── Export ────────────────────────────────────────────────────────────────────

func (s *closingService) Export(ctx context.Context, closingID uuid.UUID, format string) (*ExportResult, error) {
	closing, err := s.repo.FindByID(ctx, closingID)
	if err != nil {
		return nil, apierror.NotFound("closing not found")
	}
	resp := closingToResponse(closing)
	base := fmt.Sprintf("closing_%s_%s", closing.PeriodType, closing.EndAt.Format("20060102_150405"))

	switch format {
	case "", "json":
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return nil, apierror.Storage(err)
		}
		return &ExportResult{Filename: base + ".json", ContentType: "application/json", Data: data}, nil
	case "csv":
		data, err := closingToCSV(resp)
		if err != nil {
			return nil, apierror.Storage(err)
		}
		return &ExportResult{Filename: base + ".csv", ContentType: "text/csv", Data: data}, nil
	case "xlsx":
		data, err := closingToXLSX(resp)
		if err != nil {
			return nil, apierror.Storage(err)
		}
		return &ExportResult{
			Filename:    base + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	default:
		return nil, apierror.Validation("format must be json, csv, or xlsx")
	}
}

func closingToCSV(c *dto.ClosingResponse) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{
		{"field", "value"},
		{"id", c.ID},
		{"period_type", c.PeriodType},
		{"start_at", c.Range.StartAt},
		{"end_at", c.Range.EndAt},
		{"expected_cash_amount", c.ExpectedCashAmount.StringFixed(2)},
		{"expected_non_cash_amount", c.ExpectedNonCashAmount.StringFixed(2)},
		{"expected_total_amount", c.ExpectedTotalAmount.StringFixed(2)},
		{"declared_cash_amount", c.DeclaredCashAmount.StringFixed(2)},
		{"declared_non_cash_amount", c.DeclaredNonCashAmount.StringFixed(2)},
		{"difference_cash", c.DifferenceCash.StringFixed(2)},
		{"difference_non_cash", c.DifferenceNonCash.StringFixed(2)},
		{"difference_total", c.DifferenceTotal.StringFixed(2)},
		{"status", c.Status},
		{"final_cash_balance", c.FinalCashBalance.StringFixed(2)},
	}
	if c.Notes != nil {
		rows = append(rows, []string{"notes", *c.Notes})
	}
	for _, adj := range c.Adjustments {
		rows = append(rows, []string{
			"adjustment",
			fmt.Sprintf("%s %s (%s)", adj.Type, adj.Amount.StringFixed(2), adj.Reason),
		})
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func closingToXLSX(c *dto.ClosingResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Closing"
	f.SetSheetName("Sheet1", sheet)

	cells := []struct {
		label string
		value interface{}
	}{
		{"Period type", c.PeriodType},
		{"Start", c.Range.StartAt},
		{"End", c.Range.EndAt},
		{"Expected cash", c.ExpectedCashAmount.StringFixed(2)},
		{"Expected non-cash", c.ExpectedNonCashAmount.StringFixed(2)},
		{"Expected total", c.ExpectedTotalAmount.StringFixed(2)},
		{"Declared cash", c.DeclaredCashAmount.StringFixed(2)},
		{"Declared non-cash", c.DeclaredNonCashAmount.StringFixed(2)},
		{"Difference cash", c.DifferenceCash.StringFixed(2)},
		{"Difference non-cash", c.DifferenceNonCash.StringFixed(2)},
		{"Difference total", c.DifferenceTotal.StringFixed(2)},
		{"Status", c.Status},
		{"Final cash balance", c.FinalCashBalance.StringFixed(2)},
	}
	for i, cell := range cells {
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", i+1), cell.label)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", i+1), cell.value)
	}

	row := len(cells) + 2
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Adjustments")
	for i, adj := range c.Adjustments {
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row+1+i), adj.Type)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row+1+i), adj.Amount.StringFixed(2))
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row+1+i), adj.Reason)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func closingToResponse(c *model.CashClosing) *dto.ClosingResponse {
	resp := &dto.ClosingResponse{
		ID:         c.ID.String(),
		PeriodType: c.PeriodType,
		Range: dto.PeriodRange{
			StartAt: c.StartAt.Format(time.RFC3339),
			EndAt:   c.EndAt.Format(time.RFC3339),
		},
		ExpectedCashAmount:    c.ExpectedCashAmount,
		ExpectedNonCashAmount: c.ExpectedNonCashAmount,
		ExpectedTotalAmount:   c.ExpectedTotalAmount,
		DeclaredCashAmount:    c.DeclaredCashAmount,
		DeclaredNonCashAmount: c.DeclaredNonCashAmount,
		DifferenceCash:        c.DifferenceCash,
		DifferenceNonCash:     c.DifferenceNonCash,
		DifferenceTotal:       c.DifferenceTotal,
		Status:                reconcile.Classify(c.DeclaredCashAmount, c.ExpectedCashAmount),
		PaymentCount:          c.PaymentCount,
		Notes:                 c.Notes,
		CreatedBy:             c.CreatedBy.String(),
		CreatedAt:             c.CreatedAt.Format(time.RFC3339),
		Adjustments:           make([]dto.AdjustmentResponse, 0, len(c.Adjustments)),
	}
	if c.EmployeeID != nil {
		id := c.EmployeeID.String()
		resp.EmployeeID = &id
	}

	final := c.DeclaredCashAmount
	for _, adj := range c.Adjustments {
		if adj.Type == model.AdjustmentAdd {
			final = final.Add(adj.Amount)
		} else {
			final = final.Sub(adj.Amount)
		}
		resp.Adjustments = append(resp.Adjustments, dto.AdjustmentResponse{
			ID:        adj.ID.String(),
			Type:      adj.Type,
			Amount:    adj.Amount,
			Reason:    adj.Reason,
			CreatedBy: adj.CreatedBy.String(),
			CreatedAt: adj.CreatedAt.Format(time.RFC3339),
		})
	}
	resp.FinalCashBalance = final.Round(2)
	return resp
}
