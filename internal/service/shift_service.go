package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/funkypatns/Progym-sub001/internal/apierror"
	"github.com/funkypatns/Progym-sub001/internal/dto"
	"github.com/funkypatns/Progym-sub001/internal/model"
	"github.com/funkypatns/Progym-sub001/internal/reconcile"
	"github.com/funkypatns/Progym-sub001/internal/repository"
	"github.com/funkypatns/Progym-sub001/internal/worker"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const activeShiftCacheTTL = 30 * time.Second

type ShiftService interface {
	Open(ctx context.Context, userID uuid.UUID, req dto.OpenShiftRequest) (*dto.ShiftResponse, error)
	// Close is only legal for the open shift; expected cash is derived from the
	// shift's own ledger window at close time.
	Close(ctx context.Context, shiftID, userID uuid.UUID, req dto.CloseShiftRequest) (*dto.ShiftResponse, error)
	// ForceClose is the recovery path for abandoned shifts: same effect as
	// Close but permitted for a user other than the opener, and audit-logged.
	ForceClose(ctx context.Context, shiftID, actingUserID uuid.UUID, req dto.CloseShiftRequest) (*dto.ShiftResponse, error)
	GetActive(ctx context.Context, registerID uuid.UUID) (*dto.ShiftResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.ShiftResponse, error)
	History(ctx context.Context, page, limit int) (*dto.ShiftListResponse, error)
}

type shiftService struct {
	repo         repository.ShiftRepository
	registerRepo repository.RegisterRepository
	ledger       repository.LedgerRepository
	rdb          *redis.Client
	dispatcher   *worker.Dispatcher
}

func NewShiftService(
	repo repository.ShiftRepository,
	registerRepo repository.RegisterRepository,
	ledger repository.LedgerRepository,
	rdb *redis.Client,
	dispatcher *worker.Dispatcher,
) ShiftService {
	return &shiftService{
		repo:         repo,
		registerRepo: registerRepo,
		ledger:       ledger,
		rdb:          rdb,
		dispatcher:   dispatcher,
	}
}

// ── Open ──────────────────────────────────────────────────────────────────────

func (s *shiftService) Open(ctx context.Context, userID uuid.UUID, req dto.OpenShiftRequest) (*dto.ShiftResponse, error) {
	registerID, err := uuid.Parse(req.RegisterID)
	if err != nil {
		return nil, apierror.Validation("invalid register_id")
	}
	if req.OpeningCash.IsNegative() {
		return nil, apierror.Validation("opening_cash must not be negative")
	}

	register, err := s.registerRepo.FindByID(ctx, registerID)
	if err != nil {
		return nil, apierror.NotFound("register not found")
	}
	if !register.Active {
		return nil, apierror.InvalidState("register is inactive")
	}

	shift := &model.Shift{
		RegisterID:  registerID,
		OpenedBy:    userID,
		OpeningCash: req.OpeningCash,
		Status:      model.ShiftStatusOpen,
		OpenedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, shift); err != nil {
		// The partial unique index rejects a second open shift per register.
		// Surface the blocking shift so the operator can force-close it.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.conflictError(ctx, registerID)
		}
		log.Error().Err(err).Str("register_id", registerID.String()).Msg("shift open failed")
		return nil, apierror.Storage(err)
	}

	s.invalidateActiveCache(ctx, registerID)

	log.Info().
		Str("shift_id", shift.ID.String()).
		Str("register_id", registerID.String()).
		Str("opened_by", userID.String()).
		Msg("shift opened")

	return shiftToResponse(shift), nil
}

func (s *shiftService) conflictError(ctx context.Context, registerID uuid.UUID) error {
	blocking, err := s.repo.FindOpenByRegister(ctx, registerID)
	if err != nil {
		// Lost a race with the conflicting close; report without meta.
		return apierror.New(apierror.CodeShiftConflict, "register already has an open shift")
	}
	return apierror.ShiftConflict(
		"register already has an open shift",
		blocking.ID.String(),
		registerID.String(),
	)
}

// ── Close / ForceClose ────────────────────────────────────────────────────────

func (s *shiftService) Close(ctx context.Context, shiftID, userID uuid.UUID, req dto.CloseShiftRequest) (*dto.ShiftResponse, error) {
	return s.close(ctx, shiftID, userID, req, false)
}

func (s *shiftService) ForceClose(ctx context.Context, shiftID, actingUserID uuid.UUID, req dto.CloseShiftRequest) (*dto.ShiftResponse, error) {
	return s.close(ctx, shiftID, actingUserID, req, true)
}

func (s *shiftService) close(ctx context.Context, shiftID, userID uuid.UUID, req dto.CloseShiftRequest, forced bool) (*dto.ShiftResponse, error) {
	if req.ClosingCash.IsNegative() {
		return nil, apierror.Validation("closing_cash must not be negative")
	}

	shift, err := s.repo.FindByID(ctx, shiftID)
	if err != nil {
		return nil, apierror.NotFound("shift not found")
	}
	if shift.Status != model.ShiftStatusOpen {
		return nil, apierror.InvalidState("shift is already closed")
	}

	now := time.Now().UTC()
	window := reconcile.Window{StartAt: shift.OpenedAt, EndAt: now}
	set, err := s.ledger.FetchWindow(ctx, window, repository.LedgerFilter{ShiftID: &shift.ID})
	if err != nil {
		log.Error().Err(err).Str("shift_id", shiftID.String()).Msg("ledger read failed on shift close")
		return nil, apierror.Storage(err)
	}

	expected := reconcile.ExpectedDrawerCash(shift.OpeningCash, reconcile.Calculate(*set))
	difference := req.ClosingCash.Sub(expected).Round(2)

	shift.ClosedAt = &now
	shift.ClosingCash = &req.ClosingCash
	shift.ExpectedCash = &expected
	shift.CashDifference = &difference
	shift.ClosedBy = &userID

	rows, err := s.repo.Close(ctx, shift)
	if err != nil {
		return nil, apierror.Storage(err)
	}
	if rows == 0 {
		// Another request closed it between our read and the guarded update.
		return nil, apierror.InvalidState("shift is already closed")
	}
	shift.Status = model.ShiftStatusClosed

	s.invalidateActiveCache(ctx, shift.RegisterID)

	if forced {
		log.Warn().
			Str("shift_id", shift.ID.String()).
			Str("acting_user", userID.String()).
			Str("opened_by", shift.OpenedBy.String()).
			Msg("shift force-closed")
		s.auditForceClose(ctx, shift, userID)
	} else {
		log.Info().
			Str("shift_id", shift.ID.String()).
			Str("difference", difference.String()).
			Msg("shift closed")
	}

	return shiftToResponse(shift), nil
}

func (s *shiftService) auditForceClose(ctx context.Context, shift *model.Shift, actingUserID uuid.UUID) {
	if s.dispatcher == nil {
		return
	}
	err := s.dispatcher.EnqueueAudit(ctx, worker.AuditEvent{
		Action:     model.AuditShiftForceClosed,
		ActorID:    actingUserID,
		EntityType: "shift",
		EntityID:   shift.ID,
		Details: map[string]string{
			"register_id": shift.RegisterID.String(),
			"opened_by":   shift.OpenedBy.String(),
		},
	})
	if err != nil {
		log.Error().Err(err).Str("shift_id", shift.ID.String()).Msg("audit enqueue failed")
	}
}

// ── Queries ───────────────────────────────────────────────────────────────────

// GetActive serves the open shift for a register through a short-TTL Redis
// read-through cache. The cache is a projection, never authoritative: every
// mutation invalidates it, and a miss always falls through to the database.
func (s *shiftService) GetActive(ctx context.Context, registerID uuid.UUID) (*dto.ShiftResponse, error) {
	cacheKey := activeShiftCacheKey(registerID)
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			var resp dto.ShiftResponse
			if jsonErr := json.Unmarshal(cached, &resp); jsonErr == nil {
				return &resp, nil
			}
		}
	}

	shift, err := s.repo.FindOpenByRegister(ctx, registerID)
	if err != nil {
		return nil, apierror.NotFound("no open shift for this register")
	}
	resp := shiftToResponse(shift)

	if s.rdb != nil {
		if b, jsonErr := json.Marshal(resp); jsonErr == nil {
			_ = s.rdb.Set(ctx, cacheKey, b, activeShiftCacheTTL).Err()
		}
	}
	return resp, nil
}

func (s *shiftService) Get(ctx context.Context, id uuid.UUID) (*dto.ShiftResponse, error) {
	shift, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFound("shift not found")
	}
	return shiftToResponse(shift), nil
}

func (s *shiftService) History(ctx context.Context, page, limit int) (*dto.ShiftListResponse, error) {
	shifts, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, apierror.Storage(err)
	}
	data := make([]dto.ShiftResponse, 0, len(shifts))
	for i := range shifts {
		data = append(data, *shiftToResponse(&shifts[i]))
	}
	return &dto.ShiftListResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func activeShiftCacheKey(registerID uuid.UUID) string {
	return fmt.Sprintf("shift:active:%s", registerID)
}

func (s *shiftService) invalidateActiveCache(ctx context.Context, registerID uuid.UUID) {
	if s.rdb == nil {
		return
	}
	_ = s.rdb.Del(ctx, activeShiftCacheKey(registerID)).Err()
}

func shiftToResponse(sh *model.Shift) *dto.ShiftResponse {
	resp := &dto.ShiftResponse{
		ID:          sh.ID.String(),
		RegisterID:  sh.RegisterID.String(),
		OpenedBy:    sh.OpenedBy.String(),
		OpeningCash: sh.OpeningCash,
		Status:      sh.Status,
		OpenedAt:    sh.OpenedAt.Format(time.RFC3339),
	}
	if sh.Register != nil {
		resp.Register = sh.Register.Name
	}
	if sh.ClosedAt != nil {
		t := sh.ClosedAt.Format(time.RFC3339)
		resp.ClosedAt = &t
	}
	if sh.ClosedBy != nil {
		cb := sh.ClosedBy.String()
		resp.ClosedBy = &cb
	}
	resp.ClosingCash = sh.ClosingCash
	resp.ExpectedCash = sh.ExpectedCash
	resp.CashDifference = sh.CashDifference
	if sh.ClosingCash != nil && sh.ExpectedCash != nil {
		resp.DifferenceStatus = reconcile.Classify(*sh.ClosingCash, *sh.ExpectedCash)
	}
	return resp
}
