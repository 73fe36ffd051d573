package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/funkypatns/Progym-sub001/internal/apierror"
	"github.com/funkypatns/Progym-sub001/internal/dto"
	"github.com/funkypatns/Progym-sub001/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PaymentHandler struct{ svc service.PaymentService }

func NewPaymentHandler(svc service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// Record godoc
// @Summary Records a completed payment in the ledger
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.RecordPaymentRequest true "Payment data"
// @Success 201 {object} dto.PaymentResponse
// @Failure 422 {object} apierror.FieldErrors
// @Router /v1/payments [post]
func (h *PaymentHandler) Record(c *gin.Context) {
	var req dto.RecordPaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	operatorID, ok := claimsUserID(c)
	if !ok {
		return
	}

	resp, err := h.svc.Record(c.Request.Context(), operatorID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Refund godoc
// @Summary Refunds a payment, fully or partially
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Param body body dto.RefundRequest true "Refund data"
// @Success 200 {object} dto.PaymentResponse
// @Failure 404 {object} apierror.Error
// @Failure 409 {object} apierror.Error
// @Router /v1/payments/{id}/refund [post]
func (h *PaymentHandler) Refund(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid payment id"))
		return
	}
	var req dto.RefundRequest
	if !bindAndValidate(c, &req) {
		return
	}
	userID, ok := claimsUserID(c)
	if !ok {
		return
	}

	resp, err := h.svc.Refund(c.Request.Context(), paymentID, userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RecordMovement godoc
// @Summary Records a manual cash movement (pay-in or payout)
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CashMovementRequest true "Movement data"
// @Success 201 {object} dto.CashMovementResponse
// @Failure 422 {object} apierror.FieldErrors
// @Router /v1/cash-movements [post]
func (h *PaymentHandler) RecordMovement(c *gin.Context) {
	var req dto.CashMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	operatorID, ok := claimsUserID(c)
	if !ok {
		return
	}

	resp, err := h.svc.RecordMovement(c.Request.Context(), operatorID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// timeRange reads start_at / end_at query parameters, defaulting to today.
func timeRange(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := now

	if raw := c.Query("start_at"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "start_at must be RFC 3339"))
			return start, end, false
		}
		start = t
	}
	if raw := c.Query("end_at"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "end_at must be RFC 3339"))
			return start, end, false
		}
		end = t
	}
	return start, end, true
}

// List returns payments within a time window, paginated.
func (h *PaymentHandler) List(c *gin.Context) {
	start, end, ok := timeRange(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	resp, err := h.svc.List(c.Request.Context(), start, end, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListMovements returns manual cash movements within a time window.
func (h *PaymentHandler) ListMovements(c *gin.Context) {
	start, end, ok := timeRange(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListMovements(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
