package handler

import (
	"net/http"
	"strconv"

	"github.com/funkypatns/Progym-sub001/internal/apierror"
	"github.com/funkypatns/Progym-sub001/internal/dto"
	"github.com/funkypatns/Progym-sub001/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ShiftHandler struct{ svc service.ShiftService }

func NewShiftHandler(svc service.ShiftService) *ShiftHandler { return &ShiftHandler{svc: svc} }

// Open godoc
// @Summary Opens a new shift on a register
// @Tags shifts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.OpenShiftRequest true "Opening data"
// @Success 201 {object} dto.ShiftResponse
// @Failure 409 {object} apierror.Error
// @Failure 422 {object} apierror.FieldErrors
// @Router /v1/shifts [post]
func (h *ShiftHandler) Open(c *gin.Context) {
	var req dto.OpenShiftRequest
	if !bindAndValidate(c, &req) {
		return
	}
	userID, ok := claimsUserID(c)
	if !ok {
		return
	}

	resp, err := h.svc.Open(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Close godoc
// @Summary Closes an open shift with a declared drawer count
// @Tags shifts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Param body body dto.CloseShiftRequest true "Declared drawer cash"
// @Success 200 {object} dto.ShiftResponse
// @Failure 404 {object} apierror.Error
// @Failure 409 {object} apierror.Error
// @Router /v1/shifts/{id}/close [post]
func (h *ShiftHandler) Close(c *gin.Context) {
	shiftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid shift id"))
		return
	}
	var req dto.CloseShiftRequest
	if !bindAndValidate(c, &req) {
		return
	}
	userID, ok := claimsUserID(c)
	if !ok {
		return
	}

	resp, err := h.svc.Close(c.Request.Context(), shiftID, userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ForceClose godoc
// @Summary Force-closes an abandoned shift (manager/admin only)
// @Tags shifts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Param body body dto.CloseShiftRequest true "Declared drawer cash"
// @Success 200 {object} dto.ShiftResponse
// @Failure 404 {object} apierror.Error
// @Failure 409 {object} apierror.Error
// @Router /v1/shifts/{id}/force-close [post]
func (h *ShiftHandler) ForceClose(c *gin.Context) {
	shiftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid shift id"))
		return
	}
	var req dto.CloseShiftRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actingUserID, ok := claimsUserID(c)
	if !ok {
		return
	}

	resp, err := h.svc.ForceClose(c.Request.Context(), shiftID, actingUserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetActive returns the open shift for a register, 404 when the drawer is idle.
func (h *ShiftHandler) GetActive(c *gin.Context) {
	registerID, err := uuid.Parse(c.Query("register_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "register_id query parameter is required"))
		return
	}
	resp, err := h.svc.GetActive(c.Request.Context(), registerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary Fetches a shift by id
// @Tags shifts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Success 200 {object} dto.ShiftResponse
// @Failure 404 {object} apierror.Error
// @Router /v1/shifts/{id} [get]
func (h *ShiftHandler) Get(c *gin.Context) {
	shiftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid shift id"))
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), shiftID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// History returns a paginated list of shifts, newest first.
func (h *ShiftHandler) History(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	resp, err := h.svc.History(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
