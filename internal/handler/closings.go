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

type ClosingHandler struct{ svc service.ClosingService }

func NewClosingHandler(svc service.ClosingService) *ClosingHandler {
	return &ClosingHandler{svc: svc}
}

// employeeScope reads the optional employee_id query parameter.
func employeeScope(c *gin.Context) (*uuid.UUID, bool) {
	raw := c.Query("employee_id")
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid employee_id"))
		return nil, false
	}
	return &id, true
}

// Preview godoc
// @Summary Computes the open closing period without committing it
// @Tags closings
// @Produce json
// @Security BearerAuth
// @Param employee_id query string false "Scope to one employee"
// @Success 200 {object} dto.ClosingPreviewResponse
// @Router /v1/closings/preview [get]
func (h *ClosingHandler) Preview(c *gin.Context) {
	employeeID, ok := employeeScope(c)
	if !ok {
		return
	}
	resp, err := h.svc.Preview(c.Request.Context(), employeeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Create godoc
// @Summary Commits an immutable closing snapshot for the open period
// @Tags closings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateClosingRequest true "Declared totals"
// @Success 201 {object} dto.ClosingResponse
// @Failure 409 {object} apierror.Error
// @Failure 422 {object} apierror.FieldErrors
// @Router /v1/closings [post]
func (h *ClosingHandler) Create(c *gin.Context) {
	var req dto.CreateClosingRequest
	if !bindAndValidate(c, &req) {
		return
	}
	userID, ok := claimsUserID(c)
	if !ok {
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Get godoc
// @Summary Fetches a closing with its adjustments
// @Tags closings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Closing ID"
// @Success 200 {object} dto.ClosingResponse
// @Failure 404 {object} apierror.Error
// @Router /v1/closings/{id} [get]
func (h *ClosingHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid closing id"))
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List returns closings newest first, optionally scoped to one employee.
func (h *ClosingHandler) List(c *gin.Context) {
	employeeID, ok := employeeScope(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	resp, err := h.svc.List(c.Request.Context(), employeeID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AddAdjustment godoc
// @Summary Appends a post-hoc adjustment to a committed closing
// @Tags closings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Closing ID"
// @Param body body dto.AddAdjustmentRequest true "Adjustment"
// @Success 200 {object} dto.ClosingResponse
// @Failure 404 {object} apierror.Error
// @Router /v1/closings/{id}/adjustments [post]
func (h *ClosingHandler) AddAdjustment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid closing id"))
		return
	}
	var req dto.AddAdjustmentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	userID, ok := claimsUserID(c)
	if !ok {
		return
	}

	resp, err := h.svc.AddAdjustment(c.Request.Context(), id, userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Export godoc
// @Summary Downloads a closing as json, csv or xlsx
// @Tags closings
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "Closing ID"
// @Param format query string false "json | csv | xlsx" default(json)
// @Success 200 {file} file
// @Failure 404 {object} apierror.Error
// @Router /v1/closings/{id}/export [get]
func (h *ClosingHandler) Export(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid closing id"))
		return
	}
	format := c.DefaultQuery("format", "json")

	result, err := h.svc.Export(c.Request.Context(), id, format)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
