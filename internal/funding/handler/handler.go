package handler

import (
	"net/http"

	"trainhub_backend/internal/funding/domain"
	"trainhub_backend/internal/funding/service"
	"trainhub_backend/internal/funding/transport"
	"trainhub_backend/platform/httpkit"
	"trainhub_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for funding-compliance records
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new funding handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the compliance record routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Open)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/advance", h.AdvanceStage)
	rg.GET("/:id/billable", h.Billable)
}

func mustGetTenantID(c *gin.Context, identity httpkit.Identity) (uuid.UUID, bool) {
	tenantID := identity.TenantID()
	if tenantID == uuid.Nil {
		httpkit.Error(c, http.StatusBadRequest, "tenant ID is required", nil)
		return uuid.Nil, false
	}
	return tenantID, true
}

// List handles GET /api/v1/compliance-records
func (h *Handler) List(c *gin.Context) {
	var req transport.ListRecordsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := mustGetTenantID(c, identity)
	if !ok {
		return
	}

	var stage *domain.Stage
	if req.Stage != nil {
		s := domain.Stage(*req.Stage)
		stage = &s
	}
	records, err := h.svc.List(c.Request.Context(), tenantID, stage, req.Limit, req.Offset)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToRecordResponses(records))
}

// Open handles POST /api/v1/compliance-records
func (h *Handler) Open(c *gin.Context) {
	var req transport.OpenRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := mustGetTenantID(c, identity)
	if !ok {
		return
	}

	record, err := h.svc.Open(c.Request.Context(), req.LeadID, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToRecordResponse(record))
}

// GetByID handles GET /api/v1/compliance-records/:id
func (h *Handler) GetByID(c *gin.Context) {
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid record id", nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := mustGetTenantID(c, identity)
	if !ok {
		return
	}

	record, err := h.svc.GetByID(c.Request.Context(), recordID, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToRecordResponse(record))
}

// AdvanceStage handles POST /api/v1/compliance-records/:id/advance
func (h *Handler) AdvanceStage(c *gin.Context) {
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid record id", nil)
		return
	}

	var req transport.AdvanceStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := mustGetTenantID(c, identity)
	if !ok {
		return
	}

	record, err := h.svc.AdvanceStage(c.Request.Context(), recordID, tenantID, domain.Stage(req.TargetStage))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToRecordResponse(record))
}

// Billable handles GET /api/v1/compliance-records/:id/billable
func (h *Handler) Billable(c *gin.Context) {
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid record id", nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := mustGetTenantID(c, identity)
	if !ok {
		return
	}

	record, err := h.svc.GetByID(c.Request.Context(), recordID, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.BillableResponse{
		RecordID: record.ID,
		Billable: record.IsBillable(),
		Stage:    string(record.CurrentStage),
	})
}
