package handler

import (
	"net/http"
	"time"

	"trainhub_backend/internal/leads/domain"
	"trainhub_backend/internal/leads/service"
	"trainhub_backend/internal/leads/transport"
	"trainhub_backend/platform/httpkit"
	"trainhub_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"

	// maxAttachmentBytes caps a single dossier document upload.
	maxAttachmentBytes = 20 << 20
)

// Handler handles HTTP requests for the lead pipeline
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new leads handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the lead routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/history", h.History)
	rg.GET("/:id/billable", h.Billable)

	rg.PATCH("/:id/status", h.ChangeStatus)
	rg.PATCH("/:id/sales-stage", h.ChangeSalesStage)
	rg.POST("/:id/meeting-outcome", h.QualifyMeeting)
	rg.POST("/:id/qualification", h.DecideQualification)
	rg.POST("/:id/follow-up", h.FollowUp)
	rg.POST("/:id/reopen", h.Reopen)

	rg.POST("/:id/financing", h.ChooseFinancing)
	rg.POST("/:id/financing/offer", h.ValidateOffer)
	rg.POST("/:id/financing/payments", h.RecordPayment)
	rg.PATCH("/:id/financing/account", h.SetFundingAccount)
	rg.POST("/:id/financing/placement-test", h.PlacementTest)
	rg.POST("/:id/financing/file", h.ValidateFundingFile)

	rg.GET("/:id/signals", h.ListSignals)
	rg.POST("/:id/signals", h.RecordSignal)
	rg.POST("/:id/score/recalculate", h.RecalculateScore)

	rg.GET("/:id/attachments", h.ListAttachments)
	rg.POST("/:id/attachments", h.AddAttachment)
	rg.GET("/:id/attachments/:attachmentId/url", h.AttachmentURL)
}

type requestScope struct {
	leadID   uuid.UUID
	tenantID uuid.UUID
	actor    service.Actor
}

// scope resolves the lead ID, tenant, and actor for a request, aborting with
// the right status when any is missing.
func (h *Handler) scope(c *gin.Context) (requestScope, bool) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return requestScope{}, false
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return requestScope{}, false
	}
	tenantID := identity.TenantID()
	if tenantID == uuid.Nil {
		httpkit.Error(c, http.StatusBadRequest, "tenant ID is required", nil)
		return requestScope{}, false
	}
	return requestScope{
		leadID:   leadID,
		tenantID: tenantID,
		actor:    service.Actor{Type: "user", Name: identity.UserID().String()},
	}, true
}

// bindJSON decodes and validates a JSON request body.
func (h *Handler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

// List handles GET /api/v1/leads
func (h *Handler) List(c *gin.Context) {
	var req transport.ListLeadsRequest
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
	tenantID := identity.TenantID()
	if tenantID == uuid.Nil {
		httpkit.Error(c, http.StatusBadRequest, "tenant ID is required", nil)
		return
	}

	var status *domain.Status
	if req.Status != nil {
		s := domain.Status(*req.Status)
		if !domain.IsKnownStatus(s) {
			httpkit.Error(c, http.StatusBadRequest, "unknown status filter", nil)
			return
		}
		status = &s
	}

	leads, err := h.svc.List(c.Request.Context(), tenantID, status, req.Limit, req.Offset)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponses(leads))
}

// Create handles POST /api/v1/leads
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID := identity.TenantID()
	if tenantID == uuid.Nil {
		httpkit.Error(c, http.StatusBadRequest, "tenant ID is required", nil)
		return
	}

	input := service.CreateLeadInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Metadata:  req.Metadata,
	}
	if req.SalesStage != nil {
		stage := domain.SalesStage(*req.SalesStage)
		input.SalesStage = &stage
	}

	actor := service.Actor{Type: "user", Name: identity.UserID().String()}
	lead, err := h.svc.Create(c.Request.Context(), tenantID, input, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToLeadResponse(lead))
}

// GetByID handles GET /api/v1/leads/:id
func (h *Handler) GetByID(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	lead, err := h.svc.GetByID(c.Request.Context(), scope.leadID, scope.tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// History handles GET /api/v1/leads/:id/history
func (h *Handler) History(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	entries, err := h.svc.History(c.Request.Context(), scope.leadID, scope.tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToHistoryResponses(entries))
}

// Billable handles GET /api/v1/leads/:id/billable
func (h *Handler) Billable(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	billable, err := h.svc.IsBillable(c.Request.Context(), scope.leadID, scope.tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.BillableResponse{LeadID: scope.leadID, Billable: billable})
}

// ChangeStatus handles PATCH /api/v1/leads/:id/status
func (h *Handler) ChangeStatus(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req transport.ChangeStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	lead, err := h.svc.ChangeStatus(c.Request.Context(), scope.leadID, scope.tenantID, domain.Status(req.Status), scope.actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// ChangeSalesStage handles PATCH /api/v1/leads/:id/sales-stage
func (h *Handler) ChangeSalesStage(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req transport.ChangeSalesStageRequest
	if !h.bindJSON(c, &req) {
		return
	}
	lead, err := h.svc.ChangeSalesStage(c.Request.Context(), scope.leadID, scope.tenantID, domain.SalesStage(req.SalesStage), scope.actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// QualifyMeeting handles POST /api/v1/leads/:id/meeting-outcome
func (h *Handler) QualifyMeeting(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req transport.MeetingOutcomeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	lead, err := h.svc.QualifyMeeting(c.Request.Context(), scope.leadID, scope.tenantID, *req.Honored, req.AbsenceReason, scope.actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// DecideQualification handles POST /api/v1/leads/:id/qualification
func (h *Handler) DecideQualification(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req transport.QualificationDecisionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	lead, err := h.svc.DecideQualification(c.Request.Context(), scope.leadID, scope.tenantID, domain.QualificationDecision(req.Decision), scope.actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// FollowUp handles POST /api/v1/leads/:id/follow-up
func (h *Handler) FollowUp(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req transport.FollowUpRequest
	if !h.bindJSON(c, &req) {
		return
	}
	lead, _, err := h.svc.ProcessFollowUp(c.Request.Context(), scope.leadID, scope.tenantID, req.Note, scope.actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// Reopen handles POST /api/v1/leads/:id/reopen
func (h *Handler) Reopen(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req transport.ReopenRequest
	if !h.bindJSON(c, &req) {
		return
	}
	lead, err := h.svc.Reopen(c.Request.Context(), scope.leadID, scope.tenantID, req.Reason, scope.actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// ChooseFinancing handles POST /api/v1/leads/:id/financing
func (h *Handler) ChooseFinancing(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req transport.ChooseFinancingRequest
	if !h.bindJSON(c, &req) {
		return
	}
	lead, err := h.svc.ChooseFinancing(c.Request.Context(), scope.leadID, scope.tenantID,
		domain.FinancingType(req.Type), req.AgreedTotal, req.MinDepositPercent, scope.actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// ValidateOffer handles POST /api/v1/leads/:id/financing/offer
func (h *Handler) ValidateOffer(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req transport.ValidateOfferRequest
	if !h.bindJSON(c, &req) {
		return
	}
	lead, err := h.svc.ValidateOffer(c.Request.Context(), scope.leadID, scope.tenantID, req.Amount, scope.actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// RecordPayment handles POST /api/v1/leads/:id/financing/payments
func (h *Handler) RecordPayment(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req transport.RecordPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	lead, signed, err := h.svc.RecordPayment(c.Request.Context(), scope.leadID, scope.tenantID, req.Amount, scope.actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.PaymentResponse{Lead: transport.ToLeadResponse(lead), Signed: signed})
}

// SetFundingAccount handles PATCH /api/v1/leads/:id/financing/account
func (h *Handler) SetFundingAccount(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req transport.FundingAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	lead, err := h.svc.SetFundingAccountStatus(c.Request.Context(), scope.leadID, scope.tenantID, *req.Active, scope.actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// PlacementTest handles POST /api/v1/leads/:id/financing/placement-test
func (h *Handler) PlacementTest(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req transport.PlacementTestRequest
	if !h.bindJSON(c, &req) {
		return
	}
	lead, passed, err := h.svc.ValidatePlacementTest(c.Request.Context(), scope.leadID, scope.tenantID, req.Score, scope.actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.PlacementTestResponse{Lead: transport.ToLeadResponse(lead), Passed: passed})
}

// ValidateFundingFile handles POST /api/v1/leads/:id/financing/file
func (h *Handler) ValidateFundingFile(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	lead, err := h.svc.ValidateFundingFile(c.Request.Context(), scope.leadID, scope.tenantID, scope.actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// ListSignals handles GET /api/v1/leads/:id/signals
func (h *Handler) ListSignals(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	rows, err := h.svc.Signals(c.Request.Context(), scope.leadID, scope.tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSignalResponses(rows))
}

// RecordSignal handles POST /api/v1/leads/:id/signals
func (h *Handler) RecordSignal(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req transport.RecordSignalRequest
	if !h.bindJSON(c, &req) {
		return
	}
	occurredAt := time.Time{}
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}
	result, err := h.svc.RecordSignal(c.Request.Context(), scope.leadID, scope.tenantID, req.Type, occurredAt)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ScoreResponse{
		LeadID:  scope.leadID,
		Score:   result.Score,
		Version: result.Version,
	})
}

// RecalculateScore handles POST /api/v1/leads/:id/score/recalculate
func (h *Handler) RecalculateScore(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	result, err := h.svc.RecalculateScore(c.Request.Context(), scope.leadID, scope.tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ScoreResponse{
		LeadID:  scope.leadID,
		Score:   result.Score,
		Version: result.Version,
	})
}

// ListAttachments handles GET /api/v1/leads/:id/attachments
func (h *Handler) ListAttachments(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	attachments, err := h.svc.Attachments(c.Request.Context(), scope.leadID, scope.tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToAttachmentResponses(attachments))
}

// AddAttachment handles POST /api/v1/leads/:id/attachments (multipart)
func (h *Handler) AddAttachment(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "file is required", nil)
		return
	}
	if file.Size > maxAttachmentBytes {
		httpkit.Error(c, http.StatusBadRequest, "file exceeds the 20MB limit", nil)
		return
	}

	src, err := file.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "could not read uploaded file", nil)
		return
	}
	defer src.Close()

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	att, err := h.svc.AddAttachment(c.Request.Context(), scope.leadID, scope.tenantID, service.AddAttachmentInput{
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		SizeBytes:   file.Size,
		Body:        src,
		UploadedBy:  identity.UserID(),
	}, scope.actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.AttachmentResponse{
		ID:          att.ID,
		FileName:    att.FileName,
		ContentType: att.ContentType,
		SizeBytes:   att.SizeBytes,
		CreatedAt:   att.CreatedAt,
	})
}

// AttachmentURL handles GET /api/v1/leads/:id/attachments/:attachmentId/url
func (h *Handler) AttachmentURL(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	attachmentID, err := uuid.Parse(c.Param("attachmentId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid attachment id", nil)
		return
	}
	url, err := h.svc.AttachmentURL(c.Request.Context(), scope.leadID, attachmentID, scope.tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"url": url})
}
