package transport

import (
	"time"

	"trainhub_backend/internal/leads/domain"
	"trainhub_backend/internal/leads/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateLeadRequest is the request body for lead intake.
type CreateLeadRequest struct {
	FirstName  string         `json:"firstName" validate:"required,min=1,max=100"`
	LastName   string         `json:"lastName" validate:"required,min=1,max=100"`
	Email      *string        `json:"email,omitempty" validate:"omitempty,email"`
	Phone      string         `json:"phone" validate:"required,min=6,max=30"`
	SalesStage *string        `json:"salesStage,omitempty" validate:"omitempty,oneof=New Attempting_Contact Engaged Nurturing"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ListLeadsRequest is the query parameters for the triage listing.
type ListLeadsRequest struct {
	Status *string `form:"status"`
	Limit  int     `form:"limit" validate:"omitempty,min=1,max=200"`
	Offset int     `form:"offset" validate:"omitempty,min=0"`
}

// ChangeStatusRequest is the request body for a manual status transition.
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ChangeSalesStageRequest is the request body for the sub-classification.
type ChangeSalesStageRequest struct {
	SalesStage string `json:"salesStage" validate:"required,oneof=New Attempting_Contact Engaged Nurturing"`
}

// MeetingOutcomeRequest records whether a scheduled meeting was honored.
type MeetingOutcomeRequest struct {
	Honored       *bool  `json:"honored" validate:"required"`
	AbsenceReason string `json:"absenceReason,omitempty" validate:"max=400"`
}

// QualificationDecisionRequest is the agent's decision after a honored meeting.
type QualificationDecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=PROCEED POSTPONE ABANDON"`
}

// FollowUpRequest records a follow-up touch.
type FollowUpRequest struct {
	Note string `json:"note,omitempty" validate:"max=400"`
}

// ChooseFinancingRequest fixes the lead's financing branch.
type ChooseFinancingRequest struct {
	Type              string          `json:"type" validate:"required,oneof=SELF_FUNDED THIRD_PARTY_FUNDED"`
	AgreedTotal       decimal.Decimal `json:"agreedTotal"`
	MinDepositPercent int             `json:"minDepositPercent" validate:"min=0,max=100"`
}

// ValidateOfferRequest proposes a deposit.
type ValidateOfferRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

// RecordPaymentRequest adds a payment.
type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

// FundingAccountRequest toggles the external funding account state.
type FundingAccountRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// PlacementTestRequest records a placement-test score.
type PlacementTestRequest struct {
	Score int `json:"score" validate:"min=0,max=100"`
}

// ReopenRequest pulls a closed lead back into the pipeline.
type ReopenRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=400"`
}

// RecordSignalRequest appends a behavioral signal.
type RecordSignalRequest struct {
	Type       string     `json:"type" validate:"required,oneof=page_view form_interaction email_open email_click pricing_page_view"`
	OccurredAt *time.Time `json:"occurredAt,omitempty"`
}

// FinancingResponse is the API shape of the financing decision.
type FinancingResponse struct {
	Type                 string  `json:"type"`
	AgreedTotal          *string `json:"agreedTotal,omitempty"`
	MinDepositPercent    *int    `json:"minDepositPercent,omitempty"`
	AmountPaid           *string `json:"amountPaid,omitempty"`
	Outstanding          *string `json:"outstanding,omitempty"`
	OfferValidated       *bool   `json:"offerValidated,omitempty"`
	FundingAccountActive *bool   `json:"fundingAccountActive,omitempty"`
	PlacementTestScore   *int    `json:"placementTestScore,omitempty"`
	PlacementTestPassed  *bool   `json:"placementTestPassed,omitempty"`
	FundingFileValidated *bool   `json:"fundingFileValidated,omitempty"`
}

// LeadResponse is the API representation of a lead.
type LeadResponse struct {
	ID             uuid.UUID          `json:"id"`
	FirstName      string             `json:"firstName"`
	LastName       string             `json:"lastName"`
	Email          *string            `json:"email,omitempty"`
	Phone          string             `json:"phone"`
	Status         string             `json:"status"`
	SalesStage     *string            `json:"salesStage,omitempty"`
	Score          int                `json:"score"`
	CallAttempts   int                `json:"callAttempts"`
	FollowUpCount  int                `json:"followUpCount"`
	Financing      *FinancingResponse `json:"financing,omitempty"`
	LastResponseAt *time.Time         `json:"lastResponseAt,omitempty"`
	Metadata       map[string]any     `json:"metadata,omitempty"`
	Version        int64              `json:"version"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// HistoryEntryResponse is one activity-log row.
type HistoryEntryResponse struct {
	ID        uuid.UUID      `json:"id"`
	ActorType string         `json:"actorType"`
	ActorName string         `json:"actorName"`
	EventType string         `json:"eventType"`
	Title     string         `json:"title"`
	Summary   *string        `json:"summary,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// SignalResponse is one behavioral signal row.
type SignalResponse struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AttachmentResponse is one dossier document's metadata.
type AttachmentResponse struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ScoreResponse reports a recomputed triage score.
type ScoreResponse struct {
	LeadID  uuid.UUID `json:"leadId"`
	Score   int       `json:"score"`
	Version string    `json:"version"`
}

// BillableResponse reports the compliance billable gate for a lead.
type BillableResponse struct {
	LeadID   uuid.UUID `json:"leadId"`
	Billable bool      `json:"billable"`
}

// PaymentResponse wraps a payment result with the signed flag.
type PaymentResponse struct {
	Lead   LeadResponse `json:"lead"`
	Signed bool         `json:"signed"`
}

// PlacementTestResponse wraps a placement-test result.
type PlacementTestResponse struct {
	Lead   LeadResponse `json:"lead"`
	Passed bool         `json:"passed"`
}

// ToLeadResponse maps a domain lead to its API shape.
func ToLeadResponse(lead domain.Lead) LeadResponse {
	resp := LeadResponse{
		ID:             lead.ID,
		FirstName:      lead.FirstName,
		LastName:       lead.LastName,
		Email:          lead.Email,
		Phone:          lead.Phone,
		Status:         string(lead.Status),
		Score:          lead.Score,
		CallAttempts:   lead.CallAttempts,
		FollowUpCount:  lead.FollowUpCount,
		LastResponseAt: lead.LastResponseAt,
		Metadata:       lead.Metadata,
		Version:        lead.Version,
		CreatedAt:      lead.CreatedAt,
		UpdatedAt:      lead.UpdatedAt,
	}
	if lead.SalesStage != nil {
		s := string(*lead.SalesStage)
		resp.SalesStage = &s
	}
	resp.Financing = toFinancingResponse(lead.Financing)
	return resp
}

func toFinancingResponse(decision *domain.FinancingDecision) *FinancingResponse {
	if decision == nil {
		return nil
	}
	resp := &FinancingResponse{Type: string(decision.Type)}
	if plan := decision.SelfFunded; plan != nil {
		agreed := plan.AgreedTotal.String()
		paid := plan.AmountPaid.String()
		outstanding := plan.Outstanding().String()
		percent := plan.MinDepositPercent
		validated := plan.OfferValidated
		resp.AgreedTotal = &agreed
		resp.AmountPaid = &paid
		resp.Outstanding = &outstanding
		resp.MinDepositPercent = &percent
		resp.OfferValidated = &validated
	}
	if plan := decision.ThirdParty; plan != nil {
		active := plan.FundingAccountActive
		passed := plan.PlacementTestPassed
		fileOK := plan.FundingFileValidated
		resp.FundingAccountActive = &active
		resp.PlacementTestScore = plan.PlacementTestScore
		resp.PlacementTestPassed = &passed
		resp.FundingFileValidated = &fileOK
	}
	return resp
}

// ToLeadResponses maps a slice of leads.
func ToLeadResponses(leads []domain.Lead) []LeadResponse {
	out := make([]LeadResponse, 0, len(leads))
	for _, lead := range leads {
		out = append(out, ToLeadResponse(lead))
	}
	return out
}

// ToHistoryResponses maps activity-log entries.
func ToHistoryResponses(entries []repository.HistoryEntry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, HistoryEntryResponse{
			ID:        entry.ID,
			ActorType: entry.ActorType,
			ActorName: entry.ActorName,
			EventType: entry.EventType,
			Title:     entry.Title,
			Summary:   entry.Summary,
			Metadata:  entry.Metadata,
			CreatedAt: entry.CreatedAt,
		})
	}
	return out
}

// ToSignalResponses maps signal rows.
func ToSignalResponses(rows []repository.SignalRow) []SignalResponse {
	out := make([]SignalResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, SignalResponse{
			ID:         row.ID,
			Type:       row.Type,
			OccurredAt: row.OccurredAt,
			CreatedAt:  row.CreatedAt,
		})
	}
	return out
}

// ToAttachmentResponses maps dossier attachments.
func ToAttachmentResponses(attachments []repository.Attachment) []AttachmentResponse {
	out := make([]AttachmentResponse, 0, len(attachments))
	for _, att := range attachments {
		out = append(out, AttachmentResponse{
			ID:          att.ID,
			FileName:    att.FileName,
			ContentType: att.ContentType,
			SizeBytes:   att.SizeBytes,
			CreatedAt:   att.CreatedAt,
		})
	}
	return out
}
