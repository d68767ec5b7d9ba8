package transport

import (
	"time"

	"trainhub_backend/internal/funding/domain"

	"github.com/google/uuid"
)

// OpenRecordRequest is the request body for opening a compliance record.
type OpenRecordRequest struct {
	LeadID uuid.UUID `json:"leadId" validate:"required"`
}

// AdvanceStageRequest is the request body for advancing a record one stage.
type AdvanceStageRequest struct {
	TargetStage string `json:"targetStage" validate:"required,oneof=PENDING ACCEPTED ENTRY_DECLARED EXIT_DECLARED SERVICE_DECLARED SERVICE_VALIDATED INVOICED"`
}

// ListRecordsRequest is the query parameters for listing compliance records.
type ListRecordsRequest struct {
	Stage  *string `form:"stage" validate:"omitempty,oneof=RECEIVED PENDING ACCEPTED ENTRY_DECLARED EXIT_DECLARED SERVICE_DECLARED SERVICE_VALIDATED INVOICED"`
	Limit  int     `form:"limit" validate:"omitempty,min=1,max=200"`
	Offset int     `form:"offset" validate:"omitempty,min=0"`
}

// RecordResponse is the API representation of a compliance record.
type RecordResponse struct {
	ID           uuid.UUID            `json:"id"`
	LeadID       uuid.UUID            `json:"leadId"`
	CurrentStage string               `json:"currentStage"`
	Milestones   map[string]time.Time `json:"milestones"`
	Invoiced     bool                 `json:"invoiced"`
	Billable     bool                 `json:"billable"`
	Version      int64                `json:"version"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// BillableResponse reports the billable gate for a record.
type BillableResponse struct {
	RecordID uuid.UUID `json:"recordId"`
	Billable bool      `json:"billable"`
	Stage    string    `json:"stage"`
}

// ToRecordResponse maps a domain record to its API shape.
func ToRecordResponse(record domain.Record) RecordResponse {
	milestones := make(map[string]time.Time, len(record.Milestones))
	for stage, at := range record.Milestones {
		milestones[string(stage)] = at
	}
	return RecordResponse{
		ID:           record.ID,
		LeadID:       record.LeadID,
		CurrentStage: string(record.CurrentStage),
		Milestones:   milestones,
		Invoiced:     record.Invoiced,
		Billable:     record.IsBillable(),
		Version:      record.Version,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}
}

// ToRecordResponses maps a slice of domain records.
func ToRecordResponses(records []domain.Record) []RecordResponse {
	out := make([]RecordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, ToRecordResponse(record))
	}
	return out
}
