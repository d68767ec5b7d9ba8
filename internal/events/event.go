// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"trainhub_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead enters the pipeline.
type LeadCreated struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	TenantID  uuid.UUID `json:"tenantId"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadStatusChanged is published on every successful lead status transition,
// including automatic side exits like No_Answer at the follow-up cap.
type LeadStatusChanged struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	TenantID  uuid.UUID `json:"tenantId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	Operation string    `json:"operation"`
}

func (e LeadStatusChanged) EventName() string { return "leads.status.changed" }

// LeadSignalRecorded is published when an engagement signal lands, before the
// triage score recomputes.
type LeadSignalRecorded struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	TenantID   uuid.UUID `json:"tenantId"`
	SignalType string    `json:"signalType"`
	SignalAt   time.Time `json:"signalAt"`
}

func (e LeadSignalRecorded) EventName() string { return "leads.signal.recorded" }

// LeadScoreRecalculated is published after a triage score recomputation.
type LeadScoreRecalculated struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	TenantID uuid.UUID `json:"tenantId"`
	OldScore int       `json:"oldScore"`
	NewScore int       `json:"newScore"`
	Version  string    `json:"version"`
}

func (e LeadScoreRecalculated) EventName() string { return "leads.score.recalculated" }

// FinancingChosen is published when a lead's financing path is fixed.
type FinancingChosen struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	TenantID      uuid.UUID `json:"tenantId"`
	FinancingType string    `json:"financingType"`
}

func (e FinancingChosen) EventName() string { return "leads.financing.chosen" }

// PaymentRecorded is published when a self-funded payment lands.
type PaymentRecorded struct {
	BaseEvent
	LeadID      uuid.UUID `json:"leadId"`
	TenantID    uuid.UUID `json:"tenantId"`
	Amount      string    `json:"amount"`
	Outstanding string    `json:"outstanding"`
	Signed      bool      `json:"signed"`
}

func (e PaymentRecorded) EventName() string { return "leads.payment.recorded" }

// PlacementTestEvaluated is published when a third-party funded lead's
// placement test score is recorded, whether it clears the minimum or not.
type PlacementTestEvaluated struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	TenantID uuid.UUID `json:"tenantId"`
	Score    int       `json:"score"`
	Minimum  int       `json:"minimum"`
	Passed   bool      `json:"passed"`
}

func (e PlacementTestEvaluated) EventName() string { return "leads.placement.evaluated" }

// LeadSigned is published when a lead reaches the Signed terminal, on either
// financing path.
type LeadSigned struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	TenantID      uuid.UUID `json:"tenantId"`
	FinancingType string    `json:"financingType"`
}

func (e LeadSigned) EventName() string { return "leads.lead.signed" }

// LeadReopened is published when a closed lead is pulled back into the
// pipeline.
type LeadReopened struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	TenantID       uuid.UUID `json:"tenantId"`
	PreviousStatus string    `json:"previousStatus"`
}

func (e LeadReopened) EventName() string { return "leads.lead.reopened" }

// LeadFollowUpDue is published by the scheduler when a stalled lead needs a
// follow-up touch.
type LeadFollowUpDue struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	TenantID      uuid.UUID `json:"tenantId"`
	Status        string    `json:"status"`
	FollowUpCount int       `json:"followUpCount"`
}

func (e LeadFollowUpDue) EventName() string { return "leads.followup.due" }

// DossierAttachmentUploaded is published when a funding dossier document is
// stored.
type DossierAttachmentUploaded struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	TenantID     uuid.UUID `json:"tenantId"`
	AttachmentID uuid.UUID `json:"attachmentId"`
	FileName     string    `json:"fileName"`
	FileKey      string    `json:"fileKey"`
	ContentType  string    `json:"contentType"`
	SizeBytes    int64     `json:"sizeBytes"`
}

func (e DossierAttachmentUploaded) EventName() string { return "leads.dossier.uploaded" }

// =============================================================================
// Funding Compliance Domain Events
// =============================================================================

// ComplianceRecordOpened is published when a compliance record is created for
// a signed third-party funded lead.
type ComplianceRecordOpened struct {
	BaseEvent
	RecordID uuid.UUID `json:"recordId"`
	LeadID   uuid.UUID `json:"leadId"`
	TenantID uuid.UUID `json:"tenantId"`
}

func (e ComplianceRecordOpened) EventName() string { return "funding.record.opened" }

// ComplianceStageAdvanced is published on every accepted stage advance.
type ComplianceStageAdvanced struct {
	BaseEvent
	RecordID uuid.UUID `json:"recordId"`
	LeadID   uuid.UUID `json:"leadId"`
	TenantID uuid.UUID `json:"tenantId"`
	OldStage string    `json:"oldStage"`
	NewStage string    `json:"newStage"`
}

func (e ComplianceStageAdvanced) EventName() string { return "funding.stage.advanced" }

// ComplianceRecordBillable is published when a record first crosses into a
// billable stage.
type ComplianceRecordBillable struct {
	BaseEvent
	RecordID uuid.UUID `json:"recordId"`
	LeadID   uuid.UUID `json:"leadId"`
	TenantID uuid.UUID `json:"tenantId"`
	Stage    string    `json:"stage"`
}

func (e ComplianceRecordBillable) EventName() string { return "funding.record.billable" }

// Field names must not shadow the promoted OccurredAt method.
var (
	_ Event = LeadCreated{}
	_ Event = LeadStatusChanged{}
	_ Event = LeadSignalRecorded{}
	_ Event = LeadScoreRecalculated{}
	_ Event = FinancingChosen{}
	_ Event = PaymentRecorded{}
	_ Event = PlacementTestEvaluated{}
	_ Event = LeadSigned{}
	_ Event = LeadReopened{}
	_ Event = LeadFollowUpDue{}
	_ Event = DossierAttachmentUploaded{}
	_ Event = ComplianceRecordOpened{}
	_ Event = ComplianceStageAdvanced{}
	_ Event = ComplianceRecordBillable{}
)
