// Package notification turns domain events into durable outbox messages and
// dispatches them as emails. Inserting into the outbox is the only work done on
// the event path; delivery happens later from the scheduler so a slow or down
// SMTP server never blocks a pipeline transition.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"trainhub_backend/internal/email"
	"trainhub_backend/internal/events"
	"trainhub_backend/internal/notification/outbox"
	"trainhub_backend/platform/logger"

	"github.com/google/uuid"
)

// Message kinds stored in the outbox. The dispatcher switches on these to pick
// the email template.
const (
	KindFollowUpDue          = "lead.follow_up_due"
	KindLeadSigned           = "lead.signed"
	KindPlacementRemediation = "lead.placement_remediation"
	KindComplianceBillable   = "funding.billable"
)

const dispatchBatchSize = 50

// LeadInfo is the display subset of a lead the notification emails need.
type LeadInfo struct {
	Name  string
	Phone string
}

// LeadDirectory resolves lead display info without importing the leads module.
type LeadDirectory interface {
	LeadInfo(ctx context.Context, leadID, organizationID uuid.UUID) (LeadInfo, error)
}

// OutboxRepository is the persistence surface the service needs.
type OutboxRepository interface {
	Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, error)
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]outbox.Message, error)
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string) error
}

type followUpDuePayload struct {
	LeadName     string `json:"leadName"`
	LeadPhone    string `json:"leadPhone"`
	AttemptsMade int    `json:"attemptsMade"`
}

type leadSignedPayload struct {
	LeadName      string `json:"leadName"`
	FinancingType string `json:"financingType"`
}

type placementRemediationPayload struct {
	LeadName string `json:"leadName"`
	Score    int    `json:"score"`
	Minimum  int    `json:"minimum"`
}

type complianceBillablePayload struct {
	LeadName string `json:"leadName"`
	Stage    string `json:"stage"`
}

type Service struct {
	repo      OutboxRepository
	directory LeadDirectory
	sender    email.Sender
	log       *logger.Logger
	inbox     string
}

func New(repo OutboxRepository, directory LeadDirectory, sender email.Sender, log *logger.Logger, inboxAddress string) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		sender:    sender,
		log:       log,
		inbox:     inboxAddress,
	}
}

// Subscribe registers the event handlers that feed the outbox.
func (s *Service) Subscribe(bus events.Bus) {
	bus.Subscribe(events.LeadFollowUpDue{}.EventName(), events.HandlerFunc(s.onFollowUpDue))
	bus.Subscribe(events.LeadSigned{}.EventName(), events.HandlerFunc(s.onLeadSigned))
	bus.Subscribe(events.PlacementTestEvaluated{}.EventName(), events.HandlerFunc(s.onPlacementTestEvaluated))
	bus.Subscribe(events.ComplianceRecordBillable{}.EventName(), events.HandlerFunc(s.onComplianceBillable))
}

func (s *Service) onFollowUpDue(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadFollowUpDue)
	if !ok {
		return nil
	}
	info, err := s.directory.LeadInfo(ctx, e.LeadID, e.TenantID)
	if err != nil {
		return fmt.Errorf("resolve lead %s: %w", e.LeadID, err)
	}
	return s.enqueue(ctx, e.TenantID, e.LeadID, KindFollowUpDue, followUpDuePayload{
		LeadName:     info.Name,
		LeadPhone:    info.Phone,
		AttemptsMade: e.FollowUpCount,
	})
}

func (s *Service) onLeadSigned(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadSigned)
	if !ok {
		return nil
	}
	info, err := s.directory.LeadInfo(ctx, e.LeadID, e.TenantID)
	if err != nil {
		return fmt.Errorf("resolve lead %s: %w", e.LeadID, err)
	}
	return s.enqueue(ctx, e.TenantID, e.LeadID, KindLeadSigned, leadSignedPayload{
		LeadName:      info.Name,
		FinancingType: e.FinancingType,
	})
}

func (s *Service) onPlacementTestEvaluated(ctx context.Context, event events.Event) error {
	e, ok := event.(events.PlacementTestEvaluated)
	if !ok || e.Passed {
		return nil
	}
	info, err := s.directory.LeadInfo(ctx, e.LeadID, e.TenantID)
	if err != nil {
		return fmt.Errorf("resolve lead %s: %w", e.LeadID, err)
	}
	return s.enqueue(ctx, e.TenantID, e.LeadID, KindPlacementRemediation, placementRemediationPayload{
		LeadName: info.Name,
		Score:    e.Score,
		Minimum:  e.Minimum,
	})
}

func (s *Service) onComplianceBillable(ctx context.Context, event events.Event) error {
	e, ok := event.(events.ComplianceRecordBillable)
	if !ok {
		return nil
	}
	info, err := s.directory.LeadInfo(ctx, e.LeadID, e.TenantID)
	if err != nil {
		return fmt.Errorf("resolve lead %s: %w", e.LeadID, err)
	}
	return s.enqueue(ctx, e.TenantID, e.LeadID, KindComplianceBillable, complianceBillablePayload{
		LeadName: info.Name,
		Stage:    e.Stage,
	})
}

func (s *Service) enqueue(ctx context.Context, organizationID, leadID uuid.UUID, kind string, payload any) error {
	id, err := s.repo.Insert(ctx, outbox.InsertParams{
		OrganizationID: organizationID,
		LeadID:         leadID,
		Kind:           kind,
		Recipient:      s.inbox,
		Payload:        payload,
	})
	if err != nil {
		s.log.Error("notification_enqueue_failed", "kind", kind, "lead_id", leadID, "error", err)
		return err
	}
	s.log.Info("notification_enqueued", "outbox_id", id, "kind", kind, "lead_id", leadID)
	return nil
}

// DispatchDue claims due outbox messages and delivers them. Returns how many
// messages were delivered. Failed sends go back to the outbox with backoff.
func (s *Service) DispatchDue(ctx context.Context, now time.Time) (int, error) {
	msgs, err := s.repo.ClaimDue(ctx, now, dispatchBatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim due notifications: %w", err)
	}

	delivered := 0
	for _, msg := range msgs {
		if err := s.deliver(ctx, msg); err != nil {
			s.log.Warn("notification_delivery_failed", "outbox_id", msg.ID, "kind", msg.Kind, "attempts", msg.Attempts, "error", err)
			if markErr := s.repo.MarkFailed(ctx, msg.ID, msg.Attempts, err.Error()); markErr != nil {
				s.log.Error("notification_mark_failed", "outbox_id", msg.ID, "error", markErr)
			}
			continue
		}
		if err := s.repo.MarkSucceeded(ctx, msg.ID); err != nil {
			s.log.Error("notification_mark_succeeded", "outbox_id", msg.ID, "error", err)
			continue
		}
		delivered++
	}
	return delivered, nil
}

func (s *Service) deliver(ctx context.Context, msg outbox.Message) error {
	switch msg.Kind {
	case KindFollowUpDue:
		var p followUpDuePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return s.sender.SendFollowUpDueEmail(ctx, msg.Recipient, p.LeadName, p.LeadPhone, p.AttemptsMade)
	case KindLeadSigned:
		var p leadSignedPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return s.sender.SendLeadSignedEmail(ctx, msg.Recipient, p.LeadName, p.FinancingType)
	case KindPlacementRemediation:
		var p placementRemediationPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return s.sender.SendPlacementRemediationEmail(ctx, msg.Recipient, p.LeadName, p.Score, p.Minimum)
	case KindComplianceBillable:
		var p complianceBillablePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return s.sender.SendComplianceBillableEmail(ctx, msg.Recipient, p.LeadName, p.Stage)
	default:
		return fmt.Errorf("unknown notification kind %q", msg.Kind)
	}
}
