package service

import (
	"context"
	"fmt"
	"time"

	"trainhub_backend/internal/events"
	"trainhub_backend/internal/leads/domain"
	"trainhub_backend/platform/apperr"
	"trainhub_backend/platform/sanitize"

	"github.com/google/uuid"
)

// ChangeStatus applies a manual status transition.
func (s *Service) ChangeStatus(ctx context.Context, leadID, tenantID uuid.UUID, to domain.Status, actor Actor) (domain.Lead, error) {
	lead, before, err := s.mutate(ctx, leadID, tenantID, "change_status", func(l *domain.Lead) *apperr.Error {
		return l.ChangeStatus(to)
	})
	if err != nil {
		return domain.Lead{}, err
	}

	s.appendHistory(ctx, lead, actor, "status_changed", "Status changed",
		fmt.Sprintf("%s -> %s", before, lead.Status),
		map[string]any{"from": string(before), "to": string(lead.Status)})
	return lead, nil
}

// ChangeSalesStage attaches or replaces the sales-stage sub-classification.
func (s *Service) ChangeSalesStage(ctx context.Context, leadID, tenantID uuid.UUID, stage domain.SalesStage, actor Actor) (domain.Lead, error) {
	lead, _, err := s.mutate(ctx, leadID, tenantID, "change_sales_stage", func(l *domain.Lead) *apperr.Error {
		return l.ChangeSalesStage(stage)
	})
	if err != nil {
		return domain.Lead{}, err
	}

	s.appendHistory(ctx, lead, actor, "sales_stage_changed", "Sales stage changed",
		string(stage), nil)
	return lead, nil
}

// QualifyMeeting records a meeting outcome. A no-show goes back to Contacted
// and counts as a call attempt; a honored meeting advances to the decision
// point.
func (s *Service) QualifyMeeting(ctx context.Context, leadID, tenantID uuid.UUID, honored bool, absenceReason string, actor Actor) (domain.Lead, error) {
	lead, before, err := s.mutate(ctx, leadID, tenantID, "qualify_meeting", func(l *domain.Lead) *apperr.Error {
		return l.QualifyMeeting(honored)
	})
	if err != nil {
		return domain.Lead{}, err
	}

	if honored {
		s.appendHistory(ctx, lead, actor, "meeting_honored", "Meeting honored",
			fmt.Sprintf("%s -> %s", before, lead.Status), nil)
	} else {
		s.appendHistory(ctx, lead, actor, "meeting_missed", "Meeting missed",
			absenceReason, map[string]any{"absenceReason": absenceReason})
	}
	return lead, nil
}

// DecideQualification applies the agent's decision after a honored meeting.
func (s *Service) DecideQualification(ctx context.Context, leadID, tenantID uuid.UUID, decision domain.QualificationDecision, actor Actor) (domain.Lead, error) {
	lead, before, err := s.mutate(ctx, leadID, tenantID, "decide_qualification", func(l *domain.Lead) *apperr.Error {
		return l.DecideQualification(decision)
	})
	if err != nil {
		return domain.Lead{}, err
	}

	s.appendHistory(ctx, lead, actor, "qualification_decided", "Qualification decided",
		fmt.Sprintf("%s: %s -> %s", decision, before, lead.Status),
		map[string]any{"decision": string(decision)})
	return lead, nil
}

// ProcessFollowUp records a follow-up touch. At the configured threshold the
// lead auto-closes as No_Answer; the return reports whether that happened.
func (s *Service) ProcessFollowUp(ctx context.Context, leadID, tenantID uuid.UUID, note string, actor Actor) (domain.Lead, bool, error) {
	note = sanitize.Text(note)
	closed := false
	lead, before, err := s.mutate(ctx, leadID, tenantID, "follow_up", func(l *domain.Lead) *apperr.Error {
		c, derr := l.RegisterFollowUp(s.followUpThreshold)
		closed = c
		return derr
	})
	if err != nil {
		return domain.Lead{}, false, err
	}

	if closed {
		s.appendHistory(ctx, lead, actor, "lead_unreachable", "Lead closed as unreachable",
			fmt.Sprintf("follow-up cap of %d reached (was %s)", s.followUpThreshold, before),
			map[string]any{"followUpCount": lead.FollowUpCount})
	} else {
		s.appendHistory(ctx, lead, actor, "follow_up", "Follow-up recorded",
			note, map[string]any{"followUpCount": lead.FollowUpCount})
	}
	return lead, closed, nil
}

// Reopen pulls a disqualified or unreachable lead back into the pipeline.
func (s *Service) Reopen(ctx context.Context, leadID, tenantID uuid.UUID, reason string, actor Actor) (domain.Lead, error) {
	lead, before, err := s.mutate(ctx, leadID, tenantID, "reopen", func(l *domain.Lead) *apperr.Error {
		return l.Reopen()
	})
	if err != nil {
		return domain.Lead{}, err
	}

	s.appendHistory(ctx, lead, actor, "lead_reopened", "Lead reopened",
		reason, map[string]any{"previousStatus": string(before)})
	s.bus.Publish(ctx, events.LeadReopened{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         lead.ID,
		TenantID:       lead.OrganizationID,
		PreviousStatus: string(before),
	})
	return lead, nil
}

// SweepStalled runs the scheduled follow-up pass over callable leads that have
// been quiet past the cutoff. Each one gets a system follow-up touch, which
// closes it as No_Answer once the cap is reached. Returns how many leads were
// touched.
func (s *Service) SweepStalled(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	stalled, err := s.repo.ListStalled(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	touched := 0
	for _, lead := range stalled {
		s.bus.Publish(ctx, events.LeadFollowUpDue{
			BaseEvent:     events.NewBaseEvent(),
			LeadID:        lead.ID,
			TenantID:      lead.OrganizationID,
			Status:        string(lead.Status),
			FollowUpCount: lead.FollowUpCount,
		})
		if _, _, err := s.ProcessFollowUp(ctx, lead.ID, lead.OrganizationID, "automatic follow-up sweep", SystemActor); err != nil {
			// A lead that moved out of a callable status since the listing is
			// skipped, not an error for the whole sweep.
			s.log.Warn("follow_up_sweep_skip", "lead_id", lead.ID.String(), "error", err.Error())
			continue
		}
		touched++
	}
	return touched, nil
}
