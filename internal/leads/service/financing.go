package service

import (
	"context"
	"fmt"

	"trainhub_backend/internal/events"
	"trainhub_backend/internal/leads/domain"
	"trainhub_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChooseFinancing fixes the lead's financing branch. The choice is write-once;
// agreedTotal and minDepositPercent only apply to the self-funded branch.
func (s *Service) ChooseFinancing(ctx context.Context, leadID, tenantID uuid.UUID, t domain.FinancingType, agreedTotal decimal.Decimal, minDepositPercent int, actor Actor) (domain.Lead, error) {
	lead, _, err := s.mutate(ctx, leadID, tenantID, "choose_financing", func(l *domain.Lead) *apperr.Error {
		return l.ChooseFinancing(t, agreedTotal, minDepositPercent)
	})
	if err != nil {
		return domain.Lead{}, err
	}

	s.appendHistory(ctx, lead, actor, "financing_chosen", "Financing chosen",
		string(t), map[string]any{"financingType": string(t)})
	s.bus.Publish(ctx, events.FinancingChosen{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        lead.ID,
		TenantID:      lead.OrganizationID,
		FinancingType: string(t),
	})
	return lead, nil
}

// ValidateOffer checks a proposed deposit against the floor agreed when the
// self-funded branch was chosen. On success the lead starts accepting
// payments.
func (s *Service) ValidateOffer(ctx context.Context, leadID, tenantID uuid.UUID, amount decimal.Decimal, actor Actor) (domain.Lead, error) {
	lead, _, err := s.mutate(ctx, leadID, tenantID, "validate_offer", func(l *domain.Lead) *apperr.Error {
		percent := 0
		if l.Financing != nil && l.Financing.SelfFunded != nil {
			percent = l.Financing.SelfFunded.MinDepositPercent
		}
		return l.ValidateOffer(amount, percent)
	})
	if err != nil {
		return domain.Lead{}, err
	}

	s.appendHistory(ctx, lead, actor, "offer_validated", "Offer validated",
		fmt.Sprintf("deposit %s accepted", amount), map[string]any{"deposit": amount.String()})
	if lead.Status == domain.StatusSigned {
		s.publishSigned(ctx, lead)
	}
	return lead, nil
}

// RecordPayment adds a payment toward the agreed total. When the total is
// reached the lead auto-advances to Signed.
func (s *Service) RecordPayment(ctx context.Context, leadID, tenantID uuid.UUID, amount decimal.Decimal, actor Actor) (domain.Lead, bool, error) {
	signed := false
	lead, _, err := s.mutate(ctx, leadID, tenantID, "record_payment", func(l *domain.Lead) *apperr.Error {
		done, derr := l.RecordPayment(amount)
		signed = done
		return derr
	})
	if err != nil {
		return domain.Lead{}, false, err
	}

	outstanding := decimal.Zero
	if lead.Financing != nil && lead.Financing.SelfFunded != nil {
		outstanding = lead.Financing.SelfFunded.Outstanding()
	}
	s.appendHistory(ctx, lead, actor, "payment_recorded", "Payment recorded",
		fmt.Sprintf("%s paid, %s outstanding", amount, outstanding),
		map[string]any{"amount": amount.String(), "outstanding": outstanding.String()})
	s.bus.Publish(ctx, events.PaymentRecorded{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      lead.ID,
		TenantID:    lead.OrganizationID,
		Amount:      amount.String(),
		Outstanding: outstanding.String(),
		Signed:      signed,
	})
	if signed {
		s.publishSigned(ctx, lead)
	}
	return lead, signed, nil
}

// SetFundingAccountStatus records whether the lead's external funding account
// is usable.
func (s *Service) SetFundingAccountStatus(ctx context.Context, leadID, tenantID uuid.UUID, active bool, actor Actor) (domain.Lead, error) {
	lead, _, err := s.mutate(ctx, leadID, tenantID, "set_funding_account", func(l *domain.Lead) *apperr.Error {
		return l.SetFundingAccountStatus(active)
	})
	if err != nil {
		return domain.Lead{}, err
	}

	state := "inactive"
	if active {
		state = "active"
	}
	s.appendHistory(ctx, lead, actor, "funding_account_updated", "Funding account "+state,
		"", map[string]any{"active": active})
	return lead, nil
}

// ValidatePlacementTest records a placement-test score against the configured
// minimum. A failing score flags remediation without disqualifying the lead.
func (s *Service) ValidatePlacementTest(ctx context.Context, leadID, tenantID uuid.UUID, score int, actor Actor) (domain.Lead, bool, error) {
	passed := false
	lead, _, err := s.mutate(ctx, leadID, tenantID, "validate_placement_test", func(l *domain.Lead) *apperr.Error {
		p, derr := l.ValidatePlacementTest(score, s.placementTestMinimum)
		passed = p
		return derr
	})
	if err != nil {
		return domain.Lead{}, false, err
	}

	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	s.appendHistory(ctx, lead, actor, "placement_test_recorded", "Placement test "+outcome,
		fmt.Sprintf("score %d (minimum %d)", score, s.placementTestMinimum),
		map[string]any{"score": score, "passed": passed})
	s.bus.Publish(ctx, events.PlacementTestEvaluated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		TenantID:  lead.OrganizationID,
		Score:     score,
		Minimum:   s.placementTestMinimum,
		Passed:    passed,
	})
	return lead, passed, nil
}

// ValidateFundingFile accepts the funding-body dossier. The dossier must hold
// at least one document and every prior third-party gate must be open; on
// success the lead signs and the compliance ledger opens.
func (s *Service) ValidateFundingFile(ctx context.Context, leadID, tenantID uuid.UUID, actor Actor) (domain.Lead, error) {
	count, err := s.repo.CountAttachments(ctx, leadID, tenantID)
	if err != nil {
		return domain.Lead{}, err
	}
	if count == 0 {
		return domain.Lead{}, apperr.InvalidState("funding dossier requires at least one document")
	}

	lead, _, err := s.mutate(ctx, leadID, tenantID, "validate_funding_file", func(l *domain.Lead) *apperr.Error {
		return l.ValidateFundingFile()
	})
	if err != nil {
		return domain.Lead{}, err
	}

	recordID, err := s.compliance.OpenRecord(ctx, lead.ID, lead.OrganizationID)
	if err != nil {
		// The lead is signed either way; a failed ledger open is surfaced in
		// the log and the record can be opened again through the funding API.
		s.log.Error("compliance_record_open_failed", "lead_id", lead.ID.String(), "error", err.Error())
	} else {
		s.appendHistory(ctx, lead, actor, "compliance_record_opened", "Compliance record opened",
			"", map[string]any{"recordId": recordID.String()})
	}

	s.appendHistory(ctx, lead, actor, "funding_file_validated", "Funding file validated",
		fmt.Sprintf("%d dossier documents", count), nil)
	s.publishSigned(ctx, lead)
	return lead, nil
}

func (s *Service) publishSigned(ctx context.Context, lead domain.Lead) {
	financingType := ""
	if lead.Financing != nil {
		financingType = string(lead.Financing.Type)
	}
	s.bus.Publish(ctx, events.LeadSigned{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        lead.ID,
		TenantID:      lead.OrganizationID,
		FinancingType: financingType,
	})
}
