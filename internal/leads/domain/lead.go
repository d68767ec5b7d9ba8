package domain

import (
	"fmt"
	"time"

	"trainhub_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QualificationDecision is the outcome of a qualification meeting.
type QualificationDecision string

const (
	DecisionProceed  QualificationDecision = "PROCEED"
	DecisionPostpone QualificationDecision = "POSTPONE"
	DecisionAbandon  QualificationDecision = "ABANDON"
)

// Lead is the aggregate root of the conversion pipeline. All mutations go
// through its methods; the orchestrator persists the result under a
// per-aggregate compare-and-swap keyed by Version.
type Lead struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	FirstName      string
	LastName       string
	Email          *string
	Phone          string
	Status         Status
	SalesStage     *SalesStage
	Score          int
	CallAttempts   int
	FollowUpCount  int
	Financing      *FinancingDecision
	LastResponseAt *time.Time
	Metadata       map[string]any
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ChangeStatus applies a manual status change, validated against the
// transition table.
func (l *Lead) ChangeStatus(to Status) *apperr.Error {
	if !IsKnownStatus(to) {
		return apperr.InvalidArgument(fmt.Sprintf("unknown status %q", to))
	}
	if !CanTransition(l.Status, to) {
		return apperr.InvalidState(fmt.Sprintf("cannot move lead from %s to %s", l.Status, to))
	}
	l.setStatus(to)
	return nil
}

// QualifyMeeting records the outcome of a qualification meeting. A honored
// meeting advances to the qualification-decision status; a no-show sends the
// lead back to a callable status and counts as a call attempt.
func (l *Lead) QualifyMeeting(honored bool) *apperr.Error {
	if l.Status != StatusMeetingScheduled {
		return apperr.InvalidState(fmt.Sprintf("lead is not awaiting a meeting outcome (status %s)", l.Status))
	}
	if honored {
		l.setStatus(StatusQualificationDecision)
		return nil
	}
	l.CallAttempts++
	l.setStatus(StatusContacted)
	return nil
}

// DecideQualification applies the agent's decision after a honored meeting.
func (l *Lead) DecideQualification(decision QualificationDecision) *apperr.Error {
	if l.Status != StatusQualificationDecision {
		return apperr.InvalidState(fmt.Sprintf("lead is not awaiting a qualification decision (status %s)", l.Status))
	}
	switch decision {
	case DecisionProceed:
		l.setStatus(StatusFinancingPending)
	case DecisionPostpone:
		// Re-schedule without penalty: no attempt counted.
		l.setStatus(StatusMeetingScheduled)
	case DecisionAbandon:
		l.setStatus(StatusDisqualified)
	default:
		return apperr.InvalidArgument(fmt.Sprintf("unknown qualification decision %q", decision))
	}
	return nil
}

// RegisterFollowUp advances the follow-up cadence counter. Past the threshold
// the lead is auto-closed as No_Answer; otherwise the call is a recorded
// attempt and nothing else changes. Returns true when the lead was closed.
func (l *Lead) RegisterFollowUp(threshold int) (bool, *apperr.Error) {
	if !IsCallable(l.Status) {
		return false, apperr.InvalidState(fmt.Sprintf("follow-up does not apply to status %s", l.Status))
	}
	l.FollowUpCount++
	l.CallAttempts++
	if threshold > 0 && l.FollowUpCount >= threshold {
		l.setStatus(StatusNoAnswer)
		return true, nil
	}
	l.touch()
	return false, nil
}

// ChooseFinancing selects the financing branch. The choice is write-once:
// repeating it, even with the same type, is an invalid argument.
func (l *Lead) ChooseFinancing(t FinancingType, agreedTotal decimal.Decimal, minDepositPercent int) *apperr.Error {
	if l.Financing != nil {
		return apperr.InvalidArgument(fmt.Sprintf("financing already chosen (%s)", l.Financing.Type))
	}
	if l.Status != StatusFinancingPending {
		return apperr.InvalidState(fmt.Sprintf("lead is not awaiting a financing choice (status %s)", l.Status))
	}
	switch t {
	case FinancingSelfFunded:
		if agreedTotal.LessThanOrEqual(decimal.Zero) {
			return apperr.Validation("agreed total must be positive")
		}
		if minDepositPercent < 0 || minDepositPercent > 100 {
			return apperr.Validation("minimum deposit percent must be between 0 and 100")
		}
		l.Financing = NewSelfFundedDecision(agreedTotal, minDepositPercent)
		l.setStatus(StatusOfferPending)
	case FinancingThirdParty:
		l.Financing = NewThirdPartyDecision()
		l.setStatus(StatusFundingReview)
	default:
		return apperr.InvalidArgument(fmt.Sprintf("unknown financing type %q", t))
	}
	return nil
}

// selfFundedPlan returns the self-funded variant or an error when the lead is
// on the other branch (or has not chosen yet).
func (l *Lead) selfFundedPlan() (*SelfFundedPlan, *apperr.Error) {
	if l.Financing == nil {
		return nil, apperr.InvalidState("financing has not been chosen")
	}
	if l.Financing.Type != FinancingSelfFunded {
		return nil, apperr.InvalidState("lead is third-party funded; self-funded operations do not apply")
	}
	return l.Financing.SelfFunded, nil
}

// thirdPartyPlan returns the third-party variant or an error when the lead is
// on the other branch (or has not chosen yet).
func (l *Lead) thirdPartyPlan() (*ThirdPartyPlan, *apperr.Error) {
	if l.Financing == nil {
		return nil, apperr.InvalidState("financing has not been chosen")
	}
	if l.Financing.Type != FinancingThirdParty {
		return nil, apperr.InvalidState("lead is self-funded; third-party operations do not apply")
	}
	return l.Financing.ThirdParty, nil
}

// ValidateOffer checks the proposed deposit against the agreed total. The
// boundary is inclusive: a deposit of exactly agreedTotal * percent / 100
// passes. The accepted deposit counts toward the cumulative total, so on
// success the lead moves to Payment_In_Progress, or straight to Signed when
// the deposit alone covers the agreed total.
func (l *Lead) ValidateOffer(amount decimal.Decimal, minDepositPercent int) *apperr.Error {
	plan, derr := l.selfFundedPlan()
	if derr != nil {
		return derr
	}
	if plan.OfferValidated {
		return apperr.InvalidState("offer already validated")
	}
	if l.Status != StatusOfferPending {
		return apperr.InvalidState(fmt.Sprintf("lead is not awaiting offer validation (status %s)", l.Status))
	}
	if minDepositPercent < 0 || minDepositPercent > 100 {
		return apperr.Validation("minimum deposit percent must be between 0 and 100")
	}
	floor := plan.DepositFloor(minDepositPercent)
	if amount.LessThan(floor) {
		return apperr.Validation(fmt.Sprintf("insufficient deposit: %s offered, %s required", amount, floor)).
			WithDetails(map[string]string{
				"offered":  amount.String(),
				"required": floor.String(),
			})
	}
	if amount.GreaterThan(plan.AgreedTotal) {
		return apperr.Validation(fmt.Sprintf("deposit of %s exceeds the agreed total of %s", amount, plan.AgreedTotal))
	}
	plan.MinDepositPercent = minDepositPercent
	plan.OfferValidated = true
	plan.AmountPaid = plan.AmountPaid.Add(amount)
	if plan.AmountPaid.GreaterThanOrEqual(plan.AgreedTotal) {
		l.setStatus(StatusSigned)
		return nil
	}
	l.setStatus(StatusPaymentInProgress)
	return nil
}

// RecordPayment adds a payment to the cumulative total. Payments before
// deposit validation, non-positive payments, and overpayments are rejected.
// When the cumulative total reaches the agreed total the lead auto-advances
// to Signed; the return value reports whether that happened.
func (l *Lead) RecordPayment(amount decimal.Decimal) (bool, *apperr.Error) {
	plan, derr := l.selfFundedPlan()
	if derr != nil {
		return false, derr
	}
	if !plan.OfferValidated {
		return false, apperr.InvalidState("deposit has not been validated yet")
	}
	if l.Status != StatusPaymentInProgress {
		return false, apperr.InvalidState(fmt.Sprintf("lead is not accepting payments (status %s)", l.Status))
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return false, apperr.Validation("payment amount must be positive")
	}
	newTotal := plan.AmountPaid.Add(amount)
	if newTotal.GreaterThan(plan.AgreedTotal) {
		return false, apperr.Validation(fmt.Sprintf("payment of %s would exceed the agreed total of %s (already paid %s)",
			amount, plan.AgreedTotal, plan.AmountPaid))
	}
	plan.AmountPaid = newTotal
	if plan.AmountPaid.GreaterThanOrEqual(plan.AgreedTotal) {
		l.setStatus(StatusSigned)
		return true, nil
	}
	l.touch()
	return false, nil
}

// SetFundingAccountStatus records whether the lead's external funding account
// is usable. Downstream third-party gates stay blocked while inactive.
func (l *Lead) SetFundingAccountStatus(active bool) *apperr.Error {
	plan, derr := l.thirdPartyPlan()
	if derr != nil {
		return derr
	}
	if l.Status != StatusFundingReview {
		return apperr.InvalidState(fmt.Sprintf("lead is not in funding review (status %s)", l.Status))
	}
	plan.FundingAccountActive = active
	l.touch()
	return nil
}

// ValidatePlacementTest records a placement-test score. A sub-minimum score
// flags the lead for remediation without disqualifying it; the gate simply
// stays closed. Returns whether the test passed.
func (l *Lead) ValidatePlacementTest(score, minimum int) (bool, *apperr.Error) {
	plan, derr := l.thirdPartyPlan()
	if derr != nil {
		return false, derr
	}
	if l.Status != StatusFundingReview {
		return false, apperr.InvalidState(fmt.Sprintf("lead is not in funding review (status %s)", l.Status))
	}
	if !plan.FundingAccountActive {
		return false, apperr.InvalidState("funding account is inactive")
	}
	if score < 0 || score > 100 {
		return false, apperr.Validation("placement test score must be between 0 and 100")
	}
	s := score
	plan.PlacementTestScore = &s
	plan.PlacementTestPassed = score >= minimum
	if !plan.PlacementTestPassed {
		if l.Metadata == nil {
			l.Metadata = map[string]any{}
		}
		l.Metadata["remediation_required"] = true
	}
	l.touch()
	return plan.PlacementTestPassed, nil
}

// ValidateFundingFile marks the funding-body dossier as accepted. All prior
// gates must be open; on success the lead advances to Signed and the caller
// creates the funding-compliance record.
func (l *Lead) ValidateFundingFile() *apperr.Error {
	plan, derr := l.thirdPartyPlan()
	if derr != nil {
		return derr
	}
	if l.Status != StatusFundingReview {
		return apperr.InvalidState(fmt.Sprintf("lead is not in funding review (status %s)", l.Status))
	}
	if !plan.FundingAccountActive {
		return apperr.InvalidState("funding account is inactive")
	}
	if !plan.PlacementTestPassed {
		return apperr.InvalidState("placement test has not been passed")
	}
	if plan.FundingFileValidated {
		return apperr.InvalidState("funding file already validated")
	}
	plan.FundingFileValidated = true
	l.setStatus(StatusSigned)
	return nil
}

// Reopen brings a disqualified or unreachable lead back into the pipeline,
// resetting attempt counters. Signed leads are never reopened.
func (l *Lead) Reopen() *apperr.Error {
	if l.Status != StatusDisqualified && l.Status != StatusNoAnswer {
		return apperr.InvalidState(fmt.Sprintf("only disqualified or unreachable leads can be reopened (status %s)", l.Status))
	}
	l.CallAttempts = 0
	l.FollowUpCount = 0
	l.setStatus(StatusContacted)
	return nil
}

// ChangeSalesStage attaches or replaces the optional sub-classification.
func (l *Lead) ChangeSalesStage(stage SalesStage) *apperr.Error {
	if reason := ValidateSalesStage(l.Status, stage); reason != "" {
		return apperr.Validation(reason)
	}
	s := stage
	l.SalesStage = &s
	l.touch()
	return nil
}

func (l *Lead) setStatus(to Status) {
	l.Status = to
	if !IsCallable(to) {
		l.SalesStage = nil
	}
	l.touch()
}

func (l *Lead) touch() {
	l.UpdatedAt = time.Now().UTC()
}
