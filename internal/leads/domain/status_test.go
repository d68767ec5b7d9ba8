package domain

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusProspect, StatusProspection, true},
		{StatusProspect, StatusContacted, true},
		{StatusProspection, StatusContacted, true},
		{StatusContacted, StatusQualified, true},
		{StatusContacted, StatusMeetingScheduled, true},
		{StatusQualified, StatusMeetingScheduled, true},
		{StatusMeetingScheduled, StatusQualificationDecision, true},
		{StatusQualificationDecision, StatusFinancingPending, true},
		{StatusFinancingPending, StatusOfferPending, true},
		{StatusFinancingPending, StatusFundingReview, true},
		{StatusOfferPending, StatusPaymentInProgress, true},
		{StatusPaymentInProgress, StatusSigned, true},
		{StatusFundingReview, StatusSigned, true},

		// Side exits reachable from any non-terminal status.
		{StatusProspect, StatusDisqualified, true},
		{StatusFinancingPending, StatusNoAnswer, true},
		{StatusPaymentInProgress, StatusDisqualified, true},

		// No skipping forward.
		{StatusProspect, StatusQualified, false},
		{StatusContacted, StatusFinancingPending, false},
		{StatusOfferPending, StatusSigned, false},

		// No moving backwards through the main line.
		{StatusQualified, StatusProspect, false},
		{StatusFinancingPending, StatusContacted, false},

		// Terminal statuses never transition, not even to side exits.
		{StatusSigned, StatusDisqualified, false},
		{StatusDisqualified, StatusContacted, false},
		{StatusNoAnswer, StatusDisqualified, false},
	}

	for _, tc := range tests {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, status := range []Status{StatusSigned, StatusDisqualified, StatusNoAnswer} {
		if !IsTerminal(status) {
			t.Errorf("IsTerminal(%s) = false, want true", status)
		}
	}
	for _, status := range []Status{StatusProspect, StatusContacted, StatusFundingReview, StatusPaymentInProgress} {
		if IsTerminal(status) {
			t.Errorf("IsTerminal(%s) = true, want false", status)
		}
	}
}

func TestValidateSalesStage(t *testing.T) {
	tests := []struct {
		status   Status
		stage    SalesStage
		wantFail bool
	}{
		{StatusProspect, SalesStageNew, false},
		{StatusContacted, SalesStageNurturing, false},
		{StatusQualified, SalesStageEngaged, false},
		{StatusFinancingPending, SalesStageEngaged, true},
		{StatusSigned, SalesStageNew, true},
		{StatusContacted, SalesStage("Bogus"), true},
	}

	for _, tc := range tests {
		reason := ValidateSalesStage(tc.status, tc.stage)
		if tc.wantFail && reason == "" {
			t.Errorf("ValidateSalesStage(%s, %s) should have returned a reason", tc.status, tc.stage)
		}
		if !tc.wantFail && reason != "" {
			t.Errorf("ValidateSalesStage(%s, %s) unexpected reason: %s", tc.status, tc.stage, reason)
		}
	}
}
