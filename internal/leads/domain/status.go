// Package domain provides core business rules for the leads bounded context.
package domain

// Status is the primary lead status owned by the pipeline state machine.
type Status string

const (
	StatusProspect              Status = "Prospect"
	StatusProspection           Status = "Prospection"
	StatusContacted             Status = "Contacted"
	StatusQualified             Status = "Qualified"
	StatusMeetingScheduled      Status = "Meeting_Scheduled"
	StatusQualificationDecision Status = "Qualification_Decision"
	StatusFinancingPending      Status = "Financing_Pending"
	StatusOfferPending          Status = "Offer_Pending"
	StatusPaymentInProgress     Status = "Payment_In_Progress"
	StatusFundingReview         Status = "Funding_Review"
	StatusSigned                Status = "Signed"
	StatusDisqualified          Status = "Disqualified"
	StatusNoAnswer              Status = "No_Answer"
)

// SalesStage is an optional sub-classification of the early statuses, used by
// agents to organize their call lists. It never drives transitions.
type SalesStage string

const (
	SalesStageNew               SalesStage = "New"
	SalesStageAttemptingContact SalesStage = "Attempting_Contact"
	SalesStageEngaged           SalesStage = "Engaged"
	SalesStageNurturing         SalesStage = "Nurturing"
)

var knownSalesStages = map[SalesStage]struct{}{
	SalesStageNew:               {},
	SalesStageAttemptingContact: {},
	SalesStageEngaged:           {},
	SalesStageNurturing:         {},
}

// IsKnownSalesStage reports whether the stage is part of the fixed catalog.
func IsKnownSalesStage(stage SalesStage) bool {
	_, ok := knownSalesStages[stage]
	return ok
}

// statusTransitions is the forward transition table of the state machine.
// Side exits to Disqualified and No_Answer are handled separately in
// CanTransition because they are reachable from every non-terminal status.
var statusTransitions = map[Status]map[Status]bool{
	StatusProspect:              {StatusProspection: true, StatusContacted: true},
	StatusProspection:           {StatusContacted: true},
	StatusContacted:             {StatusQualified: true, StatusMeetingScheduled: true},
	StatusQualified:             {StatusMeetingScheduled: true},
	StatusMeetingScheduled:      {StatusQualificationDecision: true, StatusContacted: true},
	StatusQualificationDecision: {StatusFinancingPending: true, StatusMeetingScheduled: true},
	StatusFinancingPending:      {StatusOfferPending: true, StatusFundingReview: true},
	StatusOfferPending:          {StatusPaymentInProgress: true},
	StatusPaymentInProgress:     {StatusSigned: true},
	StatusFundingReview:         {StatusSigned: true},
	StatusSigned:                {},
	StatusDisqualified:          {},
	StatusNoAnswer:              {},
}

// terminalStatuses are statuses where the machine stops. A disqualified or
// unreachable lead can only come back through the explicit Reopen operation.
var terminalStatuses = map[Status]bool{
	StatusSigned:       true,
	StatusDisqualified: true,
	StatusNoAnswer:     true,
}

// callableStatuses are early statuses where an agent may still place calls
// and the follow-up cadence applies.
var callableStatuses = map[Status]bool{
	StatusProspect:    true,
	StatusProspection: true,
	StatusContacted:   true,
	StatusQualified:   true,
}

// IsKnownStatus reports whether the status belongs to the state machine.
func IsKnownStatus(status Status) bool {
	_, ok := statusTransitions[status]
	return ok
}

// IsTerminal reports whether no further transitions are allowed.
func IsTerminal(status Status) bool {
	return terminalStatuses[status]
}

// IsCallable reports whether the lead is in a state where outbound calls and
// the follow-up cadence apply.
func IsCallable(status Status) bool {
	return callableStatuses[status]
}

// CanTransition reports whether the state machine allows moving from one
// status to another. Disqualified and No_Answer are reachable from any
// non-terminal status.
func CanTransition(from, to Status) bool {
	if IsTerminal(from) {
		return false
	}
	if to == StatusDisqualified || to == StatusNoAnswer {
		return true
	}
	nexts, ok := statusTransitions[from]
	if !ok {
		return false
	}
	return nexts[to]
}

// ValidateSalesStage checks that a sales stage may be attached to the given
// status. Returns a non-empty reason string when the combination is invalid.
func ValidateSalesStage(status Status, stage SalesStage) string {
	if !IsKnownSalesStage(stage) {
		return "unknown sales stage"
	}
	if !IsCallable(status) {
		return "sales stage applies only to pre-qualification statuses"
	}
	return ""
}
