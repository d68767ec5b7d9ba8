package domain

import (
	"fmt"
	"time"

	"trainhub_backend/platform/apperr"

	"github.com/google/uuid"
)

// Record is the funding-compliance ledger for one training engagement. The
// stage index is monotonically non-decreasing, each milestone timestamp is
// written exactly once, and the invoiced flag follows the final stage.
type Record struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	LeadID         uuid.UUID
	CurrentStage   Stage
	Milestones     map[Stage]time.Time
	Invoiced       bool
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewRecord opens a ledger at RECEIVED with its first milestone stamped.
func NewRecord(leadID, organizationID uuid.UUID, now time.Time) *Record {
	return &Record{
		LeadID:         leadID,
		OrganizationID: organizationID,
		CurrentStage:   StageReceived,
		Milestones:     map[Stage]time.Time{StageReceived: now},
	}
}

// Advance moves the ledger exactly one stage forward. Any other target —
// skipping ahead, re-entering the current stage, or moving backwards — fails
// with an illegal transition and leaves the record unchanged.
func (r *Record) Advance(target Stage, now time.Time) *apperr.Error {
	if !IsKnownStage(target) {
		return apperr.InvalidArgument(fmt.Sprintf("unknown compliance stage %q", target))
	}

	next, ok := Next(r.CurrentStage)
	if !ok {
		return apperr.IllegalTransition(fmt.Sprintf("record is already at the final stage %s", r.CurrentStage))
	}
	if target != next {
		return apperr.IllegalTransition(fmt.Sprintf("cannot advance from %s to %s; next stage is %s",
			r.CurrentStage, target, next)).
			WithDetails(map[string]string{
				"currentStage": string(r.CurrentStage),
				"nextStage":    string(next),
			})
	}

	if r.Milestones == nil {
		r.Milestones = make(map[Stage]time.Time)
	}
	// A milestone is stamped exactly once; the transition table above makes
	// re-stamping unreachable, this guards direct misuse.
	if _, stamped := r.Milestones[target]; stamped {
		return apperr.IllegalTransition(fmt.Sprintf("stage %s was already reached", target))
	}

	r.CurrentStage = target
	r.Milestones[target] = now
	if target == StageInvoiced {
		r.Invoiced = true
	}
	r.UpdatedAt = now
	return nil
}

// IsBillable reports whether the engagement may be invoiced: only once the
// funding body has validated the delivered service (or the invoice already
// went out). Self-funded engagements never have a Record, and are handled by
// the caller.
func (r *Record) IsBillable() bool {
	return r.CurrentStage == StageServiceValidated || r.CurrentStage == StageInvoiced
}
