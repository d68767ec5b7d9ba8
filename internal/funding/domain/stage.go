// Package domain provides the funding-compliance rules for third-party-funded
// training engagements. The compliance record mirrors the external funding
// body's lifecycle and is the sole authority on whether an engagement may be
// invoiced.
package domain

// Stage is one step of the funding body's 8-stage lifecycle.
type Stage string

const (
	StageReceived         Stage = "RECEIVED"
	StagePending          Stage = "PENDING"
	StageAccepted         Stage = "ACCEPTED"
	StageEntryDeclared    Stage = "ENTRY_DECLARED"
	StageExitDeclared     Stage = "EXIT_DECLARED"
	StageServiceDeclared  Stage = "SERVICE_DECLARED"
	StageServiceValidated Stage = "SERVICE_VALIDATED"
	StageInvoiced         Stage = "INVOICED"
)

// stageOrder is the only legal progression. Stages are strictly forward-only:
// no skipping, no re-entry, no reversal.
var stageOrder = []Stage{
	StageReceived,
	StagePending,
	StageAccepted,
	StageEntryDeclared,
	StageExitDeclared,
	StageServiceDeclared,
	StageServiceValidated,
	StageInvoiced,
}

var stageIndex = func() map[Stage]int {
	m := make(map[Stage]int, len(stageOrder))
	for i, s := range stageOrder {
		m[s] = i
	}
	return m
}()

// Stages returns the full ordered lifecycle.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// IsKnownStage reports whether the stage belongs to the lifecycle.
func IsKnownStage(s Stage) bool {
	_, ok := stageIndex[s]
	return ok
}

// Index returns the stage's position in the lifecycle, or -1 when unknown.
func Index(s Stage) int {
	i, ok := stageIndex[s]
	if !ok {
		return -1
	}
	return i
}

// Next returns the stage that follows s. The second return is false for the
// final stage and for unknown stages.
func Next(s Stage) (Stage, bool) {
	i, ok := stageIndex[s]
	if !ok || i+1 >= len(stageOrder) {
		return "", false
	}
	return stageOrder[i+1], true
}
