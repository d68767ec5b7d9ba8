package domain

import (
	"testing"
	"time"

	"trainhub_backend/platform/apperr"

	"github.com/google/uuid"
)

func TestAdvanceFullLifecycle(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	record := NewRecord(uuid.New(), uuid.New(), now)

	stages := Stages()
	for i, target := range stages[1:] {
		stamp := now.Add(time.Duration(i+1) * time.Hour)
		if err := record.Advance(target, stamp); err != nil {
			t.Fatalf("Advance(%s) failed: %v", target, err)
		}
		if record.CurrentStage != target {
			t.Fatalf("expected stage %s, got %s", target, record.CurrentStage)
		}
		if got := record.Milestones[target]; !got.Equal(stamp) {
			t.Fatalf("milestone for %s = %v, want %v", target, got, stamp)
		}
	}

	if !record.Invoiced {
		t.Fatal("expected invoiced flag after reaching INVOICED")
	}

	// Recorded history is strictly increasing: one stamp per stage, in order.
	if len(record.Milestones) != len(stages) {
		t.Fatalf("expected %d milestones, got %d", len(stages), len(record.Milestones))
	}
	for i := 1; i < len(stages); i++ {
		if !record.Milestones[stages[i]].After(record.Milestones[stages[i-1]]) {
			t.Fatalf("milestones out of order between %s and %s", stages[i-1], stages[i])
		}
	}
}

func TestAdvanceRejectsSkipAndReversal(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		target Stage
	}{
		{"skip ahead", StageAccepted},
		{"re-enter current", StageReceived},
		{"unreachable final", StageInvoiced},
	}

	for _, tc := range tests {
		record := NewRecord(uuid.New(), uuid.New(), now)
		err := record.Advance(tc.target, now.Add(time.Hour))
		if err == nil {
			t.Fatalf("%s: expected Advance(%s) from RECEIVED to fail", tc.name, tc.target)
		}
		if err.Kind != apperr.KindIllegalTransition {
			t.Fatalf("%s: expected illegal transition, got kind %v", tc.name, err.Kind)
		}
		if record.CurrentStage != StageReceived {
			t.Fatalf("%s: failed advance must leave state unchanged, got %s", tc.name, record.CurrentStage)
		}
		if len(record.Milestones) != 1 {
			t.Fatalf("%s: failed advance must not stamp milestones, got %d", tc.name, len(record.Milestones))
		}
	}

	record := NewRecord(uuid.New(), uuid.New(), now)
	if err := record.Advance(Stage("SHIPPED"), now); err == nil || err.Kind != apperr.KindInvalidArgument {
		t.Fatal("expected unknown stage to fail with invalid argument")
	}
}

func TestAdvanceMilestoneImmutable(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	record := NewRecord(uuid.New(), uuid.New(), now)

	if err := record.Advance(StagePending, now.Add(time.Hour)); err != nil {
		t.Fatalf("Advance(PENDING) failed: %v", err)
	}
	first := record.Milestones[StagePending]

	// Re-advancing past the same stage is rejected, not overwritten.
	if err := record.Advance(StagePending, now.Add(2*time.Hour)); err == nil {
		t.Fatal("expected second Advance(PENDING) to fail")
	}
	if got := record.Milestones[StagePending]; !got.Equal(first) {
		t.Fatalf("milestone was overwritten: %v -> %v", first, got)
	}
}

func TestAdvanceFinalStageStops(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	record := NewRecord(uuid.New(), uuid.New(), now)
	for _, target := range Stages()[1:] {
		if err := record.Advance(target, now.Add(time.Hour)); err != nil {
			t.Fatalf("Advance(%s) failed: %v", target, err)
		}
	}

	if err := record.Advance(StageInvoiced, now.Add(2*time.Hour)); err == nil || err.Kind != apperr.KindIllegalTransition {
		t.Fatal("expected advance past the final stage to fail")
	}
}

func TestIsBillableGate(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	record := NewRecord(uuid.New(), uuid.New(), now)

	billable := map[Stage]bool{
		StageServiceValidated: true,
		StageInvoiced:         true,
	}

	if record.IsBillable() {
		t.Fatal("RECEIVED must not be billable")
	}
	for _, target := range Stages()[1:] {
		if err := record.Advance(target, now.Add(time.Hour)); err != nil {
			t.Fatalf("Advance(%s) failed: %v", target, err)
		}
		if got := record.IsBillable(); got != billable[target] {
			t.Errorf("IsBillable at %s = %v, want %v", target, got, billable[target])
		}
	}
}

func TestStageOrderHelpers(t *testing.T) {
	if Index(StageReceived) != 0 || Index(StageInvoiced) != 7 {
		t.Fatal("stage indices out of order")
	}
	if Index(Stage("NOPE")) != -1 {
		t.Fatal("unknown stage must have index -1")
	}
	if next, ok := Next(StageServiceValidated); !ok || next != StageInvoiced {
		t.Fatalf("Next(SERVICE_VALIDATED) = %s, %v", next, ok)
	}
	if _, ok := Next(StageInvoiced); ok {
		t.Fatal("INVOICED must have no successor")
	}
}
