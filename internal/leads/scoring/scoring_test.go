package scoring

import (
	"testing"
	"time"
)

func testWeights() Weights {
	return Weights{
		Signal: map[SignalType]int{
			SignalPageView:        2,
			SignalFormInteraction: 10,
			SignalEmailOpen:       3,
			SignalEmailClick:      5,
			SignalPricingPageView: 15,
		},
		FreshnessBonus:  10,
		FreshnessWindow: 30 * 24 * time.Hour,
	}
}

func TestComputeScoreWeightedSum(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	signals := []Signal{
		{Type: SignalPageView, OccurredAt: now.Add(-72 * time.Hour)},
		{Type: SignalPageView, OccurredAt: now.Add(-48 * time.Hour)},
	}

	// Two page views at weight 2, no last response: exactly 4.
	if got := ComputeScore(testWeights(), signals, nil, now); got != 4 {
		t.Fatalf("ComputeScore = %d, want 4", got)
	}
}

func TestComputeScoreDeterministic(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	last := now.Add(-24 * time.Hour)
	signals := []Signal{
		{Type: SignalFormInteraction, OccurredAt: last},
		{Type: SignalEmailClick, OccurredAt: last},
	}

	first := ComputeScore(testWeights(), signals, &last, now)
	for i := 0; i < 10; i++ {
		if got := ComputeScore(testWeights(), signals, &last, now); got != first {
			t.Fatalf("ComputeScore not deterministic: %d then %d", first, got)
		}
	}
}

func TestComputeScoreBounded(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	last := now.Add(-time.Hour)

	// 20 pricing-page views at weight 15 plus the bonus overflows well past 100.
	signals := make([]Signal, 0, 20)
	for i := 0; i < 20; i++ {
		signals = append(signals, Signal{Type: SignalPricingPageView, OccurredAt: last})
	}

	score, factors := ComputeScoreWithFactors(testWeights(), signals, &last, now)
	if score != 100 {
		t.Fatalf("expected clamp to 100, got %d", score)
	}
	if factors["clamped_from"] != 310 {
		t.Fatalf("expected clamped_from 310, got %d", factors["clamped_from"])
	}

	// Negative weights clamp at the floor.
	negative := Weights{Signal: map[SignalType]int{SignalPageView: -50}}
	if got := ComputeScore(negative, []Signal{{Type: SignalPageView, OccurredAt: last}}, nil, now); got != 0 {
		t.Fatalf("expected clamp to 0, got %d", got)
	}
}

func TestComputeScoreMonotonicSignalEffect(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	weights := testWeights()

	signals := []Signal{}
	previous := ComputeScore(weights, signals, nil, now)
	for _, add := range []SignalType{SignalPageView, SignalEmailOpen, SignalEmailClick, SignalFormInteraction, SignalPricingPageView} {
		signals = append(signals, Signal{Type: add, OccurredAt: now})
		score := ComputeScore(weights, signals, nil, now)
		if score < previous {
			t.Fatalf("adding %s decreased the score: %d -> %d", add, previous, score)
		}
		previous = score
	}
}

func TestFreshnessBonusAppliesOnce(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	last := now.Add(-24 * time.Hour)

	// Many recent signals, but the bonus is a flat 10 on top of the sum.
	signals := []Signal{
		{Type: SignalPageView, OccurredAt: last},
		{Type: SignalPageView, OccurredAt: last},
		{Type: SignalPageView, OccurredAt: last},
	}

	score, factors := ComputeScoreWithFactors(testWeights(), signals, &last, now)
	if score != 16 {
		t.Fatalf("expected 3*2 + 10 = 16, got %d", score)
	}
	if factors["freshness_bonus"] != 10 {
		t.Fatalf("expected a single freshness bonus of 10, got %d", factors["freshness_bonus"])
	}
}

func TestFreshnessBonusWindow(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	weights := testWeights()

	tests := []struct {
		name string
		last time.Time
		want int
	}{
		{"inside window", now.Add(-29 * 24 * time.Hour), 10},
		{"exactly at window", now.Add(-30 * 24 * time.Hour), 10},
		{"outside window", now.Add(-31 * 24 * time.Hour), 0},
		{"in the future", now.Add(24 * time.Hour), 0},
	}

	for _, tc := range tests {
		last := tc.last
		if got := ComputeScore(weights, nil, &last, now); got != tc.want {
			t.Errorf("%s: ComputeScore = %d, want %d", tc.name, got, tc.want)
		}
	}

	// No last response at all: no bonus.
	if got := ComputeScore(weights, nil, nil, now); got != 0 {
		t.Errorf("nil lastResponseAt: ComputeScore = %d, want 0", got)
	}
}

func TestUnknownSignalTypesIgnored(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	signals := []Signal{
		{Type: SignalType("carrier_pigeon"), OccurredAt: now},
		{Type: SignalPageView, OccurredAt: now},
	}

	if got := ComputeScore(testWeights(), signals, nil, now); got != 2 {
		t.Fatalf("unknown signal types must not contribute, got %d", got)
	}
}
