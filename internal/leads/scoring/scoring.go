// Package scoring computes the 0-100 triage score used to order the
// outbound-call queue. The score is a deterministic weighted sum over a lead's
// behavioral signal history plus a freshness bonus; there is no model to train
// and no randomness, so the same inputs always produce the same score and the
// factor breakdown explains every point.
package scoring

import (
	"time"

	"trainhub_backend/platform/config"
)

const (
	// scoreVersion tracks the scoring model for debugging and analysis.
	// Bump this when changing scoring logic significantly.
	scoreVersion = "2026-v1"

	minScore = 0
	maxScore = 100
)

// SignalType identifies a behavioral event in the fixed signal taxonomy.
type SignalType string

const (
	SignalPageView        SignalType = "page_view"
	SignalFormInteraction SignalType = "form_interaction"
	SignalEmailOpen       SignalType = "email_open"
	SignalEmailClick      SignalType = "email_click"
	SignalPricingPageView SignalType = "pricing_page_view"
)

var knownSignalTypes = map[SignalType]struct{}{
	SignalPageView:        {},
	SignalFormInteraction: {},
	SignalEmailOpen:       {},
	SignalEmailClick:      {},
	SignalPricingPageView: {},
}

// IsKnownSignalType reports whether the type is part of the taxonomy.
func IsKnownSignalType(t SignalType) bool {
	_, ok := knownSignalTypes[t]
	return ok
}

// Signal is one behavioral event in a lead's history.
type Signal struct {
	Type       SignalType
	OccurredAt time.Time
}

// Weights holds the per-signal point values and the freshness bonus.
// Organizations tune these through configuration; nothing here is hard-coded.
type Weights struct {
	Signal          map[SignalType]int
	FreshnessBonus  int
	FreshnessWindow time.Duration
}

// WeightsFromConfig builds the weight table from application configuration.
// Unknown keys in the config map are ignored.
func WeightsFromConfig(cfg config.ScoringConfig) Weights {
	w := Weights{
		Signal:          make(map[SignalType]int),
		FreshnessBonus:  cfg.GetFreshnessBonus(),
		FreshnessWindow: cfg.GetFreshnessWindow(),
	}
	for name, weight := range cfg.GetSignalWeights() {
		t := SignalType(name)
		if IsKnownSignalType(t) {
			w.Signal[t] = weight
		}
	}
	return w
}

// ComputeScore sums the configured weight of every signal, adds the freshness
// bonus exactly once when the last response falls inside the window, and
// clamps the total to [0,100]. Pure and side-effect-free: it is recomputed on
// every mutating event.
func ComputeScore(weights Weights, signals []Signal, lastResponseAt *time.Time, now time.Time) int {
	score, _ := ComputeScoreWithFactors(weights, signals, lastResponseAt, now)
	return score
}

// ComputeScoreWithFactors is ComputeScore plus the per-factor breakdown that
// is persisted alongside the score for auditability.
func ComputeScoreWithFactors(weights Weights, signals []Signal, lastResponseAt *time.Time, now time.Time) (int, map[string]int) {
	factors := make(map[string]int)
	total := 0

	for _, sig := range signals {
		weight, ok := weights.Signal[sig.Type]
		if !ok {
			continue
		}
		total += weight
		factors[string(sig.Type)] += weight
	}

	if lastResponseAt != nil && weights.FreshnessWindow > 0 {
		if age := now.Sub(*lastResponseAt); age >= 0 && age <= weights.FreshnessWindow {
			total += weights.FreshnessBonus
			factors["freshness_bonus"] = weights.FreshnessBonus
		}
	}

	clamped := total
	if clamped > maxScore {
		clamped = maxScore
	}
	if clamped < minScore {
		clamped = minScore
	}
	if clamped != total {
		factors["clamped_from"] = total
	}

	return clamped, factors
}
