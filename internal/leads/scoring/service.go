package scoring

import (
	"context"
	"encoding/json"
	"time"

	"trainhub_backend/internal/leads/repository"
	"trainhub_backend/platform/logger"

	"github.com/google/uuid"
)

// Result holds scoring output and factor details.
type Result struct {
	Score       int
	FactorsJSON []byte
	Version     string
	UpdatedAt   time.Time
}

// Service recomputes and persists lead scores.
type Service struct {
	repo    repository.LeadsRepository
	weights Weights
	log     *logger.Logger
}

// New creates a new scoring service.
func New(repo repository.LeadsRepository, weights Weights, log *logger.Logger) *Service {
	return &Service{repo: repo, weights: weights, log: log}
}

// Recalculate recomputes the triage score from the lead's signal history and
// persists the snapshot. Safe to call from concurrent writers: the compute is
// pure and the persisted value always reflects some consistent read.
func (s *Service) Recalculate(ctx context.Context, leadID, tenantID uuid.UUID) (*Result, error) {
	lead, err := s.repo.GetByID(ctx, leadID, tenantID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListSignals(ctx, leadID, tenantID)
	if err != nil {
		return nil, err
	}

	signals := make([]Signal, 0, len(rows))
	for _, row := range rows {
		signals = append(signals, Signal{
			Type:       SignalType(row.Type),
			OccurredAt: row.OccurredAt,
		})
	}

	now := time.Now().UTC()
	score, factors := ComputeScoreWithFactors(s.weights, signals, lead.LastResponseAt, now)

	factorsJSON, err := json.Marshal(factors)
	if err != nil {
		if s.log != nil {
			s.log.Error("lead score factors marshal failed", "error", err)
		}
		factorsJSON = nil
	}

	if err := s.repo.UpdateScore(ctx, leadID, tenantID, score, factorsJSON, scoreVersion); err != nil {
		return nil, err
	}

	return &Result{
		Score:       score,
		FactorsJSON: factorsJSON,
		Version:     scoreVersion,
		UpdatedAt:   now,
	}, nil
}
