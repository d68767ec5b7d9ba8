package repository

import (
	"context"

	"trainhub_backend/internal/funding/domain"

	"github.com/google/uuid"
)

// ComplianceRepository is the persistence contract the funding service works
// against. The pgx implementation lives in this package; tests substitute an
// in-memory fake.
type ComplianceRepository interface {
	Create(ctx context.Context, record *domain.Record) (domain.Record, error)
	GetByID(ctx context.Context, id, tenantID uuid.UUID) (domain.Record, error)
	GetByLeadID(ctx context.Context, leadID, tenantID uuid.UUID) (domain.Record, error)
	List(ctx context.Context, tenantID uuid.UUID, stage *domain.Stage, limit, offset int) ([]domain.Record, error)
	Save(ctx context.Context, record *domain.Record, expectedStage domain.Stage) error
}

var _ ComplianceRepository = (*Repository)(nil)
