package repository

import (
	"context"
	"time"

	"trainhub_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// LeadsRepository is the persistence boundary of the leads bounded context.
// *Repository is the pgx implementation; tests substitute an in-memory fake.
type LeadsRepository interface {
	Create(ctx context.Context, params CreateLeadParams) (domain.Lead, error)
	GetByID(ctx context.Context, id, tenantID uuid.UUID) (domain.Lead, error)
	GetByPhone(ctx context.Context, phone string, tenantID uuid.UUID) (domain.Lead, error)
	List(ctx context.Context, tenantID uuid.UUID, status *domain.Status, limit, offset int) ([]domain.Lead, error)
	Save(ctx context.Context, lead *domain.Lead) error
	UpdateScore(ctx context.Context, leadID, tenantID uuid.UUID, score int, factorsJSON []byte, version string) error
	ListStalled(ctx context.Context, cutoff time.Time, limit int) ([]domain.Lead, error)

	AppendHistory(ctx context.Context, params AppendHistoryParams) (HistoryEntry, error)
	ListHistory(ctx context.Context, leadID, tenantID uuid.UUID) ([]HistoryEntry, error)

	InsertSignal(ctx context.Context, params InsertSignalParams) (SignalRow, error)
	TouchLastResponse(ctx context.Context, leadID, tenantID uuid.UUID, at time.Time) error
	ListSignals(ctx context.Context, leadID, tenantID uuid.UUID) ([]SignalRow, error)

	InsertAttachment(ctx context.Context, params InsertAttachmentParams) (Attachment, error)
	ListAttachments(ctx context.Context, leadID, tenantID uuid.UUID) ([]Attachment, error)
	CountAttachments(ctx context.Context, leadID, tenantID uuid.UUID) (int, error)
}

var _ LeadsRepository = (*Repository)(nil)
