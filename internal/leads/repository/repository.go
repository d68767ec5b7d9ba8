package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"trainhub_backend/internal/leads/domain"
	"trainhub_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `
	id, organization_id, first_name, last_name, email, phone,
	status, sales_stage, score, call_attempts, follow_up_count,
	financing, last_response_at, metadata, version, created_at, updated_at`

type CreateLeadParams struct {
	OrganizationID uuid.UUID
	FirstName      string
	LastName       string
	Email          *string
	Phone          string
	SalesStage     *domain.SalesStage
	Metadata       map[string]any
}

// Create inserts a new lead at the start of the pipeline.
func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (domain.Lead, error) {
	metadataJSON, err := json.Marshal(orEmptyMetadata(params.Metadata))
	if err != nil {
		return domain.Lead{}, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			organization_id, first_name, last_name, email, phone,
			status, sales_stage, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING`+leadColumns,
		params.OrganizationID, params.FirstName, params.LastName, params.Email, params.Phone,
		string(domain.StatusProspect), salesStagePtr(params.SalesStage), metadataJSON,
	)
	return scanLead(row)
}

// GetByID loads a lead scoped to its organization.
func (r *Repository) GetByID(ctx context.Context, id, tenantID uuid.UUID) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+leadColumns+`
		FROM leads
		WHERE id = $1 AND organization_id = $2
	`, id, tenantID)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, err
}

// GetByPhone loads a lead by its normalized phone number, used for duplicate
// detection at intake.
func (r *Repository) GetByPhone(ctx context.Context, phone string, tenantID uuid.UUID) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+leadColumns+`
		FROM leads
		WHERE phone = $1 AND organization_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, phone, tenantID)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, err
}

// List returns leads for an organization ordered for triage: highest score
// first, freshest response breaking ties.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, status *domain.Status, limit, offset int) ([]domain.Lead, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT` + leadColumns + `
		FROM leads
		WHERE organization_id = $1`
	args := []any{tenantID}
	if status != nil {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, string(*status))
	}
	query += fmt.Sprintf(" ORDER BY score DESC, last_response_at DESC NULLS LAST, created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// Save persists the aggregate under an optimistic compare-and-swap on the
// version column. When another writer got in first, no row matches and the
// caller receives a Conflict to retry from a fresh read; the stale state is
// never blindly reapplied.
func (r *Repository) Save(ctx context.Context, lead *domain.Lead) error {
	financingJSON, err := marshalFinancing(lead.Financing)
	if err != nil {
		return err
	}
	metadataJSON, err := json.Marshal(orEmptyMetadata(lead.Metadata))
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			first_name = $3,
			last_name = $4,
			email = $5,
			phone = $6,
			status = $7,
			sales_stage = $8,
			score = $9,
			call_attempts = $10,
			follow_up_count = $11,
			financing = $12,
			last_response_at = $13,
			metadata = $14,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND organization_id = $2 AND version = $15
	`,
		lead.ID, lead.OrganizationID,
		lead.FirstName, lead.LastName, lead.Email, lead.Phone,
		string(lead.Status), salesStagePtr(lead.SalesStage),
		lead.Score, lead.CallAttempts, lead.FollowUpCount,
		financingJSON, lead.LastResponseAt, metadataJSON,
		lead.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("lead was modified concurrently")
	}
	lead.Version++
	return nil
}

// UpdateScore persists a recomputed triage score with its factor breakdown.
// Scoring is pure and idempotent, so a concurrent overwrite is harmless: the
// last write reflects the latest known signals. No version bump.
func (r *Repository) UpdateScore(ctx context.Context, leadID, tenantID uuid.UUID, score int, factorsJSON []byte, version string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			score = $3,
			score_factors = $4,
			score_version = $5,
			score_updated_at = NOW()
		WHERE id = $1 AND organization_id = $2
	`, leadID, tenantID, score, factorsJSON, version)
	return err
}

// ListStalled returns callable leads whose last activity predates the cutoff,
// in insertion order. Used by the follow-up sweep.
func (r *Repository) ListStalled(ctx context.Context, cutoff time.Time, limit int) ([]domain.Lead, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		SELECT`+leadColumns+`
		FROM leads
		WHERE status = ANY($1) AND updated_at < $2
		ORDER BY updated_at ASC
		LIMIT $3
	`, []string{
		string(domain.StatusProspect),
		string(domain.StatusProspection),
		string(domain.StatusContacted),
		string(domain.StatusQualified),
	}, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		lead          domain.Lead
		status        string
		salesStage    *string
		financingJSON []byte
		metadataJSON  []byte
	)

	err := row.Scan(
		&lead.ID, &lead.OrganizationID, &lead.FirstName, &lead.LastName, &lead.Email, &lead.Phone,
		&status, &salesStage, &lead.Score, &lead.CallAttempts, &lead.FollowUpCount,
		&financingJSON, &lead.LastResponseAt, &metadataJSON, &lead.Version, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}

	lead.Status = domain.Status(status)
	if salesStage != nil {
		stage := domain.SalesStage(*salesStage)
		lead.SalesStage = &stage
	}
	if lead.Financing, err = unmarshalFinancing(financingJSON); err != nil {
		return domain.Lead{}, err
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &lead.Metadata); err != nil {
			return domain.Lead{}, err
		}
	}
	return lead, nil
}

func marshalFinancing(decision *domain.FinancingDecision) ([]byte, error) {
	if decision == nil {
		return nil, nil
	}
	return json.Marshal(decision)
}

func unmarshalFinancing(raw []byte) (*domain.FinancingDecision, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var decision domain.FinancingDecision
	if err := json.Unmarshal(raw, &decision); err != nil {
		return nil, err
	}
	return &decision, nil
}

func salesStagePtr(stage *domain.SalesStage) *string {
	if stage == nil {
		return nil
	}
	s := string(*stage)
	return &s
}

func orEmptyMetadata(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
