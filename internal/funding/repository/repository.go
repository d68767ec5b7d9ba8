package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"trainhub_backend/internal/funding/domain"
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

const recordColumns = `
	id, organization_id, lead_id, current_stage, milestones, invoiced,
	version, created_at, updated_at`

// Create opens a new compliance record. The lead_id carries a unique
// constraint, so a second record for the same lead surfaces as a conflict.
func (r *Repository) Create(ctx context.Context, record *domain.Record) (domain.Record, error) {
	milestonesJSON, err := marshalMilestones(record.Milestones)
	if err != nil {
		return domain.Record{}, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO funding_compliance_records (
			organization_id, lead_id, current_stage, milestones, invoiced
		)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (lead_id) DO NOTHING
		RETURNING`+recordColumns,
		record.OrganizationID, record.LeadID, string(record.CurrentStage), milestonesJSON, record.Invoiced,
	)

	created, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Record{}, apperr.Conflict("a compliance record already exists for this lead")
	}
	return created, err
}

// GetByID loads a compliance record scoped to its organization.
func (r *Repository) GetByID(ctx context.Context, id, tenantID uuid.UUID) (domain.Record, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+recordColumns+`
		FROM funding_compliance_records
		WHERE id = $1 AND organization_id = $2
	`, id, tenantID)

	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Record{}, apperr.NotFound("compliance record not found")
	}
	return record, err
}

// GetByLeadID loads the compliance record attached to a lead.
func (r *Repository) GetByLeadID(ctx context.Context, leadID, tenantID uuid.UUID) (domain.Record, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+recordColumns+`
		FROM funding_compliance_records
		WHERE lead_id = $1 AND organization_id = $2
	`, leadID, tenantID)

	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Record{}, apperr.NotFound("compliance record not found")
	}
	return record, err
}

// List returns an organization's compliance records, most recently updated
// first, optionally filtered by current stage.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, stage *domain.Stage, limit, offset int) ([]domain.Record, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT` + recordColumns + `
		FROM funding_compliance_records
		WHERE organization_id = $1`
	args := []any{tenantID}
	if stage != nil {
		query += " AND current_stage = $2"
		args = append(args, string(*stage))
	}
	query += fmt.Sprintf(" ORDER BY updated_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Save persists an advanced record. The WHERE clause pins the stage the
// caller read, so a concurrent advance makes the update match zero rows and
// the caller gets a conflict to retry from a fresh read.
func (r *Repository) Save(ctx context.Context, record *domain.Record, expectedStage domain.Stage) error {
	milestonesJSON, err := marshalMilestones(record.Milestones)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE funding_compliance_records
		SET current_stage = $4,
		    milestones = $5,
		    invoiced = $6,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND organization_id = $2 AND current_stage = $3
	`,
		record.ID, record.OrganizationID, string(expectedStage),
		string(record.CurrentStage), milestonesJSON, record.Invoiced,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("compliance record was modified concurrently")
	}
	record.Version++
	return nil
}

func scanRecord(row pgx.Row) (domain.Record, error) {
	var (
		record         domain.Record
		stage          string
		milestonesJSON []byte
	)
	err := row.Scan(
		&record.ID, &record.OrganizationID, &record.LeadID, &stage, &milestonesJSON,
		&record.Invoiced, &record.Version, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return domain.Record{}, err
	}
	record.CurrentStage = domain.Stage(stage)
	record.Milestones, err = unmarshalMilestones(milestonesJSON)
	return record, err
}

func marshalMilestones(milestones map[domain.Stage]time.Time) ([]byte, error) {
	out := make(map[string]time.Time, len(milestones))
	for stage, at := range milestones {
		out[string(stage)] = at
	}
	return json.Marshal(out)
}

func unmarshalMilestones(data []byte) (map[domain.Stage]time.Time, error) {
	if len(data) == 0 {
		return map[domain.Stage]time.Time{}, nil
	}
	var raw map[string]time.Time
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(map[domain.Stage]time.Time, len(raw))
	for stage, at := range raw {
		out[domain.Stage(stage)] = at
	}
	return out, nil
}
