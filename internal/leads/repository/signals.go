package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SignalRow is one persisted behavioral signal. The type is kept as a plain
// string here; the scoring package owns the taxonomy.
type SignalRow struct {
	ID             uuid.UUID
	LeadID         uuid.UUID
	OrganizationID uuid.UUID
	Type           string
	OccurredAt     time.Time
	CreatedAt      time.Time
}

type InsertSignalParams struct {
	LeadID         uuid.UUID
	OrganizationID uuid.UUID
	Type           string
	OccurredAt     time.Time
}

// InsertSignal appends a behavioral signal to the lead's history.
func (r *Repository) InsertSignal(ctx context.Context, params InsertSignalParams) (SignalRow, error) {
	var row SignalRow
	err := r.pool.QueryRow(ctx, `
		INSERT INTO lead_signals (lead_id, organization_id, signal_type, occurred_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, lead_id, organization_id, signal_type, occurred_at, created_at
	`, params.LeadID, params.OrganizationID, params.Type, params.OccurredAt).Scan(
		&row.ID, &row.LeadID, &row.OrganizationID, &row.Type, &row.OccurredAt, &row.CreatedAt,
	)
	return row, err
}

// TouchLastResponse moves the lead's last-response marker forward. Backdated
// signals never pull it backwards.
func (r *Repository) TouchLastResponse(ctx context.Context, leadID, tenantID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET last_response_at = GREATEST(COALESCE(last_response_at, $3), $3), updated_at = now()
		WHERE id = $1 AND organization_id = $2
	`, leadID, tenantID, at)
	return err
}

// ListSignals returns the lead's signal history in event order.
func (r *Repository) ListSignals(ctx context.Context, leadID, tenantID uuid.UUID) ([]SignalRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, organization_id, signal_type, occurred_at, created_at
		FROM lead_signals
		WHERE lead_id = $1 AND organization_id = $2
		ORDER BY occurred_at ASC, id ASC
	`, leadID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	signals := make([]SignalRow, 0)
	for rows.Next() {
		var row SignalRow
		if err := rows.Scan(&row.ID, &row.LeadID, &row.OrganizationID, &row.Type, &row.OccurredAt, &row.CreatedAt); err != nil {
			return nil, err
		}
		signals = append(signals, row)
	}
	return signals, rows.Err()
}
