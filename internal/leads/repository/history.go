package repository

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HistorySummaryMaxLen is the canonical maximum character length for history
// entry summaries. Callers should use TruncateSummary when populating
// AppendHistoryParams.Summary.
const HistorySummaryMaxLen = 400

// TruncateSummary trims text to maxLen, appending "..." on overflow.
// Returns nil for blank input.
func TruncateSummary(text string, maxLen int) *string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if len(trimmed) > maxLen {
		trimmed = trimmed[:maxLen] + "..."
	}
	return &trimmed
}

// HistoryEntry is one row of the lead's append-only activity log. Entries are
// never updated or deleted; the current aggregate is always read from the
// leads table, never reconstructed by scanning history for mutations.
type HistoryEntry struct {
	ID             uuid.UUID
	LeadID         uuid.UUID
	OrganizationID uuid.UUID
	ActorType      string
	ActorName      string
	EventType      string
	Title          string
	Summary        *string
	Metadata       map[string]any
	CreatedAt      time.Time
}

type AppendHistoryParams struct {
	LeadID         uuid.UUID
	OrganizationID uuid.UUID
	ActorType      string
	ActorName      string
	EventType      string
	Title          string
	Summary        *string
	Metadata       map[string]any
}

func (r *Repository) AppendHistory(ctx context.Context, params AppendHistoryParams) (HistoryEntry, error) {
	metadataJSON, err := json.Marshal(params.Metadata)
	if err != nil {
		return HistoryEntry{}, err
	}

	var entry HistoryEntry
	// metadata is excluded from RETURNING: we already hold params.Metadata as
	// a Go value, so re-scanning the stored JSONB would only add a redundant
	// json.Unmarshal on every insert.
	err = r.pool.QueryRow(ctx, `
		INSERT INTO lead_history (
			lead_id,
			organization_id,
			actor_type,
			actor_name,
			event_type,
			title,
			summary,
			metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, lead_id, organization_id, actor_type, actor_name, event_type, title, summary, created_at
	`, params.LeadID, params.OrganizationID, params.ActorType, params.ActorName, params.EventType, params.Title, params.Summary, metadataJSON).Scan(
		&entry.ID,
		&entry.LeadID,
		&entry.OrganizationID,
		&entry.ActorType,
		&entry.ActorName,
		&entry.EventType,
		&entry.Title,
		&entry.Summary,
		&entry.CreatedAt,
	)
	if err != nil {
		return HistoryEntry{}, err
	}

	entry.Metadata = params.Metadata
	return entry, nil
}

// ListHistory returns the full activity log in insertion order.
func (r *Repository) ListHistory(ctx context.Context, leadID, tenantID uuid.UUID) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, organization_id, actor_type, actor_name, event_type, title, summary, metadata, created_at
		FROM lead_history
		WHERE lead_id = $1 AND organization_id = $2
		ORDER BY created_at ASC, id ASC
	`, leadID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0)
	for rows.Next() {
		var entry HistoryEntry
		var metadataJSON []byte
		if err := rows.Scan(
			&entry.ID, &entry.LeadID, &entry.OrganizationID,
			&entry.ActorType, &entry.ActorName, &entry.EventType,
			&entry.Title, &entry.Summary, &metadataJSON, &entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
