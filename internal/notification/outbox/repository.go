package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// maxAttempts is the delivery budget per message. A message that fails this
// many times stays failed and needs manual requeueing.
const maxAttempts = 5

const errRepoNotConfigured = "outbox repository not configured"

// Message is a queued notification awaiting delivery. Payload carries the
// template data as JSON so the dispatcher can render without re-reading the
// source aggregate.
type Message struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	LeadID         uuid.UUID
	Kind           string
	Recipient      string
	Payload        json.RawMessage
	RunAt          time.Time
	Status         Status
	Attempts       int
}

type InsertParams struct {
	OrganizationID uuid.UUID
	LeadID         uuid.UUID
	Kind           string
	Recipient      string
	Payload        any
	RunAt          time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, p InsertParams) (uuid.UUID, error) {
	if r == nil || r.pool == nil {
		return uuid.Nil, errors.New(errRepoNotConfigured)
	}
	if p.OrganizationID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("organizationId is required")
	}
	if p.Kind == "" {
		return uuid.Nil, fmt.Errorf("kind is required")
	}
	if p.Recipient == "" {
		return uuid.Nil, fmt.Errorf("recipient is required")
	}
	if p.RunAt.IsZero() {
		p.RunAt = time.Now().UTC()
	}

	payloadBytes, err := json.Marshal(p.Payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal payload: %w", err)
	}

	var id uuid.UUID
	err = r.pool.QueryRow(ctx,
		`INSERT INTO notification_outbox (organization_id, lead_id, kind, recipient, payload, run_at, status)
		 VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		 RETURNING id`,
		p.OrganizationID, p.LeadID, p.Kind, p.Recipient, payloadBytes, p.RunAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Message, error) {
	if r == nil || r.pool == nil {
		return Message{}, errors.New(errRepoNotConfigured)
	}

	var msg Message
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT id, organization_id, lead_id, kind, recipient, payload, run_at, status, attempts
		 FROM notification_outbox
		 WHERE id = $1`,
		id,
	).Scan(&msg.ID, &msg.OrganizationID, &msg.LeadID, &msg.Kind, &msg.Recipient, &msg.Payload, &msg.RunAt, &status, &msg.Attempts)
	if err != nil {
		return Message{}, err
	}
	msg.Status = Status(status)
	return msg, nil
}

// ClaimDue atomically flips due pending messages to processing and returns
// them. SKIP LOCKED lets concurrent dispatcher workers claim disjoint batches.
func (r *Repository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New(errRepoNotConfigured)
	}
	if limit < 1 {
		limit = 50
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `WITH cte AS (
		SELECT id
		FROM notification_outbox
		WHERE status = 'pending' AND run_at <= $1
		ORDER BY run_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	)
	UPDATE notification_outbox o
	SET status = 'processing', attempts = attempts + 1, updated_at = now()
	FROM cte
	WHERE o.id = cte.id
	RETURNING o.id, o.organization_id, o.lead_id, o.kind, o.recipient, o.payload, o.run_at, o.status, o.attempts`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Message
	for rows.Next() {
		var msg Message
		var status string
		if err := rows.Scan(&msg.ID, &msg.OrganizationID, &msg.LeadID, &msg.Kind, &msg.Recipient, &msg.Payload, &msg.RunAt, &status, &msg.Attempts); err != nil {
			return nil, err
		}
		msg.Status = Status(status)
		results = append(results, msg)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Repository) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'succeeded', last_error = NULL, updated_at = now()
		 WHERE id = $1`,
		id,
	)
	return err
}

// MarkFailed records the delivery error. Messages under the attempt budget go
// back to pending with a linear backoff on run_at; the rest stay failed.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	if attempts < maxAttempts {
		backoff := time.Duration(attempts) * time.Minute
		_, err := r.pool.Exec(ctx,
			`UPDATE notification_outbox
			 SET status = 'pending', last_error = $2, run_at = now() + $3, updated_at = now()
			 WHERE id = $1`,
			id, lastError, backoff,
		)
		return err
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'failed', last_error = $2, updated_at = now()
		 WHERE id = $1`,
		id, lastError,
	)
	return err
}
