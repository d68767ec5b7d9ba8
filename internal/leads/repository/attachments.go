package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Attachment is a funding-dossier document stored in object storage. The row
// only carries metadata; the bytes live in the configured bucket.
type Attachment struct {
	ID             uuid.UUID
	LeadID         uuid.UUID
	OrganizationID uuid.UUID
	FileName       string
	ContentType    string
	SizeBytes      int64
	ObjectKey      string
	UploadedBy     uuid.UUID
	CreatedAt      time.Time
}

type InsertAttachmentParams struct {
	LeadID         uuid.UUID
	OrganizationID uuid.UUID
	FileName       string
	ContentType    string
	SizeBytes      int64
	ObjectKey      string
	UploadedBy     uuid.UUID
}

func (r *Repository) InsertAttachment(ctx context.Context, params InsertAttachmentParams) (Attachment, error) {
	var att Attachment
	err := r.pool.QueryRow(ctx, `
		INSERT INTO lead_attachments (
			lead_id, organization_id, file_name, content_type, size_bytes, object_key, uploaded_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, lead_id, organization_id, file_name, content_type, size_bytes, object_key, uploaded_by, created_at
	`, params.LeadID, params.OrganizationID, params.FileName, params.ContentType, params.SizeBytes, params.ObjectKey, params.UploadedBy).Scan(
		&att.ID, &att.LeadID, &att.OrganizationID, &att.FileName, &att.ContentType,
		&att.SizeBytes, &att.ObjectKey, &att.UploadedBy, &att.CreatedAt,
	)
	return att, err
}

func (r *Repository) ListAttachments(ctx context.Context, leadID, tenantID uuid.UUID) ([]Attachment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, organization_id, file_name, content_type, size_bytes, object_key, uploaded_by, created_at
		FROM lead_attachments
		WHERE lead_id = $1 AND organization_id = $2
		ORDER BY created_at ASC
	`, leadID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attachments := make([]Attachment, 0)
	for rows.Next() {
		var att Attachment
		if err := rows.Scan(
			&att.ID, &att.LeadID, &att.OrganizationID, &att.FileName, &att.ContentType,
			&att.SizeBytes, &att.ObjectKey, &att.UploadedBy, &att.CreatedAt,
		); err != nil {
			return nil, err
		}
		attachments = append(attachments, att)
	}
	return attachments, rows.Err()
}

// CountAttachments returns how many dossier documents a lead has.
func (r *Repository) CountAttachments(ctx context.Context, leadID, tenantID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM lead_attachments WHERE lead_id = $1 AND organization_id = $2
	`, leadID, tenantID).Scan(&count)
	return count, err
}
