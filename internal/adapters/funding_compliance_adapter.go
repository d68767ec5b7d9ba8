// Package adapters contains thin glue types that connect bounded contexts
// without creating package dependencies between them.
package adapters

import (
	"context"

	fundingservice "trainhub_backend/internal/funding/service"
	leadsservice "trainhub_backend/internal/leads/service"

	"github.com/google/uuid"
)

// FundingComplianceAdapter exposes the funding module to the leads
// orchestrator through the CompliancePort seam.
type FundingComplianceAdapter struct {
	svc *fundingservice.Service
}

func NewFundingComplianceAdapter(svc *fundingservice.Service) *FundingComplianceAdapter {
	return &FundingComplianceAdapter{svc: svc}
}

func (a *FundingComplianceAdapter) OpenRecord(ctx context.Context, leadID, tenantID uuid.UUID) (uuid.UUID, error) {
	record, err := a.svc.Open(ctx, leadID, tenantID)
	if err != nil {
		return uuid.Nil, err
	}
	return record.ID, nil
}

func (a *FundingComplianceAdapter) IsBillableLead(ctx context.Context, leadID, tenantID uuid.UUID) (bool, error) {
	return a.svc.IsBillableLead(ctx, leadID, tenantID)
}

var _ leadsservice.CompliancePort = (*FundingComplianceAdapter)(nil)
