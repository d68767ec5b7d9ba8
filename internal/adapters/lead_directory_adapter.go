package adapters

import (
	"context"
	"strings"

	leadsservice "trainhub_backend/internal/leads/service"
	"trainhub_backend/internal/notification"

	"github.com/google/uuid"
)

// LeadDirectoryAdapter exposes lead display info to the notification module
// without giving it access to the full leads service.
type LeadDirectoryAdapter struct {
	leads *leadsservice.Service
}

func NewLeadDirectoryAdapter(leads *leadsservice.Service) *LeadDirectoryAdapter {
	return &LeadDirectoryAdapter{leads: leads}
}

func (a *LeadDirectoryAdapter) LeadInfo(ctx context.Context, leadID, organizationID uuid.UUID) (notification.LeadInfo, error) {
	lead, err := a.leads.GetByID(ctx, leadID, organizationID)
	if err != nil {
		return notification.LeadInfo{}, err
	}
	return notification.LeadInfo{
		Name:  strings.TrimSpace(lead.FirstName + " " + lead.LastName),
		Phone: lead.Phone,
	}, nil
}

var _ notification.LeadDirectory = (*LeadDirectoryAdapter)(nil)
