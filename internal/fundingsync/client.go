// Package fundingsync polls the external funding body's API for stage reports
// and folds them into the compliance ledger. The funding body is the source of
// truth for its own lifecycle; this package only relays what it reports, and
// the ledger's own rules decide whether a report is applicable.
package fundingsync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"trainhub_backend/platform/config"

	"github.com/google/uuid"
)

// StageReport is one funding-body status line for a dossier.
type StageReport struct {
	LeadID         uuid.UUID `json:"leadId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Stage          string    `json:"stage"`
	ReportedAt     time.Time `json:"reportedAt"`
}

type reportsEnvelope struct {
	Reports []StageReport `json:"reports"`
}

// Client fetches stage reports from the funding body's REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(cfg config.FundingSyncConfig) *Client {
	return &Client{
		baseURL: cfg.GetFundingSyncBaseURL(),
		apiKey:  cfg.GetFundingSyncAPIKey(),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchReports returns all stage reports issued since the given time.
func (c *Client) FetchReports(ctx context.Context, since time.Time) ([]StageReport, error) {
	endpoint, err := url.Parse(c.baseURL + "/v1/stage-reports")
	if err != nil {
		return nil, fmt.Errorf("fundingsync endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("fundingsync request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fundingsync fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("fundingsync fetch: status %d: %s", resp.StatusCode, string(body))
	}

	var envelope reportsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("fundingsync decode: %w", err)
	}
	return envelope.Reports, nil
}
