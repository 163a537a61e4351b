package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/ports"
)

// Client notifies a rebuild hook (static site builder, CDN purge) after a
// batch that produced new output.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.ReportNotifier = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

type payload struct {
	Event  string             `json:"event"`
	Report domain.BatchReport `json:"report"`
}

// PublishReport posts the batch report as JSON. Batches without newly
// enriched documents are not announced.
func (c *Client) PublishReport(ctx context.Context, report domain.BatchReport) error {
	if c.endpoint == "" || len(report.Enriched) == 0 {
		return nil
	}
	return c.post(ctx, payload{Event: "batch.enriched", Report: report})
}

func (c *Client) post(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}
	return nil
}
