package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rawblock/isa-sentinel/pkg/models"
)

// HTTPSource polls a configured HTTP endpoint for pending events,
// expecting a JSON array of models.EventEnvelope on every call —
// the feed is responsible for not re-delivering events it already
// returned.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource builds an HTTPSource against url, using a client with a
// bounded per-request timeout so one slow feed cannot stall a whole
// poll tick indefinitely.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Poll fetches and decodes the pending-events array from the feed.
func (s *HTTPSource) Poll(ctx context.Context) ([]models.EventEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("ingest: building request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ingest: polling feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ingest: feed returned status %d", resp.StatusCode)
	}

	var events []models.EventEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("ingest: decoding feed response: %w", err)
	}
	return events, nil
}
