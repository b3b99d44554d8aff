package api

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/rawblock/isa-sentinel/pkg/models"
)

// WebhookEndpoint is a registered external receiver for safety-relevant
// verdicts (SIEM, paging system, Slack).
type WebhookEndpoint struct {
	Name    string
	URL     string
	Enabled bool
	Headers map[string]string
}

// VerdictBroadcaster fans a policy evaluation result out to connected
// WebSocket clients and, for safety-relevant violations, to registered
// webhooks. It keeps a bounded in-memory history, readable through
// RecentVerdicts; no route serves that history. This is orchestration
// only — it never mutates a state or
// applies a convergence vector.
type VerdictBroadcaster struct {
	mu             sync.RWMutex
	webhooks       []WebhookEndpoint
	recentVerdicts []models.VerdictReport
	maxHistory     int
	httpClient     *http.Client
	hub            *Hub
}

// NewVerdictBroadcaster wires a broadcaster to hub, which may be nil in
// tests or for a REST-only deployment.
func NewVerdictBroadcaster(hub *Hub) *VerdictBroadcaster {
	return &VerdictBroadcaster{
		maxHistory: 1000,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		hub:        hub,
	}
}

// RegisterWebhook adds a webhook endpoint that receives every
// safety-relevant verdict.
func (b *VerdictBroadcaster) RegisterWebhook(name, url string, headers map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.webhooks = append(b.webhooks, WebhookEndpoint{Name: name, URL: url, Enabled: true, Headers: headers})
	log.Printf("[verdict] registered webhook: %s -> %s", name, url)
}

// RemoveWebhook removes a webhook by name.
func (b *VerdictBroadcaster) RemoveWebhook(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, wh := range b.webhooks {
		if wh.Name == name {
			b.webhooks = append(b.webhooks[:i], b.webhooks[i+1:]...)
			return
		}
	}
}

// Emit records report in history, pushes it over the WebSocket hub, and
// — if safetyRelevant is true — fires every enabled webhook
// asynchronously.
func (b *VerdictBroadcaster) Emit(report models.VerdictReport, safetyRelevant bool) {
	if report.Timestamp.IsZero() {
		report.Timestamp = time.Now()
	}

	b.mu.Lock()
	b.recentVerdicts = append(b.recentVerdicts, report)
	if len(b.recentVerdicts) > b.maxHistory {
		b.recentVerdicts = b.recentVerdicts[len(b.recentVerdicts)-b.maxHistory:]
	}
	webhooks := make([]WebhookEndpoint, len(b.webhooks))
	copy(webhooks, b.webhooks)
	b.mu.Unlock()

	if b.hub != nil {
		if payload, err := json.Marshal(report); err == nil {
			b.hub.Broadcast(payload)
		} else {
			log.Printf("[verdict] failed to marshal report for broadcast: %v", err)
		}
	}

	if !safetyRelevant {
		return
	}
	for _, wh := range webhooks {
		if !wh.Enabled {
			continue
		}
		go b.sendWebhook(wh, report)
	}
}

func (b *VerdictBroadcaster) sendWebhook(wh WebhookEndpoint, report models.VerdictReport) {
	body, err := json.Marshal(report)
	if err != nil {
		log.Printf("[verdict] failed to marshal webhook payload for %s: %v", wh.Name, err)
		return
	}
	req, err := http.NewRequest(http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		log.Printf("[verdict] failed to build webhook request for %s: %v", wh.Name, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range wh.Headers {
		req.Header.Set(k, v)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		log.Printf("[verdict] webhook %s delivery failed: %v", wh.Name, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("[verdict] webhook %s returned status %d", wh.Name, resp.StatusCode)
	}
}

// RecentVerdicts returns up to n of the most recent verdicts, newest
// last.
func (b *VerdictBroadcaster) RecentVerdicts(n int) []models.VerdictReport {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n <= 0 || n > len(b.recentVerdicts) {
		n = len(b.recentVerdicts)
	}
	out := make([]models.VerdictReport, n)
	copy(out, b.recentVerdicts[len(b.recentVerdicts)-n:])
	return out
}
