// Package ingest drives events into a live integrity state from two
// sources: a live polling loop over an external feed, and a replay of a
// previously recorded event log for state reconstruction or audit
// verification.
package ingest

import (
	"context"
	"encoding/hex"
	"log"
	"time"

	"github.com/rawblock/isa-sentinel/internal/entropy"
	"github.com/rawblock/isa-sentinel/internal/transport/api"
	"github.com/rawblock/isa-sentinel/pkg/models"
)

// Source is an external feed of pending events, e.g. a device telemetry
// queue or a message broker subscription. Poll returns the events ready
// to be folded since the last call; it must not block indefinitely.
type Source interface {
	Poll(ctx context.Context) ([]models.EventEnvelope, error)
}

// maxPerTick caps how many pending events a single poll iteration folds,
// so one oversized backlog cannot starve the state's caller-visible
// latency.
const maxPerTick = 200

// Poller periodically drains a Source and folds the events it returns
// into the live state via the shared Handler path, at most maxPerTick per
// tick; events beyond that cap are logged and dropped. REST-originated
// and feed-originated events produce identical verdicts and broadcasts.
type Poller struct {
	source  Source
	handler *api.Handler
	entropy *entropy.Source
}

// NewPoller wires a Poller. entropySrc may be nil if every event from
// source already carries its own entropy.
func NewPoller(source Source, handler *api.Handler, entropySrc *entropy.Source) *Poller {
	return &Poller{source: source, handler: handler, entropy: entropySrc}
}

// Run polls at the given interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	log.Println("ingest: starting poller")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("ingest: stopping poller")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	events, err := p.source.Poll(ctx)
	if err != nil {
		log.Printf("ingest: poll error: %v", err)
		return
	}

	n := len(events)
	if n > maxPerTick {
		log.Printf("ingest: dropping %d events beyond the per-tick cap", n-maxPerTick)
		n = maxPerTick
	}

	for _, ev := range events[:n] {
		event, err := hex.DecodeString(ev.EventHex)
		if err != nil {
			log.Printf("ingest: skipping event with malformed eventHex: %v", err)
			continue
		}
		var ent []byte
		if ev.EntropyHex != "" {
			ent, err = hex.DecodeString(ev.EntropyHex)
			if err != nil {
				log.Printf("ingest: skipping event with malformed entropyHex: %v", err)
				continue
			}
		} else if p.entropy != nil {
			ent, _ = p.entropy.Bytes(16)
		}

		deltaT := ev.DeltaT
		if deltaT == 0 && p.entropy != nil {
			deltaT = p.entropy.DeltaT()
		}

		p.handler.FoldAndEvaluate(ev.Dimension, event, ent, deltaT)
	}
}
