package ingest

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/rawblock/isa-sentinel/internal/transport/api"
	"github.com/rawblock/isa-sentinel/pkg/models"
)

// Log is a historical, ordered record of events, e.g. a write-ahead
// log or an object-store export, used to rebuild or verify a state
// independently of live traffic.
type Log interface {
	// Events returns every recorded event in fold order. A real
	// implementation streams rather than buffers; this interface keeps
	// the contract simple. The only implementation this package ships is
	// the in-memory MemoryLog.
	Events(ctx context.Context) ([]models.EventEnvelope, error)
}

// ReplayProgress reports a Replayer's progress for the API to expose.
type ReplayProgress struct {
	IsRunning bool  `json:"isRunning"`
	Replayed  int64 `json:"replayed"`
	Failed    int64 `json:"failed"`
}

// Replayer re-folds a historical event log into a live state, e.g. to
// rebuild a state after a cold start or to verify that a recorded log
// reproduces an expected final state.
type Replayer struct {
	handler   *api.Handler
	replayed  atomic.Int64
	failed    atomic.Int64
	isRunning atomic.Bool
}

// NewReplayer wires a Replayer against handler's live state.
func NewReplayer(handler *api.Handler) *Replayer {
	return &Replayer{handler: handler}
}

// Progress returns the replay's current counters.
func (r *Replayer) Progress() ReplayProgress {
	return ReplayProgress{
		IsRunning: r.isRunning.Load(),
		Replayed:  r.replayed.Load(),
		Failed:    r.failed.Load(),
	}
}

// Replay folds every event in log, in order, into the live state.
// Malformed events are skipped and counted rather than aborting the
// whole replay, since a single corrupt record in an otherwise-valid
// historical log should not block recovery of the rest.
func (r *Replayer) Replay(ctx context.Context, src Log) error {
	if r.isRunning.Load() {
		return fmt.Errorf("ingest: a replay is already running")
	}
	r.isRunning.Store(true)
	r.replayed.Store(0)
	r.failed.Store(0)
	defer r.isRunning.Store(false)

	events, err := src.Events(ctx)
	if err != nil {
		return fmt.Errorf("ingest: failed to read replay log: %w", err)
	}

	log.Printf("ingest: starting replay of %d events", len(events))
	for _, ev := range events {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		event, err := hex.DecodeString(ev.EventHex)
		if err != nil {
			r.failed.Add(1)
			continue
		}
		var ent []byte
		if ev.EntropyHex != "" {
			ent, err = hex.DecodeString(ev.EntropyHex)
			if err != nil {
				r.failed.Add(1)
				continue
			}
		}

		r.handler.FoldAndEvaluate(ev.Dimension, event, ent, ev.DeltaT)
		r.replayed.Add(1)
	}

	log.Printf("ingest: replay complete — %d folded, %d skipped", r.replayed.Load(), r.failed.Load())
	return nil
}

// MemoryLog is an in-memory Log, useful for tests and for replaying a
// log already materialised by a caller (e.g. fetched from object
// storage ahead of time).
type MemoryLog struct {
	events []models.EventEnvelope
}

// NewMemoryLog wraps events as a Log.
func NewMemoryLog(events []models.EventEnvelope) *MemoryLog {
	return &MemoryLog{events: events}
}

func (m *MemoryLog) Events(ctx context.Context) ([]models.EventEnvelope, error) {
	return m.events, nil
}
