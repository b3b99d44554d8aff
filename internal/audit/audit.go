// Package audit records recovery audit entries: immutable snapshots of
// a state before and after a convergence vector was applied, plus the
// human-readable reason for the intervention. It is pure bookkeeping —
// it never computes a convergence vector itself and never touches a
// live state.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rawblock/isa-sentinel/internal/ring"
)

// Record is a recovery audit record: (timestamp, pre-state vector,
// convergence vector, post-state vector, reason). Immutable once
// created — Manager never mutates a Record after Append returns it.
type Record struct {
	ID                string
	Timestamp         time.Time
	PreStateVector    []ring.Element
	ConvergenceVector []ring.Element
	PostStateVector   []ring.Element
	Reason            string
}

// Manager is a concurrent-safe append-only log of recovery audit
// records, keyed by ID, grounded on the same
// sync.RWMutex-guarded-map-of-pointers shape the teacher uses for its
// case manager.
type Manager struct {
	mu      sync.RWMutex
	records map[string]*Record
	order   []string // insertion order, for ListAll/ListSince
}

// NewManager returns an empty audit manager.
func NewManager() *Manager {
	return &Manager{records: make(map[string]*Record)}
}

// Append creates and stores a new recovery audit record. pre, converge
// and post must be the same length; Append panics otherwise, since a
// malformed audit record is a caller bug, not a recoverable condition.
func (m *Manager) Append(pre, converge, post []ring.Element, reason string) *Record {
	if len(pre) != len(converge) || len(converge) != len(post) {
		panic("audit: pre/convergence/post vectors must have equal length")
	}
	rec := &Record{
		ID:                uuid.New().String(),
		Timestamp:         time.Now(),
		PreStateVector:    cloneVector(pre),
		ConvergenceVector: cloneVector(converge),
		PostStateVector:   cloneVector(post),
		Reason:            reason,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	m.order = append(m.order, rec.ID)
	return rec
}

// Get retrieves a record by ID.
func (m *Manager) Get(id string) (*Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	return r, ok
}

// ListAll returns every record in insertion order.
func (m *Manager) ListAll() []*Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Record, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.records[id])
	}
	return out
}

// ListSince returns every record whose Timestamp is at or after since,
// in insertion order.
func (m *Manager) ListSince(since time.Time) []*Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Record
	for _, id := range m.order {
		r := m.records[id]
		if !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	return out
}

func cloneVector(v []ring.Element) []ring.Element {
	out := make([]ring.Element, len(v))
	copy(out, v)
	return out
}
