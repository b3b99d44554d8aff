// Package models holds the JSON-serialisable DTOs exchanged across the
// transport boundary — the wire-level shapes the REST/WebSocket layer
// accepts and returns, as distinct from the core's internal ring.Element
// and axis.Accumulator types.
package models

import "time"

// EventEnvelope is the wire-level (event_bytes, entropy_bytes, Δt,
// dimension_index) tuple accepted by the ingest layer before it is
// handed to axis.Fold. EntropyHex may be omitted by a caller that wants
// the server to draw entropy from internal/entropy on its behalf.
type EventEnvelope struct {
	Dimension  int    `json:"dimension"`
	EventHex   string `json:"eventHex"`
	EntropyHex string `json:"entropyHex,omitempty"`
	DeltaT     uint64 `json:"deltaT"`
}

// ViolationReport is the JSON projection of a policy.Violation.
type ViolationReport struct {
	Axis           int    `json:"axis"`
	Policy         string `json:"policy"`
	Strategy       string `json:"strategy"`
	SafetyRelevant bool   `json:"safetyRelevant"`
}

// ConstraintViolationReport is the JSON projection of a
// policy.ConstraintViolation.
type ConstraintViolationReport struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
}

// VerdictReport is the JSON-serialisable projection of one policy
// evaluation cycle: threshold violations, constraint violations and the
// reporting-only aggregate score, as returned by the REST API and
// pushed over the WebSocket hub.
type VerdictReport struct {
	Timestamp            time.Time                   `json:"timestamp"`
	DivergenceVectorHex  []string                     `json:"divergenceVectorHex"`
	ThresholdViolations  []ViolationReport            `json:"thresholdViolations"`
	ConstraintViolations []ConstraintViolationReport  `json:"constraintViolations"`
	AggregateScore       float64                      `json:"aggregateScore"`
}

// StateSnapshotReport is the JSON projection of State.Snapshot() plus
// its counters. No route returns it: /api/v1/divergence returns a
// VerdictReport and /api/v1/audit returns RecoveryAuditReport values.
type StateSnapshotReport struct {
	StateVectorHex []string `json:"stateVectorHex"`
	Counters       []uint64 `json:"counters"`
}

// RecoveryAuditReport is the JSON projection of an audit.Record.
type RecoveryAuditReport struct {
	ID                   string    `json:"id"`
	Timestamp            time.Time `json:"timestamp"`
	PreStateVectorHex    []string  `json:"preStateVectorHex"`
	ConvergenceVectorHex []string  `json:"convergenceVectorHex"`
	PostStateVectorHex   []string  `json:"postStateVectorHex"`
	Reason               string    `json:"reason"`
}

// QuarantineEntryReport is the JSON projection of a
// policy.QuarantineEntry.
type QuarantineEntryReport struct {
	Axis     int       `json:"axis"`
	Reason   string    `json:"reason"`
	Severity string    `json:"severity"`
	AddedAt  time.Time `json:"addedAt"`
}
