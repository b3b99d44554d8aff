// Package store persists recovery audit records and periodic state
// snapshots to Postgres via pgx, the teacher's persistence stack.
package store

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rawblock/isa-sentinel/internal/audit"
	"github.com/rawblock/isa-sentinel/internal/ring"
	"github.com/rawblock/isa-sentinel/internal/serialize"
)

// Store wraps a pgx connection pool for the sentinel's persistence
// needs: audit records and state snapshots.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against connStr and verifies it with a ping.
func Connect(ctx context.Context, connStr string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("store: unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("store: ping failed: %w", err)
	}
	log.Println("store: connected to PostgreSQL")
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS recovery_audit (
	id                 TEXT PRIMARY KEY,
	occurred_at        TIMESTAMPTZ NOT NULL,
	pre_state_vector   TEXT NOT NULL,
	convergence_vector TEXT NOT NULL,
	post_state_vector  TEXT NOT NULL,
	reason             TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS state_snapshot (
	id       BIGSERIAL PRIMARY KEY,
	taken_at TIMESTAMPTZ NOT NULL,
	blob     BYTEA NOT NULL
);
`

// InitSchema creates the tables this store needs if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("store: failed to apply schema: %w", err)
	}
	log.Println("store: schema initialized")
	return nil
}

// SaveRecoveryAudit persists one recovery audit record.
func (s *Store) SaveRecoveryAudit(ctx context.Context, rec *audit.Record) error {
	sql := `INSERT INTO recovery_audit (id, occurred_at, pre_state_vector, convergence_vector, post_state_vector, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`
	_, err := s.pool.Exec(ctx, sql,
		rec.ID,
		rec.Timestamp,
		encodeVector(rec.PreStateVector),
		encodeVector(rec.ConvergenceVector),
		encodeVector(rec.PostStateVector),
		rec.Reason,
	)
	if err != nil {
		return fmt.Errorf("store: failed to insert recovery_audit: %w", err)
	}
	return nil
}

// SaveStateSnapshot persists a point-in-time state vector as a
// versioned, tamper-evident blob via internal/serialize — the same
// wire format a caller would use to export or replicate a snapshot
// outside the database.
func (s *Store) SaveStateSnapshot(ctx context.Context, takenAt time.Time, snapshot []ring.Element, counters []uint64) error {
	payload := serialize.EncodeFixed(serialize.CurrentVersion, snapshot, counters)
	blob := serialize.WrapEnvelope(payload)

	sql := `INSERT INTO state_snapshot (taken_at, blob) VALUES ($1, $2)`
	if _, err := s.pool.Exec(ctx, sql, takenAt, blob); err != nil {
		return fmt.Errorf("store: failed to insert state_snapshot: %w", err)
	}
	return nil
}

// LoadLatestStateSnapshot retrieves and decodes the most recently
// persisted state snapshot for an n-axis fixed deployment. Returns
// (nil, nil, time.Time{}, nil) if no snapshot has ever been saved.
func (s *Store) LoadLatestStateSnapshot(ctx context.Context, n int) ([]ring.Element, []uint64, time.Time, error) {
	var takenAt time.Time
	var blob []byte
	sql := `SELECT taken_at, blob FROM state_snapshot ORDER BY id DESC LIMIT 1`
	err := s.pool.QueryRow(ctx, sql).Scan(&takenAt, &blob)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, time.Time{}, nil
		}
		return nil, nil, time.Time{}, fmt.Errorf("store: failed to query state_snapshot: %w", err)
	}

	payload, err := serialize.UnwrapEnvelope(blob)
	if err != nil {
		return nil, nil, time.Time{}, fmt.Errorf("store: stored snapshot failed integrity check: %w", err)
	}
	_, snapshot, counters, err := serialize.DecodeFixed(payload, n)
	if err != nil {
		return nil, nil, time.Time{}, fmt.Errorf("store: stored snapshot is malformed: %w", err)
	}
	return snapshot, counters, takenAt, nil
}

func encodeVector(v []ring.Element) string {
	out := make([]byte, 0, len(v)*65)
	for i, e := range v {
		if i > 0 {
			out = append(out, ',')
		}
		b := e.Bytes()
		out = append(out, []byte(hex.EncodeToString(b[:]))...)
	}
	return string(out)
}
