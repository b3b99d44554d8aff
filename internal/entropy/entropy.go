// Package entropy is the external collaborator the core deliberately
// excludes: a source of random bytes and Δt values for callers feeding
// events into an axis fold. The core never reads the clock or generates
// randomness itself — this package does both, ambiently, on its behalf.
package entropy

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"
)

// Source produces entropy bytes and delta-t values for a caller
// assembling a fold call. Safe for concurrent use.
type Source struct {
	mu   sync.Mutex
	last time.Time
}

// NewSource returns a Source anchored to the current monotonic clock
// reading.
func NewSource() *Source {
	return &Source{last: time.Now()}
}

// Bytes returns n cryptographically random bytes, read from
// crypto/rand. It is the caller's responsibility to zero the returned
// slice once it has been folded into an axis, if it must not linger in
// memory.
func (s *Source) Bytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("entropy: reading random bytes: %w", err)
	}
	return buf, nil
}

// DeltaT returns the number of nanoseconds elapsed since the previous
// call to DeltaT (or since NewSource, on the first call), as the
// caller's opaque Δt for a fold. Advancing the internal clock on every
// call is itself the Source's only stateful behaviour.
func (s *Source) DeltaT() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	delta := now.Sub(s.last)
	s.last = now
	if delta < 0 {
		return 0
	}
	return uint64(delta.Nanoseconds())
}

// Zero overwrites b in place. Intended for entropy byte slices once
// they have been consumed by a fold and are no longer needed.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
