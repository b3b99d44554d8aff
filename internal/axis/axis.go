// Package axis implements a single-dimension integrity accumulator: a
// 256-bit ring state plus a monotonic fold counter, advanced only by
// mixing one event through the PRF.
package axis

import (
	"encoding/binary"

	"github.com/rawblock/isa-sentinel/internal/kdf"
	"github.com/rawblock/isa-sentinel/internal/ring"
)

// Accumulator holds one axis's state. The zero value is not meaningful;
// construct with New or NewFromState.
type Accumulator struct {
	state   ring.Element
	counter uint64
}

// New creates an axis with the given initial state and a zero counter.
func New(initial ring.Element) *Accumulator {
	return &Accumulator{state: initial}
}

// NewFromState reconstructs an axis at an explicit (state, counter) pair,
// e.g. when deserialising a wire-format snapshot.
func NewFromState(state ring.Element, counter uint64) *Accumulator {
	return &Accumulator{state: state, counter: counter}
}

// State returns the axis's current 32-byte ring state.
func (a *Accumulator) State() ring.Element {
	return a.state
}

// Counter returns the number of folds accepted so far (mod 2^64).
func (a *Accumulator) Counter() uint64 {
	return a.counter
}

// Clone returns an independent copy of the accumulator; mutating the
// clone never affects the receiver.
func (a *Accumulator) Clone() *Accumulator {
	return &Accumulator{state: a.state, counter: a.counter}
}

// Fold mixes one event into the axis:
//
//  1. info    = H(event || le64(Δt) || entropy)
//  2. contrib = derive(salt=state, info=info)
//  3. state   = state + contrib (mod 2^256)
//  4. counter = counter + 1 (mod 2^64)
//
// event and entropy may be empty or arbitrary bytes; Δt is opaque to the
// core and is mixed in verbatim. The operation is total: it cannot fail,
// and advances the counter exactly once even when the derived
// contribution happens to be the zero element.
func (a *Accumulator) Fold(event []byte, entropy []byte, deltaT uint64) {
	var dtBuf [8]byte
	binary.LittleEndian.PutUint64(dtBuf[:], deltaT)

	info := kdf.Hash(event, dtBuf[:], entropy)
	contribution := kdf.Derive(a.state.Bytes(), info[:])

	a.state = ring.Add(a.state, ring.FromBytes(contribution[:]))
	a.counter++
}

// ApplyConvergence adds k directly to the axis's state, bypassing the
// PRF fold state machine and leaving the counter untouched. This is the
// privileged recovery operation a caller's orchestration layer performs
// to restore a drifted axis to an honest one in a single ring addition;
// it is distinct from Fold, which always advances the counter.
func (a *Accumulator) ApplyConvergence(k ring.Element) {
	a.state = ring.Add(a.state, k)
}

// Zero overwrites the axis's retained state with the ring's additive
// identity before the accumulator is discarded. The counter is left
// alone: it carries no secret material, only a call count.
func (a *Accumulator) Zero() {
	a.state = ring.Zero
}
