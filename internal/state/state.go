// Package state implements the N-dimensional integrity state: an ordered
// sequence of axis accumulators, all derived from one master seed under
// distinct dimension tags, plus the fixed-N and dynamic-N constructions
// described by the accumulator's data model.
package state

import (
	"errors"
	"sync"

	"github.com/rawblock/isa-sentinel/internal/axis"
	"github.com/rawblock/isa-sentinel/internal/kdf"
	"github.com/rawblock/isa-sentinel/internal/ring"
)

// dimInfoPrefix is the fixed ASCII prefix concatenated with the 16-byte
// little-endian dimension tag to form the info argument when deriving an
// axis's initial state from the master seed.
const dimInfoPrefix = "isa.dim"

// ErrEmptyState is returned by RemoveDimension on a zero-dimension state.
var ErrEmptyState = errors.New("state: cannot remove a dimension from an empty state")

// dimensionTag returns the little-endian 16-byte encoding of axis index j
// (high 8 bytes zero), the canonical dimension identifier.
func dimensionTag(j int) [16]byte {
	var tag [16]byte
	v := uint64(j)
	for i := 0; i < 8; i++ {
		tag[i] = byte(v >> (8 * i))
	}
	return tag
}

// deriveAxisInitial computes the deterministic initial state of axis j
// from the master seed: derive(salt=master_seed, info="isa.dim" || tag_j).
func deriveAxisInitial(masterSeed [32]byte, j int) ring.Element {
	tag := dimensionTag(j)
	info := append([]byte(dimInfoPrefix), tag[:]...)
	derived := kdf.Derive(masterSeed, info)
	return ring.FromBytes(derived[:])
}

// State is an ordered sequence of axis accumulators. It is not
// thread-safe for mutation — wrap a State in a Locked for cross-goroutine
// use, per the accumulator's single-threaded-per-object concurrency model.
type State struct {
	axes []*axis.Accumulator
}

// NewFixed constructs a fixed-N integrity state: N ≥ 1 axes, each derived
// from masterSeed via the PRF using distinct dimension tags. The master
// seed is not retained — a fixed-N state can never grow, so there is
// nothing further to derive from it. masterSeed is zeroed before
// returning.
func NewFixed(masterSeed [32]byte, n int) *State {
	if n < 1 {
		panic("state: NewFixed requires n >= 1")
	}
	s := &State{axes: make([]*axis.Accumulator, n)}
	for j := 0; j < n; j++ {
		s.axes[j] = axis.New(deriveAxisInitial(masterSeed, j))
	}
	zeroSeed(&masterSeed)
	return s
}

// NewFromSnapshot reconstructs a fixed-N state at an explicit
// (snapshot, counters) pair, e.g. resuming from a persisted
// internal/serialize blob rather than re-deriving from a master seed.
// snapshot and counters must be the same nonzero length.
func NewFromSnapshot(snapshot []ring.Element, counters []uint64) *State {
	if len(snapshot) == 0 || len(snapshot) != len(counters) {
		panic("state: NewFromSnapshot requires equal nonzero-length snapshot and counters")
	}
	s := &State{axes: make([]*axis.Accumulator, len(snapshot))}
	for j := range snapshot {
		s.axes[j] = axis.NewFromState(snapshot[j], counters[j])
	}
	return s
}

// N returns the number of axes currently in the state.
func (s *State) N() int {
	return len(s.axes)
}

// Axis returns the accumulator for dimension j. Panics on an out-of-range
// index, the same contract as slice indexing — an out-of-range axis is a
// caller bug, not a core failure mode.
func (s *State) Axis(j int) *axis.Accumulator {
	return s.axes[j]
}

// Fold mixes one event into the axis addressed by dim. See
// axis.Accumulator.Fold for the per-axis contract. Folding axis j can
// never observe or alter any other axis's (state, counter) — the axis
// isolation property.
func (s *State) Fold(dim int, event, entropy []byte, deltaT uint64) {
	s.axes[dim].Fold(event, entropy, deltaT)
}

// Snapshot returns a by-value copy of every axis's current state — a
// state vector with no back-reference to the live accumulators.
func (s *State) Snapshot() []ring.Element {
	out := make([]ring.Element, len(s.axes))
	for i, a := range s.axes {
		out[i] = a.State()
	}
	return out
}

// Counters returns a by-value copy of every axis's current fold counter,
// in the same axis order as Snapshot.
func (s *State) Counters() []uint64 {
	out := make([]uint64, len(s.axes))
	for i, a := range s.axes {
		out[i] = a.Counter()
	}
	return out
}

// ApplyConvergenceVector applies a per-axis convergence constant
// directly to the state, bypassing the fold state machine and leaving
// every counter untouched. len(conv) must equal N().
func (s *State) ApplyConvergenceVector(conv []ring.Element) {
	if len(conv) != len(s.axes) {
		panic("state: convergence vector length does not match axis count")
	}
	for i, c := range conv {
		s.axes[i].ApplyConvergence(c)
	}
}

// Clone returns a deep, independent copy of the state.
func (s *State) Clone() *State {
	out := &State{axes: make([]*axis.Accumulator, len(s.axes))}
	for i, a := range s.axes {
		out.axes[i] = a.Clone()
	}
	return out
}

// Close zeroes every axis's retained state before it is discarded. It
// does not zero the master seed, because a fixed-N state never retains
// one.
func (s *State) Close() {
	for _, a := range s.axes {
		a.Zero()
	}
}

// DynamicState extends State with a retained master seed, allowing the
// axis count to grow after construction. Shrinking always drops the
// highest-indexed axis; axes below that index are never renumbered.
type DynamicState struct {
	State
	seed    [32]byte
	hasSeed bool
}

// NewDynamic constructs a dynamic-N integrity state, retaining the
// master seed so that AddDimension can derive further axes later.
func NewDynamic(masterSeed [32]byte, n int) *DynamicState {
	if n < 0 {
		panic("state: NewDynamic requires n >= 0")
	}
	ds := &DynamicState{seed: masterSeed, hasSeed: true}
	ds.axes = make([]*axis.Accumulator, n)
	for j := 0; j < n; j++ {
		ds.axes[j] = axis.New(deriveAxisInitial(masterSeed, j))
	}
	return ds
}

// AddDimension appends a fresh axis at index N using the next unused
// dimension tag, derived from the retained master seed. Returns the new
// axis's index.
func (ds *DynamicState) AddDimension() int {
	j := len(ds.axes)
	ds.axes = append(ds.axes, axis.New(deriveAxisInitial(ds.seed, j)))
	return j
}

// RemoveDimension drops the highest-indexed axis. Fails with
// ErrEmptyState if the state has zero dimensions; the audit-trail
// implications of the removal are caller-owned.
func (ds *DynamicState) RemoveDimension() error {
	if len(ds.axes) == 0 {
		return ErrEmptyState
	}
	ds.axes[len(ds.axes)-1].Zero()
	ds.axes = ds.axes[:len(ds.axes)-1]
	return nil
}

// Close zeroes every axis's state and the retained master seed.
func (ds *DynamicState) Close() {
	ds.State.Close()
	if ds.hasSeed {
		zeroSeed(&ds.seed)
		ds.hasSeed = false
	}
}

func zeroSeed(seed *[32]byte) {
	for i := range seed {
		seed[i] = 0
	}
}

// Locked guards an arbitrary mutating state object (a *State or a
// *DynamicState) behind an exclusive lock, so fold calls can be safely
// serialised across goroutines sharing one object. Read-only operations
// (Snapshot, divergence, threshold/constraint evaluation) are safe to run
// concurrently with each other on an immutable snapshot taken while
// holding the lock only long enough to copy it.
type Locked struct {
	mu    sync.Mutex
	state mutableState
}

// mutableState is the minimal surface Locked needs; both *State and
// *DynamicState satisfy it via method promotion.
type mutableState interface {
	N() int
	Fold(dim int, event, entropy []byte, deltaT uint64)
	Snapshot() []ring.Element
	Counters() []uint64
	ApplyConvergenceVector(conv []ring.Element)
}

// NewLocked wraps s for safe concurrent Fold calls.
func NewLocked(s mutableState) *Locked {
	return &Locked{state: s}
}

// Fold serialises access to the underlying state's Fold.
func (l *Locked) Fold(dim int, event, entropy []byte, deltaT uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Fold(dim, event, entropy, deltaT)
}

// Snapshot takes the lock just long enough to copy the state vector.
func (l *Locked) Snapshot() []ring.Element {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Snapshot()
}

// Counters takes the lock just long enough to copy the counter vector.
func (l *Locked) Counters() []uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Counters()
}

// ApplyConvergenceVector serialises access to the underlying state's
// ApplyConvergenceVector.
func (l *Locked) ApplyConvergenceVector(conv []ring.Element) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.ApplyConvergenceVector(conv)
}

// N returns the axis count. It does not need the lock since N never
// shrinks concurrently with a Fold in well-behaved callers, but we take
// it anyway for a consistent read on a DynamicState mid-grow.
func (l *Locked) N() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.N()
}
