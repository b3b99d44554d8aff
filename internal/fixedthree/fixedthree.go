// Package fixedthree is a thin, canonical specialisation of the generic
// N-dimensional integrity state at N=3, matching the source record's
// hard-coded {finance, time, hardware} axis layout.
package fixedthree

import (
	"github.com/rawblock/isa-sentinel/internal/ring"
	"github.com/rawblock/isa-sentinel/internal/state"
)

// Canonical axis indices for the fixed-three layout.
const (
	Finance  = 0
	Time     = 1
	Hardware = 2
)

// State wraps a generic 3-dimensional state.State, exposing named
// accessors and fold methods instead of raw axis indices.
type State struct {
	*state.State
}

// New derives a fixed-three state from masterSeed using the generic
// state's N=3 construction. The seed is passed by value: state.NewFixed
// zeroes its own copy, and the caller's array is left unchanged.
func New(masterSeed [32]byte) *State {
	return &State{State: state.NewFixed(masterSeed, 3)}
}

// FinanceAxis, TimeAxis and HardwareAxis return the canonical axis index
// for their named dimension, for callers that want the index rather than
// a dedicated fold method.
func (s *State) FinanceAxis() int  { return Finance }
func (s *State) TimeAxis() int     { return Time }
func (s *State) HardwareAxis() int { return Hardware }

// FoldFinance mixes one event into the finance axis.
func (s *State) FoldFinance(event, entropy []byte, deltaT uint64) {
	s.Fold(Finance, event, entropy, deltaT)
}

// FoldTime mixes one event into the time axis.
func (s *State) FoldTime(event, entropy []byte, deltaT uint64) {
	s.Fold(Time, event, entropy, deltaT)
}

// FoldHardware mixes one event into the hardware axis.
func (s *State) FoldHardware(event, entropy []byte, deltaT uint64) {
	s.Fold(Hardware, event, entropy, deltaT)
}

// FinanceState, TimeState and HardwareState return the current ring
// state of their named axis.
func (s *State) FinanceState() ring.Element  { return s.Axis(Finance).State() }
func (s *State) TimeState() ring.Element     { return s.Axis(Time).State() }
func (s *State) HardwareState() ring.Element { return s.Axis(Hardware).State() }

// Locked wraps a fixed-three State behind state.Locked for
// cross-goroutine use, keeping the named fold methods.
type Locked struct {
	*state.Locked
}

// NewLocked wraps s for safe concurrent named folds.
func NewLocked(s *State) *Locked {
	return &Locked{Locked: state.NewLocked(s.State)}
}

// FoldFinance mixes one event into the finance axis under lock.
func (l *Locked) FoldFinance(event, entropy []byte, deltaT uint64) {
	l.Fold(Finance, event, entropy, deltaT)
}

// FoldTime mixes one event into the time axis under lock.
func (l *Locked) FoldTime(event, entropy []byte, deltaT uint64) {
	l.Fold(Time, event, entropy, deltaT)
}

// FoldHardware mixes one event into the hardware axis under lock.
func (l *Locked) FoldHardware(event, entropy []byte, deltaT uint64) {
	l.Fold(Hardware, event, entropy, deltaT)
}
