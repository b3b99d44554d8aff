package api

import (
	"encoding/hex"
	"testing"

	"github.com/rawblock/isa-sentinel/internal/divergence"
	"github.com/rawblock/isa-sentinel/internal/policy"
	"github.com/rawblock/isa-sentinel/internal/ring"
	"github.com/rawblock/isa-sentinel/internal/state"
	"github.com/rawblock/isa-sentinel/pkg/models"
)

func testSeed(b byte) [32]byte {
	var s [32]byte
	for i := range s {
		s[i] = b
	}
	return s
}

func newTestHandler(t *testing.T, n int) (*Handler, *state.Locked) {
	t.Helper()
	s := state.NewFixed(testSeed(0x01), n)
	live := state.NewLocked(s)
	reference := live.Snapshot()

	policies := make([]policy.DimensionPolicy, n)
	for i := 0; i < n; i++ {
		policies[i] = policy.DimensionPolicy{
			Axis:      i,
			Name:      "axis",
			Threshold: ring.Zero,
			Strategy:  policy.MonitorOnly,
			Weight:    1.0,
		}
	}
	ps, err := policy.NewPolicySet(n, policies)
	if err != nil {
		t.Fatalf("NewPolicySet: %v", err)
	}
	cs, err := policy.NewConstraintSet(n, nil)
	if err != nil {
		t.Fatalf("NewConstraintSet: %v", err)
	}

	h := NewHandler(live, reference, ps, cs, nil, nil, nil, nil, nil, nil)
	return h, live
}

func TestEvaluateReportsZeroDivergenceBeforeAnyFold(t *testing.T) {
	h, _ := newTestHandler(t, 3)
	verdict := h.evaluate()
	for _, hexElem := range verdict.DivergenceVectorHex {
		if hexElem != zeroElementHex() {
			t.Fatalf("expected zero divergence on every axis before any fold, got %s", hexElem)
		}
	}
	if len(verdict.ThresholdViolations) != 0 {
		t.Fatalf("expected no threshold violations before any fold, got %d", len(verdict.ThresholdViolations))
	}
}

func TestFoldAndEvaluateProducesNonZeroDivergenceOnFoldedAxis(t *testing.T) {
	h, _ := newTestHandler(t, 3)
	verdict := h.FoldAndEvaluate(1, []byte("event"), []byte("entropy"), 7)

	if verdict.DivergenceVectorHex[1] == zeroElementHex() {
		t.Fatalf("expected axis 1 to diverge from the reference baseline after a fold")
	}
	if verdict.DivergenceVectorHex[0] != zeroElementHex() || verdict.DivergenceVectorHex[2] != zeroElementHex() {
		t.Fatalf("expected only the folded axis to diverge")
	}
}

func TestFoldAndEvaluateTripsThresholdViolationOnZeroThreshold(t *testing.T) {
	h, _ := newTestHandler(t, 3)
	verdict := h.FoldAndEvaluate(0, []byte("event"), nil, 1)

	if len(verdict.ThresholdViolations) != 1 {
		t.Fatalf("expected exactly one threshold violation, got %d", len(verdict.ThresholdViolations))
	}
	if verdict.ThresholdViolations[0].Axis != 0 {
		t.Fatalf("expected the violation to name axis 0, got %d", verdict.ThresholdViolations[0].Axis)
	}
}

func TestEvaluateThresholdViolationCarriesSafetyRelevantFlag(t *testing.T) {
	s := state.NewFixed(testSeed(0x03), 1)
	live := state.NewLocked(s)
	reference := live.Snapshot()

	policies := []policy.DimensionPolicy{
		{Axis: 0, Name: "p", Threshold: ring.Zero, Strategy: policy.MonitorOnly, Weight: 1.0, SafetyRelevant: true},
	}
	ps, err := policy.NewPolicySet(1, policies)
	if err != nil {
		t.Fatalf("NewPolicySet: %v", err)
	}
	cs, err := policy.NewConstraintSet(1, nil)
	if err != nil {
		t.Fatalf("NewConstraintSet: %v", err)
	}
	h := NewHandler(live, reference, ps, cs, nil, nil, nil, nil, nil, nil)

	verdict := h.FoldAndEvaluate(0, []byte("e"), nil, 1)
	if len(verdict.ThresholdViolations) != 1 || !verdict.ThresholdViolations[0].SafetyRelevant {
		t.Fatalf("expected the violation to carry SafetyRelevant=true from its policy")
	}
}

func TestAnySafetyRelevantOnlyTrueWhenAViolationFlagsIt(t *testing.T) {
	none := []models.ViolationReport{{Axis: 0, SafetyRelevant: false}}
	if anySafetyRelevant(none) {
		t.Fatalf("expected false when no violation is safety relevant")
	}
	some := []models.ViolationReport{{Axis: 0, SafetyRelevant: false}, {Axis: 1, SafetyRelevant: true}}
	if !anySafetyRelevant(some) {
		t.Fatalf("expected true when at least one violation is safety relevant")
	}
}

func TestReconcileQuarantineAddsThenReleasesOnRecovery(t *testing.T) {
	const n = 2
	s := state.NewFixed(testSeed(0x04), n)
	live := state.NewLocked(s)
	reference := live.Snapshot()

	policies := []policy.DimensionPolicy{
		{Axis: 0, Name: "quarantine-axis", Threshold: ring.Zero, Strategy: policy.Quarantine, Weight: 1.0},
		{Axis: 1, Name: "monitor-axis", Threshold: ring.Max, Strategy: policy.MonitorOnly, Weight: 1.0},
	}
	ps, err := policy.NewPolicySet(n, policies)
	if err != nil {
		t.Fatalf("NewPolicySet: %v", err)
	}
	cs, err := policy.NewConstraintSet(n, nil)
	if err != nil {
		t.Fatalf("NewConstraintSet: %v", err)
	}
	qr := policy.NewQuarantineRegistry()
	h := NewHandler(live, reference, ps, cs, qr, nil, nil, nil, nil, nil)

	h.FoldAndEvaluate(0, []byte("event"), nil, 1)
	if !qr.Contains(0) {
		t.Fatalf("expected axis 0 to be quarantined after a Quarantine-strategy threshold violation")
	}

	conv := divergence.ConvergenceVector(reference, live.Snapshot())
	live.ApplyConvergenceVector(conv)
	h.FoldAndEvaluate(1, []byte("other"), nil, 2)
	if qr.Contains(0) {
		t.Fatalf("expected axis 0 to be released from quarantine once it no longer violates")
	}
}

func zeroElementHex() string {
	b := ring.Zero.Bytes()
	return hex.EncodeToString(b[:])
}
