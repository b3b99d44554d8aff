package divergence

import (
	"testing"

	"github.com/rawblock/isa-sentinel/internal/ring"
)

func repeatElement(b byte) ring.Element {
	var buf [32]byte
	for i := range buf {
		buf[i] = b
	}
	return ring.FromBytes(buf[:])
}

// S1 — Self-divergence is zero.
func TestS1SelfDivergenceIsZero(t *testing.T) {
	s := repeatElement(0x42)
	d := Distance(s, s)
	if !ring.IsZero(d) {
		t.Fatalf("Distance(s,s) = %x, want zero", d.Bytes())
	}
}

// S2 — Convergence restores exactly.
func TestS2ConvergenceRestoresExactly(t *testing.T) {
	honest := repeatElement(0x42)
	drifted := repeatElement(0x13)

	k := Converge(honest, drifted)
	restored := ring.Add(drifted, k)

	if !ring.Equal(restored, honest) {
		t.Fatalf("Add(drifted, K) = %x, want %x", restored.Bytes(), honest.Bytes())
	}
	if !ring.IsZero(Distance(honest, restored)) {
		t.Fatalf("Distance(honest, restored) != 0 after convergence")
	}
}

func TestDistanceSymmetry(t *testing.T) {
	a := repeatElement(0x11)
	b := repeatElement(0x99)
	if Distance(a, b) != Distance(b, a) {
		t.Fatalf("Distance not symmetric: %x vs %x", Distance(a, b).Bytes(), Distance(b, a).Bytes())
	}
}

func TestDistanceIdentityImpliesEquality(t *testing.T) {
	a := repeatElement(0x55)
	b := repeatElement(0x56)
	if ring.IsZero(Distance(a, b)) {
		t.Fatalf("Distance(a,b) == 0 but a != b")
	}
}

func TestVectorAndConvergenceVector(t *testing.T) {
	honest := []ring.Element{repeatElement(0x01), repeatElement(0x02), repeatElement(0x03)}
	drifted := []ring.Element{repeatElement(0x00), repeatElement(0x02), repeatElement(0xff)}

	div := Vector(honest, drifted)
	conv := ConvergenceVector(honest, drifted)

	for i := range honest {
		if ring.IsZero(div[i]) != (honest[i] == drifted[i]) {
			t.Fatalf("axis %d: zero divergence should hold iff the axes are equal", i)
		}
		restored := ring.Add(drifted[i], conv[i])
		if !ring.Equal(restored, honest[i]) {
			t.Fatalf("axis %d: convergence did not restore honest state", i)
		}
	}
}

func TestVectorPanicsOnLengthMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on mismatched vector lengths")
		}
	}()
	Vector([]ring.Element{repeatElement(1)}, []ring.Element{repeatElement(1), repeatElement(2)})
}

// forward/reverse tie case: exactly 2^255 apart must deterministically
// pick the forward arc.
func TestExactHalfCycleTieBreaksForward(t *testing.T) {
	a := ring.Element{0, 0, 0, 0}
	b := ring.Element{0, 0, 0, 0x8000000000000000} // 2^255
	forward := ring.Sub(a, b)
	got := Distance(a, b)
	if got != forward {
		t.Fatalf("tie at exactly 2^255 should resolve to the forward arc")
	}
}
