package accel

import (
	"testing"

	"github.com/rawblock/isa-sentinel/internal/divergence"
	"github.com/rawblock/isa-sentinel/internal/ring"
)

func elem(v uint64) ring.Element { return ring.FromUint64(v) }

// Property 10 — the batched/dispatching path is bit-identical to the
// scalar divergence computation, at sizes that exercise both the
// unrolled stride and its remainder.
func TestBatchDistanceMatchesScalar(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 4, 5, 7, 8, 9, 17} {
		pairs := make([]Pair, n)
		for i := 0; i < n; i++ {
			pairs[i] = Pair{A: elem(uint64(i*37 + 1)), B: elem(uint64(i*11 + 500))}
		}
		got := BatchDistance(pairs)
		if len(got) != n {
			t.Fatalf("n=%d: got %d results", n, len(got))
		}
		for i, p := range pairs {
			want := divergence.Distance(p.A, p.B)
			if got[i] != want {
				t.Fatalf("n=%d index=%d: BatchDistance = %x, want %x", n, i, got[i].Bytes(), want.Bytes())
			}
		}
	}
}

func TestScalarBatchMatchesDivergence(t *testing.T) {
	pairs := []Pair{{A: elem(100), B: elem(40)}, {A: elem(5), B: elem(5)}}
	got := scalarBatch(pairs)
	if !ring.IsZero(got[1]) {
		t.Fatalf("equal pair should have zero distance")
	}
	if got[0] != divergence.Distance(elem(100), elem(40)) {
		t.Fatalf("scalarBatch diverges from divergence.Distance")
	}
}
