// Package accel provides a batched form of divergence.Distance that
// amortises loop overhead across the many axis pairs of a
// multi-dimensional state. The batched and scalar paths MUST produce
// bit-identical output — batching changes throughput, never results.
package accel

import (
	"github.com/rawblock/isa-sentinel/internal/divergence"
	"github.com/rawblock/isa-sentinel/internal/ring"
)

// Pair is one (a, b) input to a batched distance computation.
type Pair struct {
	A, B ring.Element
}

// distance computes one pair's circular distance via the portable
// divergence package; both the scalar and unrolled loops bottom out
// here so their output is identical by construction.
func distance(p Pair) ring.Element {
	return divergence.Distance(p.A, p.B)
}

// scalarBatch computes each pair's distance one at a time via the
// portable divergence.Distance implementation. The purego build always
// uses it; the default build uses it on hosts without AVX2. The unrolled
// loop handles its own remainder and does not call this function.
func scalarBatch(pairs []Pair) []ring.Element {
	out := make([]ring.Element, len(pairs))
	for i, p := range pairs {
		out[i] = distance(p)
	}
	return out
}
