//go:build !purego

package accel

import (
	"github.com/klauspost/cpuid/v2"
	"github.com/rawblock/isa-sentinel/internal/ring"
)

// hasWideLanes reports whether the host CPU supports the wider
// instruction set this package's unrolled loop is tuned for. Detected
// once at package init via klauspost/cpuid/v2 rather than per call.
var hasWideLanes = cpuid.CPU.Has(cpuid.AVX2)

// BatchDistance computes the circular distance for every pair. On AVX2
// hosts it walks pairs four at a time through an unrolled loop tuned to
// that lane width; on older hosts it falls back to the portable
// one-at-a-time loop. Both produce bit-identical output — the unrolled
// loop calls the exact same ring operations per element, just with the
// loop control amortised across four iterations.
func BatchDistance(pairs []Pair) []ring.Element {
	if !hasWideLanes {
		return scalarBatch(pairs)
	}
	return unrolledBatch(pairs)
}

func unrolledBatch(pairs []Pair) []ring.Element {
	out := make([]ring.Element, len(pairs))
	n := len(pairs)
	i := 0
	for ; i+4 <= n; i += 4 {
		out[i] = distance(pairs[i])
		out[i+1] = distance(pairs[i+1])
		out[i+2] = distance(pairs[i+2])
		out[i+3] = distance(pairs[i+3])
	}
	for ; i < n; i++ {
		out[i] = distance(pairs[i])
	}
	return out
}
