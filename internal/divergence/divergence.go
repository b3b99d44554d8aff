// Package divergence implements the circular-distance metric over the
// 256-bit ring and the convergence constant that restores a drifted
// state to an honest one with a single ring addition.
package divergence

import "github.com/rawblock/isa-sentinel/internal/ring"

// Distance returns the shortest-arc circular distance between a and b on
// the cycle Z/2^256: min(a-b mod 2^256, b-a mod 2^256). It is symmetric,
// zero iff a==b, and never a triangle-inequality distance in the
// Euclidean sense — only shortest-arc-on-a-cycle.
//
// When the forward and reverse arcs are exactly equal in magnitude
// (a and b exactly 2^255 apart), the forward arc is returned, the
// deterministic tie-break this package commits to.
func Distance(a, b ring.Element) ring.Element {
	forward := ring.Sub(a, b)
	reverse := ring.Neg(forward)
	if ring.CmpMag(forward, reverse) <= 0 {
		return forward
	}
	return reverse
}

// Converge computes K(honest, drifted) = honest - drifted, the ring
// element that, added to drifted, recovers honest bit-exactly:
//
//	Add(drifted, Converge(honest, drifted)) == honest
//
// Strategies that consume K are advisory and caller-owned: this package
// only ever computes the constant, never applies it.
func Converge(honest, drifted ring.Element) ring.Element {
	return ring.Sub(honest, drifted)
}

// Vector computes the axis-wise circular distance between two state
// vectors of equal length. Panics on length mismatch, since a divergence
// vector is only meaningful between two snapshots of the same state.
func Vector(a, b []ring.Element) []ring.Element {
	if len(a) != len(b) {
		panic("divergence: state vectors have mismatched dimension")
	}
	out := make([]ring.Element, len(a))
	for i := range a {
		out[i] = Distance(a[i], b[i])
	}
	return out
}

// ConvergenceVector computes the axis-wise convergence constants between
// two state vectors of equal length.
func ConvergenceVector(honest, drifted []ring.Element) []ring.Element {
	if len(honest) != len(drifted) {
		panic("divergence: state vectors have mismatched dimension")
	}
	out := make([]ring.Element, len(honest))
	for i := range honest {
		out[i] = Converge(honest[i], drifted[i])
	}
	return out
}
