//go:build purego

package accel

import "github.com/rawblock/isa-sentinel/internal/ring"

// BatchDistance always uses the portable one-at-a-time loop under the
// purego build tag, with no CPU feature detection.
func BatchDistance(pairs []Pair) []ring.Element {
	return scalarBatch(pairs)
}
