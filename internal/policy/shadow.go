package policy

import (
	"log"

	"github.com/rawblock/isa-sentinel/internal/ring"
)

// ShadowDiff captures the difference between a production and a
// candidate (shadow) policy set evaluated against the same divergence
// vector, for observing a threshold-tuning change before it goes live.
type ShadowDiff struct {
	ProductionViolations []Violation
	ShadowViolations     []Violation
	OnlyInProduction     []int // axis indices violated in production, not shadow
	OnlyInShadow         []int // axis indices violated in shadow, not production
}

// Diverged reports whether production and shadow disagreed on any axis.
func (d ShadowDiff) Diverged() bool {
	return len(d.OnlyInProduction) > 0 || len(d.OnlyInShadow) > 0
}

// ShadowComparator runs a candidate PolicySet alongside the production
// PolicySet without affecting any verdict a caller acts on. It is the
// policy-engine analogue of running an experimental heuristic in
// parallel for a multi-week observation window before promoting it.
type ShadowComparator struct {
	production *PolicySet
	shadow     *PolicySet
}

// NewShadowComparator pairs a production and a shadow PolicySet. Both
// must have been constructed over the same dimension count.
func NewShadowComparator(production, shadow *PolicySet) (*ShadowComparator, error) {
	if production.n != shadow.n {
		return nil, &InvalidConfiguration{Reason: "production and shadow policy sets have different dimension counts"}
	}
	return &ShadowComparator{production: production, shadow: shadow}, nil
}

// Compare evaluates both policy sets against divVec and returns the
// diff. Divergences are logged for monitoring but never alter the
// caller-visible production verdict.
func (c *ShadowComparator) Compare(divVec []ring.Element) ShadowDiff {
	prod := c.production.EvaluateThresholds(divVec)
	shadow := c.shadow.EvaluateThresholds(divVec)

	prodSet := make(map[int]bool, len(prod))
	for _, v := range prod {
		prodSet[v.Axis] = true
	}
	shadowSet := make(map[int]bool, len(shadow))
	for _, v := range shadow {
		shadowSet[v.Axis] = true
	}

	diff := ShadowDiff{ProductionViolations: prod, ShadowViolations: shadow}
	for axis := range prodSet {
		if !shadowSet[axis] {
			diff.OnlyInProduction = append(diff.OnlyInProduction, axis)
		}
	}
	for axis := range shadowSet {
		if !prodSet[axis] {
			diff.OnlyInShadow = append(diff.OnlyInShadow, axis)
		}
	}

	if diff.Diverged() {
		log.Printf("[shadow] policy divergence: only_in_production=%v only_in_shadow=%v", diff.OnlyInProduction, diff.OnlyInShadow)
	}
	return diff
}
