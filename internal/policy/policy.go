// Package policy implements the policy/constraint engine: per-dimension
// threshold checks, cross-dimension relational constraints, and a
// reporting-only weighted aggregate over a divergence vector. The engine
// is pure — it never touches a state, never applies a convergence
// vector, and never performs I/O; strategies are advisory labels for a
// caller-side orchestration layer.
package policy

import (
	"fmt"
	"math"
	"math/big"
	"sort"

	"github.com/rawblock/isa-sentinel/internal/ring"
)

// Strategy is the closed tagged variant a DimensionPolicy carries.
// Strategies are opaque to the engine: it never dispatches on them, only
// reports them as part of a Violation for the caller to interpret.
type Strategy int

const (
	MonitorOnly Strategy = iota
	ImmediateHeal
	Quarantine
	GracefulDegrade
)

func (s Strategy) String() string {
	switch s {
	case MonitorOnly:
		return "MonitorOnly"
	case ImmediateHeal:
		return "ImmediateHeal"
	case Quarantine:
		return "Quarantine"
	case GracefulDegrade:
		return "GracefulDegrade"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

func (s Strategy) valid() bool {
	return s >= MonitorOnly && s <= GracefulDegrade
}

// DimensionPolicy binds a per-axis threshold and advisory strategy. Axis
// identifies which position in a divergence vector the policy governs.
type DimensionPolicy struct {
	Axis           int
	Name           string
	Threshold      ring.Element
	Strategy       Strategy
	Weight         float64
	SafetyRelevant bool
}

// InvalidConfiguration is raised at construction of a PolicySet or
// ConstraintSet, never at evaluation time, per the engine's failure
// semantics: malformed configuration is a build-time error, not a
// runtime one.
type InvalidConfiguration struct {
	Reason string
}

func (e *InvalidConfiguration) Error() string {
	return "policy: invalid configuration: " + e.Reason
}

// PolicySet is a validated, axis-ordered collection of DimensionPolicy
// values, ready for repeated threshold evaluation against divergence
// vectors of a fixed dimension n.
type PolicySet struct {
	n        int
	policies []DimensionPolicy // sorted by Axis ascending
}

// NewPolicySet validates every policy's Axis against [0,n) and rejects
// non-finite or negative weights and out-of-range strategies, returning
// *InvalidConfiguration on the first violation found. Two policies MAY
// NOT name the same axis — ambiguous evaluation order is rejected rather
// than resolved by an implicit precedence rule.
func NewPolicySet(n int, policies []DimensionPolicy) (*PolicySet, error) {
	if n < 1 {
		return nil, &InvalidConfiguration{Reason: "dimension count must be >= 1"}
	}
	seen := make(map[int]bool, len(policies))
	out := make([]DimensionPolicy, len(policies))
	copy(out, policies)
	for _, p := range out {
		if p.Axis < 0 || p.Axis >= n {
			return nil, &InvalidConfiguration{Reason: fmt.Sprintf("policy %q references out-of-range axis %d (n=%d)", p.Name, p.Axis, n)}
		}
		if seen[p.Axis] {
			return nil, &InvalidConfiguration{Reason: fmt.Sprintf("axis %d has more than one policy registered", p.Axis)}
		}
		seen[p.Axis] = true
		if math.IsNaN(p.Weight) || math.IsInf(p.Weight, 0) || p.Weight < 0 {
			return nil, &InvalidConfiguration{Reason: fmt.Sprintf("policy %q has a non-finite or negative weight %v", p.Name, p.Weight)}
		}
		if !p.Strategy.valid() {
			return nil, &InvalidConfiguration{Reason: fmt.Sprintf("policy %q has an unrecognised strategy tag %d", p.Name, int(p.Strategy))}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Axis < out[j].Axis })
	return &PolicySet{n: n, policies: out}, nil
}

// Violation reports that divVec[Axis] exceeded Policy.Threshold.
type Violation struct {
	Axis   int
	Policy DimensionPolicy
}

// EvaluateThresholds returns, in ascending axis-index order, every
// policy whose axis divergence strictly exceeds its threshold.
// Comparison uses CmpMag, not circular distance — divergence is already
// the shortest arc, so a further wraparound would be meaningless.
func (ps *PolicySet) EvaluateThresholds(divVec []ring.Element) []Violation {
	if len(divVec) != ps.n {
		panic("policy: divergence vector length does not match configured dimension")
	}
	var out []Violation
	for _, p := range ps.policies {
		if ring.CmpMag(divVec[p.Axis], p.Threshold) > 0 {
			out = append(out, Violation{Axis: p.Axis, Policy: p})
		}
	}
	return out
}

// Policies returns a copy of the configured policies, axis-ascending —
// for a caller-side orchestration layer that needs to inspect strategy
// or SafetyRelevant directly rather than through an evaluation result.
func (ps *PolicySet) Policies() []DimensionPolicy {
	out := make([]DimensionPolicy, len(ps.policies))
	copy(out, ps.policies)
	return out
}

// Weights returns a full-length weight vector for Aggregate, with 0 at
// every axis that has no registered policy.
func (ps *PolicySet) Weights() []float64 {
	out := make([]float64, ps.n)
	for _, p := range ps.policies {
		out[p.Axis] = p.Weight
	}
	return out
}

// Constraint is the closed tagged variant of relational predicates over
// a divergence vector. The only implementations are MaxRatio, SumBelow
// and Conditional; the unexported method seals the interface.
type Constraint interface {
	axes() []int
	violated(div []ring.Element) bool
	describe() string
}

// MaxRatio holds iff divergence[I] <= R * divergence[J]; J's divergence
// of zero is treated as satisfying the constraint regardless of R.
type MaxRatio struct {
	I, J int
	R    *big.Rat
}

func (m MaxRatio) axes() []int { return []int{m.I, m.J} }

func (m MaxRatio) violated(div []ring.Element) bool {
	if ring.IsZero(div[m.J]) {
		return false
	}
	divI := ring.ToBig(div[m.I])
	divJ := ring.ToBig(div[m.J])
	lhs := new(big.Int).Mul(divI, m.R.Denom())
	rhs := new(big.Int).Mul(m.R.Num(), divJ)
	return lhs.Cmp(rhs) > 0
}

func (m MaxRatio) describe() string {
	return fmt.Sprintf("MaxRatio(axis %d <= %s * axis %d)", m.I, m.R.RatString(), m.J)
}

// SumBelow holds iff the sum of divergences over Axes is <= Bound.
type SumBelow struct {
	Axes  []int
	Bound ring.Element
}

func (s SumBelow) axes() []int { return s.Axes }

func (s SumBelow) violated(div []ring.Element) bool {
	total := new(big.Int)
	for _, idx := range s.Axes {
		total.Add(total, ring.ToBig(div[idx]))
	}
	return total.Cmp(ring.ToBig(s.Bound)) > 0
}

func (s SumBelow) describe() string {
	return fmt.Sprintf("SumBelow(axes %v)", s.Axes)
}

// Conditional holds iff divergence[I] <= ThresholdI OR divergence[J] <=
// ThresholdJ.
type Conditional struct {
	I          int
	ThresholdI ring.Element
	J          int
	ThresholdJ ring.Element
}

func (c Conditional) axes() []int { return []int{c.I, c.J} }

func (c Conditional) violated(div []ring.Element) bool {
	okI := ring.CmpMag(div[c.I], c.ThresholdI) <= 0
	okJ := ring.CmpMag(div[c.J], c.ThresholdJ) <= 0
	return !(okI || okJ)
}

func (c Conditional) describe() string {
	return fmt.Sprintf("Conditional(axis %d or axis %d)", c.I, c.J)
}

// ConstraintSet is a validated, registration-ordered collection of
// Constraint values.
type ConstraintSet struct {
	n           int
	constraints []Constraint
}

// NewConstraintSet validates every constraint's referenced axes against
// [0,n), returning *InvalidConfiguration on the first out-of-range
// reference. Registration order is preserved for evaluation.
func NewConstraintSet(n int, constraints []Constraint) (*ConstraintSet, error) {
	if n < 1 {
		return nil, &InvalidConfiguration{Reason: "dimension count must be >= 1"}
	}
	for _, c := range constraints {
		for _, axis := range c.axes() {
			if axis < 0 || axis >= n {
				return nil, &InvalidConfiguration{Reason: fmt.Sprintf("constraint %s references out-of-range axis %d (n=%d)", c.describe(), axis, n)}
			}
		}
	}
	out := make([]Constraint, len(constraints))
	copy(out, constraints)
	return &ConstraintSet{n: n, constraints: out}, nil
}

// ConstraintViolation reports that a registered constraint's predicate
// did not hold for a given divergence vector.
type ConstraintViolation struct {
	Index      int
	Constraint Constraint
}

// Describe renders the violated constraint for reporting to a caller
// outside this package, which cannot call Constraint's unexported
// describe method directly.
func (v ConstraintViolation) Describe() string {
	return v.Constraint.describe()
}

// EvaluateConstraints returns, in registration order, every constraint
// whose predicate is violated by divVec.
func (cs *ConstraintSet) EvaluateConstraints(divVec []ring.Element) []ConstraintViolation {
	if len(divVec) != cs.n {
		panic("policy: divergence vector length does not match configured dimension")
	}
	var out []ConstraintViolation
	for i, c := range cs.constraints {
		if c.violated(divVec) {
			out = append(out, ConstraintViolation{Index: i, Constraint: c})
		}
	}
	return out
}

// Aggregate computes a weighted sum of divergences for reporting only;
// it is not normative and has no bearing on threshold or constraint
// evaluation. weights and divergences must be the same length.
func Aggregate(weights []float64, divergences []ring.Element) float64 {
	if len(weights) != len(divergences) {
		panic("policy: weights and divergences must have equal length")
	}
	var total float64
	for i, w := range weights {
		f, _ := new(big.Float).SetInt(ring.ToBig(divergences[i])).Float64()
		total += w * f
	}
	return total
}
