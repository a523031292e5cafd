// Package complexity implements the complexity adjuster and weighted-score
// composition of spec §4.D, sitting on top of pkg/entropy's dampening
// factor and pkg/models.Role-based weight overrides.
package complexity

import "github.com/debtlens/debtlens/pkg/models"

// RoleWeights is the (alpha, beta) pair applied to a function's role.
type RoleWeights struct {
	Alpha float64 // weight on normalized adjusted cyclomatic
	Beta  float64 // weight on normalized cognitive
}

// DefaultWeights are the spec §4.D defaults: alpha=0.3, beta=0.7.
var DefaultWeights = RoleWeights{Alpha: 0.3, Beta: 0.7}

var roleOverrides = map[models.Role]RoleWeights{
	models.RolePure:          {Alpha: 0.5, Beta: 0.5},
	models.RoleBusinessLogic: {Alpha: 0.25, Beta: 0.75},
	models.RoleDebug:         {Alpha: 0.2, Beta: 0.8},
}

// WeightsForRole returns the override for role, or DefaultWeights if none applies.
func WeightsForRole(role models.Role) RoleWeights {
	if w, ok := roleOverrides[role]; ok {
		return w
	}
	return DefaultWeights
}

// Normalizer holds the per-run normalization maxima computed in the reduce
// step after all file extractions (spec §5): both components are divided
// by the run's max value with 20% headroom, then scaled to 100 and clamped.
type Normalizer struct {
	MaxCyclomatic float64
	MaxCognitive  float64
}

// NewNormalizer derives a Normalizer from the observed maxima, adding the
// 20% headroom spec §4.D requires. Falls back to the configured defaults
// (50 cyclomatic, 100 cognitive) when a run has no functions at all.
func NewNormalizer(observedMaxCyclomatic, observedMaxCognitive float64) Normalizer {
	if observedMaxCyclomatic <= 0 {
		observedMaxCyclomatic = 50
	}
	if observedMaxCognitive <= 0 {
		observedMaxCognitive = 100
	}
	return Normalizer{
		MaxCyclomatic: observedMaxCyclomatic * 1.2,
		MaxCognitive:  observedMaxCognitive * 1.2,
	}
}

// NormalizeCyclomatic scales adjusted cyclomatic complexity to [0,100].
func (n Normalizer) NormalizeCyclomatic(adjusted uint32) float64 {
	return normalize(float64(adjusted), n.MaxCyclomatic)
}

// NormalizeCognitive scales cognitive complexity to [0,100].
func (n Normalizer) NormalizeCognitive(cognitive uint32) float64 {
	return normalize(float64(cognitive), n.MaxCognitive)
}

func normalize(value, max float64) float64 {
	if max <= 0 {
		return 0
	}
	scaled := (value / max) * 100
	if scaled > 100 {
		return 100
	}
	if scaled < 0 {
		return 0
	}
	return scaled
}

// WeightedComplexity computes weighted_complexity = alpha*norm(adjusted) +
// beta*norm(cognitive) for one function, using the role-specific weight
// override when one applies.
func WeightedComplexity(role models.Role, adjustedCyclomatic, cognitive uint32, n Normalizer) float64 {
	w := WeightsForRole(role)
	return w.Alpha*n.NormalizeCyclomatic(adjustedCyclomatic) + w.Beta*n.NormalizeCognitive(cognitive)
}
