// Package priority implements the unified scorer (spec §4.H): composing
// complexity, coverage, dependency, and churn components into a single
// 0-100 priority score, tier, and rationale per debt item.
package priority

import (
	"fmt"
	"math"

	"github.com/debtlens/debtlens/pkg/models"
)

// Tier is the spec §3/§9 priority tier, score-based per the Open Question
// decision recorded in DESIGN.md.
type Tier string

const (
	TierCritical Tier = "critical"
	TierHigh     Tier = "high"
	TierMedium   Tier = "medium"
	TierLow      Tier = "low"
)

// Category classifies the kind of debt item being scored. Kept distinct
// from models.DebtCategory, which names SATD marker categories, not
// priority-scoring categories.
type Category string

const (
	CategoryComplexityHotspot Category = "complexity_hotspot"
	CategoryGodObject         Category = "god_object"
	CategoryGodModule         Category = "god_module"
	CategoryTestingGap        Category = "testing_gap"
	CategoryDeadCode          Category = "dead_code"
)

// Weights are the spec §6 scoring.weights.* fields; must sum to 1.
type Weights struct {
	Complexity float64
	Coverage   float64
	Dependency float64
	Churn      float64
}

// DefaultWeights gives complexity the largest share, matching the
// teacher's composite-score emphasis on structural complexity.
var DefaultWeights = Weights{Complexity: 0.4, Coverage: 0.3, Dependency: 0.2, Churn: 0.1}

// TierThresholds are the spec §6 scoring.tiers.* fields.
type TierThresholds struct {
	Critical float64
	High     float64
	Medium   float64
}

// DefaultTierThresholds matches spec §6/§8: critical>=50, high>=25, medium>=10.
var DefaultTierThresholds = TierThresholds{Critical: 50, High: 25, Medium: 10}

// TierOf classifies a clamped [0,100] score using score-based tiers,
// consistent with every other threshold in this package (spec.md §9 Open
// Question: score-based tiers adopted throughout, not ROI-based).
func TierOf(score float64, th TierThresholds) Tier {
	switch {
	case score >= th.Critical:
		return TierCritical
	case score >= th.High:
		return TierHigh
	case score >= th.Medium:
		return TierMedium
	default:
		return TierLow
	}
}

// purityMultiplier returns the [low,high] range midpoint-or-low-half
// selection of spec §4.H step 1: StrictlyPure 0.70-0.80, LocallyPure
// 0.75-0.85, ReadOnly 0.90 (fixed), Impure 1.00 (fixed). Confidence above
// 0.8 selects the lower half of the range (more confident purity earns a
// bigger discount).
func purityMultiplier(p models.PurityClassification) float64 {
	switch p.Level {
	case models.StrictlyPure:
		return rangeValue(0.70, 0.80, p.Confidence)
	case models.LocallyPure:
		return rangeValue(0.75, 0.85, p.Confidence)
	case models.ReadOnly:
		return 0.90
	default:
		return 1.00
	}
}

func rangeValue(low, high, confidence float64) float64 {
	if confidence > 0.8 {
		return low
	}
	return (low + high) / 2
}

// Inputs are the per-function enriched signals the scorer composes.
type Inputs struct {
	WeightedComplexity float64 // from pkg/complexity (already normalized to [0,100])
	Purity             models.PurityClassification
	IsTest             bool
	Reachable          bool
	CoveragePercent    float64 // 0 when coverage is unknown
	CoverageKnown      bool
	CallerCount        int
	CalleeCount        int
	IsEntryPoint       bool
	CommitsLast30Days  int
}

// Result is the fully composed per-function score, ready for tiering and
// recommendation synthesis.
type Result struct {
	ComplexityComponent float64
	CoverageComponent   float64
	DependencyComponent float64
	ChurnComponent      float64
	Score               float64
	Tier                Tier
	DominantComponent   string
	Rationale           string
}

// maxChurnNormalization caps the churn component's normalization input;
// beyond this many commits in 30 days, churn contributes its maximum share.
const maxChurnNormalization = 20.0

// maxDependencyReach caps the downstream-reach normalization input.
const maxDependencyReach = 50.0

// Score runs the five-step pipeline of spec §4.H: each step is a pure
// function of the previous, ending in a clamped, tiered, rationale-bearing
// Result.
func Score(in Inputs, w Weights, th TierThresholds) Result {
	complexityComponent := in.WeightedComplexity * purityMultiplier(in.Purity)
	coverageComponent := coverageComponentOf(in)
	dependencyComponent := dependencyComponentOf(in)
	churnComponent := churnComponentOf(in)

	raw := w.Complexity*complexityComponent + w.Coverage*coverageComponent +
		w.Dependency*dependencyComponent + w.Churn*churnComponent

	score := clamp(raw, 0, 100)
	tier := TierOf(score, th)
	dominant, dominantValue := dominantOf(map[string]float64{
		"complexity": w.Complexity * complexityComponent,
		"coverage":   w.Coverage * coverageComponent,
		"dependency": w.Dependency * dependencyComponent,
		"churn":      w.Churn * churnComponent,
	})

	return Result{
		ComplexityComponent: complexityComponent,
		CoverageComponent:   coverageComponent,
		DependencyComponent: dependencyComponent,
		ChurnComponent:      churnComponent,
		Score:               score,
		Tier:                tier,
		DominantComponent:   dominant,
		Rationale:           fmt.Sprintf("%s drives this score (contributes %.1f of %.1f)", dominant, dominantValue, score),
	}
}

func coverageComponentOf(in Inputs) float64 {
	if in.IsTest {
		return 0
	}
	if !in.CoverageKnown || !in.Reachable {
		return 0
	}
	return 100 * (1 - in.CoveragePercent/100)
}

func dependencyComponentOf(in Inputs) float64 {
	callerScore := math.Min(float64(in.CallerCount)/10, 1) * 50
	if in.IsEntryPoint && in.CallerCount == 0 {
		callerScore = 50
	}
	calleeScore := math.Min(float64(in.CalleeCount)/maxDependencyReach, 1) * 50
	return callerScore + calleeScore
}

func churnComponentOf(in Inputs) float64 {
	return 100 * math.Min(float64(in.CommitsLast30Days)/maxChurnNormalization, 1)
}

func dominantOf(components map[string]float64) (string, float64) {
	var name string
	var best float64
	first := true
	for _, key := range []string{"complexity", "coverage", "dependency", "churn"} {
		v := components[key]
		if first || v > best {
			name, best, first = key, v, false
		}
	}
	return name, best
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
