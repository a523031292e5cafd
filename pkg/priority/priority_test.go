package priority

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/debtlens/debtlens/pkg/models"
)

func TestTierOf_Thresholds(t *testing.T) {
	// Property (spec §8 item 9): critical>=50 > high>=25 > medium>=10 > low.
	assert.Equal(t, TierCritical, TierOf(50, DefaultTierThresholds))
	assert.Equal(t, TierCritical, TierOf(100, DefaultTierThresholds))
	assert.Equal(t, TierHigh, TierOf(25, DefaultTierThresholds))
	assert.Equal(t, TierHigh, TierOf(49.9, DefaultTierThresholds))
	assert.Equal(t, TierMedium, TierOf(10, DefaultTierThresholds))
	assert.Equal(t, TierLow, TierOf(9.9, DefaultTierThresholds))
}

func TestScore_Deterministic(t *testing.T) {
	// Property (spec §8 item 5): identical inputs produce identical output.
	in := Inputs{WeightedComplexity: 80, Purity: models.PurityClassification{Level: models.Impure}, CallerCount: 2, CommitsLast30Days: 5}
	a := Score(in, DefaultWeights, DefaultTierThresholds)
	b := Score(in, DefaultWeights, DefaultTierThresholds)
	assert.Equal(t, a, b)
}

func TestScore_MonotoneInCognitive(t *testing.T) {
	// Property (spec §8 item 6): increasing complexity never decreases score,
	// all else fixed.
	base := Inputs{WeightedComplexity: 40, Purity: models.PurityClassification{Level: models.Impure}}
	higher := base
	higher.WeightedComplexity = 80

	r1 := Score(base, DefaultWeights, DefaultTierThresholds)
	r2 := Score(higher, DefaultWeights, DefaultTierThresholds)
	assert.GreaterOrEqual(t, r2.Score, r1.Score)
}

func TestScore_ClampedToRange(t *testing.T) {
	in := Inputs{WeightedComplexity: 1000, CallerCount: 1000, CalleeCount: 1000, CommitsLast30Days: 1000}
	r := Score(in, DefaultWeights, DefaultTierThresholds)
	assert.LessOrEqual(t, r.Score, 100.0)
	assert.GreaterOrEqual(t, r.Score, 0.0)
}

func TestScore_TestFunctionHasZeroCoverageComponent(t *testing.T) {
	in := Inputs{IsTest: true, CoverageKnown: true, CoveragePercent: 0}
	r := Score(in, DefaultWeights, DefaultTierThresholds)
	assert.Equal(t, 0.0, r.CoverageComponent)
}

func TestPurityMultiplier_ImpureIsHighestMultiplier(t *testing.T) {
	strictly := purityMultiplier(models.PurityClassification{Level: models.StrictlyPure, Confidence: 0.9})
	impure := purityMultiplier(models.PurityClassification{Level: models.Impure})
	assert.Less(t, strictly, impure)
}

func TestScore_RationaleNamesDominantComponent(t *testing.T) {
	in := Inputs{WeightedComplexity: 100, Purity: models.PurityClassification{Level: models.Impure}}
	r := Score(in, DefaultWeights, DefaultTierThresholds)
	assert.Equal(t, "complexity", r.DominantComponent)
	assert.Contains(t, r.Rationale, "complexity")
}
