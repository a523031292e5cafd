package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/debtlens/debtlens/pkg/godobject"
	"github.com/debtlens/debtlens/pkg/models"
	"github.com/debtlens/debtlens/pkg/priority"
)

func TestSynthesize_GodObject(t *testing.T) {
	finding := &godobject.Finding{
		MethodCount: 60,
		Severity:    godobject.SeverityCritical,
		Domains:     []godobject.DomainAssignment{{Domain: "io"}, {Domain: "scoring"}},
		Splits: []godobject.RecommendedSplit{
			{Name: "io_domain", Members: []string{"a", "b"}, EstimatedLOC: 100},
		},
	}
	rec := Synthesize(Item{Category: priority.CategoryGodObject, GodFinding: finding})
	assert.Contains(t, rec.PrimaryAction, "split")
	assert.InDelta(t, 15.0, rec.EstimatedEffortHours, 1e-9)
	assert.Len(t, rec.Steps, 1)
}

func TestSynthesize_StateMachine(t *testing.T) {
	// S2 seed scenario (spec §8): recommendation mentions "Extract state
	// transitions", estimated_effort_hours >= 2.
	fn := &models.FunctionRecord{
		Cognitive:     16,
		RawCyclomatic: 9,
		Patterns:      []models.DetectedPattern{{Kind: models.PatternStateMachine, Details: "2 action dispatches, 2 state comparisons"}},
	}
	rec := Synthesize(Item{Function: fn})
	assert.Contains(t, rec.PrimaryAction, "state transitions")
	assert.GreaterOrEqual(t, rec.EstimatedEffortHours, 2.0)
}

func TestSynthesize_PureMapping_SuppressedBelowThreshold(t *testing.T) {
	fn := &models.FunctionRecord{
		AdjustedCyclomatic: 3,
		Patterns:           []models.DetectedPattern{{Kind: models.PatternPureMapping}},
	}
	rec := Synthesize(Item{Function: fn, Threshold: 10})
	assert.Equal(t, "no action needed", rec.PrimaryAction)
}

func TestSynthesize_NeverSuggestsRaisingComplexity(t *testing.T) {
	// Property (spec §8 item 7): no rationale states "reduce from X to ~Y"
	// with X < Y; when adjusted < raw, the text cites adjusted, not raw.
	fn := &models.FunctionRecord{
		RawCyclomatic:      10,
		AdjustedCyclomatic: 4,
		Cognitive:          20,
		Entropy:            models.EntropyScore{DampeningFactor: 0.4},
		Purity:             models.PurityClassification{Level: models.Impure},
	}
	rec := Synthesize(Item{Category: priority.CategoryTestingGap, Function: fn})
	assert.Contains(t, rec.Rationale, "adjusted cyclomatic 4")
	assert.NotContains(t, rec.Rationale, "raw cyclomatic 10")
	assert.Contains(t, rec.Rationale, "0.40")
}

func TestSynthesize_CognitiveHotspot(t *testing.T) {
	fn := &models.FunctionRecord{
		AdjustedCyclomatic: 5,
		Cognitive:          20,
		RawCyclomatic:      8,
	}
	rec := Synthesize(Item{Category: priority.CategoryComplexityHotspot, Function: fn, Threshold: 10})
	assert.Equal(t, "refactor for cognitive load, not branch count", rec.PrimaryAction)
}

func TestSynthesize_TestingGapPrefersPureTargets(t *testing.T) {
	fn := &models.FunctionRecord{
		AdjustedCyclomatic: 4,
		Purity:             models.PurityClassification{Level: models.StrictlyPure},
	}
	rec := Synthesize(Item{Category: priority.CategoryTestingGap, Function: fn})
	assert.Contains(t, rec.PrimaryAction, "high ROI")
}

func TestSynthesize_Fallback(t *testing.T) {
	rec := Synthesize(Item{})
	assert.Equal(t, "review during next refactor pass", rec.PrimaryAction)
}
