// Package recommend implements the recommendation synthesizer (spec §4.I):
// first-match-wins selection over a debt item's category, pattern, and
// role, producing an ActionableRecommendation whose rationale never
// contradicts the adjusted complexity it cites.
package recommend

import (
	"fmt"
	"strings"

	"github.com/debtlens/debtlens/pkg/godobject"
	"github.com/debtlens/debtlens/pkg/models"
	"github.com/debtlens/debtlens/pkg/priority"
)

// ActionableRecommendation is the spec §4.I output record.
type ActionableRecommendation struct {
	PrimaryAction        string
	Rationale            string
	Steps                []string
	EstimatedEffortHours float64
	RelatedItems         []string
}

// Item bundles the inputs the synthesizer needs: the category this debt
// item was classified under, its enriched function record (for
// complexity-adjustment and pattern data), its assigned role, and — when
// the category is a god-object finding — the underlying analysis.
type Item struct {
	Category    priority.Category
	Function    *models.FunctionRecord
	GodFinding  *godobject.Finding
	Threshold   int // complexity.thresholds.cyclomatic from config, for hotspot/pattern gating
}

// Synthesize applies the spec §4.I selection rules in order and returns the
// first matching recommendation.
func Synthesize(item Item) ActionableRecommendation {
	if item.Category == priority.CategoryGodObject || item.Category == priority.CategoryGodModule {
		return godObjectRecommendation(item)
	}

	if item.Function != nil {
		for _, p := range item.Function.Patterns {
			switch p.Kind {
			case models.PatternStateMachine:
				return stateMachineRecommendation(item, p)
			case models.PatternCoordinator:
				return coordinatorRecommendation(item)
			case models.PatternPureMapping:
				if rec, suppressed := pureMappingRecommendation(item); suppressed {
					return rec
				}
			}
		}
	}

	if item.Category == priority.CategoryComplexityHotspot && item.Function != nil {
		if rec, ok := cognitiveHotspotRecommendation(item); ok {
			return rec
		}
	}

	if item.Category == priority.CategoryTestingGap && item.Function != nil {
		return testingGapRecommendation(item)
	}

	return fallbackRecommendation(item)
}

func godObjectRecommendation(item Item) ActionableRecommendation {
	if item.GodFinding == nil {
		return fallbackRecommendation(item)
	}
	steps := make([]string, 0, len(item.GodFinding.Splits))
	for _, s := range item.GodFinding.Splits {
		steps = append(steps, fmt.Sprintf("extract %s (%d members, ~%d LOC)", s.Name, len(s.Members), s.EstimatedLOC))
	}
	return ActionableRecommendation{
		PrimaryAction:        "split this file along its detected responsibilities",
		Rationale:            fmt.Sprintf("%s severity: %d methods across %d domains (diversity %.2f)", item.GodFinding.Severity, item.GodFinding.MethodCount, domainCount(item.GodFinding), item.GodFinding.DiversityScore),
		Steps:                steps,
		EstimatedEffortHours: float64(item.GodFinding.MethodCount) * 0.25,
	}
}

func domainCount(f *godobject.Finding) int {
	seen := make(map[string]bool)
	for _, d := range f.Domains {
		seen[d.Domain] = true
	}
	return len(seen)
}

func stateMachineRecommendation(item Item, p models.DetectedPattern) ActionableRecommendation {
	transitions := estimateTransitions(item.Function)
	steps := make([]string, 0, transitions)
	for i := 1; i <= transitions; i++ {
		steps = append(steps, fmt.Sprintf("extract state transition %d into a named function", i))
	}
	return ActionableRecommendation{
		PrimaryAction:        fmt.Sprintf("extract %d state transitions into named functions", transitions),
		Rationale:            withComplexityCitation(item, p.Details),
		Steps:                steps,
		EstimatedEffortHours: float64(transitions) * 0.75,
	}
}

func coordinatorRecommendation(item Item) ActionableRecommendation {
	return ActionableRecommendation{
		PrimaryAction: "extract coordinator logic into a transition table or helper functions",
		Rationale:     withComplexityCitation(item, "accumulation and dispatch logic is tangled in one function body"),
		Steps: []string{
			"introduce a transition table keyed by the dispatched action",
			"move each action's logic into its own helper",
		},
		EstimatedEffortHours: 2,
	}
}

// pureMappingRecommendation returns (rec, true) only when the function's
// adjusted complexity is below the configured threshold, in which case the
// recommendation is suppressed/downgraded to informational rather than
// suggesting a reduction of already-low complexity (spec §4.I, §8
// property 7).
func pureMappingRecommendation(item Item) (ActionableRecommendation, bool) {
	if item.Function == nil || int(item.Function.AdjustedCyclomatic) >= item.Threshold {
		return ActionableRecommendation{}, false
	}
	return ActionableRecommendation{
		PrimaryAction:        "no action needed",
		Rationale:            fmt.Sprintf("pure mapping with adjusted cyclomatic %d already below threshold", item.Function.AdjustedCyclomatic),
		EstimatedEffortHours: 0,
	}, true
}

// cognitiveHotspotRecommendation matches when adjusted cyclomatic is low
// but cognitive complexity remains high: a nesting/understandability
// problem, not a branching-count problem, so the fix targets cognitive
// load rather than complexity "reduction".
func cognitiveHotspotRecommendation(item Item) (ActionableRecommendation, bool) {
	fn := item.Function
	if int(fn.AdjustedCyclomatic) >= item.Threshold || fn.Cognitive < uint32(item.Threshold)+5 {
		return ActionableRecommendation{}, false
	}
	return ActionableRecommendation{
		PrimaryAction: "refactor for cognitive load, not branch count",
		Rationale:     withComplexityCitation(item, fmt.Sprintf("cognitive complexity %d remains high despite adjusted cyclomatic %d", fn.Cognitive, fn.AdjustedCyclomatic)),
		Steps: []string{
			"replace nested conditionals with guard clauses",
			"prefer early returns over deep if/else chains",
		},
		EstimatedEffortHours: float64(fn.Cognitive) * 0.1,
	}, true
}

func testingGapRecommendation(item Item) ActionableRecommendation {
	fn := item.Function
	priorityNote := ""
	if fn.Purity.Level == models.StrictlyPure || fn.Purity.Level == models.LocallyPure {
		priorityNote = " (prefer this target first: it is easy to test and high ROI)"
	}
	return ActionableRecommendation{
		PrimaryAction: "add test coverage" + priorityNote,
		Rationale:     withComplexityCitation(item, "no coverage recorded for a reachable, non-test function"),
		Steps: []string{
			fmt.Sprintf("write %d unit tests covering the branches of this function", max(1, int(fn.AdjustedCyclomatic))),
		},
		EstimatedEffortHours: float64(fn.AdjustedCyclomatic) * 0.3,
	}
}

func fallbackRecommendation(item Item) ActionableRecommendation {
	return ActionableRecommendation{
		PrimaryAction:        "review during next refactor pass",
		Rationale:            "no specific recommendation rule matched this item",
		EstimatedEffortHours: 0.5,
	}
}

// withComplexityCitation builds rationale text that cites the adjusted
// complexity whenever dampening was applied, and parenthetically mentions
// the dampening factor when it is below 0.8 (spec §4.I).
func withComplexityCitation(item Item, detail string) string {
	fn := item.Function
	if fn == nil {
		return detail
	}

	var b strings.Builder
	b.WriteString(detail)
	if fn.AdjustedCyclomatic < fn.RawCyclomatic {
		fmt.Fprintf(&b, "; adjusted cyclomatic %d", fn.AdjustedCyclomatic)
		if fn.Entropy.DampeningFactor < 0.8 {
			fmt.Fprintf(&b, " (dampening factor %.2f)", fn.Entropy.DampeningFactor)
		}
	}
	return b.String()
}

func estimateTransitions(fn *models.FunctionRecord) int {
	if fn == nil {
		return 2
	}
	// Ceiling of cognitive/6: a state machine only fires above the 12-
	// cognitive detector gate, so this always yields at least 2 transitions.
	transitions := (int(fn.Cognitive) + 5) / 6
	if transitions < 2 {
		return 2
	}
	return transitions
}
