package models

// DebtItemCategory is the ranked-output category assigned to one debt item
// (spec §3). Kept distinct from DebtCategory, which names SATD marker
// categories rather than priority-scoring categories.
type DebtItemCategory string

const (
	DebtComplexityHotspot DebtItemCategory = "complexity_hotspot"
	DebtTestingGap        DebtItemCategory = "testing_gap"
	DebtGodObject         DebtItemCategory = "god_object"
	DebtGodModule         DebtItemCategory = "god_module"
	DebtDeadCode          DebtItemCategory = "dead_code"
	DebtDuplication       DebtItemCategory = "duplication"
	DebtCoordinator       DebtItemCategory = "coordinator"
	DebtStateMachine      DebtItemCategory = "state_machine"
)

// DebtItem is one ranked, scored, recommended unit of technical debt (spec
// §3): the final output record a run produces after extraction, enrichment,
// call-graph resolution, and scoring have all completed.
//
// Lifecycle mirrors FunctionRecord: assembled once per function (or, for
// god-object findings, once per file) after scoring, then left untouched.
type DebtItem struct {
	File     string `json:"file" toon:"file"`
	Line     uint32 `json:"line" toon:"line"`
	EndLine  uint32 `json:"end_line,omitempty" toon:"end_line,omitempty"`
	Function string `json:"function,omitempty" toon:"function,omitempty"`

	Category DebtItemCategory `json:"category" toon:"category"`

	RawCyclomatic      uint32  `json:"raw_cyclomatic,omitempty" toon:"raw_cyclomatic,omitempty"`
	RawCognitive       uint32  `json:"raw_cognitive,omitempty" toon:"raw_cognitive,omitempty"`
	AdjustedCyclomatic uint32  `json:"adjusted_cyclomatic,omitempty" toon:"adjusted_cyclomatic,omitempty"`
	WeightedComplexity float64 `json:"weighted_complexity,omitempty" toon:"weighted_complexity,omitempty"`

	CoveragePercent float64 `json:"coverage_percent" toon:"coverage_percent"`
	CoverageKnown   bool    `json:"coverage_known" toon:"coverage_known"`

	Score             float64 `json:"score" toon:"score"`
	Tier              string  `json:"tier" toon:"tier"`
	DominantComponent string  `json:"dominant_component" toon:"dominant_component"`
	Rationale         string  `json:"rationale" toon:"rationale"`

	PrimaryAction        string   `json:"primary_action" toon:"primary_action"`
	RecommendationSteps  []string `json:"recommendation_steps,omitempty" toon:"recommendation_steps,omitempty"`
	EstimatedEffortHours float64  `json:"estimated_effort_hours" toon:"estimated_effort_hours"`

	// ExpectedScoreDelta estimates how much the score would fall if this
	// item's dominant component were resolved, holding everything else
	// fixed — the expected impact of acting on the recommendation.
	ExpectedScoreDelta float64 `json:"expected_score_delta" toon:"expected_score_delta"`
}
