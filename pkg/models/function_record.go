package models

import "strconv"

// Role classifies the architectural purpose of a function.
type Role string

const (
	RolePure           Role = "pure"
	RoleBusinessLogic  Role = "business_logic"
	RoleIO             Role = "io"
	RoleOrchestrator   Role = "orchestrator"
	RoleTest           Role = "test"
	RoleDebug          Role = "debug"
	RoleEntryPoint     Role = "entry_point"
	RoleAccessor       Role = "accessor"
	RoleUnknown        Role = "unknown"
)

// PurityLevel is the four-level purity classification, ordered best to worst.
type PurityLevel string

const (
	StrictlyPure PurityLevel = "strictly_pure"
	LocallyPure  PurityLevel = "locally_pure"
	ReadOnly     PurityLevel = "read_only"
	Impure       PurityLevel = "impure"
)

// Rank returns an ordinal for the purity level; lower is purer.
// StrictlyPure=0, LocallyPure=1, ReadOnly=2, Impure=3.
func (p PurityLevel) Rank() int {
	switch p {
	case StrictlyPure:
		return 0
	case LocallyPure:
		return 1
	case ReadOnly:
		return 2
	case Impure:
		return 3
	default:
		return 3
	}
}

// CallKind classifies how one function invokes another.
type CallKind string

const (
	CallKindDirect       CallKind = "direct"
	CallKindMethod       CallKind = "method"
	CallKindTraitMethod  CallKind = "trait_method"
	CallKindStaticMethod CallKind = "static_method"
	CallKindDynamic      CallKind = "dynamic"
)

// PurityViolation records one piece of evidence behind a non-StrictlyPure verdict.
type PurityViolation struct {
	Kind        string `json:"kind" toon:"kind"` // "io" | "external_write" | "unknown_receiver"
	Target      string `json:"target,omitempty" toon:"target,omitempty"`
	Line        uint32 `json:"line,omitempty" toon:"line,omitempty"`
	Description string `json:"description" toon:"description"`
}

// PurityClassification is the output of the purity classifier (spec §4.C).
type PurityClassification struct {
	Level      PurityLevel       `json:"level" toon:"level"`
	Confidence float64           `json:"confidence" toon:"confidence"`
	Violations []PurityViolation `json:"violations,omitempty" toon:"violations,omitempty"`
}

// EntropyScore is the output of the entropy calculator (spec §4.B).
type EntropyScore struct {
	TokenEntropy       float64 `json:"token_entropy" toon:"token_entropy"`
	PatternRepetition  float64 `json:"pattern_repetition" toon:"pattern_repetition"`
	BranchSimilarity   float64 `json:"branch_similarity" toon:"branch_similarity"`
	DampeningFactor    float64 `json:"dampening_factor" toon:"dampening_factor"`
	AdjustedCyclomatic uint32  `json:"adjusted_cyclomatic" toon:"adjusted_cyclomatic"`
}

// PatternKind is the tagged variant of a detected per-function pattern (spec §4.E).
type PatternKind string

const (
	PatternStateMachine       PatternKind = "state_machine"
	PatternCoordinator        PatternKind = "coordinator"
	PatternPureMapping        PatternKind = "pure_mapping"
	PatternChaotic            PatternKind = "chaotic"
	PatternHighNesting        PatternKind = "high_nesting"
	PatternHighBranching      PatternKind = "high_branching"
	PatternMixed              PatternKind = "mixed"
	PatternModerateComplexity PatternKind = "moderate_complexity"
)

// DetectedPattern is the at-most-one primary pattern assigned to a function.
type DetectedPattern struct {
	Kind       PatternKind `json:"kind" toon:"kind"`
	Confidence float64     `json:"confidence" toon:"confidence"`
	Details    string      `json:"details,omitempty" toon:"details,omitempty"`
}

// GitHistoryStats carries the per-file churn facts a function record is enriched with.
type GitHistoryStats struct {
	CommitsLast30Days int    `json:"commits_last_30_days" toon:"commits_last_30_days"`
	LastModifiedUnix  int64  `json:"last_modified_unix,omitempty" toon:"last_modified_unix,omitempty"`
	Known             bool   `json:"known" toon:"known"`
}

// FunctionRecord is the canonical per-function data model (spec §3).
//
// Lifecycle: created during extraction with File/QualifiedName/Line/raw
// metrics populated; enriched in order entropy -> purity -> patterns ->
// adjusted complexity -> call-graph linkage; scored once; then frozen.
// No field is mutated after Frozen is set to true.
type FunctionRecord struct {
	File          string `json:"file" toon:"file"`
	Name          string `json:"name" toon:"name"`
	QualifiedName string `json:"qualified_name" toon:"qualified_name"`
	Line          uint32 `json:"line" toon:"line"`
	EndLine       uint32 `json:"end_line" toon:"end_line"`
	Language      string `json:"language" toon:"language"`

	RawCyclomatic uint32   `json:"raw_cyclomatic" toon:"raw_cyclomatic"`
	Cognitive     uint32   `json:"cognitive" toon:"cognitive"`
	MaxNesting    int      `json:"max_nesting" toon:"max_nesting"`
	Length        int      `json:"length" toon:"length"`
	Parameters    []string `json:"parameters,omitempty" toon:"parameters,omitempty"`

	Role          Role   `json:"role" toon:"role"`
	IsTest        bool   `json:"is_test" toon:"is_test"`
	Visibility    string `json:"visibility" toon:"visibility"`
	IsTraitMethod bool   `json:"is_trait_method" toon:"is_trait_method"`

	Entropy            EntropyScore      `json:"entropy_score" toon:"entropy_score"`
	Purity             PurityClassification `json:"purity" toon:"purity"`
	Patterns           []DetectedPattern `json:"patterns,omitempty" toon:"patterns,omitempty"`
	AdjustedCyclomatic uint32            `json:"adjusted_cyclomatic" toon:"adjusted_cyclomatic"`
	WeightedComplexity float64           `json:"weighted_complexity" toon:"weighted_complexity"`

	CallerIDs    []string `json:"caller_ids,omitempty" toon:"-"`
	CalleeIDs    []string `json:"callee_ids,omitempty" toon:"-"`
	CallerCount  int      `json:"caller_count" toon:"caller_count"`
	CalleeCount  int      `json:"callee_count" toon:"callee_count"`
	IsEntryPoint bool     `json:"is_entry_point" toon:"is_entry_point"`

	Git GitHistoryStats `json:"git" toon:"git"`

	Frozen bool `json:"-" toon:"-"`
}

// ID returns the stable identity tuple (file, qualified name, line) as a string key.
func (f *FunctionRecord) ID() string {
	return f.File + "#" + f.QualifiedName + "#" + strconv.FormatUint(uint64(f.Line), 10)
}

// Freeze marks the record as scored and immutable. Callers must not mutate
// a frozen record; this is an invariant check helper for tests, not an
// enforcement mechanism (Go has no const-after-init fields).
func (f *FunctionRecord) Freeze() {
	f.Frozen = true
}
