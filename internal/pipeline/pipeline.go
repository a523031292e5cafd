// Package pipeline orchestrates one end-to-end run over a set of source
// files: extraction, per-function enrichment (entropy, purity, role,
// patterns), the complexity-normalization reduce step, call-graph
// resolution, god-object detection, unified priority scoring, and
// recommendation synthesis (spec §4, §5). It is the one place all of those
// packages are wired together into a ranked, deterministic result.
package pipeline

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/debtlens/debtlens/pkg/analyzer/churn"
	"github.com/debtlens/debtlens/pkg/callgraph"
	"github.com/debtlens/debtlens/pkg/complexity"
	"github.com/debtlens/debtlens/pkg/coverage"
	"github.com/debtlens/debtlens/pkg/entropy"
	"github.com/debtlens/debtlens/pkg/extract"
	"github.com/debtlens/debtlens/pkg/godobject"
	"github.com/debtlens/debtlens/pkg/models"
	"github.com/debtlens/debtlens/pkg/parser"
	"github.com/debtlens/debtlens/pkg/patterns"
	"github.com/debtlens/debtlens/pkg/priority"
	"github.com/debtlens/debtlens/pkg/purity"
	"github.com/debtlens/debtlens/pkg/recommend"
	"github.com/debtlens/debtlens/pkg/role"
)

// Options configures one pipeline run. Zero-value fields fall back to the
// spec §6 defaults via the pkg/* DefaultX values each phase already owns.
type Options struct {
	// RepoPath enables the churn component; empty skips it (scored as 0
	// churn rather than failing the run, same as the teacher's git-history
	// analyzers degrading gracefully outside a repo).
	RepoPath  string
	ChurnDays int

	// CoveragePath, when set, loads a coverage report (LCOV or JSON) and
	// scores the coverage component against it.
	CoveragePath string

	ComplexityThreshold int // cyclomatic threshold gating hotspot/pattern recommendation rules
	Patterns            patterns.Config
	GodObject           godobject.Thresholds
	Weights             priority.Weights
	TierThresholds       priority.TierThresholds

	// MinTier excludes items below this tier from the ranked result; zero
	// value (TierLow) keeps everything.
	MinTier priority.Tier

	// OnFileDone, when set, is called once per file after extraction —
	// wired to an internal/progress.Tracker.Tick by callers.
	OnFileDone func()
}

// Result is the full output of one run.
type Result struct {
	Items      []models.DebtItem
	Functions  []*models.FunctionRecord
	CallGraph  *models.FuncCallGraph
	GodObjects []godobject.Finding
}

// DefaultOptions returns the spec §6 defaults for every phase.
func DefaultOptions() Options {
	return Options{
		ChurnDays:           30,
		ComplexityThreshold: 10,
		Patterns:            patterns.DefaultConfig,
		GodObject:           godobject.DefaultThresholds,
		Weights:             priority.DefaultWeights,
		TierThresholds:      priority.DefaultTierThresholds,
		MinTier:             priority.TierLow,
	}
}

// Run executes phases A through I over files and returns a deterministically
// ordered Result: items sorted by score descending, ties broken by file then
// line (spec §5's determinism guarantee).
func Run(ctx context.Context, files []string, opts Options) (*Result, error) {
	if opts.ChurnDays <= 0 {
		opts.ChurnDays = 30
	}
	if opts.Weights == (priority.Weights{}) {
		opts.Weights = priority.DefaultWeights
	}
	if opts.TierThresholds == (priority.TierThresholds{}) {
		opts.TierThresholds = priority.DefaultTierThresholds
	}

	extracted := extractAll(files, opts.OnFileDone)

	var cov *coverage.Report
	if opts.CoveragePath != "" {
		if r, err := coverage.Load(opts.CoveragePath); err == nil {
			cov = r
		}
	}

	churnByFile := churnCounts(ctx, opts.RepoPath, files, opts.ChurnDays)

	patternsCfg := opts.Patterns
	if patternsCfg == (patterns.Config{}) {
		patternsCfg = patterns.DefaultConfig
	}
	records, normalizer := enrich(extracted, churnByFile, patternsCfg)

	graph := resolveCallGraph(extracted)
	linkCallGraph(records, graph)

	godObjects := analyzeGodObjects(extracted, opts.GodObject)

	items := scoreItems(records, godObjects, cov, opts)

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		if items[i].File != items[j].File {
			return items[i].File < items[j].File
		}
		return items[i].Line < items[j].Line
	})

	return &Result{
		Items:      items,
		Functions:  records,
		CallGraph:  graph,
		GodObjects: godObjects,
	}, nil
}

// extractAll parses every file in parallel, one tree-sitter parser per
// worker, matching the pool idiom of internal/fileproc.MapFiles.
// Unsupported-language paths and parse failures are skipped rather than
// aborting the run (spec §7).
func extractAll(files []string, onDone func()) []*extract.ExtractedFileData {
	if len(files) == 0 {
		return nil
	}

	results := make([]*extract.ExtractedFileData, 0, len(files))
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(runtime.NumCPU() * 2)
	for _, path := range files {
		if parser.DetectLanguage(path) == parser.LangUnknown {
			continue
		}
		p.Go(func() {
			ps := parser.New()
			defer ps.Close()

			ex := extract.FromParser(ps)
			fd, err := ex.ExtractFile(path)
			if onDone != nil {
				onDone()
			}
			if err != nil || fd == nil || fd.Unanalyzable {
				return
			}

			mu.Lock()
			results = append(results, fd)
			mu.Unlock()
		})
	}
	p.Wait()

	return results
}

// enrich runs entropy, purity, role, and pattern detection over every
// extracted function, then derives the per-run Normalizer from the observed
// maxima and applies it — the reduce-then-map structure spec §5 requires:
// no function's weighted complexity can be computed until every file in the
// run has been enriched.
func enrich(extracted []*extract.ExtractedFileData, churnByFile map[string]int, patternsCfg patterns.Config) ([]*models.FunctionRecord, complexity.Normalizer) {
	type staged struct {
		fn    extract.ExtractedFunction
		file  *extract.ExtractedFileData
		pur   models.PurityClassification
		ent   models.EntropyScore
		role  models.Role
		pats  []models.DetectedPattern
	}

	var stagedFns []staged
	var maxCyclomatic, maxCognitive float64

	for _, fd := range extracted {
		for _, fn := range fd.Functions {
			ent := entropy.CalculateForFunction(fn)
			pur := purity.Classify(fn)
			rl := role.Classify(fn, pur.Level)

			var pats []models.DetectedPattern
			if pat := patterns.Detect(fn, ent, patternsCfg); pat.Kind != "" {
				pats = append(pats, pat)
			}

			if float64(ent.AdjustedCyclomatic) > maxCyclomatic {
				maxCyclomatic = float64(ent.AdjustedCyclomatic)
			}
			if float64(fn.Cognitive) > maxCognitive {
				maxCognitive = float64(fn.Cognitive)
			}

			stagedFns = append(stagedFns, staged{fn: fn, file: fd, pur: pur, ent: ent, role: rl, pats: pats})
		}
	}

	normalizer := complexity.NewNormalizer(maxCyclomatic, maxCognitive)

	records := make([]*models.FunctionRecord, 0, len(stagedFns))
	for _, s := range stagedFns {
		rec := &models.FunctionRecord{
			File:               s.file.Path,
			Name:               s.fn.Name,
			QualifiedName:      s.fn.QualifiedName,
			Line:               s.fn.Line,
			EndLine:            s.fn.EndLine,
			Language:           s.file.Language,
			RawCyclomatic:      s.fn.RawCyclomatic,
			Cognitive:          s.fn.Cognitive,
			MaxNesting:         s.fn.MaxNesting,
			Length:             s.fn.Length,
			Parameters:         s.fn.Parameters,
			Role:               s.role,
			IsTest:             s.fn.IsTest,
			Visibility:         s.fn.Visibility,
			IsTraitMethod:      s.fn.IsTraitMethod,
			Entropy:            s.ent,
			Purity:             s.pur,
			Patterns:           s.pats,
			AdjustedCyclomatic: s.ent.AdjustedCyclomatic,
		}
		rec.WeightedComplexity = complexity.WeightedComplexity(rec.Role, rec.AdjustedCyclomatic, rec.Cognitive, normalizer)
		if days, ok := churnByFile[rec.File]; ok {
			rec.Git = models.GitHistoryStats{CommitsLast30Days: days, Known: true}
		}
		records = append(records, rec)
	}

	return records, normalizer
}

// resolveCallGraph runs the two-phase resolution of pkg/callgraph: phase 1
// registers every file's functions as nodes, phase 2 resolves call sites.
func resolveCallGraph(extracted []*extract.ExtractedFileData) *models.FuncCallGraph {
	r := callgraph.NewResolver()
	for _, fd := range extracted {
		r.AddFile(fd)
	}
	return r.Resolve(extracted)
}

// linkCallGraph enriches each function record with the caller/callee counts
// and entry-point flag the call graph computed, joining on the shared
// (file, qualified name, line) identity the two packages agree on.
func linkCallGraph(records []*models.FunctionRecord, graph *models.FuncCallGraph) {
	for _, rec := range records {
		node, ok := graph.Nodes[rec.ID()]
		if !ok {
			continue
		}
		rec.CallerCount = node.CallerCount
		rec.CalleeCount = node.CalleeCount
		rec.IsEntryPoint = node.IsEntryPoint
		rec.CallerIDs = graph.Callers(rec.ID())
		rec.CalleeIDs = graph.Callees(rec.ID())
	}
}

// analyzeGodObjects runs the per-file god-object analyzer over every
// extracted file and keeps only the findings that qualify (spec §4.G).
func analyzeGodObjects(extracted []*extract.ExtractedFileData, th godobject.Thresholds) []godobject.Finding {
	var out []godobject.Finding
	for _, fd := range extracted {
		f := godobject.Analyze(fd, th)
		if f.IsGodObject {
			out = append(out, f)
		}
	}
	return out
}

// scoreItems composes the unified priority score for every function and
// god-object finding, synthesizes a recommendation for each, and filters to
// opts.MinTier and above.
func scoreItems(records []*models.FunctionRecord, findings []godobject.Finding, cov *coverage.Report, opts Options) []models.DebtItem {
	var items []models.DebtItem

	for _, rec := range records {
		if rec.IsTest {
			continue
		}

		coveragePct, coverageKnown := 0.0, false
		if cov != nil {
			coveragePct, coverageKnown = cov.FunctionCoverage(rec.File, rec.Line, rec.EndLine)
		}

		pcat, dcat := categoryFor(rec, coverageKnown, coveragePct)

		in := priority.Inputs{
			WeightedComplexity: rec.WeightedComplexity,
			Purity:             rec.Purity,
			IsTest:             rec.IsTest,
			Reachable:          rec.CallerCount > 0 || rec.IsEntryPoint,
			CoveragePercent:    coveragePct,
			CoverageKnown:      coverageKnown,
			CallerCount:        rec.CallerCount,
			CalleeCount:        rec.CalleeCount,
			IsEntryPoint:       rec.IsEntryPoint,
			CommitsLast30Days:  rec.Git.CommitsLast30Days,
		}
		result := priority.Score(in, opts.Weights, opts.TierThresholds)
		if tierRank(result.Tier) < tierRank(opts.MinTier) {
			continue
		}

		rec.Freeze()

		rc := recommend.Synthesize(recommend.Item{
			Category:  pcat,
			Function:  rec,
			Threshold: opts.ComplexityThreshold,
		})

		items = append(items, models.DebtItem{
			File:                 rec.File,
			Line:                 rec.Line,
			EndLine:              rec.EndLine,
			Function:             rec.QualifiedName,
			Category:             dcat,
			RawCyclomatic:        rec.RawCyclomatic,
			RawCognitive:         rec.Cognitive,
			AdjustedCyclomatic:   rec.AdjustedCyclomatic,
			WeightedComplexity:   rec.WeightedComplexity,
			CoveragePercent:      coveragePct,
			CoverageKnown:        coverageKnown,
			Score:                result.Score,
			Tier:                 string(result.Tier),
			DominantComponent:    result.DominantComponent,
			Rationale:            result.Rationale,
			PrimaryAction:        rc.PrimaryAction,
			RecommendationSteps:  rc.Steps,
			EstimatedEffortHours: rc.EstimatedEffortHours,
			ExpectedScoreDelta:   expectedDelta(in, result, opts),
		})
	}

	for i := range findings {
		f := findings[i]
		score := f.Score
		tier := priority.TierOf(score, opts.TierThresholds)
		if tierRank(tier) < tierRank(opts.MinTier) {
			continue
		}

		category := models.DebtGodObject
		pcat := priority.CategoryGodObject
		if f.FieldCount == 0 && f.MethodCount == 0 && f.ModuleFunctionCount > opts.GodObject.MethodThreshold {
			category = models.DebtGodModule
			pcat = priority.CategoryGodModule
		}

		rc := recommend.Synthesize(recommend.Item{Category: pcat, GodFinding: &f})

		items = append(items, models.DebtItem{
			File:                 f.File,
			Category:             category,
			Score:                score,
			Tier:                 string(tier),
			DominantComponent:    "structure",
			Rationale:            string(f.Severity) + " severity god object",
			PrimaryAction:        rc.PrimaryAction,
			RecommendationSteps:  rc.Steps,
			EstimatedEffortHours: rc.EstimatedEffortHours,
			ExpectedScoreDelta:   score * 0.5,
		})
	}

	return items
}

// categoryFor classifies a function's debt category using the pattern and
// reachability signals already computed during enrichment, in priority
// order: dead code, detected pattern, testing gap, then the default
// complexity-hotspot bucket.
func categoryFor(rec *models.FunctionRecord, coverageKnown bool, coveragePct float64) (priority.Category, models.DebtItemCategory) {
	switch {
	case rec.CallerCount == 0 && !rec.IsEntryPoint && !rec.IsTraitMethod:
		return priority.CategoryDeadCode, models.DebtDeadCode
	case hasPattern(rec, models.PatternStateMachine):
		return priority.CategoryComplexityHotspot, models.DebtStateMachine
	case hasPattern(rec, models.PatternCoordinator):
		return priority.CategoryComplexityHotspot, models.DebtCoordinator
	case coverageKnown && coveragePct < 50 && (rec.CallerCount > 0 || rec.IsEntryPoint):
		return priority.CategoryTestingGap, models.DebtTestingGap
	default:
		return priority.CategoryComplexityHotspot, models.DebtComplexityHotspot
	}
}

func hasPattern(rec *models.FunctionRecord, kind models.PatternKind) bool {
	for _, p := range rec.Patterns {
		if p.Kind == kind {
			return true
		}
	}
	return false
}

func tierRank(t priority.Tier) int {
	switch t {
	case priority.TierCritical:
		return 3
	case priority.TierHigh:
		return 2
	case priority.TierMedium:
		return 1
	default:
		return 0
	}
}

// expectedDelta estimates how much the score would drop if the dominant
// component were fully resolved, holding every other input fixed.
func expectedDelta(in priority.Inputs, result priority.Result, opts Options) float64 {
	improved := in
	switch result.DominantComponent {
	case "complexity":
		improved.WeightedComplexity = 0
	case "coverage":
		improved.CoveragePercent = 100
	case "churn":
		improved.CommitsLast30Days = 0
	default:
		return 0
	}
	better := priority.Score(improved, opts.Weights, opts.TierThresholds)
	delta := result.Score - better.Score
	if delta < 0 {
		return 0
	}
	return delta
}

// churnCounts returns each file's commit count over the trailing window,
// keyed by the same path extraction used. Returns an empty map (not an
// error) when repoPath is empty or isn't a git repository, matching the
// teacher's other git-history analyzers degrading gracefully.
func churnCounts(ctx context.Context, repoPath string, files []string, days int) map[string]int {
	out := make(map[string]int)
	if repoPath == "" {
		return out
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if runCtx == nil {
		runCtx, cancel = context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
	}

	analyzer := churn.New(churn.WithDays(days))
	analysis, err := analyzer.Analyze(runCtx, repoPath, files)
	if err != nil || analysis == nil {
		return out
	}
	for _, fm := range analysis.Files {
		out[fm.Path] = fm.Commits
	}
	return out
}
