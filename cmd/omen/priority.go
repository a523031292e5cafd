package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/debtlens/debtlens/internal/output"
	"github.com/debtlens/debtlens/internal/pipeline"
	"github.com/debtlens/debtlens/internal/progress"
	scannerSvc "github.com/debtlens/debtlens/internal/service/scanner"
	"github.com/debtlens/debtlens/pkg/config"
	"github.com/debtlens/debtlens/pkg/godobject"
	"github.com/debtlens/debtlens/pkg/models"
	debtoutput "github.com/debtlens/debtlens/pkg/output"
	"github.com/debtlens/debtlens/pkg/patterns"
	"github.com/debtlens/debtlens/pkg/priority"
	"github.com/spf13/cobra"
)

var priorityCmd = &cobra.Command{
	Use:     "priority [path...]",
	Aliases: []string{"debt", "rank"},
	Short:   "Rank technical debt across the repository by unified priority score",
	RunE:    runPriority,
}

func init() {
	priorityCmd.Flags().StringP("format", "f", "text", "Output format: text, json, markdown")
	priorityCmd.Flags().StringP("output", "o", "", "Write output to file")
	priorityCmd.Flags().Int("days", 0, "Days of git history for churn scoring (0 = config default)")
	priorityCmd.Flags().String("coverage", "", "Path to a coverage report (LCOV or JSON)")
	priorityCmd.Flags().String("min-tier", "low", "Minimum tier to include: critical, high, medium, low")
	priorityCmd.Flags().Int("limit", 0, "Limit output to the top N items (0 = no limit)")

	rootCmd.AddCommand(priorityCmd)
}

func runPriority(cmd *cobra.Command, args []string) error {
	paths := getPaths(args)

	cfg, err := config.LoadOrDefault()
	if err != nil {
		return err
	}

	scanSvc := scannerSvc.New(scannerSvc.WithConfig(cfg))
	scanResult, err := scanSvc.ScanPaths(paths)
	if err != nil {
		return err
	}

	if len(scanResult.Files) == 0 {
		color.Yellow("No source files found")
		return nil
	}

	minTier, err := parseTier(cmd)
	if err != nil {
		return err
	}

	days, _ := cmd.Flags().GetInt("days")
	if days <= 0 {
		days = cfg.Analysis.ChurnDays
	}
	coveragePath, _ := cmd.Flags().GetString("coverage")

	opts := pipeline.Options{
		RepoPath:            scanResult.RepoRoot,
		ChurnDays:           days,
		CoveragePath:        coveragePath,
		ComplexityThreshold: cfg.Complexity.Thresholds.Cyclomatic,
		Patterns: patterns.Config{
			StateMachineEnabled:        cfg.Patterns.StateMachine.Enabled,
			StateMachineMinTransitions: cfg.Patterns.StateMachine.MinTransitions,
			CoordinatorMinActions:      cfg.Patterns.Coordinator.MinActions,
		},
		GodObject: godobject.Thresholds{
			MethodThreshold: cfg.GodObject.MethodThreshold,
			LOCThreshold:    cfg.GodObject.LOCThreshold,
		},
		Weights: priority.Weights{
			Complexity: cfg.Scoring.Weights.Complexity,
			Coverage:   cfg.Scoring.Weights.Coverage,
			Dependency: cfg.Scoring.Weights.Dependency,
			Churn:      cfg.Scoring.Weights.Churn,
		},
		TierThresholds: priority.TierThresholds{
			Critical: cfg.Scoring.Tiers.Critical,
			High:     cfg.Scoring.Tiers.High,
			Medium:   cfg.Scoring.Tiers.Medium,
		},
		MinTier: minTier,
	}

	tracker := progress.NewTracker("Ranking technical debt...", len(scanResult.Files))
	opts.OnFileDone = tracker.Tick

	result, err := pipeline.Run(context.Background(), scanResult.Files, opts)
	if err != nil {
		tracker.FinishError(err)
		return fmt.Errorf("priority analysis failed: %w", err)
	}
	tracker.FinishSuccess()

	items := result.Items
	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	format, _ := cmd.Flags().GetString("format")
	outFile, _ := cmd.Flags().GetString("output")
	formatter, err := output.NewFormatter(output.ParseFormat(format), outFile, true)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if formatter.Format() == output.FormatJSON {
		if err := debtoutput.ValidateDebtItems(items); err != nil {
			return fmt.Errorf("emitted debt items failed schema validation: %w", err)
		}
		return formatter.Output(items)
	}

	if len(items) == 0 {
		color.Green("No debt items found at or above the selected tier")
		return nil
	}

	table := priorityTable(items)
	if err := formatter.Output(table); err != nil {
		return err
	}
	fmt.Printf("\n%d items\n", len(items))
	return nil
}

func parseTier(cmd *cobra.Command) (priority.Tier, error) {
	raw, _ := cmd.Flags().GetString("min-tier")
	switch raw {
	case "critical":
		return priority.TierCritical, nil
	case "high":
		return priority.TierHigh, nil
	case "medium":
		return priority.TierMedium, nil
	case "low", "":
		return priority.TierLow, nil
	default:
		return "", fmt.Errorf("invalid --min-tier %q: want critical, high, medium, or low", raw)
	}
}

func priorityTable(items []models.DebtItem) *output.Table {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		scoreStr := fmt.Sprintf("%.1f", it.Score)
		switch it.Tier {
		case "critical":
			scoreStr = color.RedString(scoreStr)
		case "high":
			scoreStr = color.YellowString(scoreStr)
		}

		loc := it.File
		if it.Line > 0 {
			loc = fmt.Sprintf("%s:%d", it.File, it.Line)
		}

		rows = append(rows, []string{
			scoreStr,
			it.Tier,
			string(it.Category),
			loc,
			it.Function,
			it.PrimaryAction,
		})
	}

	return output.NewTable(
		"Technical Debt, Ranked by Priority",
		[]string{"Score", "Tier", "Category", "Location", "Function", "Recommendation"},
		rows,
		nil,
		items,
	)
}
