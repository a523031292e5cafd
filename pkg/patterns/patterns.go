// Package patterns implements the pattern detector (spec §4.E): at most one
// primary pattern per function, chosen by a fixed, most-specific-first
// priority order with a confidence floor of 0.7.
package patterns

import (
	"fmt"
	"strings"

	"github.com/debtlens/debtlens/pkg/extract"
	"github.com/debtlens/debtlens/pkg/models"
)

const confidenceFloor = 0.7

// Config carries the live values of the configurable thresholds of spec §6
// (patterns.state_machine.enabled, patterns.state_machine.min_transitions,
// patterns.coordinator.min_actions).
type Config struct {
	StateMachineEnabled      bool
	StateMachineMinTransitions int
	CoordinatorMinActions     int
}

// DefaultConfig matches the spec §6 defaults.
var DefaultConfig = Config{
	StateMachineEnabled:        true,
	StateMachineMinTransitions: 2,
	CoordinatorMinActions:      3,
}

// signals are the raw counts the detectors below read from; computing them
// once keeps the priority chain below a simple sequence of pure checks.
type signals struct {
	actionDispatches int // distinct call-site callees invoked from branch arms
	stateComparisons int // equality/comparison call sites touching a "state"-like target
	localPushes      int // local-mutation targets that look like accumulator pushes
	entropy          models.EntropyScore
}

// Detect returns the single highest-priority matching pattern, or the
// ModerateComplexity/Mixed fallback when nothing more specific clears the
// confidence floor.
func Detect(fn extract.ExtractedFunction, entropy models.EntropyScore, cfg Config) models.DetectedPattern {
	sig := computeSignals(fn)

	if cfg.StateMachineEnabled {
		if p, ok := detectStateMachine(fn, sig, cfg); ok {
			return p
		}
	}
	if p, ok := detectCoordinator(fn, sig, cfg); ok {
		return p
	}
	if p, ok := detectPureMapping(fn, entropy); ok {
		return p
	}
	if p, ok := detectChaotic(fn, entropy); ok {
		return p
	}
	return detectStructural(fn)
}

func computeSignals(fn extract.ExtractedFunction) signals {
	sig := signals{}
	calleeSeen := make(map[string]bool)
	for _, cs := range fn.CallSites {
		calleeSeen[cs.Callee] = true
		lower := strings.ToLower(cs.Callee)
		if strings.Contains(lower, "state") || strings.Contains(lower, "equal") || strings.Contains(lower, "matches") {
			sig.stateComparisons++
		}
	}
	sig.actionDispatches = len(calleeSeen)
	sig.localPushes = len(fn.LocalMutations)
	return sig
}

func detectStateMachine(fn extract.ExtractedFunction, sig signals, cfg Config) (models.DetectedPattern, bool) {
	if fn.RawCyclomatic < 6 || fn.Cognitive < 12 {
		return models.DetectedPattern{}, false
	}
	hasMatchOnEnum := hasBranchArms(fn)
	matched := 0
	if hasMatchOnEnum {
		matched++
	}
	if sig.stateComparisons >= 1 {
		matched++
	}
	if sig.actionDispatches >= cfg.StateMachineMinTransitions {
		matched++
	}
	if matched < 2 {
		return models.DetectedPattern{}, false
	}

	confidence := clampConfidence(0.4 + 0.2*float64(matched))
	if confidence < confidenceFloor {
		return models.DetectedPattern{}, false
	}
	return models.DetectedPattern{
		Kind:       models.PatternStateMachine,
		Confidence: confidence,
		Details:    fmt.Sprintf("%d action dispatches, %d state comparisons", sig.actionDispatches, sig.stateComparisons),
	}, true
}

func detectCoordinator(fn extract.ExtractedFunction, sig signals, cfg Config) (models.DetectedPattern, bool) {
	if sig.localPushes < cfg.CoordinatorMinActions || sig.stateComparisons < 2 {
		return models.DetectedPattern{}, false
	}
	confidence := clampConfidence(0.5 + 0.1*float64(sig.localPushes-cfg.CoordinatorMinActions+1) + 0.1*float64(sig.stateComparisons-1))
	if confidence < confidenceFloor {
		return models.DetectedPattern{}, false
	}
	return models.DetectedPattern{
		Kind:       models.PatternCoordinator,
		Confidence: confidence,
		Details:    fmt.Sprintf("%d accumulated actions, %d state comparisons", sig.localPushes, sig.stateComparisons),
	}, true
}

func detectPureMapping(fn extract.ExtractedFunction, entropy models.EntropyScore) (models.DetectedPattern, bool) {
	if !hasBranchArms(fn) || entropy.BranchSimilarity < 0.9 {
		return models.DetectedPattern{}, false
	}
	confidence := clampConfidence(0.6 + 0.4*entropy.BranchSimilarity)
	if confidence < confidenceFloor {
		return models.DetectedPattern{}, false
	}
	return models.DetectedPattern{
		Kind:       models.PatternPureMapping,
		Confidence: confidence,
		Details:    "every branch arm is a literal or single expression",
	}, true
}

func detectChaotic(fn extract.ExtractedFunction, entropy models.EntropyScore) (models.DetectedPattern, bool) {
	highEntropy := entropy.TokenEntropy >= 0.75
	highCognitive := fn.Cognitive >= 20
	if !highEntropy || !highCognitive {
		return models.DetectedPattern{}, false
	}
	confidence := clampConfidence(0.5 + 0.25*entropy.TokenEntropy)
	if confidence < confidenceFloor {
		return models.DetectedPattern{}, false
	}
	return models.DetectedPattern{
		Kind:       models.PatternChaotic,
		Confidence: confidence,
		Details:    "high token entropy with no recognizable structure",
	}, true
}

// detectStructural is the always-matching fallback chain: HighNesting,
// HighBranching, Mixed, ModerateComplexity.
func detectStructural(fn extract.ExtractedFunction) models.DetectedPattern {
	switch {
	case fn.MaxNesting >= 4:
		return models.DetectedPattern{
			Kind:       models.PatternHighNesting,
			Confidence: confidenceFloor,
			Details:    fmt.Sprintf("max nesting depth %d", fn.MaxNesting),
		}
	case float64(fn.RawCyclomatic) > float64(fn.Cognitive)*1.5:
		return models.DetectedPattern{
			Kind:       models.PatternHighBranching,
			Confidence: confidenceFloor,
			Details:    "cyclomatic complexity dominates over cognitive",
		}
	case fn.RawCyclomatic >= 4 && fn.Cognitive >= 8:
		return models.DetectedPattern{
			Kind:       models.PatternMixed,
			Confidence: confidenceFloor,
			Details:    "mixed branching and nesting, no single dominant shape",
		}
	default:
		return models.DetectedPattern{
			Kind:       models.PatternModerateComplexity,
			Confidence: confidenceFloor,
		}
	}
}

func hasBranchArms(fn extract.ExtractedFunction) bool {
	return len(fn.BranchArms) >= 2
}

func clampConfidence(c float64) float64 {
	if c > 1 {
		return 1
	}
	if c < 0 {
		return 0
	}
	return c
}

