// Package purity implements the four-level purity classifier (spec §4.C)
// over a function's extracted mutation and I/O evidence.
package purity

import (
	"fmt"

	"github.com/debtlens/debtlens/pkg/extract"
	"github.com/debtlens/debtlens/pkg/models"
)

const (
	confidenceSyntactic = 0.9
	confidenceFlow      = 0.7
	confidenceHeuristic = 0.5
)

// Classify applies the deterministic rules of spec §4.C in order and
// returns the first match: any I/O or external write makes a function
// Impure; external reads only make it ReadOnly; mutations confined to
// locally-created values make it LocallyPure; no mutations at all make it
// StrictlyPure.
func Classify(fn extract.ExtractedFunction) models.PurityClassification {
	if len(fn.IOOps) > 0 {
		return models.PurityClassification{
			Level:      models.Impure,
			Confidence: confidenceSyntactic,
			Violations: ioViolations(fn.IOOps),
		}
	}

	if len(fn.ExternalMutations) > 0 {
		return models.PurityClassification{
			Level:      models.Impure,
			Confidence: confidenceSyntactic,
			Violations: externalMutationViolations(fn.ExternalMutations),
		}
	}

	if len(fn.LocalMutations) > 0 {
		return models.PurityClassification{
			Level:      models.LocallyPure,
			Confidence: localPurityConfidence(fn),
			Violations: nil,
		}
	}

	if hasExternalReads(fn) {
		return models.PurityClassification{
			Level:      models.ReadOnly,
			Confidence: confidenceHeuristic,
		}
	}

	return models.PurityClassification{
		Level:      models.StrictlyPure,
		Confidence: confidenceSyntactic,
	}
}

func ioViolations(ops []extract.IOOperation) []models.PurityViolation {
	violations := make([]models.PurityViolation, 0, len(ops))
	for _, op := range ops {
		violations = append(violations, models.PurityViolation{
			Kind:        "io",
			Target:      string(op.Category),
			Line:        op.Line,
			Description: fmt.Sprintf("%s I/O at %s", op.Category, op.Detail),
		})
	}
	return violations
}

func externalMutationViolations(muts []extract.Mutation) []models.PurityViolation {
	violations := make([]models.PurityViolation, 0, len(muts))
	for _, m := range muts {
		violations = append(violations, models.PurityViolation{
			Kind:        "external_write",
			Target:      m.Target,
			Line:        m.Line,
			Description: fmt.Sprintf("mutates %s, which was not created in this function", m.Target),
		})
	}
	return violations
}

// localPurityConfidence reflects how directly the local-mutation evidence
// was gathered: a pure syntactic match (every mutation target traced to a
// declaration in the same function body, no call sites with unknown
// receivers) gets the higher end; anything touching a call site without a
// resolvable receiver falls back to the flow-analysis confidence.
func localPurityConfidence(fn extract.ExtractedFunction) float64 {
	for _, cs := range fn.CallSites {
		if cs.Kind == models.CallKindDynamic || cs.Kind == models.CallKindMethod {
			return confidenceFlow
		}
	}
	return confidenceSyntactic
}

// hasExternalReads is a heuristic: a function with parameters or call sites
// but no mutations and no I/O still reads external state through those
// inputs, so it is ReadOnly rather than StrictlyPure. A zero-parameter,
// zero-call-site function is StrictlyPure (e.g. a constant accessor).
func hasExternalReads(fn extract.ExtractedFunction) bool {
	return len(fn.Parameters) > 0 || len(fn.CallSites) > 0
}
