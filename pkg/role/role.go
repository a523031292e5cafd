// Package role assigns the architectural Role (spec §3) a function plays,
// feeding the role-weight overrides in pkg/complexity.
package role

import (
	"strings"

	"github.com/debtlens/debtlens/pkg/extract"
	"github.com/debtlens/debtlens/pkg/models"
)

// Classify derives a function's Role from its extracted shape and purity
// verdict. Entry points and tests are identified structurally; IO and pure
// roles follow directly from the purity classification; everything else
// falls back to a name-shape heuristic between accessor, orchestrator, and
// business logic.
func Classify(fn extract.ExtractedFunction, purity models.PurityLevel) models.Role {
	switch {
	case fn.IsEntryPoint:
		return models.RoleEntryPoint
	case fn.IsTest:
		return models.RoleTest
	case fn.IsDebug:
		return models.RoleDebug
	case purity == models.Impure && hasIOEvidence(fn):
		return models.RoleIO
	case purity == models.StrictlyPure || purity == models.LocallyPure:
		return models.RolePure
	}

	name := strings.ToLower(fn.Name)
	switch {
	case isAccessorName(name):
		return models.RoleAccessor
	case len(fn.CallSites) >= 3 && fn.RawCyclomatic <= 3:
		return models.RoleOrchestrator
	case fn.RawCyclomatic >= 4:
		return models.RoleBusinessLogic
	default:
		return models.RoleUnknown
	}
}

func hasIOEvidence(fn extract.ExtractedFunction) bool {
	return len(fn.IOOps) > 0
}

func isAccessorName(name string) bool {
	prefixes := []string{"get", "set", "is", "has", "to_string", "tostring"}
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
