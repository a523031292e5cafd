// Package output validates the versioned debt-item output record (spec §6)
// against its JSON Schema before a writer emits it, and re-validates a
// re-marshaled payload to exercise the round-trip property (spec §8 item 8).
// Schema validation is itself a narrow, out-of-core collaborator: the core
// scorer and recommender never import this package, only the CLI layer
// does, right before handing debt items to a writer.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/debtlens/debtlens/pkg/models"
)

// debtItemSchema is the JSON Schema for one models.DebtItem, covering the
// field set spec §6 declares stable: location, category, tier, score, raw
// and adjusted metrics, purity/pattern (folded into the category here since
// DebtItem flattens them), and recommendation. additionalProperties is left
// true since spec §6 requires "consumers must tolerate unknown additional
// fields" — the schema only pins down the fields it recognizes.
const debtItemSchema = `{
	"$id": "https://debtlens.dev/schema/debt-item.json",
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"additionalProperties": true,
	"required": ["file", "category", "score", "tier", "dominant_component", "rationale", "primary_action"],
	"properties": {
		"file": {"type": "string"},
		"line": {"type": "integer", "minimum": 0},
		"end_line": {"type": "integer", "minimum": 0},
		"function": {"type": "string"},
		"category": {
			"type": "string",
			"enum": ["complexity_hotspot", "testing_gap", "god_object", "god_module", "dead_code", "duplication", "coordinator", "state_machine"]
		},
		"raw_cyclomatic": {"type": "integer", "minimum": 0},
		"raw_cognitive": {"type": "integer", "minimum": 0},
		"adjusted_cyclomatic": {"type": "integer", "minimum": 0},
		"weighted_complexity": {"type": "number", "minimum": 0},
		"coverage_percent": {"type": "number", "minimum": 0, "maximum": 100},
		"coverage_known": {"type": "boolean"},
		"score": {"type": "number", "minimum": 0, "maximum": 100},
		"tier": {"type": "string", "enum": ["critical", "high", "medium", "low"]},
		"dominant_component": {"type": "string"},
		"rationale": {"type": "string"},
		"primary_action": {"type": "string"},
		"recommendation_steps": {"type": "array", "items": {"type": "string"}},
		"estimated_effort_hours": {"type": "number", "minimum": 0},
		"expected_score_delta": {"type": "number", "minimum": 0}
	}
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(debtItemSchema)))
		if err != nil {
			schemaErr = fmt.Errorf("unmarshal debt-item schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("https://debtlens.dev/schema/debt-item.json", doc); err != nil {
			schemaErr = fmt.Errorf("add debt-item schema resource: %w", err)
			return
		}
		schema, schemaErr = c.Compile("https://debtlens.dev/schema/debt-item.json")
	})
	return schema, schemaErr
}

// ValidateDebtItems marshals items to JSON and validates every element
// against the debt-item schema, returning the first validation error
// encountered (spec §6's "stable, versioned structure per debt item").
func ValidateDebtItems(items []models.DebtItem) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal debt items: %w", err)
	}

	var instances []any
	if err := json.Unmarshal(raw, &instances); err != nil {
		return fmt.Errorf("unmarshal debt items for validation: %w", err)
	}

	for i, inst := range instances {
		if err := sch.Validate(inst); err != nil {
			return fmt.Errorf("debt item %d failed schema validation: %w", i, err)
		}
	}
	return nil
}

// RoundTrip marshals items, unmarshals into a fresh slice, and re-marshals,
// returning the two byte payloads so a caller can assert byte-identical
// output (spec §8 item 8). It does not itself assert equality — tests do.
func RoundTrip(items []models.DebtItem) (first, second []byte, err error) {
	first, err = json.Marshal(items)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal debt items: %w", err)
	}

	var decoded []models.DebtItem
	if err := json.Unmarshal(first, &decoded); err != nil {
		return nil, nil, fmt.Errorf("unmarshal debt items: %w", err)
	}

	second, err = json.Marshal(decoded)
	if err != nil {
		return nil, nil, fmt.Errorf("re-marshal debt items: %w", err)
	}
	return first, second, nil
}
