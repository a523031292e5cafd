package extract

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/debtlens/debtlens/pkg/parser"
)

// The decision-point, cognitive-weighting, and nesting-depth helpers below
// are grounded on the teacher's internal/analyzer/complexity.go tree-sitter
// walk, generalized to also feed the entropy token stream and mutation scan
// that spec §4.A additionally requires.

func makeSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// matchContainerArms maps a language's match/switch container node types to
// the node types of their arms. A match or switch is not itself a single
// decision point: each arm beyond the first is (spec §4.A), so the
// container's contribution to both cyclomatic and cognitive complexity is
// derived from its arm count rather than from the container node alone.
func matchContainerArms(lang parser.Language) map[string][]string {
	switch lang {
	case parser.LangGo:
		return map[string][]string{
			"expression_switch_statement": {"expression_case", "default_case"},
			"type_switch_statement":       {"type_case", "default_case"},
		}
	case parser.LangRust:
		return map[string][]string{
			"match_expression": {"match_arm"},
		}
	case parser.LangPython:
		return map[string][]string{
			"match_statement": {"case_clause"},
		}
	case parser.LangTypeScript, parser.LangJavaScript, parser.LangTSX:
		return map[string][]string{
			"switch_statement": {"switch_case", "switch_default"},
		}
	case parser.LangJava, parser.LangCSharp:
		return map[string][]string{
			"switch_statement":  {"switch_block_statement_group", "switch_rule", "switch_section"},
			"switch_expression": {"switch_block_statement_group", "switch_rule", "switch_expression_arm"},
		}
	case parser.LangC, parser.LangCPP:
		return map[string][]string{
			"switch_statement": {"case_statement"},
		}
	case parser.LangRuby:
		return map[string][]string{
			"case": {"when", "in_clause"},
		}
	case parser.LangPHP:
		return map[string][]string{
			"switch_statement": {"case_statement", "default_statement"},
		}
	default:
		return nil
	}
}

func matchContainerTypesSet(armMap map[string][]string) map[string]bool {
	set := make(map[string]bool, len(armMap))
	for container := range armMap {
		set[container] = true
	}
	return set
}

// collectArmNodes walks container's subtree and returns every node whose
// type is in armTypes, without descending into a nested match/switch
// container (those resolve their own arms independently).
func collectArmNodes(container *sitter.Node, armTypes, containerTypes map[string]bool) []*sitter.Node {
	var arms []*sitter.Node
	var walk func(nd *sitter.Node)
	walk = func(nd *sitter.Node) {
		for i := 0; i < int(nd.ChildCount()); i++ {
			child := nd.Child(i)
			t := child.Type()
			if containerTypes[t] {
				continue
			}
			if armTypes[t] {
				arms = append(arms, child)
			}
			walk(child)
		}
	}
	walk(container)
	return arms
}

// countDecisionPoints counts branching constructs for cyclomatic complexity,
// including a +1 for each short-circuit boolean operator (spec §4.A) and
// N-1 for each N-armed match/switch (a flat 10-arm match contributes 9, so
// that with the function's base complexity of 1 the total is 10).
func countDecisionPoints(node *sitter.Node, source []byte, lang parser.Language) uint32 {
	var count uint32
	decisionTypes := makeSet(getDecisionNodeTypes(lang))
	armMap := matchContainerArms(lang)
	containerTypes := matchContainerTypesSet(armMap)

	allArmTypes := make(map[string]bool)
	for _, arms := range armMap {
		for _, a := range arms {
			allArmTypes[a] = true
		}
	}

	parser.WalkTyped(node, source, func(n *sitter.Node, nodeType string, src []byte) bool {
		if arms, ok := armMap[nodeType]; ok {
			armNodes := collectArmNodes(n, makeSet(arms), containerTypes)
			if len(armNodes) > 1 {
				count += uint32(len(armNodes) - 1)
			}
			return true
		}
		if decisionTypes[nodeType] {
			count++
		}
		if nodeType == "binary_expression" || nodeType == "logical_expression" {
			op := getOperator(n, src)
			if op == "&&" || op == "||" || op == "and" || op == "or" {
				count++
			}
		}
		// Guard clauses on pattern-match arms are an extra decision point
		// beyond the arm itself (spec §4.A).
		if allArmTypes[nodeType] && hasGuardClause(n) {
			count++
		}
		return true
	})

	return count
}

func hasGuardClause(node *sitter.Node) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "if" {
			return true
		}
	}
	return false
}

func getDecisionNodeTypes(lang parser.Language) []string {
	common := []string{
		"if_statement", "if_expression",
		"while_statement", "while_expression",
		"for_statement", "for_expression",
		"case_statement", "catch_clause",
		"ternary_expression", "conditional_expression",
	}

	switch lang {
	case parser.LangGo:
		return append(common, "select_statement", "type_switch_statement", "expression_switch_statement")
	case parser.LangRust:
		return append(common, "match_expression", "loop_expression", "if_let_expression")
	case parser.LangPython:
		return append(common, "elif_clause", "except_clause", "with_statement", "comprehension")
	case parser.LangTypeScript, parser.LangJavaScript, parser.LangTSX:
		return append(common, "switch_statement", "do_statement")
	case parser.LangJava, parser.LangCSharp:
		return append(common, "switch_statement", "switch_expression", "do_statement", "enhanced_for_statement")
	case parser.LangC, parser.LangCPP:
		return append(common, "switch_statement", "do_statement")
	case parser.LangRuby:
		return []string{"if", "elsif", "unless", "while", "until", "for", "case", "when", "rescue", "conditional"}
	case parser.LangPHP:
		return append(common, "switch_statement", "elseif_clause")
	default:
		return common
	}
}

func getOperator(node *sitter.Node, source []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "&&" || child.Type() == "||" || child.Type() == "and" || child.Type() == "or" {
			return child.Type()
		}
		if child.IsNamed() && child.Type() == "operator" {
			return parser.GetNodeText(child, source)
		}
	}
	return ""
}

type cognitiveTypeInfo struct {
	nesting         map[string]bool
	flat            map[string]bool
	matchArms       map[string][]string
	matchContainers map[string]bool
}

func buildCognitiveTypeInfo(lang parser.Language) cognitiveTypeInfo {
	types := getCognitiveNodeTypes(lang)
	info := cognitiveTypeInfo{nesting: make(map[string]bool), flat: make(map[string]bool)}
	for _, ct := range types {
		if ct.incrementsNesting {
			info.nesting[ct.nodeType] = true
		} else {
			info.flat[ct.nodeType] = true
		}
	}
	info.matchArms = matchContainerArms(lang)
	info.matchContainers = matchContainerTypesSet(info.matchArms)
	return info
}

func calculateCognitiveComplexity(node *sitter.Node, source []byte, lang parser.Language, depth int) uint32 {
	info := buildCognitiveTypeInfo(lang)
	return calcCognitiveWithContext(node, source, info, depth, false)
}

// matchContainerCognitive scores a match/switch container by its arms
// rather than as a single nesting construct: a flat N-armed match yields
// cognitive complexity N (one flat +1 per arm, no nesting multiplier on the
// arm itself), while nested{} control flow inside an arm's body is scored
// one nesting level deeper (spec §4.A: "nesting = 1" for a flat match).
func matchContainerCognitive(container *sitter.Node, source []byte, info cognitiveTypeInfo, depth int, arms map[string]bool) uint32 {
	var complexity uint32
	for _, armNode := range collectArmNodes(container, arms, info.matchContainers) {
		complexity++
		complexity += calcCognitiveWithContext(armNode, source, info, depth+1, false)
	}
	return complexity
}

func calcCognitiveWithContext(node *sitter.Node, source []byte, info cognitiveTypeInfo, depth int, afterElse bool) uint32 {
	var complexity uint32
	var sawElse bool

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		childType := child.Type()

		if childType == "else" {
			sawElse = true
			continue
		}

		switch {
		case info.matchArms[childType] != nil:
			complexity += matchContainerCognitive(child, source, info, depth, makeSet(info.matchArms[childType]))
			sawElse = false
		case info.nesting[childType]:
			if childType == "if_statement" && (sawElse || afterElse) {
				complexity++
				complexity += calcCognitiveWithContext(child, source, info, depth, false)
			} else {
				complexity++
				complexity += uint32(depth)
				complexity += calcCognitiveWithContext(child, source, info, depth+1, false)
			}
			sawElse = false
		case info.flat[childType]:
			complexity++
			complexity += uint32(depth)
			complexity += calcCognitiveWithContext(child, source, info, depth, false)
			sawElse = false
		case childType == "binary_expression" || childType == "logical_expression":
			complexity += countLogicalOperators(child, source)
			complexity += calcCognitiveWithContext(child, source, info, depth, false)
			sawElse = false
		default:
			complexity += calcCognitiveWithContext(child, source, info, depth, sawElse)
			sawElse = false
		}
	}

	return complexity
}

func countLogicalOperators(node *sitter.Node, source []byte) uint32 {
	var count uint32
	for i := 0; i < int(node.ChildCount()); i++ {
		text := parser.GetNodeText(node.Child(i), source)
		if text == "&&" || text == "||" || text == "and" || text == "or" {
			count++
		}
	}
	return count
}

type cognitiveNodeType struct {
	nodeType          string
	incrementsNesting bool
}

func getCognitiveNodeTypes(lang parser.Language) []cognitiveNodeType {
	var nesting, flat []string

	switch lang {
	case parser.LangRuby:
		nesting = []string{"if", "unless", "while", "until", "for", "case", "begin"}
		flat = []string{"elsif", "when", "rescue", "break", "next", "redo"}
	case parser.LangGo:
		nesting = []string{
			"if_statement", "for_statement",
			"expression_switch_statement", "type_switch_statement", "select_statement",
		}
		flat = []string{"break_statement", "continue_statement", "goto_statement"}
	default:
		nesting = []string{
			"if_statement", "if_expression",
			"while_statement", "while_expression",
			"for_statement", "for_expression",
			"switch_statement", "match_expression", "try_statement",
		}
		flat = []string{
			"elif_clause", "elseif_clause",
			"break_statement", "continue_statement", "goto_statement",
		}
	}

	var types []cognitiveNodeType
	for _, t := range nesting {
		types = append(types, cognitiveNodeType{t, true})
	}
	for _, t := range flat {
		types = append(types, cognitiveNodeType{t, false})
	}
	return types
}

var nestingTypesSet = makeSet([]string{
	"if_statement", "if_expression", "if", "unless",
	"while_statement", "while_expression", "while", "until",
	"for_statement", "for_expression", "for",
	"switch_statement", "match_expression", "match_statement", "case",
	"expression_switch_statement", "type_switch_statement",
	"try_statement", "begin",
	"block", "body_statement",
})

func calculateMaxNesting(node *sitter.Node, source []byte, currentDepth int) int {
	maxDepth := currentDepth
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		childType := child.Type()

		var childMax int
		if nestingTypesSet[childType] {
			childMax = calculateMaxNesting(child, source, currentDepth+1)
		} else {
			childMax = calculateMaxNesting(child, source, currentDepth)
		}
		if childMax > maxDepth {
			maxDepth = childMax
		}
	}
	return maxDepth
}
