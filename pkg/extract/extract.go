package extract

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/debtlens/debtlens/pkg/models"
	"github.com/debtlens/debtlens/pkg/parser"
)

// Extractor parses one source file into an ExtractedFileData. It wraps the
// shared tree-sitter parser the same way the teacher's ComplexityAnalyzer
// wraps it, but walks the tree once to populate every field the later
// entropy, purity, pattern, and complexity-adjustment passes need.
type Extractor struct {
	p *parser.Parser
}

// NewExtractor creates an Extractor with its own parser instance.
func NewExtractor() *Extractor {
	return &Extractor{p: parser.New()}
}

// FromParser wraps an already-owned parser (e.g. one handed in by
// fileproc.MapFiles' per-worker pool) so extraction can run inside a
// worker without allocating a second tree-sitter parser per file.
func FromParser(p *parser.Parser) *Extractor {
	return &Extractor{p: p}
}

// Close releases the underlying tree-sitter parser. Do not call this when
// the Extractor was built with FromParser; the caller owns that parser's
// lifecycle.
func (e *Extractor) Close() { e.p.Close() }

// ExtractFile parses path and extracts its functions, impls, and structs.
// A parse failure produces an ExtractedFileData with Unanalyzable set and
// Err populated rather than an error return, so a bad file never aborts a
// multi-file run (spec §7).
func (e *Extractor) ExtractFile(path string) (*ExtractedFileData, error) {
	lang := parser.DetectLanguage(path)
	if lang == parser.LangUnknown {
		return nil, fmt.Errorf("extract: unsupported language for %s", path)
	}

	result, err := e.p.ParseFile(path)
	if err != nil {
		return &ExtractedFileData{
			Path:         path,
			Language:     string(lang),
			Unanalyzable: true,
			Err:          &ParseError{Message: err.Error()},
		}, nil
	}

	return e.extractResult(result), nil
}

// ExtractSource extracts from in-memory source, used by tests and by the
// coverage/duplicate passes that re-slice already-read file contents.
func (e *Extractor) ExtractSource(source []byte, lang parser.Language, path string) (*ExtractedFileData, error) {
	result, err := e.p.Parse(source, lang, path)
	if err != nil {
		return &ExtractedFileData{
			Path:         path,
			Language:     string(lang),
			Unanalyzable: true,
			Err:          &ParseError{Message: err.Error()},
		}, nil
	}
	return e.extractResult(result), nil
}

func (e *Extractor) extractResult(result *parser.ParseResult) *ExtractedFileData {
	root := result.Tree.RootNode()
	source := result.Source
	lang := result.Language

	data := &ExtractedFileData{
		Path:       result.Path,
		Language:   string(lang),
		TotalLines: int(root.EndPoint().Row) + 1,
	}

	inspector := parser.NewTreeSitterInspector(result)
	data.Imports = inspector.GetImports()

	containers := collectContainers(root, source, lang)
	for _, c := range containers {
		if c.isImpl {
			data.Impls = append(data.Impls, ExtractedImpl{
				TypeName: c.name,
				Trait:    c.trait,
				Methods:  c.methodNames,
				Line:     c.line,
			})
		} else {
			data.Structs = append(data.Structs, ExtractedStruct{
				Name:    c.name,
				Fields:  c.fields,
				Methods: c.methodNames,
				Line:    c.line,
			})
		}
	}

	funcNodes := collectFunctionNodes(root, source, lang)
	for _, fn := range funcNodes {
		ef := e.extractFunction(fn, source, lang, containers)
		data.Functions = append(data.Functions, ef)
		if ef.QualifiedName == ef.Name {
			data.ModuleFunctions = append(data.ModuleFunctions, ef.Name)
		}
	}

	return data
}

// container is an impl/class/struct body used to qualify method names and
// to populate ExtractedImpl/ExtractedStruct.
type container struct {
	name        string
	trait       string
	fields      []string
	methodNames []string
	line        uint32
	startByte   uint32
	endByte     uint32
	isImpl      bool
}

func (c container) contains(n *sitter.Node) bool {
	return n.StartByte() >= c.startByte && n.EndByte() <= c.endByte
}

func collectContainers(root *sitter.Node, source []byte, lang parser.Language) []container {
	var out []container
	classTypes := makeSet(classNodeTypes(lang))

	parser.WalkTyped(root, source, func(n *sitter.Node, nodeType string, src []byte) bool {
		if !classTypes[nodeType] {
			return true
		}
		c := container{
			line:      n.StartPoint().Row + 1,
			startByte: n.StartByte(),
			endByte:   n.EndByte(),
			isImpl:    nodeType == "impl_item",
		}
		if name := n.ChildByFieldName("name"); name != nil {
			c.name = parser.GetNodeText(name, src)
		} else if typ := n.ChildByFieldName("type"); typ != nil {
			c.name = parser.GetNodeText(typ, src)
		}
		if nodeType == "impl_item" {
			if trait := n.ChildByFieldName("trait"); trait != nil {
				c.trait = parser.GetNodeText(trait, src)
			}
		}
		c.fields = collectFieldNames(n, src, lang)
		out = append(out, c)
		return true
	})
	return out
}

func collectFieldNames(node *sitter.Node, source []byte, lang parser.Language) []string {
	var fields []string
	fieldTypes := makeSet([]string{"field_declaration", "field_declaration_list", "property_declaration"})
	parser.WalkTyped(node, source, func(n *sitter.Node, nodeType string, src []byte) bool {
		if fieldTypes[nodeType] {
			if name := n.ChildByFieldName("name"); name != nil {
				fields = append(fields, parser.GetNodeText(name, src))
			}
		}
		return true
	})
	return fields
}

func classNodeTypes(lang parser.Language) []string {
	switch lang {
	case parser.LangGo:
		return []string{"type_declaration"}
	case parser.LangRust:
		return []string{"struct_item", "impl_item", "trait_item"}
	case parser.LangPython:
		return []string{"class_definition"}
	case parser.LangTypeScript, parser.LangJavaScript, parser.LangTSX:
		return []string{"class_declaration", "class"}
	case parser.LangJava:
		return []string{"class_declaration", "interface_declaration"}
	case parser.LangCPP:
		return []string{"class_specifier", "struct_specifier"}
	case parser.LangCSharp:
		return []string{"class_declaration", "interface_declaration", "struct_declaration"}
	case parser.LangRuby:
		return []string{"class", "module"}
	case parser.LangPHP:
		return []string{"class_declaration", "interface_declaration", "trait_declaration"}
	default:
		return nil
	}
}

func functionNodeTypes(lang parser.Language) []string {
	switch lang {
	case parser.LangGo:
		return []string{"function_declaration", "method_declaration"}
	case parser.LangRust:
		return []string{"function_item"}
	case parser.LangPython:
		return []string{"function_definition"}
	case parser.LangTypeScript, parser.LangJavaScript, parser.LangTSX:
		return []string{"function_declaration", "function", "arrow_function", "method_definition"}
	case parser.LangJava:
		return []string{"method_declaration", "constructor_declaration"}
	case parser.LangC, parser.LangCPP:
		return []string{"function_definition"}
	case parser.LangCSharp:
		return []string{"method_declaration", "constructor_declaration"}
	case parser.LangRuby:
		return []string{"method", "singleton_method"}
	case parser.LangPHP:
		return []string{"function_definition", "method_declaration"}
	default:
		return nil
	}
}

func collectFunctionNodes(root *sitter.Node, source []byte, lang parser.Language) []*sitter.Node {
	var out []*sitter.Node
	types := makeSet(functionNodeTypes(lang))
	parser.WalkTyped(root, source, func(n *sitter.Node, nodeType string, src []byte) bool {
		if types[nodeType] {
			out = append(out, n)
		}
		return true
	})
	return out
}

func funcBody(node *sitter.Node) *sitter.Node {
	if b := node.ChildByFieldName("body"); b != nil {
		return b
	}
	if b := node.ChildByFieldName("block"); b != nil {
		return b
	}
	return node.ChildByFieldName("body_statement")
}

func funcName(node *sitter.Node, source []byte, lang parser.Language) string {
	if name := node.ChildByFieldName("name"); name != nil {
		return parser.GetNodeText(name, source)
	}
	if lang == parser.LangCPP || lang == parser.LangC {
		if decl := node.ChildByFieldName("declarator"); decl != nil {
			if name := decl.ChildByFieldName("declarator"); name != nil {
				return parser.GetNodeText(name, source)
			}
		}
	}
	if node.Type() == "arrow_function" {
		if parent := node.Parent(); parent != nil && parent.Type() == "variable_declarator" {
			if name := parent.ChildByFieldName("name"); name != nil {
				return parser.GetNodeText(name, source)
			}
		}
	}
	return ""
}

func funcParameters(node *sitter.Node, source []byte) []string {
	params := node.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var names []string
	for i := 0; i < int(params.ChildCount()); i++ {
		child := params.Child(i)
		switch child.Type() {
		case "parameter_declaration", "required_parameter", "optional_parameter", "parameter":
			if name := child.ChildByFieldName("name"); name != nil {
				names = append(names, parser.GetNodeText(name, source))
			} else if name := child.ChildByFieldName("pattern"); name != nil {
				names = append(names, parser.GetNodeText(name, source))
			}
		case "identifier", "self_parameter":
			names = append(names, parser.GetNodeText(child, source))
		}
	}
	return names
}

func (e *Extractor) extractFunction(node *sitter.Node, source []byte, lang parser.Language, containers []container) ExtractedFunction {
	name := funcName(node, source, lang)
	body := funcBody(node)
	startLine := node.StartPoint().Row + 1
	endLine := node.EndPoint().Row + 1

	ef := ExtractedFunction{
		Name:       name,
		Line:       startLine,
		EndLine:    endLine,
		Length:     int(endLine-startLine) + 1,
		Parameters: funcParameters(node, source),
		Language:   lang,
	}

	owner := enclosingContainer(node, containers)
	if owner != nil {
		ef.QualifiedName = owner.name + "." + name
		ef.IsTraitMethod = owner.trait != ""
	} else {
		ef.QualifiedName = name
	}

	ef.Visibility = visibilityOf(name, lang, node, source)
	ef.IsTest = isTestName(name)
	ef.IsEntryPoint = isEntryPoint(name, lang, owner)
	ef.IsDebug = strings.Contains(strings.ToLower(name), "debug")

	if body != nil {
		ef.RawCyclomatic = countDecisionPoints(body, source, lang) + 1
		ef.Cognitive = calculateCognitiveComplexity(body, source, lang, 0)
		ef.MaxNesting = calculateMaxNesting(body, source, 0)
		ef.CallSites = extractCallSites(body, source, lang)
		ef.IOOps = extractIOOperations(body, source, ef.CallSites)
		ef.LocalMutations, ef.ExternalMutations = extractMutations(body, source, lang, ef.Parameters)
		ef.Transformations = extractTransformations(ef.CallSites)
		ef.Tokens = extractTokens(body, source, lang)
		ef.BranchArms = extractBranchArms(body, source, lang)
	} else {
		ef.RawCyclomatic = 1
	}

	return ef
}

func enclosingContainer(node *sitter.Node, containers []container) *container {
	var best *container
	for i := range containers {
		c := &containers[i]
		if c.contains(node) {
			if best == nil || (c.endByte-c.startByte) < (best.endByte-best.startByte) {
				best = c
			}
		}
	}
	return best
}

func visibilityOf(name string, lang parser.Language, node *sitter.Node, source []byte) string {
	switch lang {
	case parser.LangGo:
		if len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z' {
			return "public"
		}
		return "private"
	case parser.LangPython:
		if strings.HasPrefix(name, "__") {
			return "private"
		}
		if strings.HasPrefix(name, "_") {
			return "internal"
		}
		return "public"
	case parser.LangRust:
		prefix := parser.GetNodeText(node, source)
		if len(prefix) > 64 {
			prefix = prefix[:64]
		}
		if strings.HasPrefix(strings.TrimSpace(prefix), "pub") {
			return "public"
		}
		return "private"
	case parser.LangRuby:
		if strings.HasPrefix(name, "_") {
			return "private"
		}
		return "public"
	default:
		return "unknown"
	}
}

func isTestName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(name, "Test") || strings.HasPrefix(lower, "test_") ||
		strings.HasPrefix(lower, "spec_") || strings.HasSuffix(lower, "_test") ||
		strings.HasPrefix(name, "Benchmark") || strings.HasPrefix(name, "Example")
}

func isEntryPoint(name string, lang parser.Language, owner *container) bool {
	if owner != nil {
		return false
	}
	switch lang {
	case parser.LangGo, parser.LangRust, parser.LangC, parser.LangCPP:
		return name == "main"
	case parser.LangJava, parser.LangCSharp:
		return name == "main" || name == "Main"
	default:
		return false
	}
}

var ioKeywords = map[IOCategory][]string{
	IOFile:     {"open", "read", "write", "close", "readfile", "writefile", "os.open", "fopen", "file.read", "file.write"},
	IOConsole:  {"print", "println", "printf", "fmt.print", "console.log", "console.error", "puts", "system.out"},
	IONetwork:  {"http.get", "http.post", "fetch", "dial", "socket", "request", "client.do", "listen"},
	IODatabase: {"query", "exec", "cursor", "sql.", "db.", "session.query", "connection.execute"},
	IOEnv:      {"getenv", "os.environ", "process.env", "env::var", "os.getenv"},
	IOSystem:   {"exec.command", "subprocess", "system(", "process.start", "os.system"},
	IOAsync:    {"await", "async", "go func", "promise", "spawn", "tokio::"},
}

func extractIOOperations(body *sitter.Node, source []byte, calls []CallSite) []IOOperation {
	var ops []IOOperation
	for _, cs := range calls {
		lower := strings.ToLower(cs.Callee)
		for cat, keywords := range ioKeywords {
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					ops = append(ops, IOOperation{Category: cat, Line: cs.Line, Detail: cs.Callee})
					break
				}
			}
		}
	}
	return ops
}

var transformNames = map[string]TransformKind{
	"map": TransformMap, "filter": TransformFilter,
	"fold": TransformFold, "reduce": TransformReduce,
	"flatmap": TransformFlatMap, "flat_map": TransformFlatMap,
	"collect": TransformCollect, "foreach": TransformForEach, "for_each": TransformForEach,
	"find": TransformFind, "any": TransformAny, "all": TransformAll,
}

func extractTransformations(calls []CallSite) []TransformKind {
	seen := make(map[TransformKind]bool)
	var out []TransformKind
	for _, cs := range calls {
		key := strings.ToLower(cs.Callee)
		if kind, ok := transformNames[key]; ok && !seen[kind] {
			seen[kind] = true
			out = append(out, kind)
		}
	}
	return out
}

var callExprTypes = map[string]bool{
	"call_expression": true, "function_call": true, "invocation_expression": true,
	"call": true, "method_call": true,
}

var memberExprTypes = map[string]bool{
	"member_expression": true, "field_expression": true, "selector_expression": true,
	"attribute": true, "scoped_identifier": true,
}

func extractCallSites(body *sitter.Node, source []byte, lang parser.Language) []CallSite {
	var sites []CallSite
	parser.WalkTyped(body, source, func(n *sitter.Node, nodeType string, src []byte) bool {
		if !callExprTypes[nodeType] {
			return true
		}
		line := n.StartPoint().Row + 1
		fnNode := n.ChildByFieldName("function")
		if fnNode == nil {
			if lang == parser.LangRuby {
				if m := n.ChildByFieldName("method"); m != nil {
					fnNode = m
				}
			}
			if fnNode == nil && n.ChildCount() > 0 {
				fnNode = n.Child(0)
			}
		}
		if fnNode == nil {
			return true
		}

		kind := models.CallKindDirect
		callee := parser.GetNodeText(fnNode, src)
		if memberExprTypes[fnNode.Type()] {
			kind = models.CallKindMethod
			if prop := fnNode.ChildByFieldName("property"); prop != nil {
				callee = parser.GetNodeText(prop, src)
			} else if field := fnNode.ChildByFieldName("field"); field != nil {
				callee = parser.GetNodeText(field, src)
			}
			if obj := fnNode.ChildByFieldName("object"); obj != nil && parser.GetNodeText(obj, src) == "self" {
				kind = models.CallKindDirect
			}
		}
		if callee == "" {
			return true
		}
		sites = append(sites, CallSite{Callee: callee, Kind: kind, Line: line})
		return true
	})
	return sites
}

var localDeclTypes = map[string]bool{
	"short_var_declaration": true, "var_declaration": true,
	"let_declaration": true, "variable_declaration": true, "lexical_declaration": true,
	"assignment": true,
}

var assignmentTypes = map[string]bool{
	"assignment_expression": true, "assignment": true, "augmented_assignment": true,
	"compound_assignment_expr": true,
}

func extractMutations(body *sitter.Node, source []byte, lang parser.Language, params []string) (local, external []Mutation) {
	declared := make(map[string]bool)
	for _, p := range params {
		declared[p] = false // parameters count as external targets
	}

	parser.WalkTyped(body, source, func(n *sitter.Node, nodeType string, src []byte) bool {
		if localDeclTypes[nodeType] {
			for _, name := range declaredNames(n, src) {
				declared[name] = true
			}
		}
		if assignmentTypes[nodeType] {
			target := n.ChildByFieldName("left")
			if target == nil {
				target = n.ChildByFieldName("target")
			}
			if target == nil {
				return true
			}
			text := parser.GetNodeText(target, src)
			line := n.StartPoint().Row + 1
			root := strings.SplitN(text, ".", 2)[0]
			root = strings.TrimPrefix(root, "*")
			m := Mutation{Target: text, Line: line}
			if isLocal, known := declared[root]; known && isLocal {
				local = append(local, m)
			} else {
				external = append(external, m)
			}
		}
		return true
	})
	return local, external
}

func declaredNames(n *sitter.Node, source []byte) []string {
	var names []string
	if name := n.ChildByFieldName("name"); name != nil {
		names = append(names, parser.GetNodeText(name, source))
		return names
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "identifier" {
			names = append(names, parser.GetNodeText(child, source))
		}
	}
	return names
}

var keywordSet = makeSet([]string{
	"if", "else", "for", "while", "return", "func", "fn", "def", "class", "struct",
	"match", "switch", "case", "break", "continue", "let", "var", "const", "import",
	"package", "pub", "impl", "trait", "async", "await", "yield", "try", "catch",
	"finally", "throw", "new", "this", "self", "super", "public", "private", "static",
})

func extractTokens(body *sitter.Node, source []byte, lang parser.Language) []Token {
	var tokens []Token
	controlFlow := makeSet(getDecisionNodeTypes(lang))

	parser.WalkTyped(body, source, func(n *sitter.Node, nodeType string, src []byte) bool {
		if n.ChildCount() > 0 {
			if controlFlow[nodeType] {
				tokens = append(tokens, Token{Category: TokenControlFlow, Text: nodeType})
			}
			if callExprTypes[nodeType] {
				tokens = append(tokens, Token{Category: TokenFunctionCall, Text: parser.GetNodeText(n, src)})
			}
			return true
		}
		text := parser.GetNodeText(n, src)
		if text == "" {
			return true
		}
		tokens = append(tokens, Token{Category: categorizeLeaf(nodeType, text), Text: text})
		return true
	})
	return tokens
}

var branchArmTypes = map[string]bool{
	"match_arm": true, "when_clause": true, "case_clause": true,
	"switch_case": true, "else_clause": true, "elif_clause": true, "elseif_clause": true,
}

// extractBranchArms groups the token stream by match/switch/if-else arm so
// the entropy calculator can compute branch similarity (spec §4.B).
func extractBranchArms(body *sitter.Node, source []byte, lang parser.Language) [][]Token {
	var arms [][]Token
	parser.WalkTyped(body, source, func(n *sitter.Node, nodeType string, src []byte) bool {
		if !branchArmTypes[nodeType] {
			return true
		}
		arms = append(arms, extractTokens(n, src, lang))
		return false
	})
	return arms
}

func categorizeLeaf(nodeType, text string) TokenCategory {
	switch {
	case keywordSet[text]:
		return TokenKeyword
	case nodeType == "identifier" || nodeType == "field_identifier" || nodeType == "type_identifier":
		return TokenIdentifier
	case strings.Contains(nodeType, "literal") || nodeType == "string" || nodeType == "number":
		return TokenLiteral
	case isOperatorText(text):
		return TokenOperator
	default:
		return TokenCustom
	}
}

func isOperatorText(text string) bool {
	switch text {
	case "+", "-", "*", "/", "%", "==", "!=", "<", ">", "<=", ">=", "&&", "||", "!",
		"=", "+=", "-=", "*=", "/=", "&", "|", "^", "<<", ">>", "->", "=>", ":":
		return true
	default:
		return false
	}
}
