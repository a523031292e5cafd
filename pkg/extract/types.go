// Package extract implements the file extractor (spec §4.A): parsing one
// source file into a language-agnostic ExtractedFileData using tree-sitter,
// reusing the inspector built in pkg/parser.
package extract

import (
	"github.com/debtlens/debtlens/pkg/models"
	"github.com/debtlens/debtlens/pkg/parser"
)

// IOCategory classifies an observed I/O operation.
type IOCategory string

const (
	IOFile    IOCategory = "file"
	IOConsole IOCategory = "console"
	IONetwork IOCategory = "network"
	IODatabase IOCategory = "database"
	IOEnv     IOCategory = "env"
	IOSystem  IOCategory = "system"
	IOAsync   IOCategory = "async"
)

// TransformKind classifies a detected functional transformation call.
type TransformKind string

const (
	TransformMap     TransformKind = "map"
	TransformFilter  TransformKind = "filter"
	TransformFold    TransformKind = "fold"
	TransformFlatMap TransformKind = "flat_map"
	TransformCollect TransformKind = "collect"
	TransformForEach TransformKind = "for_each"
	TransformFind    TransformKind = "find"
	TransformAny     TransformKind = "any"
	TransformAll     TransformKind = "all"
	TransformReduce  TransformKind = "reduce"
)

// TokenCategory is the uniform token categorizer used by the entropy calculator.
type TokenCategory string

const (
	TokenKeyword      TokenCategory = "keyword"
	TokenOperator     TokenCategory = "operator"
	TokenIdentifier   TokenCategory = "identifier"
	TokenLiteral      TokenCategory = "literal"
	TokenControlFlow  TokenCategory = "control_flow"
	TokenFunctionCall TokenCategory = "function_call"
	TokenCustom       TokenCategory = "custom"
)

// Token is one categorized leaf of a function's token stream.
type Token struct {
	Category TokenCategory
	Text     string
}

// IOOperation is one observed I/O side effect inside a function body.
type IOOperation struct {
	Category IOCategory
	Line     uint32
	Detail   string
}

// Mutation is one observed write to a variable, field, or global.
type Mutation struct {
	Target string
	Line   uint32
	// Local is true when the mutated value was declared inside the
	// function (a local accumulator, builder, or counter). It is false
	// for writes to parameters' referents, receiver fields, globals, or
	// statics — i.e. "external" mutation per spec §4.C rule 1 and 3.
	Local bool
}

// CallSite is one observed call expression inside a function body.
type CallSite struct {
	Callee string
	Kind   models.CallKind
	Line   uint32
}

// ExtractedFunction is the per-function record produced by extraction,
// before any of the entropy/purity/pattern/complexity enrichment passes.
type ExtractedFunction struct {
	Name          string
	QualifiedName string
	Line          uint32
	EndLine       uint32
	Length        int
	Parameters    []string

	RawCyclomatic uint32
	Cognitive     uint32
	MaxNesting    int

	IsTest        bool
	Visibility    string
	IsTraitMethod bool
	IsEntryPoint  bool
	IsDebug       bool
	Language      parser.Language

	CallSites         []CallSite
	IOOps             []IOOperation
	LocalMutations    []Mutation
	ExternalMutations []Mutation
	Transformations   []TransformKind
	Tokens            []Token
	BranchArms        [][]Token
}

// ExtractedImpl describes an impl block / method-bearing extension (Rust impl,
// Go methods on a type, TS/JS/Python class body treated uniformly).
type ExtractedImpl struct {
	TypeName string
	Trait    string // empty if inherent impl
	Methods  []string
	Line     uint32
}

// ExtractedStruct describes a struct/class/type definition.
type ExtractedStruct struct {
	Name    string
	Fields  []string
	Methods []string
	Line    uint32
}

// ParseError is a fatal-for-this-file, non-fatal-for-the-pipeline error (spec §7).
type ParseError struct {
	Offset  int
	Message string
}

func (e *ParseError) Error() string { return e.Message }

// ExtractedFileData is the language-agnostic output of extracting one file.
type ExtractedFileData struct {
	Path            string
	Language        string
	ModulePath      string // derived module path used for qualified names
	TotalLines      int
	Functions       []ExtractedFunction
	Impls           []ExtractedImpl
	Structs         []ExtractedStruct
	ModuleFunctions []string // top-level, non-method function names
	Imports         []parser.ImportInfo
	Unanalyzable    bool
	Err             *ParseError
}
