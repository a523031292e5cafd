// Package callgraph implements the two-phase call-graph resolver (spec
// §4.F): phase 1 creates one node per function; phase 2 resolves each call
// site in a fixed priority order, stopping at the first match, and records
// anything it cannot resolve rather than dropping it silently.
package callgraph

import (
	"path/filepath"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/debtlens/debtlens/pkg/extract"
	"github.com/debtlens/debtlens/pkg/models"
	"github.com/debtlens/debtlens/pkg/parser"
)

// Resolver accumulates nodes across phase 1, then resolves edges in phase 2.
// It is single-threaded by construction: phase 1's concurrent insert-or-get
// requirement (spec §5) is satisfied by FuncCallGraph.AddNode being called
// from a fan-in goroutine after each file's extraction, not from the
// Resolver itself.
type Resolver struct {
	graph *models.FuncCallGraph

	byFile          map[string][]*models.FuncNode
	byName          map[string][]*models.FuncNode
	byQualifiedName map[string]*models.FuncNode
	imports         map[string][]parser.ImportInfo // file -> its imports
	reexports       map[string]string              // "module.name" -> original qualified name
}

// NewResolver creates an empty Resolver over a fresh call graph.
func NewResolver() *Resolver {
	return &Resolver{
		graph:           models.NewFuncCallGraph(),
		byFile:          make(map[string][]*models.FuncNode),
		byName:          make(map[string][]*models.FuncNode),
		byQualifiedName: make(map[string]*models.FuncNode),
		imports:         make(map[string][]parser.ImportInfo),
		reexports:       make(map[string]string),
	}
}

// AddFile registers one file's functions as phase-1 nodes. Call once per
// extracted file, in any order — node identity makes this safe to call
// concurrently on a shared Resolver guarded by a single mutex at the
// call site (the Resolver itself holds no lock; the pipeline serializes
// phase 1 insertion, per spec §5's "no lock held across a phase boundary").
func (r *Resolver) AddFile(file *extract.ExtractedFileData) {
	r.imports[file.Path] = file.Imports

	for i := range file.Functions {
		fn := &file.Functions[i]
		id := nodeID(file.Path, fn.QualifiedName, fn.Line)
		node := r.graph.AddNode(&models.FuncNode{
			ID:            id,
			File:          file.Path,
			QualifiedName: fn.QualifiedName,
			Line:          fn.Line,
			IsEntryPoint:  fn.IsEntryPoint,
		})
		r.byFile[file.Path] = append(r.byFile[file.Path], node)
		r.byName[fn.Name] = append(r.byName[fn.Name], node)
		r.byQualifiedName[fn.QualifiedName] = node

		// A re-export ("pub use module::name") is detected heuristically by
		// the extractor surfacing it as an import whose Names includes the
		// function name; record the forwarding edge so qualified-path
		// resolution (step 4) can follow it.
		for _, imp := range file.Imports {
			for _, n := range imp.Names {
				if n == fn.Name {
					r.reexports[imp.Module+"."+n] = fn.QualifiedName
				}
			}
		}
	}
}

// Resolve runs phase 2 over every previously added file's call sites and
// returns the finished graph.
func (r *Resolver) Resolve(files []*extract.ExtractedFileData) *models.FuncCallGraph {
	seenEdges := make(map[string]bool)

	for _, file := range files {
		for i := range file.Functions {
			fn := &file.Functions[i]
			callerID := nodeID(file.Path, fn.QualifiedName, fn.Line)

			for _, cs := range fn.CallSites {
				target, confidence, reason, ok := r.resolveCallSite(file, fn, cs)
				if !ok {
					r.graph.AddUnresolved(models.UnresolvedCall{
						CallerID:   callerID,
						CalleeText: cs.Callee,
						Line:       cs.Line,
						Reason:     reason,
					})
					continue
				}

				edgeKey := callerID + "->" + target.ID + "@" + itoa(cs.Line)
				if seenEdges[edgeKey] {
					continue
				}
				seenEdges[edgeKey] = true

				r.graph.AddEdge(models.CallGraphEdge{
					CallerID:   callerID,
					CalleeID:   target.ID,
					Kind:       cs.Kind,
					Line:       cs.Line,
					Confidence: confidence,
				})
			}
		}
	}

	return r.graph
}

// resolveCallSite implements the six-step priority order of spec §4.F.
func (r *Resolver) resolveCallSite(file *extract.ExtractedFileData, caller *extract.ExtractedFunction, cs extract.CallSite) (*models.FuncNode, models.ResolutionConfidence, models.UnresolvedReason, bool) {
	callee := cs.Callee

	if cs.Kind == models.CallKindDynamic {
		return nil, "", models.UnresolvedDynamic, false
	}

	// Step 1: import-map lookup for short-name imports in the caller's file.
	if node, ok := r.resolveViaImportMap(file, callee); ok {
		return node, models.ResolutionExact, "", true
	}

	// Step 2: local function in the same file.
	if node, ok := findInFile(r.byFile[file.Path], lastSegment(callee)); ok {
		return node, models.ResolutionExact, "", true
	}

	// Step 3: parent module's implicit scope (same directory).
	if node, ok := r.resolveViaParentModule(file.Path, lastSegment(callee)); ok {
		return node, models.ResolutionExact, "", true
	}

	// Step 4: qualified path (a::b::c or a.b.c), following super/self/crate
	// prefixes and recorded re-export chains to the original definition.
	if node, ok := r.resolveQualifiedPath(file.Path, callee); ok {
		return node, models.ResolutionExact, "", true
	}

	// Step 5: glob-import scan — accept only if exactly one candidate exists
	// among the functions visible via a wildcard import.
	if node, ok := r.resolveViaGlobImport(file, lastSegment(callee)); ok {
		return node, models.ResolutionHeuristic, "", true
	}

	// Step 6: unknown-receiver method calls — accept a unique cross-file
	// name match as Heuristic; otherwise this call is Unresolved.
	if cs.Kind == models.CallKindMethod || cs.Kind == models.CallKindTraitMethod {
		candidates := r.byName[lastSegment(callee)]
		if len(candidates) == 1 {
			return candidates[0], models.ResolutionHeuristic, "", true
		}
		if len(candidates) > 1 {
			return nil, "", models.UnresolvedAmbiguous, false
		}
		return nil, "", models.UnresolvedNoImport, false
	}

	if strings.Contains(callee, "::") || strings.Contains(callee, ".") {
		return nil, "", models.UnresolvedExternalCrate, false
	}
	return nil, "", models.UnresolvedModuleNotFound, false
}

func (r *Resolver) resolveViaImportMap(file *extract.ExtractedFileData, callee string) (*models.FuncNode, bool) {
	root := firstSegment(callee)
	for _, imp := range file.Imports {
		alias := imp.Alias
		if alias == "" {
			alias = lastSegment(imp.Module)
		}
		if alias != root {
			continue
		}
		target := moduleFilePath(file.Path, imp.Module)
		if node, ok := findInFile(r.byFile[target], lastSegment(callee)); ok {
			return node, true
		}
	}
	return nil, false
}

func (r *Resolver) resolveViaParentModule(callerPath, name string) (*models.FuncNode, bool) {
	dir := filepath.Dir(callerPath)
	for path, nodes := range r.byFile {
		if path == callerPath {
			continue
		}
		if filepath.Dir(path) != dir {
			continue
		}
		if node, ok := findInFile(nodes, name); ok {
			return node, true
		}
	}
	return nil, false
}

func (r *Resolver) resolveQualifiedPath(callerPath, callee string) (*models.FuncNode, bool) {
	sep := "::"
	if !strings.Contains(callee, sep) {
		sep = "."
		if !strings.Contains(callee, sep) {
			return nil, false
		}
	}

	parts := strings.Split(callee, sep)
	head := parts[0]
	switch head {
	case "self", "crate":
		parts = parts[1:]
	case "super":
		parts = parts[1:]
	}
	if len(parts) == 0 {
		return nil, false
	}
	qualified := strings.Join(parts, ".")

	if node, ok := r.byQualifiedName[qualified]; ok {
		return node, true
	}
	if node, ok := r.byQualifiedName[lastSegment(qualified)]; ok {
		return node, true
	}

	// Follow a re-export chain: "module.name" forwarded to its original
	// qualified name, possibly through more than one hop.
	seen := make(map[string]bool)
	key := callee
	for i := 0; i < 8; i++ {
		original, ok := r.reexports[key]
		if !ok || seen[original] {
			break
		}
		seen[original] = true
		if node, ok := r.byQualifiedName[original]; ok {
			return node, true
		}
		key = original
	}

	return nil, false
}

func (r *Resolver) resolveViaGlobImport(file *extract.ExtractedFileData, name string) (*models.FuncNode, bool) {
	hasGlob := false
	for _, imp := range file.Imports {
		if len(imp.Names) == 0 && !imp.IsDefault {
			hasGlob = true
			break
		}
	}
	if !hasGlob {
		return nil, false
	}
	candidates := r.byName[name]
	if len(candidates) != 1 {
		return nil, false
	}
	return candidates[0], true
}

func findInFile(nodes []*models.FuncNode, name string) (*models.FuncNode, bool) {
	for _, n := range nodes {
		if lastSegment(n.QualifiedName) == name {
			return n, true
		}
	}
	return nil, false
}

func moduleFilePath(callerPath, module string) string {
	dir := filepath.Dir(callerPath)
	ext := filepath.Ext(callerPath)
	return filepath.Join(dir, strings.ReplaceAll(module, ".", string(filepath.Separator))+ext)
}

func firstSegment(s string) string {
	for _, sep := range []string{"::", "."} {
		if idx := strings.Index(s, sep); idx >= 0 {
			return s[:idx]
		}
	}
	return s
}

func lastSegment(s string) string {
	s = strings.TrimSuffix(s, "()")
	for _, sep := range []string{"::", "."} {
		if idx := strings.LastIndex(s, sep); idx >= 0 {
			s = s[idx+len(sep):]
		}
	}
	return s
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// Cycles returns the set of strongly connected components of size > 1 in
// the graph — i.e. the genuine cycles, via gonum's Tarjan implementation
// over a simple.DirectedGraph built from the resolved edges (spec §4.F,
// §9: cyclic call graphs are arena + integer indices, traversed with a
// visited set).
func Cycles(g *models.FuncCallGraph) [][]string {
	dg, idToNode := toGonumDirected(g)
	sccs := topo.TarjanSCC(dg)

	var cycles [][]string
	for _, scc := range sccs {
		if len(scc) < 2 {
			continue
		}
		ids := make([]string, 0, len(scc))
		for _, n := range scc {
			ids = append(ids, idToNode[n.ID()])
		}
		cycles = append(cycles, ids)
	}
	return cycles
}

func toGonumDirected(g *models.FuncCallGraph) (*simple.DirectedGraph, map[int64]string) {
	dg := simple.NewDirectedGraph()
	nodeToID := make(map[string]int64, len(g.Nodes))
	idToNode := make(map[int64]string, len(g.Nodes))

	var next int64
	for id := range g.Nodes {
		nodeToID[id] = next
		idToNode[next] = id
		dg.AddNode(simple.Node(next))
		next++
	}
	for _, e := range g.Edges {
		from, fok := nodeToID[e.CallerID]
		to, tok := nodeToID[e.CalleeID]
		if fok && tok && from != to {
			dg.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
		}
	}
	return dg, idToNode
}

// ReachableSet does a DFS from root over the resolved graph, tracking
// visited nodes in a compressed roaring bitmap rather than a map — this
// graph can have tens of thousands of nodes on a large repository, and the
// traversal runs once per entry point during dependency-component scoring
// (spec §4.H).
func ReachableSet(g *models.FuncCallGraph, rootID string, index map[string]uint32) *roaring.Bitmap {
	visited := roaring.New()
	rootIdx, ok := index[rootID]
	if !ok {
		return visited
	}

	stack := []string{rootID}
	visited.Add(rootIdx)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, callee := range g.Callees(cur) {
			idx, ok := index[callee]
			if !ok || visited.Contains(idx) {
				continue
			}
			visited.Add(idx)
			stack = append(stack, callee)
		}
	}
	return visited
}

// nodeID mirrors models.FunctionRecord.ID's identity tuple.
func nodeID(file, qualifiedName string, line uint32) string {
	return file + "#" + qualifiedName + "#" + itoa(line)
}
