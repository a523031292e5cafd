// Package godobject implements the god-object and domain-diversity analyzer
// (spec §4.G): per-file method/field/line tallies, responsibility
// clustering, domain classification, Shannon diversity scoring, severity
// tiering, and recommended splits.
package godobject

import (
	"math"
	"sort"
	"strings"

	"github.com/debtlens/debtlens/pkg/extract"
)

// Severity is the god-object severity tier of spec §4.G's table.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Thresholds mirrors the spec §6 god_object.* configuration fields.
type Thresholds struct {
	MethodThreshold int
	LOCThreshold    int
}

// DefaultThresholds matches spec §6 defaults (50 methods, 2000 lines).
var DefaultThresholds = Thresholds{MethodThreshold: 50, LOCThreshold: 2000}

// DomainAssignment is one struct's classified domain with alternatives.
type DomainAssignment struct {
	Struct       string
	Domain       string
	Confidence   float64
	Alternatives []string
}

// Responsibility is one clustered group of methods/functions sharing a
// name prefix, field-touch set, or trait parent.
type Responsibility struct {
	Name    string
	Members []string
	Lines   int
}

// RecommendedSplit is one suggested extraction target for a god object.
type RecommendedSplit struct {
	Name         string
	Members      []string
	EstimatedLOC int
}

// Finding is the full per-file god-object analysis result.
type Finding struct {
	File                string
	MethodCount         int
	FieldCount          int
	ModuleFunctionCount int
	TotalLines          int
	ResponsibilityCount int
	IsGodObject         bool
	Score               float64
	Severity            Severity
	DiversityScore      float64
	Domains             []DomainAssignment
	Splits              []RecommendedSplit
}

var domainVocabulary = []struct {
	domain   string
	keywords []string
}{
	{"scoring", []string{"score", "rank", "weight", "priority"}},
	{"thresholds", []string{"threshold", "limit", "bound", "config"}},
	{"detection", []string{"detect", "classif", "match", "pattern"}},
	{"io", []string{"reader", "writer", "file", "stream", "client", "socket"}},
}

// Analyze computes the god-object finding for one file's extracted data.
func Analyze(file *extract.ExtractedFileData, th Thresholds) Finding {
	f := Finding{
		File:                file.Path,
		ModuleFunctionCount: len(file.ModuleFunctions),
		TotalLines:          file.TotalLines,
	}

	for _, impl := range file.Impls {
		f.MethodCount += len(impl.Methods)
	}
	for _, s := range file.Structs {
		f.MethodCount += len(s.Methods)
		f.FieldCount += len(s.Fields)
	}

	responsibilities := clusterResponsibilities(file)
	f.ResponsibilityCount = len(responsibilities)

	domains := classifyDomains(file)
	f.Domains = domains
	f.DiversityScore = diversityScore(domains)

	f.Score = godObjectScore(f.MethodCount, f.TotalLines, th)
	f.IsGodObject = f.Score > 50 || f.MethodCount > th.MethodThreshold || f.TotalLines > th.LOCThreshold
	f.Severity = severity(len(file.Structs), domainCount(domains), f.IsGodObject)

	if f.IsGodObject {
		f.Splits = recommendSplits(responsibilities, domains, f.TotalLines, f.MethodCount)
	}

	return f
}

func godObjectScore(methods, lines int, th Thresholds) float64 {
	methodTerm := 50 * math.Min(float64(methods)/float64(th.MethodThreshold), 1)
	locTerm := 50 * math.Min(float64(lines)/float64(th.LOCThreshold), 1)
	return methodTerm + locTerm
}

func severity(structCount, domains int, isGod bool) Severity {
	switch {
	case (isGod && domains >= 3) || (structCount > 15 && domains >= 5):
		return SeverityCritical
	case structCount >= 10 && domains >= 4:
		return SeverityHigh
	case structCount >= 8 || domains >= 3:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// clusterResponsibilities groups methods by shared name prefix
// (capitalized-word boundary / snake_case first segment) as a simple
// co-occurrence heuristic, per spec §4.G.
func clusterResponsibilities(file *extract.ExtractedFileData) []Responsibility {
	groups := make(map[string][]string)
	for _, fn := range file.Functions {
		prefix := namePrefix(fn.Name)
		groups[prefix] = append(groups[prefix], fn.QualifiedName)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Responsibility, 0, len(names))
	for _, name := range names {
		members := groups[name]
		out = append(out, Responsibility{Name: name, Members: members, Lines: estimateLOC(file, members)})
	}
	return out
}

func namePrefix(name string) string {
	if idx := strings.IndexAny(name, "_"); idx > 0 {
		return strings.ToLower(name[:idx])
	}
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			return strings.ToLower(name[:i])
		}
	}
	return strings.ToLower(name)
}

func estimateLOC(file *extract.ExtractedFileData, members []string) int {
	set := make(map[string]bool, len(members))
	for _, m := range members {
		set[m] = true
	}
	var total int
	for _, fn := range file.Functions {
		if set[fn.QualifiedName] {
			total += fn.Length
		}
	}
	return total
}

// classifyDomains assigns each struct a domain label by keyword matching on
// its name and field names, with confidence and up to 2 alternatives.
func classifyDomains(file *extract.ExtractedFileData) []DomainAssignment {
	var out []DomainAssignment
	for _, s := range file.Structs {
		haystack := strings.ToLower(s.Name + " " + strings.Join(s.Fields, " "))
		scores := make(map[string]int)
		for _, dv := range domainVocabulary {
			for _, kw := range dv.keywords {
				if strings.Contains(haystack, kw) {
					scores[dv.domain]++
				}
			}
		}

		assignment := DomainAssignment{Struct: s.Name, Domain: "misc", Confidence: 0.4}
		if len(scores) > 0 {
			type scored struct {
				domain string
				score  int
			}
			ranked := make([]scored, 0, len(scores))
			for d, sc := range scores {
				ranked = append(ranked, scored{d, sc})
			}
			sort.Slice(ranked, func(i, j int) bool {
				if ranked[i].score != ranked[j].score {
					return ranked[i].score > ranked[j].score
				}
				return ranked[i].domain < ranked[j].domain
			})
			assignment.Domain = ranked[0].domain
			assignment.Confidence = math.Min(0.5+0.15*float64(ranked[0].score), 0.95)
			for i := 1; i < len(ranked) && i <= 2; i++ {
				assignment.Alternatives = append(assignment.Alternatives, ranked[i].domain)
			}
		}
		out = append(out, assignment)
	}
	return out
}

// diversityScore is the normalized Shannon entropy of the struct-to-domain
// distribution: 0 when every struct shares one domain, 1 when uniform
// across domains.
func diversityScore(domains []DomainAssignment) float64 {
	if len(domains) == 0 {
		return 0
	}
	counts := make(map[string]int)
	for _, d := range domains {
		counts[d.Domain]++
	}
	if len(counts) <= 1 {
		return 0
	}

	total := float64(len(domains))
	var h float64
	for _, c := range counts {
		p := float64(c) / total
		h -= p * math.Log2(p)
	}
	maxH := math.Log2(float64(len(counts)))
	if maxH == 0 {
		return 0
	}
	score := h / maxH
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

func domainCount(domains []DomainAssignment) int {
	seen := make(map[string]bool)
	for _, d := range domains {
		seen[d.Domain] = true
	}
	return len(seen)
}

// recommendSplits proposes one extraction target per responsibility
// cluster and, when domains are classified, per distinct domain, largest
// first.
func recommendSplits(resp []Responsibility, domains []DomainAssignment, totalLines, totalMethods int) []RecommendedSplit {
	var splits []RecommendedSplit
	for _, r := range resp {
		if len(r.Members) < 2 {
			continue
		}
		splits = append(splits, RecommendedSplit{
			Name:         r.Name,
			Members:      r.Members,
			EstimatedLOC: r.Lines,
		})
	}

	byDomain := make(map[string][]string)
	for _, d := range domains {
		byDomain[d.Domain] = append(byDomain[d.Domain], d.Struct)
	}
	domainNames := make([]string, 0, len(byDomain))
	for d := range byDomain {
		domainNames = append(domainNames, d)
	}
	sort.Slice(domainNames, func(i, j int) bool {
		return len(byDomain[domainNames[i]]) > len(byDomain[domainNames[j]])
	})
	for _, d := range domainNames {
		members := byDomain[d]
		if len(members) < 2 {
			continue
		}
		loc := 0
		if totalMethods > 0 {
			loc = totalLines * len(members) / max(1, len(domains))
		}
		splits = append(splits, RecommendedSplit{Name: d + "_domain", Members: members, EstimatedLOC: loc})
	}

	return splits
}
