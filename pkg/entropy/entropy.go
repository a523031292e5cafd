// Package entropy implements the entropy calculator (spec §4.B): token
// entropy, pattern repetition, branch similarity, and the dampening factor
// applied to raw cyclomatic complexity.
package entropy

import (
	"math"

	"github.com/debtlens/debtlens/pkg/extract"
	"github.com/debtlens/debtlens/pkg/models"
)

const ngramSize = 3

// minDampening is the floor below which the dampening factor never drops,
// so adjusted complexity never collapses to near-zero on pathological input.
const minDampening = 0.3

// Calculate derives an EntropyScore from a function's token stream and its
// detected branch arms, then adjusts rawCyclomatic by the dampening factor.
func Calculate(tokens []extract.Token, branchArms [][]extract.Token, rawCyclomatic uint32) models.EntropyScore {
	h := tokenEntropy(tokens)
	rep := patternRepetition(tokens)
	sim := branchSimilarity(branchArms)
	d := dampeningFactor(h, rep, sim)

	return models.EntropyScore{
		TokenEntropy:       h,
		PatternRepetition:  rep,
		BranchSimilarity:   sim,
		DampeningFactor:    d,
		AdjustedCyclomatic: uint32(math.Round(float64(rawCyclomatic) * d)),
	}
}

// CalculateForFunction is the ExtractedFunction-shaped convenience wrapper
// the pipeline calls directly after extraction.
func CalculateForFunction(fn extract.ExtractedFunction) models.EntropyScore {
	return Calculate(fn.Tokens, fn.BranchArms, fn.RawCyclomatic)
}

// tokenEntropy computes Shannon entropy over token category frequencies,
// normalized by log2(distinct categories present). Range [0,1]; a single
// distinct category yields 0 (no normalizing log to divide by, maximally
// repetitive).
func tokenEntropy(tokens []extract.Token) float64 {
	if len(tokens) == 0 {
		return 0
	}
	counts := make(map[extract.TokenCategory]int)
	for _, t := range tokens {
		counts[t.Category]++
	}
	if len(counts) <= 1 {
		return 0
	}

	total := float64(len(tokens))
	var h float64
	for _, c := range counts {
		p := float64(c) / total
		h -= p * math.Log2(p)
	}

	maxH := math.Log2(float64(len(counts)))
	if maxH == 0 {
		return 0
	}
	return clamp01(h / maxH)
}

// patternRepetition is 1 - unique_ngrams/total_ngrams over the token
// category sequence, n=3 by default.
func patternRepetition(tokens []extract.Token) float64 {
	if len(tokens) < ngramSize {
		return 0
	}

	total := len(tokens) - ngramSize + 1
	seen := make(map[string]bool, total)
	for i := 0; i+ngramSize <= len(tokens); i++ {
		key := string(tokens[i].Category) + "|" + string(tokens[i+1].Category) + "|" + string(tokens[i+2].Category)
		seen[key] = true
	}

	return clamp01(1 - float64(len(seen))/float64(total))
}

// branchSimilarity averages pairwise Jaccard similarity over the token
// category sets of each branch arm (match arm / if-else clause).
func branchSimilarity(branchArms [][]extract.Token) float64 {
	if len(branchArms) < 2 {
		return 0
	}

	sets := make([]map[extract.TokenCategory]bool, len(branchArms))
	for i, arm := range branchArms {
		set := make(map[extract.TokenCategory]bool)
		for _, t := range arm {
			set[t.Category] = true
		}
		sets[i] = set
	}

	var total float64
	var pairs int
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			total += jaccard(sets[i], sets[j])
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return clamp01(total / float64(pairs))
}

func jaccard(a, b map[extract.TokenCategory]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	var intersection, union int
	seen := make(map[extract.TokenCategory]bool, len(a)+len(b))
	for k := range a {
		seen[k] = true
		if b[k] {
			intersection++
		}
	}
	for k := range b {
		seen[k] = true
	}
	union = len(seen)
	if union == 0 {
		return 1
	}
	return float64(intersection) / float64(union)
}

// dampeningFactor implements the Open Question closed form (DESIGN.md):
// start at 1.0, subtract a weighted penalty when entropy is low AND
// (repetition is high OR branch similarity is high), floor at 0.3.
//
// A "low entropy" contributes up to 0.4 of the penalty weight; the
// repetition/similarity signal (whichever is larger) contributes the rest,
// so d=1 exactly when entropy is high or neither repetition nor similarity
// is elevated — satisfying the d=1 => adjusted=raw invariant (spec §8.1).
func dampeningFactor(h, repetition, similarity float64) float64 {
	lowEntropy := 1 - h
	repeatSignal := math.Max(repetition, similarity)

	if lowEntropy <= 0 || repeatSignal <= 0 {
		return 1.0
	}

	penalty := 0.4*lowEntropy*repeatSignal + 0.3*repeatSignal
	d := 1.0 - penalty
	if d < minDampening {
		return minDampening
	}
	if d > 1.0 {
		return 1.0
	}
	return d
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
