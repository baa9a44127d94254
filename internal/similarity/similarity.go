// Package similarity provides fuzzy name comparison for matching and
// clustering. The scorer is an injected component so that its absence
// surfaces as an explicit "skipped" analysis rather than a crash.
package similarity

import (
	"sync"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// MinNameLength excludes trivially short names from every pairwise
// comparison; two-character strings match almost anything at useful
// thresholds. Measured in runes, like Ratio.
const MinNameLength = 3

// Scorer computes a similarity ratio in [0,1] between two strings.
type Scorer interface {
	Ratio(a, b string) float64
}

// Levenshtein scores pairs by normalized edit distance:
// 1 - distance/max(len). Identical strings score 1, fully dissimilar
// strings of equal length score 0.
type Levenshtein struct{}

// Ratio implements Scorer.
func (Levenshtein) Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	max := la
	if lb > max {
		max = lb
	}
	if max == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(max)
}

// Pair is one cross-set match above threshold.
type Pair struct {
	A     string
	B     string
	Ratio float64
}

// MatchSets performs the exhaustive pairwise join between two name sets:
// every name in a is compared against every name in b, and pairs whose
// ratio meets the threshold are returned in (a-order, b-order). Names
// shorter than MinNameLength are excluded entirely.
//
// This is inherently O(|a|·|b|) and is the dominant cost of the whole
// system. The loops are embarrassingly parallel over immutable inputs,
// so maxWorkers > 1 fans the outer loop out over a bounded worker pool;
// per-seed results land in indexed slots and are concatenated in seed
// order, so output order (and therefore tie-breaking downstream) is
// identical to the sequential scan.
func MatchSets(scorer Scorer, a, b []string, threshold float64, maxWorkers int) []Pair {
	if scorer == nil || len(a) == 0 || len(b) == 0 {
		return nil
	}

	perSeed := make([][]Pair, len(a))
	scan := func(i int) {
		name := a[i]
		if utf8.RuneCountInString(name) < MinNameLength {
			return
		}
		var matches []Pair
		for _, other := range b {
			if utf8.RuneCountInString(other) < MinNameLength {
				continue
			}
			r := scorer.Ratio(name, other)
			if r >= threshold {
				matches = append(matches, Pair{A: name, B: other, Ratio: r})
			}
		}
		perSeed[i] = matches
	}

	if maxWorkers > 1 {
		var wg sync.WaitGroup
		sem := make(chan struct{}, maxWorkers)
		for i := range a {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				scan(idx)
			}(i)
		}
		wg.Wait()
	} else {
		for i := range a {
			scan(i)
		}
	}

	var out []Pair
	for _, matches := range perSeed {
		out = append(out, matches...)
	}
	return out
}
