// Package score normalizes detector metrics into bounded risk scores
// and provides the helpers rationale templates share.
//
// A risk score is always a ratio relative to the maximum metric within
// the same finding collection: the top finding of every non-empty
// collection scores exactly 1.0 and everything is in [0,1]. Scores are
// therefore a per-detector ranking, not a probability, and are never
// comparable across detectors or runs.
package score

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opencivic-data/heron/internal/domain"
)

// Rank assigns max-normalized risk scores and orders findings by score
// descending. The sort is stable, so equal scores keep the order the
// detector produced them in; parallel producers must therefore emit in
// a deterministic order before calling Rank.
func Rank(findings []domain.Finding) []domain.Finding {
	if len(findings) == 0 {
		return findings
	}

	max := findings[0].Metric
	for _, f := range findings[1:] {
		if f.Metric > max {
			max = f.Metric
		}
	}
	if max > 0 {
		for i := range findings {
			findings[i].RiskScore = findings[i].Metric / max
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].RiskScore > findings[j].RiskScore
	})
	return findings
}

// Top truncates a ranked collection for display.
func Top(findings []domain.Finding, n int) []domain.Finding {
	if len(findings) <= n {
		return findings
	}
	return findings[:n]
}

// Money renders a dollar amount with thousands separators, matching the
// report style ($12,345.67).
func Money(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%.2f", v)
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	b.WriteString(frac)
	return b.String()
}

// Count renders an integer with thousands separators (12,345).
func Count(n int) string {
	s := fmt.Sprintf("%d", n)
	start := 0
	if n < 0 {
		start = 1
	}
	var b strings.Builder
	for i, d := range s {
		if i > start && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return b.String()
}

// Pct renders a ratio as a percentage with one decimal (85.0%).
func Pct(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}
