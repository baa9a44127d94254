package license

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/opencivic-data/heron/internal/domain"
	"github.com/opencivic-data/heron/internal/score"
)

// TemporalClusters flags bursts of license issuance. For every dated
// license a window of ±windowDays around its issue date is scanned and
// flagged when it holds at least threshold licenses.
//
// The scan is a brute-force all-pairs pass over the dated rows —
// O(n²), acceptable at municipal extract sizes. Rows are ordered by
// issue date ascending (input order on ties) before scanning, and one
// finding is kept per unique (window start, window end) pair, first
// occurrence winning.
func TemporalClusters(licenses []domain.License, windowDays, threshold int) []domain.Finding {
	dated := make([]domain.License, 0, len(licenses))
	for _, l := range licenses {
		if l.HasIssueDate {
			dated = append(dated, l)
		}
	}
	if len(dated) == 0 {
		return nil
	}
	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].IssueDate.Before(dated[j].IssueDate)
	})

	window := time.Duration(windowDays) * 24 * time.Hour
	seen := make(map[string]bool)
	var findings []domain.Finding

	for _, l := range dated {
		start := l.IssueDate.Add(-window)
		end := l.IssueDate.Add(window)

		var inWindow []domain.License
		for _, other := range dated {
			if !other.IssueDate.Before(start) && !other.IssueDate.After(end) {
				inWindow = append(inWindow, other)
			}
		}
		if len(inWindow) < threshold {
			continue
		}

		key := start.Format("2006-01-02") + "_" + end.Format("2006-01-02")
		if seen[key] {
			continue
		}
		seen[key] = true

		var businesses, addresses []string
		for _, w := range inWindow {
			businesses = appendUnique(businesses, w.BusinessName)
			if w.Address != "" {
				addresses = appendUnique(addresses, w.Address)
			}
		}

		findings = append(findings, domain.Finding{
			ID:          uuid.New().String(),
			PatternType: domain.PatternTemporalClustering,
			Subject:     start.Format("2006-01-02") + " to " + end.Format("2006-01-02"),
			Metric:      float64(len(inWindow)),
			Evidence: map[string]any{
				"windowStart":  start.Format("2006-01-02"),
				"windowEnd":    end.Format("2006-01-02"),
				"licenseCount": len(inWindow),
				"businesses":   businesses,
				"addresses":    addresses,
			},
			Narrative: fmt.Sprintf(
				"%d licenses issued within %d days. Could indicate: processing batch, coordinated filing, or administrative event.",
				len(inWindow), windowDays),
		})
	}

	return score.Rank(findings)
}
