// Package license holds the single-dataset pattern detectors for
// business-license tables: address density, DBA usage, temporal
// clustering, and geographic concentration.
//
// Every detector returns findings ranked by max-normalized risk score;
// an empty table or a threshold nobody meets yields an empty result,
// never an error.
package license

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/opencivic-data/heron/internal/domain"
	"github.com/opencivic-data/heron/internal/score"
)

// AddressDensity flags addresses carrying threshold or more licenses.
func AddressDensity(licenses []domain.License, threshold int) []domain.Finding {
	order, groups := groupBy(licenses, func(l domain.License) string { return l.NormAddress })

	var findings []domain.Finding
	for _, addr := range order {
		group := groups[addr]
		if len(group) < threshold {
			continue
		}

		var businesses, dbas, types, dates []string
		for _, l := range group {
			businesses = appendUnique(businesses, l.BusinessName)
			if l.DBAName != "" {
				dbas = appendUnique(dbas, l.DBAName)
			}
			if l.LicenseType != "" {
				types = appendUnique(types, l.LicenseType)
			}
			if l.HasIssueDate {
				dates = append(dates, l.IssueDate.Format("2006-01-02"))
			}
		}

		findings = append(findings, domain.Finding{
			ID:          uuid.New().String(),
			PatternType: domain.PatternAddressClustering,
			Subject:     addr,
			Metric:      float64(len(group)),
			Evidence: map[string]any{
				"licenseCount": len(group),
				"businesses":   businesses,
				"dbaNames":     dbas,
				"licenseTypes": types,
				"issueDates":   dates,
			},
			Narrative: fmt.Sprintf(
				"%d licenses at single address. Could indicate: shared office space, shell companies, or legitimate business center.",
				len(group)),
		})
	}

	return score.Rank(findings)
}

// groupBy buckets licenses by key, preserving first-seen key order so
// ranking ties stay deterministic. Empty keys are skipped.
func groupBy(licenses []domain.License, key func(domain.License) string) ([]string, map[string][]domain.License) {
	groups := make(map[string][]domain.License)
	var order []string
	for _, l := range licenses {
		k := key(l)
		if k == "" {
			continue
		}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], l)
	}
	return order, groups
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
