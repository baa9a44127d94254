package license

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/opencivic-data/heron/internal/domain"
	"github.com/opencivic-data/heron/internal/score"
)

// DBAPatterns runs two symmetric sub-analyses over licenses that carry
// a DBA name: businesses operating under more than one DBA, and DBAs
// shared by more than one business. Each half is risk-scored against
// its own maximum, then the halves are concatenated.
func DBAPatterns(licenses []domain.License) []domain.Finding {
	withDBA := make([]domain.License, 0, len(licenses))
	for _, l := range licenses {
		if l.NormDBAName != "" {
			withDBA = append(withDBA, l)
		}
	}
	if len(withDBA) == 0 {
		return nil
	}

	multiple := multipleDBAs(withDBA)
	shared := sharedDBAs(withDBA)
	return append(multiple, shared...)
}

func multipleDBAs(licenses []domain.License) []domain.Finding {
	order, groups := groupBy(licenses, func(l domain.License) string { return l.NormBusinessName })

	var findings []domain.Finding
	for _, name := range order {
		group := groups[name]

		var dbas, addresses []string
		for _, l := range group {
			dbas = appendUnique(dbas, l.NormDBAName)
			if l.Address != "" {
				addresses = appendUnique(addresses, l.Address)
			}
		}
		if len(dbas) <= 1 {
			continue
		}

		findings = append(findings, domain.Finding{
			ID:          uuid.New().String(),
			PatternType: domain.PatternMultipleDBAs,
			Subject:     group[0].BusinessName,
			Metric:      float64(len(dbas)),
			Evidence: map[string]any{
				"dbaCount":     len(dbas),
				"dbaNames":     dbas,
				"licenseCount": len(group),
				"addresses":    addresses,
			},
			Narrative: fmt.Sprintf(
				"Business operates under %d different DBAs. Could indicate: legitimate diversification or complexity obscuring ownership.",
				len(dbas)),
		})
	}
	return score.Rank(findings)
}

func sharedDBAs(licenses []domain.License) []domain.Finding {
	order, groups := groupBy(licenses, func(l domain.License) string { return l.NormDBAName })

	var findings []domain.Finding
	for _, dba := range order {
		group := groups[dba]

		var businesses, addresses []string
		for _, l := range group {
			businesses = appendUnique(businesses, l.NormBusinessName)
			if l.Address != "" {
				addresses = appendUnique(addresses, l.Address)
			}
		}
		if len(businesses) <= 1 {
			continue
		}

		findings = append(findings, domain.Finding{
			ID:          uuid.New().String(),
			PatternType: domain.PatternSharedDBA,
			Subject:     group[0].DBAName,
			Metric:      float64(len(businesses)),
			Evidence: map[string]any{
				"businessCount": len(businesses),
				"businesses":    businesses,
				"licenseCount":  len(group),
				"addresses":     addresses,
			},
			Narrative: fmt.Sprintf(
				"DBA used by %d different businesses. Could indicate: related entities or naming conflicts.",
				len(businesses)),
		})
	}
	return score.Rank(findings)
}
