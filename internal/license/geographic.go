package license

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/opencivic-data/heron/internal/domain"
	"github.com/opencivic-data/heron/internal/score"
)

// Geographic flags ZIP codes carrying zipThreshold or more licenses.
// The risk metric is the concentration ratio — licenses per unique
// address within the ZIP (0 when no addresses are present) — so a ZIP
// where many licenses pile onto few addresses outranks one that is
// merely busy.
func Geographic(licenses []domain.License, zipThreshold int) []domain.Finding {
	order, groups := groupBy(licenses, func(l domain.License) string { return l.ZipCode })

	var findings []domain.Finding
	for _, zip := range order {
		group := groups[zip]
		if len(group) < zipThreshold {
			continue
		}

		var businesses, addresses, types []string
		for _, l := range group {
			businesses = appendUnique(businesses, l.NormBusinessName)
			if l.NormAddress != "" {
				addresses = appendUnique(addresses, l.NormAddress)
			}
			if l.LicenseType != "" {
				types = appendUnique(types, l.LicenseType)
			}
		}

		concentration := 0.0
		if len(addresses) > 0 {
			concentration = float64(len(group)) / float64(len(addresses))
		}

		findings = append(findings, domain.Finding{
			ID:          uuid.New().String(),
			PatternType: domain.PatternGeographic,
			Subject:     zip,
			Metric:      concentration,
			Evidence: map[string]any{
				"licenseCount":       len(group),
				"uniqueBusinesses":   len(businesses),
				"uniqueAddresses":    len(addresses),
				"concentrationRatio": concentration,
				"licenseTypes":       types,
			},
			Narrative: fmt.Sprintf(
				"%d licenses in ZIP %s (%.1f licenses per address). Could indicate: business district, registered agent service, or shell company hub.",
				len(group), zip, concentration),
		})
	}

	return score.Rank(findings)
}
