package rules

import "github.com/opencivic-data/heron/internal/domain"

func f(v float64) *float64 { return &v }

// BuiltinRules returns the default key-finding rule set. Each rule
// reads one report summary figure; the bands start at the smallest
// value worth a headline, so a quiet report yields no key findings.
func BuiltinRules() []*domain.KeyFindingRule {
	return []*domain.KeyFindingRule{
		{
			ID:         "shared-addresses",
			Category:   "Address Clustering",
			Expression: "sharedAddresses",
			Finding:    "%s addresses appear in both business licenses and delinquent tax records",
			Action:     "Review properties for potential undisclosed business use or financial distress",
			Bands: []domain.RuleBand{
				{LowerLimit: f(1), Significance: domain.SignificanceHigh},
			},
			Enabled: true,
		},
		{
			ID:         "license-contract-matches",
			Category:   "Name Similarity",
			Expression: "licenseContractMatches",
			Finding:    "%s matches between business license holders and city contract suppliers",
			Action:     "Verify business relationships and potential self-dealing",
			Bands: []domain.RuleBand{
				{LowerLimit: f(1), Significance: domain.SignificanceMedium},
			},
			Enabled: true,
		},
		{
			ID:         "contract-timing-spikes",
			Category:   "Contract Timing",
			Expression: "monthsWithSpikes",
			Finding:    "%s months with unusual contract activity spikes",
			Action:     "Review end-of-period spending and batch processing patterns",
			Bands: []domain.RuleBand{
				{LowerLimit: f(1), Significance: domain.SignificanceMedium},
			},
			Enabled: true,
		},
		{
			ID:         "non-competitive-share",
			Category:   "Procurement Types",
			Expression: "nonCompetitivePct",
			Finding:    "%s%% of contracts awarded through non-competitive processes",
			Action:     "Evaluate necessity of non-competitive awards and supplier diversity",
			// The percentage is rounded to two decimals upstream, so a
			// lower limit of 20.01 is strictly-greater-than 20.
			Bands: []domain.RuleBand{
				{LowerLimit: f(20.01), Significance: domain.SignificanceHigh},
			},
			Enabled: true,
		},
		{
			ID:         "agency-concentration",
			Category:   "Agency Concentration",
			Expression: "highConcentrationAgencies",
			Finding:    "%s agencies have high supplier concentration (top 3 suppliers >50%% of value)",
			Action:     "Review competition levels and consider supplier diversification",
			Bands: []domain.RuleBand{
				{LowerLimit: f(1), Significance: domain.SignificanceMedium},
			},
			Enabled: true,
		},
		{
			ID:         "supplier-tax-delinquency",
			Category:   "Tax Delinquency Overlaps",
			Expression: "supplierTaxMatches",
			Finding:    "%s city contractors may have tax-delinquent property ownership connections",
			Action:     "Review contractor eligibility and enforce tax compliance requirements",
			Bands: []domain.RuleBand{
				{LowerLimit: f(1), Significance: domain.SignificanceHigh},
			},
			Enabled: true,
		},
	}
}
