package crossmatch

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/opencivic-data/heron/internal/domain"
	"github.com/opencivic-data/heron/internal/score"
	"github.com/opencivic-data/heron/internal/similarity"
)

const (
	maxDelinquencyRows  = 20
	maxTaxMatchFindings = 30
	highValueScanLimit  = 100
)

// TaxLinkage cuts the delinquency roll by value and age, then links
// high-value owners to licensed businesses and contract suppliers to
// delinquent owners by fuzzy name match. Address overlap is handled by
// AddressClustering, not here.
func TaxLinkage(scorer similarity.Scorer, data *domain.Datasets, cfg domain.AnalysisConfig) domain.TaxLinkageResult {
	result := domain.TaxLinkageResult{
		HighValueDelinquencies: []domain.DelinquencyRow{},
		LongTermDelinquencies:  []domain.DelinquencyRow{},
		BusinessOwnerMatches:   []domain.Finding{},
		SupplierTaxMatches:     []domain.Finding{},
	}

	result.Summary.TotalDelinquentProperties = len(data.Taxes)
	for _, t := range data.Taxes {
		result.Summary.TotalTaxDue += t.TotalDue
	}

	highValue := filterTaxes(data.Taxes, func(t domain.TaxRecord) bool {
		return t.TotalDue >= cfg.HighValueTaxDue
	})
	sort.SliceStable(highValue, func(i, j int) bool { return highValue[i].TotalDue > highValue[j].TotalDue })
	result.Summary.HighValueCount = len(highValue)
	result.HighValueDelinquencies = delinquencyRows(highValue)

	longTerm := filterTaxes(data.Taxes, func(t domain.TaxRecord) bool {
		return t.YearsDelinquent >= cfg.LongTermYears
	})
	sort.SliceStable(longTerm, func(i, j int) bool { return longTerm[i].YearsDelinquent > longTerm[j].YearsDelinquent })
	result.Summary.LongTermCount = len(longTerm)
	result.LongTermDelinquencies = delinquencyRows(longTerm)

	if scorer == nil {
		result.Skipped = true
		result.SkipReason = "no similarity scorer configured"
		return result
	}

	business := businessOwnerMatches(scorer, highValue, data.Licenses, cfg.TaxMatchThreshold)
	result.Summary.BusinessMatchesFound = len(business)
	sort.SliceStable(business, func(i, j int) bool {
		return business[i].Evidence["totalDue"].(float64) > business[j].Evidence["totalDue"].(float64)
	})
	if len(business) > maxTaxMatchFindings {
		business = business[:maxTaxMatchFindings]
	}
	result.BusinessOwnerMatches = score.Rank(business)

	supplier := supplierTaxMatches(scorer, data.Contracts, data.Taxes, cfg.NameSimilarityThreshold)
	result.Summary.SupplierMatchesFound = len(supplier)
	sort.SliceStable(supplier, func(i, j int) bool {
		return supplier[i].Evidence["contractValue"].(float64) > supplier[j].Evidence["contractValue"].(float64)
	})
	if len(supplier) > maxTaxMatchFindings {
		supplier = supplier[:maxTaxMatchFindings]
	}
	result.SupplierTaxMatches = score.Rank(supplier)

	return result
}

// businessOwnerMatches scans the top high-value delinquencies against
// every license row. The scan is bounded to the first hundred rows of
// the sorted roll; below that the dollar amounts stop justifying the
// quadratic pass.
func businessOwnerMatches(scorer similarity.Scorer, highValue []domain.TaxRecord, licenses []domain.License, threshold float64) []domain.Finding {
	scan := highValue
	if len(scan) > highValueScanLimit {
		scan = scan[:highValueScanLimit]
	}

	var findings []domain.Finding
	for _, t := range scan {
		if len(t.NormOwner) < similarity.MinNameLength {
			continue
		}
		for _, l := range licenses {
			if len(l.NormBusinessName) < similarity.MinNameLength {
				continue
			}
			sim := scorer.Ratio(t.NormOwner, l.NormBusinessName)
			if sim < threshold {
				continue
			}
			sim = math.Round(sim*1000) / 1000

			findings = append(findings, domain.Finding{
				ID:          uuid.New().String(),
				PatternType: domain.PatternHighValueTaxMatch,
				Subject:     t.OwnerName1 + " ~ " + l.BusinessName,
				Metric:      t.TotalDue,
				Evidence: map[string]any{
					"taxOwner":        t.OwnerName1,
					"businessName":    l.BusinessName,
					"similarity":      sim,
					"taxAddress":      t.Address,
					"businessAddress": l.Address,
					"totalDue":        t.TotalDue,
					"yearsDelinquent": t.YearsDelinquent,
				},
				Narrative: fmt.Sprintf(
					"Tax-delinquent property owner (%.1f%% name match) appears to operate business. %s owed for %.0f years. Could indicate: financial distress, asset shielding, or enforcement priority.",
					sim*100, score.Money(t.TotalDue), t.YearsDelinquent),
			})
		}
	}
	return findings
}

func supplierTaxMatches(scorer similarity.Scorer, contracts []domain.Contract, taxes []domain.TaxRecord, threshold float64) []domain.Finding {
	suppliers, supplierGroups := supplierIndex(contracts)

	var findings []domain.Finding
	for _, supplier := range suppliers {
		if len(supplier) < similarity.MinNameLength {
			continue
		}
		group := supplierGroups[supplier]
		var contractValue float64
		for _, c := range group {
			contractValue += c.ContractValue
		}

		for _, t := range taxes {
			if len(t.NormOwner) < similarity.MinNameLength {
				continue
			}
			sim := scorer.Ratio(supplier, t.NormOwner)
			if sim < threshold {
				continue
			}
			sim = math.Round(sim*1000) / 1000

			findings = append(findings, domain.Finding{
				ID:          uuid.New().String(),
				PatternType: domain.PatternSupplierTaxDelinquent,
				Subject:     supplier + " ~ " + t.OwnerName1,
				Metric:      contractValue,
				Evidence: map[string]any{
					"supplier":        supplier,
					"taxOwner":        t.OwnerName1,
					"similarity":      sim,
					"contractCount":   len(group),
					"contractValue":   contractValue,
					"totalTaxDue":     t.TotalDue,
					"yearsDelinquent": t.YearsDelinquent,
				},
				Narrative: fmt.Sprintf(
					"City contractor appears tax-delinquent. %d contracts worth %s while owing %s in property taxes. Could indicate: financial instability or enforcement gap.",
					len(group), score.Money(contractValue), score.Money(t.TotalDue)),
			})
		}
	}
	return findings
}

func delinquencyRows(taxes []domain.TaxRecord) []domain.DelinquencyRow {
	rows := make([]domain.DelinquencyRow, 0, maxDelinquencyRows)
	for _, t := range taxes {
		if len(rows) >= maxDelinquencyRows {
			break
		}
		rows = append(rows, domain.DelinquencyRow{
			Owner:           t.OwnerName1,
			Address:         t.Address,
			TotalDue:        t.TotalDue,
			YearsDelinquent: t.YearsDelinquent,
		})
	}
	return rows
}

func filterTaxes(taxes []domain.TaxRecord, keep func(domain.TaxRecord) bool) []domain.TaxRecord {
	var out []domain.TaxRecord
	for _, t := range taxes {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
