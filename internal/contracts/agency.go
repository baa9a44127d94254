package contracts

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/opencivic-data/heron/internal/domain"
	"github.com/opencivic-data/heron/internal/score"
)

const (
	maxMultiAgencyFindings = 20
	multiAgencyThreshold   = 3
	top3ShareCutoff        = 0.5
)

// AgencyConcentration analyzes contract spend by agency: per-agency
// statistics, agencies where the top three suppliers control over half
// the value, and suppliers working across three or more agencies.
func AgencyConcentration(contracts []domain.Contract) domain.AgencyResult {
	result := domain.AgencyResult{
		AgencyStatistics:      []domain.AgencyStats{},
		SupplierConcentration: []domain.Finding{},
		MultiAgencySuppliers:  []domain.Finding{},
	}
	if len(contracts) == 0 {
		return result
	}

	agencyOrder, byAgency := groupBy(contracts, func(c domain.Contract) string { return c.Agency })
	supplierOrder, bySupplier := groupBy(contracts, func(c domain.Contract) string { return c.Supplier })
	result.Summary.TotalAgencies = len(agencyOrder)
	result.Summary.TotalSuppliers = len(supplierOrder)

	for _, agency := range agencyOrder {
		group := byAgency[agency]
		var total float64
		var suppliers []string
		for _, c := range group {
			total += c.ContractValue
			suppliers = appendUnique(suppliers, c.Supplier)
		}
		stats := domain.AgencyStats{
			Agency:          agency,
			ContractCount:   len(group),
			TotalValue:      total,
			UniqueSuppliers: len(suppliers),
		}
		if stats.ContractCount > 0 {
			stats.AvgValuePerContract = total / float64(stats.ContractCount)
		}
		if stats.UniqueSuppliers > 0 {
			stats.ContractsPerSupplier = float64(stats.ContractCount) / float64(stats.UniqueSuppliers)
		}
		result.AgencyStatistics = append(result.AgencyStatistics, stats)

		if f, ok := concentrationFinding(agency, group); ok {
			result.SupplierConcentration = append(result.SupplierConcentration, f)
		}
	}

	sort.SliceStable(result.AgencyStatistics, func(i, j int) bool {
		return result.AgencyStatistics[i].TotalValue > result.AgencyStatistics[j].TotalValue
	})
	sort.SliceStable(result.SupplierConcentration, func(i, j int) bool {
		return result.SupplierConcentration[i].Metric > result.SupplierConcentration[j].Metric
	})
	result.Summary.HighConcentrationAgencies = len(result.SupplierConcentration)
	result.SupplierConcentration = score.Rank(result.SupplierConcentration)

	multi := multiAgencyFindings(supplierOrder, bySupplier)
	result.Summary.MultiAgencySupplierCount = len(multi)
	multi = score.Rank(multi)
	if len(multi) > maxMultiAgencyFindings {
		multi = multi[:maxMultiAgencyFindings]
	}
	result.MultiAgencySuppliers = multi
	return result
}

// concentrationFinding flags an agency when its top three suppliers by
// value hold more than half the agency's total contract value.
func concentrationFinding(agency string, group []domain.Contract) (domain.Finding, bool) {
	supplierOrder, bySupplier := groupBy(group, func(c domain.Contract) string { return c.Supplier })
	if len(supplierOrder) == 0 {
		return domain.Finding{}, false
	}

	values := make(map[string]float64, len(supplierOrder))
	var total float64
	for _, s := range supplierOrder {
		for _, c := range bySupplier[s] {
			values[s] += c.ContractValue
		}
		total += values[s]
	}

	ranked := append([]string(nil), supplierOrder...)
	sort.SliceStable(ranked, func(i, j int) bool { return values[ranked[i]] > values[ranked[j]] })
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}
	var top3 float64
	for _, s := range ranked {
		top3 += values[s]
	}
	share := top3 / math.Max(total, 1)
	if share <= top3ShareCutoff {
		return domain.Finding{}, false
	}

	return domain.Finding{
		ID:          uuid.New().String(),
		PatternType: domain.PatternSupplierConcentration,
		Subject:     agency,
		Metric:      math.Round(share*1000) / 1000,
		Evidence: map[string]any{
			"agency":          agency,
			"totalContracts":  len(group),
			"totalValue":      total,
			"uniqueSuppliers": len(supplierOrder),
			"top3Suppliers":   ranked,
			"top3Value":       top3,
			"top3Share":       math.Round(share*1000) / 1000,
		},
		Narrative: fmt.Sprintf(
			"Top 3 suppliers control %.1f%% of agency's contract value (%s). Could indicate: specialized requirements, limited competition, or preferential treatment.",
			share*100, score.Money(top3)),
	}, true
}

func multiAgencyFindings(supplierOrder []string, bySupplier map[string][]domain.Contract) []domain.Finding {
	var findings []domain.Finding
	for _, supplier := range supplierOrder {
		group := bySupplier[supplier]
		var agencies []string
		var total float64
		for _, c := range group {
			agencies = appendUnique(agencies, c.Agency)
			total += c.ContractValue
		}
		if len(agencies) < multiAgencyThreshold {
			continue
		}

		findings = append(findings, domain.Finding{
			ID:          uuid.New().String(),
			PatternType: domain.PatternMultiAgencySupplier,
			Subject:     supplier,
			Metric:      float64(len(agencies)),
			Evidence: map[string]any{
				"supplier":       supplier,
				"agencyCount":    len(agencies),
				"agencies":       agencies,
				"totalContracts": len(group),
				"totalValue":     total,
			},
			Narrative: fmt.Sprintf(
				"Supplier works with %d different agencies. Could indicate: broad capabilities, city-wide relationships, or potential influence across departments.",
				len(agencies)),
		})
	}
	return findings
}
