package contracts

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/opencivic-data/heron/internal/domain"
	"github.com/opencivic-data/heron/internal/score"
)

const maxNonCompetitiveFindings = 20

// nonCompetitiveTypes are procurement methods awarded without open
// competition.
var nonCompetitiveTypes = map[string]bool{
	"Agency Request": true,
	"Small Purchase": true,
	"Sole Source":    true,
	"Emergency":      true,
}

// ProcurementTypes analyzes the distribution of procurement methods,
// supplier concentration within each method, and suppliers collecting
// non-competitive awards.
func ProcurementTypes(contracts []domain.Contract) domain.ProcurementResult {
	result := domain.ProcurementResult{
		Distribution:            []domain.ProcurementTypeStats{},
		ConcentrationByType:     []domain.TypeConcentration{},
		NonCompetitiveSuppliers: []domain.Finding{},
	}
	result.Summary.TotalContracts = len(contracts)
	if len(contracts) == 0 {
		return result
	}

	order, byType := groupBy(contracts, func(c domain.Contract) string { return c.ProcurementType })
	result.Summary.UniqueProcurementTypes = len(order)

	for _, ptype := range order {
		group := byType[ptype]
		var total float64
		supplierCounts := map[string]int{}
		var supplierOrder []string
		for _, c := range group {
			total += c.ContractValue
			if c.Supplier != "" {
				if _, seen := supplierCounts[c.Supplier]; !seen {
					supplierOrder = append(supplierOrder, c.Supplier)
				}
				supplierCounts[c.Supplier]++
			}
		}

		result.Distribution = append(result.Distribution, domain.ProcurementTypeStats{
			ProcurementType: ptype,
			Count:           len(group),
			TotalValue:      total,
		})

		if len(supplierOrder) == 0 {
			continue
		}
		top := supplierOrder[0]
		for _, s := range supplierOrder {
			if supplierCounts[s] > supplierCounts[top] {
				top = s
			}
		}
		result.ConcentrationByType = append(result.ConcentrationByType, domain.TypeConcentration{
			ProcurementType:  ptype,
			TotalContracts:   len(group),
			UniqueSuppliers:  len(supplierOrder),
			TopSupplier:      top,
			TopSupplierCount: supplierCounts[top],
			TopSupplierShare: math.Round(float64(supplierCounts[top])/float64(len(group))*1000) / 1000,
			TotalValue:       total,
		})
	}

	sort.SliceStable(result.Distribution, func(i, j int) bool {
		return result.Distribution[i].TotalValue > result.Distribution[j].TotalValue
	})

	result.NonCompetitiveSuppliers, result.Summary.NonCompetitiveCount = nonCompetitiveSuppliers(contracts)
	result.Summary.NonCompetitivePercentage = math.Round(
		float64(result.Summary.NonCompetitiveCount)/float64(max(len(contracts), 1))*100*100) / 100
	return result
}

func nonCompetitiveSuppliers(contracts []domain.Contract) ([]domain.Finding, int) {
	var nc []domain.Contract
	for _, c := range contracts {
		if nonCompetitiveTypes[c.ProcurementType] {
			nc = append(nc, c)
		}
	}
	if len(nc) == 0 {
		return []domain.Finding{}, 0
	}

	order, bySupplier := groupBy(nc, func(c domain.Contract) string { return c.Supplier })

	var findings []domain.Finding
	for _, supplier := range order {
		group := bySupplier[supplier]
		var total float64
		var agencies, ptypes []string
		for _, c := range group {
			total += c.ContractValue
			agencies = appendUnique(agencies, c.Agency)
			ptypes = appendUnique(ptypes, c.ProcurementType)
		}

		findings = append(findings, domain.Finding{
			ID:          uuid.New().String(),
			PatternType: domain.PatternNonCompetitive,
			Subject:     supplier,
			Metric:      total,
			Evidence: map[string]any{
				"supplier":         supplier,
				"contractCount":    len(group),
				"totalValue":       total,
				"agencies":         agencies,
				"procurementTypes": ptypes,
			},
			Narrative: fmt.Sprintf(
				"Supplier received %d non-competitive contracts totaling %s. Could indicate: specialized expertise, preferred vendor status, or potential favoritism.",
				len(group), score.Money(total)),
		})
	}

	findings = score.Rank(findings)
	if len(findings) > maxNonCompetitiveFindings {
		findings = findings[:maxNonCompetitiveFindings]
	}
	return findings, len(nc)
}
