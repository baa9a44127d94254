// Package crossmatch links records across the three datasets: shared
// addresses between licenses and delinquent properties, fuzzy name
// joins between license holders, contract suppliers, and property
// owners, and delinquency linkage for city contractors.
//
// Cross-dataset findings carry absolute risk scores bounded to [0, 1]
// by saturating formulas rather than per-collection normalization, so
// a score is comparable across runs.
package crossmatch

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/opencivic-data/heron/internal/domain"
	"github.com/opencivic-data/heron/internal/score"
)

const maxAddressFindings = 50

// AddressClustering intersects normalized license addresses with
// normalized delinquent-property addresses and reports each shared
// address, plus within-license address density at the given threshold.
func AddressClustering(licenses []domain.License, taxes []domain.TaxRecord, threshold int) domain.AddressClusteringResult {
	result := domain.AddressClusteringResult{
		CrossDatasetOverlaps: []domain.Finding{},
		AddressDensity:       []domain.Finding{},
	}

	licenseByAddr := map[string][]domain.License{}
	var licenseOrder []string
	for _, l := range licenses {
		if l.NormAddress == "" {
			continue
		}
		if _, seen := licenseByAddr[l.NormAddress]; !seen {
			licenseOrder = append(licenseOrder, l.NormAddress)
		}
		licenseByAddr[l.NormAddress] = append(licenseByAddr[l.NormAddress], l)
	}

	taxByAddr := map[string][]domain.TaxRecord{}
	for _, t := range taxes {
		if t.NormAddress == "" {
			continue
		}
		taxByAddr[t.NormAddress] = append(taxByAddr[t.NormAddress], t)
	}

	var overlaps []domain.Finding
	for _, addr := range licenseOrder {
		taxGroup, shared := taxByAddr[addr]
		if !shared {
			continue
		}
		licGroup := licenseByAddr[addr]

		var totalDue, yearsSum float64
		for _, t := range taxGroup {
			totalDue += t.TotalDue
			yearsSum += t.YearsDelinquent
		}
		avgYears := yearsSum / float64(len(taxGroup))

		var businesses []string
		for _, l := range licGroup {
			if len(businesses) >= 5 {
				break
			}
			businesses = append(businesses, l.BusinessName)
		}

		risk := math.Min(1.0, float64(len(licGroup)+len(taxGroup))/10)
		overlaps = append(overlaps, domain.Finding{
			ID:          uuid.New().String(),
			PatternType: domain.PatternAddressOverlap,
			Subject:     addr,
			Metric:      float64(len(licGroup) + len(taxGroup)),
			RiskScore:   risk,
			Evidence: map[string]any{
				"address":            addr,
				"licenseCount":       len(licGroup),
				"taxDelinquentCount": len(taxGroup),
				"businesses":         businesses,
				"totalTaxDue":        totalDue,
				"avgYearsDelinquent": avgYears,
			},
			Narrative: fmt.Sprintf(
				"Address appears in both business licenses (%d) and delinquent tax records (%d). Total tax due: %s. Could indicate: financial distress, shell company operations, or properties being used for undisclosed business activities.",
				len(licGroup), len(taxGroup), score.Money(totalDue)),
		})
	}

	sort.SliceStable(overlaps, func(i, j int) bool { return overlaps[i].RiskScore > overlaps[j].RiskScore })
	result.TotalSharedAddresses = len(overlaps)
	if len(overlaps) > maxAddressFindings {
		overlaps = overlaps[:maxAddressFindings]
	}
	result.CrossDatasetOverlaps = overlaps

	result.AddressDensity = addressDensity(licenseOrder, licenseByAddr, threshold)

	result.Summary = domain.AddressOverlapSummary{
		TotalLicenseAddresses: len(licenseByAddr),
		TotalTaxAddresses:     len(taxByAddr),
		OverlapCount:          result.TotalSharedAddresses,
	}
	result.Summary.OverlapPercentage = math.Round(
		float64(result.TotalSharedAddresses)/float64(max(len(licenseByAddr), 1))*100*100) / 100
	return result
}

// addressDensity mirrors the license package's density detector but
// keeps the saturating count/10 risk so cross-dataset output stays on
// the absolute scale.
func addressDensity(order []string, byAddr map[string][]domain.License, threshold int) []domain.Finding {
	var findings []domain.Finding
	for _, addr := range order {
		group := byAddr[addr]
		if len(group) < threshold {
			continue
		}

		var businesses, dbas []string
		for _, l := range group {
			if len(businesses) < 10 {
				businesses = append(businesses, l.BusinessName)
			}
			if l.DBAName != "" && len(dbas) < 10 {
				dbas = append(dbas, l.DBAName)
			}
		}

		findings = append(findings, domain.Finding{
			ID:          uuid.New().String(),
			PatternType: domain.PatternAddressDensity,
			Subject:     addr,
			Metric:      float64(len(group)),
			RiskScore:   math.Min(1.0, float64(len(group))/10),
			Evidence: map[string]any{
				"address":      addr,
				"licenseCount": len(group),
				"businesses":   businesses,
				"dbas":         dbas,
			},
			Narrative: fmt.Sprintf(
				"%d business licenses at single address. Could indicate: shared office space, registered agent services, shell company hub, or legitimate business center.",
				len(group)),
		})
	}

	sort.SliceStable(findings, func(i, j int) bool { return findings[i].RiskScore > findings[j].RiskScore })
	if len(findings) > maxAddressFindings {
		findings = findings[:maxAddressFindings]
	}
	return findings
}
