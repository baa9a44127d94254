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

const maxNameMatchFindings = 100

// NameSimilarity joins license holder names against contract suppliers
// and delinquent-property owners at the given ratio threshold, and
// clusters near-duplicate license names. A nil scorer marks the whole
// analysis skipped instead of failing the run.
func NameSimilarity(scorer similarity.Scorer, data *domain.Datasets, threshold float64, maxWorkers int) domain.NameSimilarityResult {
	result := domain.NameSimilarityResult{
		Clusters:               []domain.Finding{},
		LicenseContractMatches: []domain.Finding{},
		LicenseTaxOwnerMatches: []domain.Finding{},
	}
	if scorer == nil {
		result.Skipped = true
		result.SkipReason = "no similarity scorer configured"
		return result
	}

	licenseNames := uniqueLicenseNames(data.Licenses)
	suppliers, supplierGroups := supplierIndex(data.Contracts)
	owners, ownerGroups := ownerIndex(data.Taxes)

	result.Summary = domain.NameSimilaritySummary{
		TotalLicenseNames: len(licenseNames),
		TotalSuppliers:    len(suppliers),
		TotalTaxOwners:    len(owners),
	}

	contractMatches := contractNameMatches(
		similarity.MatchSets(scorer, licenseNames, suppliers, threshold, maxWorkers), supplierGroups)
	result.Summary.LicenseContractMatchesFound = len(contractMatches)
	sort.SliceStable(contractMatches, func(i, j int) bool {
		return contractMatches[i].RiskScore > contractMatches[j].RiskScore
	})
	if len(contractMatches) > maxNameMatchFindings {
		contractMatches = contractMatches[:maxNameMatchFindings]
	}
	result.LicenseContractMatches = contractMatches

	taxMatches := taxOwnerMatches(
		similarity.MatchSets(scorer, licenseNames, owners, threshold, maxWorkers), ownerGroups)
	result.Summary.LicenseTaxMatchesFound = len(taxMatches)
	sort.SliceStable(taxMatches, func(i, j int) bool {
		return taxMatches[i].RiskScore > taxMatches[j].RiskScore
	})
	if len(taxMatches) > maxNameMatchFindings {
		taxMatches = taxMatches[:maxNameMatchFindings]
	}
	result.LicenseTaxOwnerMatches = taxMatches

	result.Clusters = nameClusters(scorer, licenseNames, threshold)
	return result
}

func contractNameMatches(pairs []similarity.Pair, suppliers map[string][]domain.Contract) []domain.Finding {
	var findings []domain.Finding
	for _, p := range pairs {
		group := suppliers[p.B]
		var total float64
		var agencies []string
		for _, c := range group {
			total += c.ContractValue
			agencies = appendUnique(agencies, c.Agency)
		}
		sim := math.Round(p.Ratio*1000) / 1000
		risk := math.Round(sim*math.Min(1.0, float64(len(group))/5)*1000) / 1000

		findings = append(findings, domain.Finding{
			ID:          uuid.New().String(),
			PatternType: domain.PatternLicenseContractMatch,
			Subject:     p.A + " ~ " + p.B,
			Metric:      sim,
			RiskScore:   risk,
			Evidence: map[string]any{
				"licenseName":        p.A,
				"contractSupplier":   p.B,
				"similarityScore":    sim,
				"contractCount":      len(group),
				"totalContractValue": total,
				"agencies":           agencies,
			},
			Narrative: fmt.Sprintf(
				"Business license holder matches contract supplier with %.1f%% similarity. %d contracts worth %s. Could indicate: legitimate business relationships or potential self-dealing arrangements.",
				sim*100, len(group), score.Money(total)),
		})
	}
	return findings
}

func taxOwnerMatches(pairs []similarity.Pair, owners map[string][]domain.TaxRecord) []domain.Finding {
	var findings []domain.Finding
	for _, p := range pairs {
		group := owners[p.B]
		var totalDue float64
		for _, t := range group {
			totalDue += t.TotalDue
		}
		sim := math.Round(p.Ratio*1000) / 1000
		risk := math.Round(sim*math.Min(1.0, totalDue/10000)*1000) / 1000

		findings = append(findings, domain.Finding{
			ID:          uuid.New().String(),
			PatternType: domain.PatternLicenseTaxOwnerMatch,
			Subject:     p.A + " ~ " + p.B,
			Metric:      sim,
			RiskScore:   risk,
			Evidence: map[string]any{
				"licenseName":     p.A,
				"taxOwner":        p.B,
				"similarityScore": sim,
				"propertyCount":   len(group),
				"totalTaxDue":     totalDue,
			},
			Narrative: fmt.Sprintf(
				"Licensed business name matches tax-delinquent property owner with %.1f%% similarity. %s in unpaid taxes. Could indicate: financial distress or business operating from problematic property.",
				sim*100, score.Money(totalDue)),
		})
	}
	return findings
}

// nameClusters groups near-duplicate license holder names. Clusters are
// advisory: the metric is the member count and the score is normalized
// within the collection.
func nameClusters(scorer similarity.Scorer, names []string, threshold float64) []domain.Finding {
	clusters := similarity.Cluster(scorer, names, threshold)
	var findings []domain.Finding
	for _, cluster := range clusters {
		findings = append(findings, domain.Finding{
			ID:          uuid.New().String(),
			PatternType: domain.PatternNameSimilarity,
			Subject:     cluster[0],
			Metric:      float64(len(cluster)),
			Evidence: map[string]any{
				"names":       cluster,
				"memberCount": len(cluster),
			},
			Narrative: fmt.Sprintf(
				"%d license holder names are near-duplicates. Could indicate: data entry variants, related entities, or deliberate name shading.",
				len(cluster)),
		})
	}
	return score.Rank(findings)
}

func uniqueLicenseNames(licenses []domain.License) []string {
	var names []string
	seen := map[string]bool{}
	for _, l := range licenses {
		if l.NormBusinessName == "" || seen[l.NormBusinessName] {
			continue
		}
		seen[l.NormBusinessName] = true
		names = append(names, l.NormBusinessName)
	}
	return names
}

func supplierIndex(contracts []domain.Contract) ([]string, map[string][]domain.Contract) {
	groups := map[string][]domain.Contract{}
	var order []string
	for _, c := range contracts {
		if c.NormSupplier == "" {
			continue
		}
		if _, seen := groups[c.NormSupplier]; !seen {
			order = append(order, c.NormSupplier)
		}
		groups[c.NormSupplier] = append(groups[c.NormSupplier], c)
	}
	return order, groups
}

func ownerIndex(taxes []domain.TaxRecord) ([]string, map[string][]domain.TaxRecord) {
	groups := map[string][]domain.TaxRecord{}
	var order []string
	for _, t := range taxes {
		if t.NormOwner == "" {
			continue
		}
		if _, seen := groups[t.NormOwner]; !seen {
			order = append(order, t.NormOwner)
		}
		groups[t.NormOwner] = append(groups[t.NormOwner], t)
	}
	return order, groups
}

func appendUnique(list []string, s string) []string {
	if s == "" {
		return list
	}
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
