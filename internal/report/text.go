package report

import (
	"fmt"
	"strings"

	"github.com/opencivic-data/heron/internal/domain"
	"github.com/opencivic-data/heron/internal/score"
)

var rule = strings.Repeat("=", 80)

// FormatText renders the report as the fixed-order plain-text document:
// overview, key findings, one section per analysis, recommendations.
func FormatText(r *domain.Report) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}
	header := func(title string) {
		line("")
		line(rule)
		line(title)
		line(rule)
	}

	line(rule)
	line("CROSS-DATASET PATTERN ANALYSIS REPORT")
	line("Generated: %s", r.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"))
	line(rule)

	header("DATASET OVERVIEW")
	ds := r.DatasetSummary
	line("")
	line("Business Licenses:")
	line("  Total Records: %s", score.Count(ds.Licenses.TotalRecords))
	line("  Unique Businesses: %s", score.Count(ds.Licenses.UniqueBusinesses))
	line("  Unique Addresses: %s", score.Count(ds.Licenses.UniqueAddresses))
	line("")
	line("City Contracts:")
	line("  Total Records: %s", score.Count(ds.Contracts.TotalRecords))
	line("  Total Value: %s", score.Money(ds.Contracts.TotalValue))
	line("  Unique Suppliers: %s", score.Count(ds.Contracts.UniqueSuppliers))
	line("  Unique Agencies: %s", score.Count(ds.Contracts.UniqueAgencies))
	line("")
	line("Delinquent Property Taxes:")
	line("  Total Records: %s", score.Count(ds.Taxes.TotalRecords))
	line("  Total Due: %s", score.Money(ds.Taxes.TotalDue))
	line("  Unique Owners: %s", score.Count(ds.Taxes.UniqueOwners))

	header("KEY FINDINGS")
	for i, kf := range r.KeyFindings {
		line("")
		line("%d. [%s] %s", i+1, kf.Significance, kf.Category)
		line("   Finding: %s", kf.Finding)
		line("   Action: %s", kf.Action)
	}

	header("ADDRESS CLUSTERING ANALYSIS")
	addr := r.Analyses.AddressClustering
	line("")
	line("Cross-Dataset Overlaps: %d addresses found in both licenses and tax records", addr.TotalSharedAddresses)
	if len(addr.CrossDatasetOverlaps) > 0 {
		line("")
		line("Top Address Overlaps (License + Tax Delinquent):")
		for _, f := range top(addr.CrossDatasetOverlaps, 10) {
			line("  - %s", f.Subject)
			line("    Licenses: %v, Tax Records: %v", f.Evidence["licenseCount"], f.Evidence["taxDelinquentCount"])
			line("    Tax Due: %s", score.Money(num(f.Evidence["totalTaxDue"])))
		}
	}
	if len(addr.AddressDensity) > 0 {
		line("")
		line("High-Density Business Addresses:")
		for _, f := range top(addr.AddressDensity, 10) {
			line("  - %s: %v licenses", f.Subject, f.Evidence["licenseCount"])
			if names := stringList(f.Evidence["businesses"]); len(names) > 0 {
				if len(names) > 3 {
					names = names[:3]
				}
				line("    Businesses: %s", strings.Join(names, ", "))
			}
		}
	}

	header("NAME SIMILARITY ANALYSIS")
	names := r.Analyses.NameSimilarity
	line("")
	if names.Skipped {
		line("Skipped: %s", names.SkipReason)
	} else {
		line("License-Contract Matches: %d", names.Summary.LicenseContractMatchesFound)
		line("License-Tax Owner Matches: %d", names.Summary.LicenseTaxMatchesFound)
		if len(names.LicenseContractMatches) > 0 {
			line("")
			line("Top License-Contract Supplier Matches:")
			for _, f := range top(names.LicenseContractMatches, 10) {
				line("  - %v <-> %v", f.Evidence["licenseName"], f.Evidence["contractSupplier"])
				line("    Similarity: %s, Contracts: %v, Value: %s",
					score.Pct(num(f.Evidence["similarityScore"])),
					f.Evidence["contractCount"],
					score.Money(num(f.Evidence["totalContractValue"])))
			}
		}
	}

	header("CONTRACT TIMING ANALYSIS")
	timing := r.Analyses.ContractTiming
	if len(timing.TemporalSpikes) > 0 {
		line("")
		line("Months with Unusual Activity:")
		for _, f := range top(timing.TemporalSpikes, 5) {
			line("  - %s: %v contracts, %s", f.Subject, f.Evidence["contractCount"], score.Money(num(f.Evidence["totalValue"])))
		}
	}
	if len(timing.SameDayAwards) > 0 {
		line("")
		line("Same-Day Contract Awards: %d days with 3+ awards", timing.Summary.DaysWithMultipleAwards)
	}

	header("PROCUREMENT TYPE ANALYSIS")
	proc := r.Analyses.ProcurementTypes
	if len(proc.Distribution) > 0 {
		line("")
		line("Procurement Type Distribution:")
		n := len(proc.Distribution)
		if n > 8 {
			n = 8
		}
		for _, d := range proc.Distribution[:n] {
			line("  - %s: %d contracts, %s", d.ProcurementType, d.Count, score.Money(d.TotalValue))
		}
	}
	if len(proc.NonCompetitiveSuppliers) > 0 {
		line("")
		line("Top Non-Competitive Award Recipients:")
		for _, f := range top(proc.NonCompetitiveSuppliers, 5) {
			line("  - %s: %v contracts, %s", f.Subject, f.Evidence["contractCount"], score.Money(num(f.Evidence["totalValue"])))
		}
	}

	header("AGENCY CONCENTRATION ANALYSIS")
	agency := r.Analyses.AgencyConcentration
	if len(agency.SupplierConcentration) > 0 {
		line("")
		line("Agencies with High Supplier Concentration:")
		for _, f := range top(agency.SupplierConcentration, 5) {
			line("  - %s", f.Subject)
			line("    Top 3 suppliers control %s (%s)",
				score.Pct(num(f.Evidence["top3Share"])),
				score.Money(num(f.Evidence["top3Value"])))
		}
	}
	if len(agency.MultiAgencySuppliers) > 0 {
		line("")
		line("Suppliers Working with Multiple Agencies:")
		for _, f := range top(agency.MultiAgencySuppliers, 5) {
			line("  - %s: %v agencies, %s", f.Subject, f.Evidence["agencyCount"], score.Money(num(f.Evidence["totalValue"])))
		}
	}

	header("TAX DELINQUENT OVERLAPS")
	tax := r.Analyses.TaxDelinquency
	line("")
	line("Total Delinquent Properties: %s", score.Count(tax.Summary.TotalDelinquentProperties))
	line("Total Tax Due: %s", score.Money(tax.Summary.TotalTaxDue))
	if len(tax.SupplierTaxMatches) > 0 {
		line("")
		line("City Contractors with Potential Tax Delinquency:")
		for _, f := range top(tax.SupplierTaxMatches, 5) {
			line("  - %v", f.Evidence["supplier"])
			line("    Contracts: %v, Value: %s", f.Evidence["contractCount"], score.Money(num(f.Evidence["contractValue"])))
			line("    Tax Due: %s", score.Money(num(f.Evidence["totalTaxDue"])))
		}
	}

	header("FOLLOW-UP DATA RECOMMENDATIONS")
	line("")
	line("To validate findings, consider obtaining:")
	for _, rec := range r.Recommendations {
		line("")
		line("[%s] %s", rec.Priority, rec.DataSource)
		line("  Purpose: %s", rec.Purpose)
	}

	line("")
	line(rule)
	line("END OF REPORT")
	line(rule)
	return b.String()
}

func top(findings []domain.Finding, n int) []domain.Finding {
	if len(findings) > n {
		return findings[:n]
	}
	return findings
}

func num(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	default:
		return 0
	}
}

func stringList(v any) []string {
	s, _ := v.([]string)
	return s
}
