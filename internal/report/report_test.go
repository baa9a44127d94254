package report

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/opencivic-data/heron/internal/domain"
	"github.com/opencivic-data/heron/internal/normalize"
	"github.com/opencivic-data/heron/internal/rules"
	"github.com/opencivic-data/heron/internal/similarity"
)

func testDatasets() *domain.Datasets {
	lic := func(business, address, zip, issued string) domain.License {
		l := domain.License{BusinessName: business, Address: address, ZipCode: zip}
		if issued != "" {
			l.IssueDate, l.HasIssueDate = normalize.Date(issued)
		}
		l.NormBusinessName = normalize.Name(business)
		l.NormAddress = normalize.Address(address)
		return l
	}
	con := func(agency, number, supplier, ptype string, value float64, from string) domain.Contract {
		c := domain.Contract{
			Agency: agency, ContractNumber: number, Supplier: supplier,
			ProcurementType: ptype, ContractValue: value,
		}
		if from != "" {
			c.EffectiveFrom, c.HasEffectiveFrom = normalize.Date(from)
		}
		c.NormSupplier = normalize.Name(supplier)
		return c
	}
	tax := func(owner, address string, due, years float64) domain.TaxRecord {
		return domain.TaxRecord{
			OwnerName1: owner, Address: address, TotalDue: due, YearsDelinquent: years,
			NormOwner: normalize.Name(owner), NormAddress: normalize.Address(address),
		}
	}

	return &domain.Datasets{
		Licenses: []domain.License{
			lic("Acme Holdings LLC", "100 Main Street", "62701", "2024-01-10"),
			lic("Beta Works Inc", "100 MAIN ST", "62701", "2024-01-12"),
			lic("Gamma Services", "100 Main St", "62701", "2024-01-14"),
			lic("Riverside Catering LLC", "200 Oak Avenue", "62702", "2024-04-01"),
		},
		Contracts: []domain.Contract{
			con("Parks", "C-1", "Riverside Caterin Inc", "Sole Source", 40000, "2024-02-01"),
			con("Schools", "C-2", "Riverside Caterin Inc", "RFP", 60000, "2024-03-01"),
			con("Water", "C-3", "Other Vendor", "RFP", 10000, "2024-05-01"),
		},
		Taxes: []domain.TaxRecord{
			tax("Smith John", "100 Main Street", 8000, 4),
			tax("Riverside Caterin", "9 Dock St", 6000, 2),
		},
	}
}

func testAggregator(t *testing.T) *Aggregator {
	t.Helper()
	engine, err := rules.NewEngine()
	if err != nil {
		t.Fatalf("rules.NewEngine: %v", err)
	}
	if err := engine.LoadRules(rules.BuiltinRules()); err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	logger := slog.New(slog.DiscardHandler)
	return NewAggregator(similarity.Levenshtein{}, engine, domain.DefaultAnalysisConfig(), logger)
}

func TestGenerateFullReport(t *testing.T) {
	agg := testAggregator(t)
	rep, err := agg.Generate(context.Background(), "run-1", testDatasets())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if rep.RunID != "run-1" || rep.GeneratedAt.IsZero() {
		t.Errorf("header = %+v", rep)
	}

	ds := rep.DatasetSummary
	if ds.Licenses.TotalRecords != 4 || ds.Licenses.UniqueBusinesses != 4 {
		t.Errorf("license summary = %+v", ds.Licenses)
	}
	if ds.Licenses.EarliestIssue != "2024-01-10" || ds.Licenses.LatestIssue != "2024-04-01" {
		t.Errorf("issue range = %q..%q", ds.Licenses.EarliestIssue, ds.Licenses.LatestIssue)
	}
	if ds.Contracts.TotalValue != 110000 || ds.Contracts.UniqueAgencies != 3 {
		t.Errorf("contract summary = %+v", ds.Contracts)
	}
	if ds.Taxes.TotalDue != 14000 {
		t.Errorf("tax summary = %+v", ds.Taxes)
	}

	// 100 MAIN ST is shared between licenses and the tax roll.
	if rep.Analyses.AddressClustering.TotalSharedAddresses != 1 {
		t.Errorf("shared addresses = %d", rep.Analyses.AddressClustering.TotalSharedAddresses)
	}
	// Three licenses at one address meets the default density threshold.
	if len(rep.Analyses.LicensePatterns.AddressDensity) != 1 {
		t.Errorf("address density = %+v", rep.Analyses.LicensePatterns.AddressDensity)
	}
	// Riverside Catering matches the supplier name.
	if rep.Analyses.NameSimilarity.Summary.LicenseContractMatchesFound != 1 {
		t.Errorf("license-contract matches = %d", rep.Analyses.NameSimilarity.Summary.LicenseContractMatchesFound)
	}
	// The supplier also matches a delinquent owner.
	if rep.Analyses.TaxDelinquency.Summary.SupplierMatchesFound < 1 {
		t.Errorf("supplier tax matches = %d", rep.Analyses.TaxDelinquency.Summary.SupplierMatchesFound)
	}

	if len(rep.KeyFindings) == 0 {
		t.Error("expected key findings from builtin rules")
	}
	for _, kf := range rep.KeyFindings {
		if kf.Significance != domain.SignificanceHigh && kf.Significance != domain.SignificanceMedium {
			t.Errorf("unexpected significance %q", kf.Significance)
		}
	}

	if len(rep.Recommendations) != 7 {
		t.Errorf("recommendations = %d", len(rep.Recommendations))
	}
}

func TestGenerateWithoutScorer(t *testing.T) {
	engine, err := rules.NewEngine()
	if err != nil {
		t.Fatalf("rules.NewEngine: %v", err)
	}
	logger := slog.New(slog.DiscardHandler)
	agg := NewAggregator(nil, engine, domain.AnalysisConfig{}, logger)

	rep, err := agg.Generate(context.Background(), "run-2", testDatasets())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !rep.Analyses.NameSimilarity.Skipped {
		t.Error("name similarity must be skipped without a scorer")
	}
	if !rep.Analyses.TaxDelinquency.Skipped {
		t.Error("tax linkage must be skipped without a scorer")
	}
	// Address clustering still runs.
	if rep.Analyses.AddressClustering.TotalSharedAddresses != 1 {
		t.Errorf("shared addresses = %d", rep.Analyses.AddressClustering.TotalSharedAddresses)
	}
}

func TestFormatTextSections(t *testing.T) {
	agg := testAggregator(t)
	rep, err := agg.Generate(context.Background(), "run-3", testDatasets())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	text := FormatText(rep)

	sections := []string{
		"CROSS-DATASET PATTERN ANALYSIS REPORT",
		"DATASET OVERVIEW",
		"KEY FINDINGS",
		"ADDRESS CLUSTERING ANALYSIS",
		"NAME SIMILARITY ANALYSIS",
		"CONTRACT TIMING ANALYSIS",
		"PROCUREMENT TYPE ANALYSIS",
		"AGENCY CONCENTRATION ANALYSIS",
		"TAX DELINQUENT OVERLAPS",
		"FOLLOW-UP DATA RECOMMENDATIONS",
		"END OF REPORT",
	}
	last := -1
	for _, s := range sections {
		idx := strings.Index(text, s)
		if idx < 0 {
			t.Fatalf("missing section %q", s)
		}
		if idx < last {
			t.Errorf("section %q out of order", s)
		}
		last = idx
	}

	if !strings.Contains(text, "Total Value: $110,000.00") {
		t.Errorf("missing formatted contract value in:\n%s", text)
	}
	if !strings.Contains(text, strings.Repeat("=", 80)) {
		t.Error("missing section separators")
	}
}

func TestFormatTextSkippedSimilarity(t *testing.T) {
	rep := &domain.Report{}
	rep.Analyses.NameSimilarity.Skipped = true
	rep.Analyses.NameSimilarity.SkipReason = "no similarity scorer configured"

	text := FormatText(rep)
	if !strings.Contains(text, "Skipped: no similarity scorer configured") {
		t.Errorf("skip reason missing:\n%s", text)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	agg := testAggregator(t)
	rep, err := agg.Generate(context.Background(), "run-4", testDatasets())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var buf strings.Builder
	if err := WriteJSON(&buf, rep); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	back, err := ParseJSON([]byte(buf.String()))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if back.RunID != rep.RunID {
		t.Errorf("RunID = %q", back.RunID)
	}
	if len(back.AllFindings()) != len(rep.AllFindings()) {
		t.Errorf("findings lost in round trip: %d != %d", len(back.AllFindings()), len(rep.AllFindings()))
	}

	// The export is a JSON object with the stable top-level keys.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(buf.String()), &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	for _, key := range []string{"runId", "generatedAt", "datasetSummary", "analyses", "keyFindings", "followUpRecommendations"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing top-level key %q", key)
		}
	}
}
