package license

import (
	"testing"
	"time"

	"github.com/opencivic-data/heron/internal/domain"
	"github.com/opencivic-data/heron/internal/normalize"
)

func lic(business, dba, address, zip, issued string) domain.License {
	l := domain.License{
		BusinessName: business,
		DBAName:      dba,
		Address:      address,
		ZipCode:      zip,
	}
	if issued != "" {
		l.IssueDate, l.HasIssueDate = normalize.Date(issued)
	}
	l.NormBusinessName = normalize.Name(business)
	l.NormDBAName = normalize.Name(dba)
	l.NormAddress = normalize.Address(address)
	return l
}

func TestAddressDensityEndToEnd(t *testing.T) {
	// 5 rows, 4 sharing "100 MAIN ST" under two spellings.
	licenses := []domain.License{
		lic("Acme Holdings LLC", "", "100 Main Street", "", ""),
		lic("Beta Works Inc", "", "100 MAIN ST", "", ""),
		lic("Gamma Co", "", "100 Main Street", "", ""),
		lic("Delta LLC", "", "100 MAIN ST", "", ""),
		lic("Epsilon Inc", "", "200 Oak Avenue", "", ""),
	}

	findings := AddressDensity(licenses, 3)
	if len(findings) != 1 {
		t.Fatalf("expected exactly 1 finding, got %d", len(findings))
	}
	f := findings[0]
	if f.Subject != "100 MAIN ST" {
		t.Errorf("subject = %q, want 100 MAIN ST", f.Subject)
	}
	if f.Evidence["licenseCount"] != 4 {
		t.Errorf("licenseCount = %v, want 4", f.Evidence["licenseCount"])
	}
	if f.RiskScore != 1.0 {
		t.Errorf("risk score = %v, want 1.0", f.RiskScore)
	}
	if f.PatternType != domain.PatternAddressClustering {
		t.Errorf("pattern = %s", f.PatternType)
	}
}

func TestAddressDensityThresholdBoundary(t *testing.T) {
	two := []domain.License{
		lic("A", "", "1 Elm St", "", ""),
		lic("B", "", "1 Elm St", "", ""),
	}
	if got := AddressDensity(two, 3); len(got) != 0 {
		t.Errorf("2 rows at threshold 3 must not flag, got %v", got)
	}

	three := append(two, lic("C", "", "1 Elm St", "", ""))
	if got := AddressDensity(three, 3); len(got) != 1 {
		t.Errorf("3 rows at threshold 3 must flag, got %d", len(got))
	}
}

func TestDBAPatterns(t *testing.T) {
	licenses := []domain.License{
		lic("Acme Holdings LLC", "Acme Cafe", "1 A St", "", ""),
		lic("Acme Holdings LLC", "Acme Diner", "2 B St", "", ""),
		lic("Acme Holdings LLC", "Acme Market", "3 C St", "", ""),
		lic("Beta Works", "Shared Name", "4 D St", "", ""),
		lic("Gamma Co", "Shared Name", "5 E St", "", ""),
		lic("Solo Biz", "Solo DBA", "6 F St", "", ""),
	}

	findings := DBAPatterns(licenses)

	var multiple, shared []domain.Finding
	for _, f := range findings {
		switch f.PatternType {
		case domain.PatternMultipleDBAs:
			multiple = append(multiple, f)
		case domain.PatternSharedDBA:
			shared = append(shared, f)
		default:
			t.Errorf("unexpected pattern %s", f.PatternType)
		}
	}

	if len(multiple) != 1 {
		t.Fatalf("expected 1 MULTIPLE_DBAS finding, got %d", len(multiple))
	}
	if multiple[0].Evidence["dbaCount"] != 3 {
		t.Errorf("dbaCount = %v", multiple[0].Evidence["dbaCount"])
	}
	// Each half normalizes against its own maximum.
	if multiple[0].RiskScore != 1.0 {
		t.Errorf("multiple-DBA top score = %v", multiple[0].RiskScore)
	}

	if len(shared) != 1 {
		t.Fatalf("expected 1 SHARED_DBA finding, got %d", len(shared))
	}
	if shared[0].Evidence["businessCount"] != 2 {
		t.Errorf("businessCount = %v", shared[0].Evidence["businessCount"])
	}
	if shared[0].RiskScore != 1.0 {
		t.Errorf("shared-DBA top score = %v", shared[0].RiskScore)
	}
}

func TestTemporalClusters(t *testing.T) {
	base := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	var licenses []domain.License
	for i := 0; i < 5; i++ {
		l := lic("Biz", "", "1 A St", "", "")
		l.IssueDate = base.AddDate(0, 0, i)
		l.HasIssueDate = true
		licenses = append(licenses, l)
	}
	// A straggler far outside any window.
	far := lic("Far", "", "2 B St", "", "")
	far.IssueDate = base.AddDate(1, 0, 0)
	far.HasIssueDate = true
	licenses = append(licenses, far)

	findings := TemporalClusters(licenses, 7, 5)
	if len(findings) == 0 {
		t.Fatal("expected at least one temporal cluster")
	}
	if findings[0].RiskScore != 1.0 {
		t.Errorf("top score = %v", findings[0].RiskScore)
	}

	// Window keys must be unique.
	seen := map[string]bool{}
	for _, f := range findings {
		key := f.Subject
		if seen[key] {
			t.Errorf("duplicate window finding %s", key)
		}
		seen[key] = true
		if f.Evidence["licenseCount"].(int) < 5 {
			t.Errorf("cluster below threshold: %v", f.Evidence["licenseCount"])
		}
	}
}

func TestTemporalClustersBelowThreshold(t *testing.T) {
	l := lic("Biz", "", "1 A St", "", "2024-06-10")
	if got := TemporalClusters([]domain.License{l}, 7, 5); len(got) != 0 {
		t.Errorf("expected no clusters, got %v", got)
	}
}

func TestGeographicConcentration(t *testing.T) {
	var licenses []domain.License
	// ZIP 62701: 10 licenses across 2 addresses => ratio 5.0.
	for i := 0; i < 10; i++ {
		addr := "1 Elm St"
		if i >= 5 {
			addr = "2 Oak Ave"
		}
		licenses = append(licenses, lic("Biz", "", addr, "62701", ""))
	}
	// ZIP 62702: 10 licenses across 10 addresses => ratio 1.0.
	for i := 0; i < 10; i++ {
		licenses = append(licenses, lic("Other", "", string(rune('A'+i))+" Pine St", "62702", ""))
	}
	// ZIP 62703: below threshold.
	licenses = append(licenses, lic("Tiny", "", "9 Birch Ln", "62703", ""))

	findings := Geographic(licenses, 10)
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(findings))
	}
	if findings[0].Subject != "62701" || findings[0].RiskScore != 1.0 {
		t.Errorf("densest ZIP should rank first with 1.0: %+v", findings[0])
	}
	if findings[1].RiskScore != 0.2 {
		t.Errorf("second ZIP score = %v, want 0.2", findings[1].RiskScore)
	}
}
