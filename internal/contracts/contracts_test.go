package contracts

import (
	"fmt"
	"testing"
	"time"

	"github.com/opencivic-data/heron/internal/domain"
	"github.com/opencivic-data/heron/internal/normalize"
)

func contract(agency, number, supplier, ptype string, value float64, from, to string) domain.Contract {
	c := domain.Contract{
		Agency:          agency,
		ContractNumber:  number,
		Supplier:        supplier,
		ProcurementType: ptype,
		ContractValue:   value,
	}
	if from != "" {
		c.EffectiveFrom, c.HasEffectiveFrom = normalize.Date(from)
	}
	if to != "" {
		c.EffectiveTo, c.HasEffectiveTo = normalize.Date(to)
	}
	c.NormSupplier = normalize.Name(supplier)
	return c
}

func TestTimingTemporalSpike(t *testing.T) {
	var cs []domain.Contract
	// Eleven quiet months with one contract each, then a burst month.
	for m := 1; m <= 11; m++ {
		cs = append(cs, contract("Parks", fmt.Sprintf("C-%d", m), "Quiet Co", "RFP",
			1000, fmt.Sprintf("2024-%02d-05", m), ""))
	}
	for i := 0; i < 12; i++ {
		cs = append(cs, contract("Parks", fmt.Sprintf("B-%d", i), fmt.Sprintf("Burst %d", i), "RFP",
			5000, "2024-12-10", ""))
	}

	result := Timing(cs)
	if len(result.TemporalSpikes) != 1 {
		t.Fatalf("expected 1 spike, got %d", len(result.TemporalSpikes))
	}
	spike := result.TemporalSpikes[0]
	if spike.Subject != "2024-12" {
		t.Errorf("spike month = %q", spike.Subject)
	}
	if spike.Evidence["contractCount"] != 12 {
		t.Errorf("contractCount = %v", spike.Evidence["contractCount"])
	}
	if spike.RiskScore != 1.0 {
		t.Errorf("spike score = %v", spike.RiskScore)
	}
	if _, ok := spike.Evidence["deviationFromMean"].(float64); !ok {
		t.Errorf("deviationFromMean missing or wrong type: %v", spike.Evidence["deviationFromMean"])
	}
	if result.Summary.MonthsWithSpikes != 1 {
		t.Errorf("MonthsWithSpikes = %d", result.Summary.MonthsWithSpikes)
	}
}

func TestTimingSameDayAwards(t *testing.T) {
	cs := []domain.Contract{
		contract("Parks", "C-1", "Alpha", "RFP", 100, "2024-03-01", ""),
		contract("Parks", "C-2", "Beta", "RFP", 200, "2024-03-01", ""),
		contract("Parks", "C-3", "Gamma", "RFP", 300, "2024-03-01", ""),
		contract("Parks", "C-4", "Delta", "RFP", 400, "2024-03-02", ""),
		contract("Parks", "C-5", "Epsilon", "RFP", 500, "2024-03-02", ""),
	}

	result := Timing(cs)
	if len(result.SameDayAwards) != 1 {
		t.Fatalf("expected 1 same-day finding, got %d", len(result.SameDayAwards))
	}
	f := result.SameDayAwards[0]
	if f.Subject != "2024-03-01" {
		t.Errorf("subject = %q", f.Subject)
	}
	if f.Evidence["totalValue"] != 600.0 {
		t.Errorf("totalValue = %v", f.Evidence["totalValue"])
	}
	if result.Summary.DaysWithMultipleAwards != 1 {
		t.Errorf("DaysWithMultipleAwards = %d", result.Summary.DaysWithMultipleAwards)
	}
}

func TestTimingShortDuration(t *testing.T) {
	cs := []domain.Contract{
		contract("Parks", "SHORT-1", "Alpha", "RFP", 100, "2024-03-01", "2024-03-15"),
		contract("Parks", "LONG-1", "Beta", "RFP", 200, "2024-03-01", "2024-09-01"),
		contract("Parks", "EXACT-30", "Gamma", "RFP", 300, "2024-03-01", "2024-03-31"),
		contract("Parks", "NO-END", "Delta", "RFP", 400, "2024-03-01", ""),
	}

	result := Timing(cs)
	if len(result.ShortDurationContracts) != 1 {
		t.Fatalf("expected 1 short-duration finding, got %d", len(result.ShortDurationContracts))
	}
	f := result.ShortDurationContracts[0]
	if f.Subject != "SHORT-1" {
		t.Errorf("subject = %q", f.Subject)
	}
	if f.Evidence["durationDays"] != 14 {
		t.Errorf("durationDays = %v", f.Evidence["durationDays"])
	}
	// Short-duration rows are reported, not scored.
	if f.RiskScore != 0 {
		t.Errorf("short-duration score = %v, want 0", f.RiskScore)
	}
	if result.Summary.ShortDurationCount != 1 {
		t.Errorf("ShortDurationCount = %d", result.Summary.ShortDurationCount)
	}
}

func TestTimingEmptyInput(t *testing.T) {
	result := Timing(nil)
	if len(result.TemporalSpikes) != 0 || len(result.SameDayAwards) != 0 || len(result.ShortDurationContracts) != 0 {
		t.Errorf("empty input must yield empty result: %+v", result)
	}
}

func TestProcurementTypes(t *testing.T) {
	cs := []domain.Contract{
		contract("Parks", "C-1", "Alpha", "RFP", 1000, "", ""),
		contract("Parks", "C-2", "Alpha", "RFP", 2000, "", ""),
		contract("Parks", "C-3", "Beta", "RFP", 500, "", ""),
		contract("Streets", "C-4", "Gamma", "Sole Source", 9000, "", ""),
		contract("Streets", "C-5", "Gamma", "Emergency", 4000, "", ""),
	}

	result := ProcurementTypes(cs)

	if result.Summary.TotalContracts != 5 || result.Summary.UniqueProcurementTypes != 3 {
		t.Errorf("summary = %+v", result.Summary)
	}
	if result.Summary.NonCompetitiveCount != 2 {
		t.Errorf("NonCompetitiveCount = %d", result.Summary.NonCompetitiveCount)
	}
	if result.Summary.NonCompetitivePercentage != 40.0 {
		t.Errorf("NonCompetitivePercentage = %v", result.Summary.NonCompetitivePercentage)
	}

	// Distribution sorted by total value descending.
	if result.Distribution[0].ProcurementType != "Sole Source" {
		t.Errorf("top distribution = %+v", result.Distribution[0])
	}

	var rfp *domain.TypeConcentration
	for i := range result.ConcentrationByType {
		if result.ConcentrationByType[i].ProcurementType == "RFP" {
			rfp = &result.ConcentrationByType[i]
		}
	}
	if rfp == nil {
		t.Fatal("missing RFP concentration entry")
	}
	if rfp.TopSupplier != "Alpha" || rfp.TopSupplierCount != 2 {
		t.Errorf("RFP top supplier = %+v", rfp)
	}
	if rfp.TopSupplierShare != 0.667 {
		t.Errorf("TopSupplierShare = %v", rfp.TopSupplierShare)
	}

	if len(result.NonCompetitiveSuppliers) != 1 {
		t.Fatalf("expected 1 non-competitive supplier, got %d", len(result.NonCompetitiveSuppliers))
	}
	nc := result.NonCompetitiveSuppliers[0]
	if nc.Subject != "Gamma" || nc.Evidence["totalValue"] != 13000.0 {
		t.Errorf("non-competitive finding = %+v", nc)
	}
	if nc.RiskScore != 1.0 {
		t.Errorf("non-competitive score = %v", nc.RiskScore)
	}
}

func TestAgencyConcentration(t *testing.T) {
	cs := []domain.Contract{
		// Parks: Alpha dominates with 90% of value across 2 suppliers.
		contract("Parks", "C-1", "Alpha", "RFP", 9000, "", ""),
		contract("Parks", "C-2", "Omega", "RFP", 1000, "", ""),
		// Streets: value spread across 6 suppliers, top 3 hold 50% exactly.
		contract("Streets", "S-1", "S1", "RFP", 100, "", ""),
		contract("Streets", "S-2", "S2", "RFP", 100, "", ""),
		contract("Streets", "S-3", "S3", "RFP", 100, "", ""),
		contract("Streets", "S-4", "S4", "RFP", 100, "", ""),
		contract("Streets", "S-5", "S5", "RFP", 100, "", ""),
		contract("Streets", "S-6", "S6", "RFP", 100, "", ""),
		// Alpha also works with two more agencies.
		contract("Water", "W-1", "Alpha", "RFP", 500, "", ""),
		contract("Housing", "H-1", "Alpha", "RFP", 500, "", ""),
	}

	result := AgencyConcentration(cs)

	if result.Summary.TotalAgencies != 4 {
		t.Errorf("TotalAgencies = %d", result.Summary.TotalAgencies)
	}

	// Statistics sorted by total value descending; Parks leads.
	if result.AgencyStatistics[0].Agency != "Parks" {
		t.Errorf("top agency = %+v", result.AgencyStatistics[0])
	}
	if result.AgencyStatistics[0].AvgValuePerContract != 5000 {
		t.Errorf("AvgValuePerContract = %v", result.AgencyStatistics[0].AvgValuePerContract)
	}

	// Streets sits exactly at the 50% cutoff and must not be flagged.
	// Parks, Water, and Housing all exceed it (single-supplier agencies
	// concentrate trivially).
	if result.Summary.HighConcentrationAgencies != 3 {
		t.Fatalf("HighConcentrationAgencies = %d", result.Summary.HighConcentrationAgencies)
	}
	for _, f := range result.SupplierConcentration {
		if f.Subject == "Streets" {
			t.Error("Streets at exactly 50% must not be flagged")
		}
	}
	conc := result.SupplierConcentration[0]
	if conc.Subject != "Parks" {
		t.Errorf("concentration subject = %q", conc.Subject)
	}
	if conc.Evidence["top3Share"] != 1.0 {
		t.Errorf("top3Share = %v", conc.Evidence["top3Share"])
	}

	if result.Summary.MultiAgencySupplierCount != 1 {
		t.Fatalf("MultiAgencySupplierCount = %d", result.Summary.MultiAgencySupplierCount)
	}
	multi := result.MultiAgencySuppliers[0]
	if multi.Subject != "Alpha" || multi.Evidence["agencyCount"] != 3 {
		t.Errorf("multi-agency finding = %+v", multi)
	}
}

func TestDateHelperSanity(t *testing.T) {
	from, ok := normalize.Date("2024-03-01")
	if !ok {
		t.Fatal("normalize.Date rejected ISO date")
	}
	if !from.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("parsed date = %v", from)
	}
}
