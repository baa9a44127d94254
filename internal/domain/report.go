package domain

import (
	"time"
)

// Report is the complete result tree for one analysis run.
type Report struct {
	RunID           string           `json:"runId"`
	GeneratedAt     time.Time        `json:"generatedAt"`
	DatasetSummary  DatasetSummary   `json:"datasetSummary"`
	Analyses        Analyses         `json:"analyses"`
	KeyFindings     []KeyFinding     `json:"keyFindings"`
	Recommendations []Recommendation `json:"followUpRecommendations"`
}

// DatasetSummary holds per-dataset record counts and totals.
type DatasetSummary struct {
	Licenses  LicenseSummary  `json:"businessLicenses"`
	Contracts ContractSummary `json:"cityContracts"`
	Taxes     TaxSummary      `json:"delinquentTaxes"`
}

type LicenseSummary struct {
	TotalRecords     int    `json:"totalRecords"`
	UniqueBusinesses int    `json:"uniqueBusinesses"`
	UniqueAddresses  int    `json:"uniqueAddresses"`
	EarliestIssue    string `json:"earliestIssue,omitempty"`
	LatestIssue      string `json:"latestIssue,omitempty"`
}

type ContractSummary struct {
	TotalRecords    int     `json:"totalRecords"`
	TotalValue      float64 `json:"totalValue"`
	UniqueSuppliers int     `json:"uniqueSuppliers"`
	UniqueAgencies  int     `json:"uniqueAgencies"`
}

type TaxSummary struct {
	TotalRecords int     `json:"totalRecords"`
	TotalDue     float64 `json:"totalDue"`
	UniqueOwners int     `json:"uniqueOwners"`
}

// Analyses groups every detector's output in the fixed report order.
type Analyses struct {
	AddressClustering   AddressClusteringResult `json:"addressClustering"`
	NameSimilarity      NameSimilarityResult    `json:"nameSimilarity"`
	LicensePatterns     LicensePatternsResult   `json:"licensePatterns"`
	ContractTiming      ContractTimingResult    `json:"contractTiming"`
	ProcurementTypes    ProcurementResult       `json:"procurementTypes"`
	AgencyConcentration AgencyResult            `json:"agencyConcentration"`
	TaxDelinquency      TaxLinkageResult        `json:"taxDelinquentOverlaps"`
}

// AddressClusteringResult covers license/tax address overlap and
// within-license address density.
type AddressClusteringResult struct {
	CrossDatasetOverlaps []Finding                `json:"crossDatasetOverlaps"`
	AddressDensity       []Finding                `json:"addressDensity"`
	TotalSharedAddresses int                      `json:"totalSharedAddresses"`
	Summary              AddressOverlapSummary    `json:"summary"`
}

type AddressOverlapSummary struct {
	TotalLicenseAddresses int     `json:"totalLicenseAddresses"`
	TotalTaxAddresses     int     `json:"totalTaxAddresses"`
	OverlapCount          int     `json:"overlapCount"`
	OverlapPercentage     float64 `json:"overlapPercentage"`
}

// NameSimilarityResult covers in-dataset clustering and cross-dataset
// name matching. Skipped is set when no similarity scorer is available.
type NameSimilarityResult struct {
	Skipped                bool                  `json:"skipped,omitempty"`
	SkipReason             string                `json:"skipReason,omitempty"`
	Clusters               []Finding             `json:"clusters"`
	LicenseContractMatches []Finding             `json:"licenseContractMatches"`
	LicenseTaxOwnerMatches []Finding             `json:"licenseTaxOwnerMatches"`
	Summary                NameSimilaritySummary `json:"summary"`
}

type NameSimilaritySummary struct {
	TotalLicenseNames           int `json:"totalLicenseNames"`
	TotalSuppliers              int `json:"totalSuppliers"`
	TotalTaxOwners              int `json:"totalTaxOwners"`
	LicenseContractMatchesFound int `json:"licenseContractMatchesFound"`
	LicenseTaxMatchesFound      int `json:"licenseTaxMatchesFound"`
}

// LicensePatternsResult holds the single-dataset license detectors.
type LicensePatternsResult struct {
	AddressDensity   []Finding `json:"addressDensity"`
	DBAPatterns      []Finding `json:"dbaPatterns"`
	TemporalClusters []Finding `json:"temporalClusters"`
	Geographic       []Finding `json:"geographicConcentration"`
}

type ContractTimingResult struct {
	TemporalSpikes         []Finding             `json:"temporalSpikes"`
	SameDayAwards          []Finding             `json:"sameDayAwards"`
	ShortDurationContracts []Finding             `json:"shortDurationContracts"`
	Summary                ContractTimingSummary `json:"summary"`
}

type ContractTimingSummary struct {
	AvgMonthlyContracts    float64 `json:"avgMonthlyContracts"`
	MonthsWithSpikes       int     `json:"monthsWithSpikes"`
	DaysWithMultipleAwards int     `json:"daysWithMultipleAwards"`
	ShortDurationCount     int     `json:"shortDurationCount"`
}

type ProcurementResult struct {
	Distribution            []ProcurementTypeStats `json:"procurementDistribution"`
	ConcentrationByType     []TypeConcentration    `json:"supplierConcentrationByType"`
	NonCompetitiveSuppliers []Finding              `json:"nonCompetitiveSuppliers"`
	Summary                 ProcurementSummary     `json:"summary"`
}

type ProcurementTypeStats struct {
	ProcurementType string  `json:"procurementType"`
	Count           int     `json:"count"`
	TotalValue      float64 `json:"totalValue"`
}

type TypeConcentration struct {
	ProcurementType  string  `json:"procurementType"`
	TotalContracts   int     `json:"totalContracts"`
	UniqueSuppliers  int     `json:"uniqueSuppliers"`
	TopSupplier      string  `json:"topSupplier"`
	TopSupplierCount int     `json:"topSupplierCount"`
	TopSupplierShare float64 `json:"topSupplierShare"`
	TotalValue       float64 `json:"totalValue"`
}

type ProcurementSummary struct {
	TotalContracts           int     `json:"totalContracts"`
	UniqueProcurementTypes   int     `json:"uniqueProcurementTypes"`
	NonCompetitiveCount      int     `json:"nonCompetitiveCount"`
	NonCompetitivePercentage float64 `json:"nonCompetitivePercentage"`
}

type AgencyResult struct {
	AgencyStatistics      []AgencyStats `json:"agencyStatistics"`
	SupplierConcentration []Finding     `json:"supplierConcentration"`
	MultiAgencySuppliers  []Finding     `json:"multiAgencySuppliers"`
	Summary               AgencySummary `json:"summary"`
}

type AgencyStats struct {
	Agency              string  `json:"agency"`
	ContractCount       int     `json:"contractCount"`
	TotalValue          float64 `json:"totalValue"`
	UniqueSuppliers     int     `json:"uniqueSuppliers"`
	AvgValuePerContract float64 `json:"avgValuePerContract"`
	ContractsPerSupplier float64 `json:"contractsPerSupplier"`
}

type AgencySummary struct {
	TotalAgencies             int `json:"totalAgencies"`
	TotalSuppliers            int `json:"totalSuppliers"`
	HighConcentrationAgencies int `json:"agenciesWithHighConcentration"`
	MultiAgencySupplierCount  int `json:"suppliersWithMultipleAgencies"`
}

// TaxLinkageResult covers high-value/long-term delinquency cuts and
// name-similarity linkage to businesses and suppliers.
type TaxLinkageResult struct {
	Skipped                bool              `json:"skipped,omitempty"`
	SkipReason             string            `json:"skipReason,omitempty"`
	HighValueDelinquencies []DelinquencyRow  `json:"highValueDelinquencies"`
	LongTermDelinquencies  []DelinquencyRow  `json:"longTermDelinquencies"`
	BusinessOwnerMatches   []Finding         `json:"businessOwnerMatches"`
	SupplierTaxMatches     []Finding         `json:"supplierTaxMatches"`
	Summary                TaxLinkageSummary `json:"summary"`
}

type DelinquencyRow struct {
	Owner           string  `json:"owner"`
	Address         string  `json:"address"`
	TotalDue        float64 `json:"totalDue"`
	YearsDelinquent float64 `json:"yearsDelinquent"`
}

type TaxLinkageSummary struct {
	TotalDelinquentProperties int     `json:"totalDelinquentProperties"`
	TotalTaxDue               float64 `json:"totalTaxDue"`
	HighValueCount            int     `json:"highValueCount"`
	LongTermCount             int     `json:"longTermCount"`
	BusinessMatchesFound      int     `json:"businessMatchesFound"`
	SupplierMatchesFound      int     `json:"supplierMatchesFound"`
}

// AllFindings returns every finding in the report in section order.
// Used for persistence, event publication, and export checks.
func (r *Report) AllFindings() []Finding {
	var out []Finding
	a := r.Analyses
	out = append(out, a.AddressClustering.CrossDatasetOverlaps...)
	out = append(out, a.AddressClustering.AddressDensity...)
	out = append(out, a.NameSimilarity.Clusters...)
	out = append(out, a.NameSimilarity.LicenseContractMatches...)
	out = append(out, a.NameSimilarity.LicenseTaxOwnerMatches...)
	out = append(out, a.LicensePatterns.AddressDensity...)
	out = append(out, a.LicensePatterns.DBAPatterns...)
	out = append(out, a.LicensePatterns.TemporalClusters...)
	out = append(out, a.LicensePatterns.Geographic...)
	out = append(out, a.ContractTiming.TemporalSpikes...)
	out = append(out, a.ContractTiming.SameDayAwards...)
	out = append(out, a.ContractTiming.ShortDurationContracts...)
	out = append(out, a.ProcurementTypes.NonCompetitiveSuppliers...)
	out = append(out, a.AgencyConcentration.SupplierConcentration...)
	out = append(out, a.AgencyConcentration.MultiAgencySuppliers...)
	out = append(out, a.TaxDelinquency.BusinessOwnerMatches...)
	out = append(out, a.TaxDelinquency.SupplierTaxMatches...)
	return out
}
