package domain

// PatternType identifies which detector produced a Finding.
type PatternType string

const (
	PatternAddressClustering     PatternType = "ADDRESS_CLUSTERING"
	PatternAddressDensity        PatternType = "ADDRESS_DENSITY"
	PatternAddressOverlap        PatternType = "ADDRESS_OVERLAP_LICENSE_TAX"
	PatternNameSimilarity        PatternType = "NAME_SIMILARITY"
	PatternMultipleDBAs          PatternType = "MULTIPLE_DBAS_PER_BUSINESS"
	PatternSharedDBA             PatternType = "SHARED_DBA"
	PatternTemporalClustering    PatternType = "TEMPORAL_CLUSTERING"
	PatternGeographic            PatternType = "GEOGRAPHIC_CONCENTRATION"
	PatternTemporalSpike         PatternType = "TEMPORAL_SPIKE"
	PatternSameDayAwards         PatternType = "SAME_DAY_AWARDS"
	PatternShortDuration         PatternType = "SHORT_DURATION"
	PatternNonCompetitive        PatternType = "NON_COMPETITIVE_CONCENTRATION"
	PatternSupplierConcentration PatternType = "SUPPLIER_CONCENTRATION"
	PatternMultiAgencySupplier   PatternType = "MULTI_AGENCY_SUPPLIER"
	PatternLicenseContractMatch  PatternType = "LICENSE_CONTRACT_NAME_MATCH"
	PatternLicenseTaxOwnerMatch  PatternType = "LICENSE_TAX_OWNER_MATCH"
	PatternHighValueTaxMatch     PatternType = "HIGH_VALUE_TAX_BUSINESS_MATCH"
	PatternSupplierTaxDelinquent PatternType = "SUPPLIER_TAX_DELINQUENT"
)

// Finding is the output unit of every detector. Once a detector returns a
// finding it is only filtered, sorted, and truncated, never mutated.
//
// Metric is the detector's raw value (a count, ratio, or value sum);
// RiskScore is Metric normalized against the maximum Metric within the
// same finding collection, so scores are comparable inside one collection
// but not across detectors or runs.
//
// Evidence values are restricted to JSON primitives (strings, numbers,
// booleans, and flat arrays of those); dates are ISO-8601 strings. That
// keeps the machine export lossless relative to the text report.
type Finding struct {
	ID          string         `json:"id"`
	PatternType PatternType    `json:"patternType"`
	Subject     string         `json:"subject"`
	Metric      float64        `json:"metric"`
	RiskScore   float64        `json:"riskScore"`
	Evidence    map[string]any `json:"evidence,omitempty"`
	Narrative   string         `json:"narrative"`
}

// KeyFinding is a qualitative headline derived from summary thresholds.
type KeyFinding struct {
	Category     string `json:"category"`
	Finding      string `json:"finding"`
	Significance string `json:"significance"`
	Action       string `json:"action"`
}

// Significance tags for key findings.
const (
	SignificanceHigh   = "HIGH"
	SignificanceMedium = "MEDIUM"
)

// Recommendation points analysts at a follow-up data source.
type Recommendation struct {
	DataSource string `json:"dataSource"`
	Purpose    string `json:"purpose"`
	Priority   string `json:"priority"`
}
