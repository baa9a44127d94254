// Package domain defines the core types and interfaces for Heron.
package domain

import (
	"time"
)

// License is one business license row.
//
// Normalized fields are derived once at load time and used only for
// matching and grouping; raw fields are what reports display.
type License struct {
	BusinessName string `json:"businessName"`
	DBAName      string `json:"dbaName,omitempty"`
	Address      string `json:"address"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	ZipCode      string `json:"zipCode,omitempty"`
	LicenseType  string `json:"licenseType,omitempty"`
	OwnerName    string `json:"ownerName,omitempty"`

	IssueDate    time.Time `json:"-"`
	HasIssueDate bool      `json:"-"`

	NormBusinessName string `json:"-"`
	NormDBAName      string `json:"-"`
	NormAddress      string `json:"-"`
}

// Contract is one city contract row.
type Contract struct {
	Agency           string  `json:"agency"`
	ContractNumber   string  `json:"contractNumber"`
	ContractValue    float64 `json:"contractValue"`
	Supplier         string  `json:"supplier"`
	ProcurementType  string  `json:"procurementType,omitempty"`
	Description      string  `json:"description,omitempty"`
	SolicitationType string  `json:"solicitationType,omitempty"`

	EffectiveFrom    time.Time `json:"-"`
	HasEffectiveFrom bool      `json:"-"`
	EffectiveTo      time.Time `json:"-"`
	HasEffectiveTo   bool      `json:"-"`

	NormSupplier string `json:"-"`
}

// TaxRecord is one delinquent property-tax row.
type TaxRecord struct {
	PropertyCode    string  `json:"propertyCode"`
	OwnerName1      string  `json:"ownerName1"`
	OwnerName2      string  `json:"ownerName2,omitempty"`
	Address         string  `json:"address"`
	TotalDue        float64 `json:"totalDue"`
	YearsDelinquent float64 `json:"yearsDelinquent"`
	GeoLocation     string  `json:"geoLocation,omitempty"`

	NormOwner   string `json:"-"`
	NormAddress string `json:"-"`
}

// Datasets bundles the three loaded, normalized tables for one run.
type Datasets struct {
	Licenses  []License
	Contracts []Contract
	Taxes     []TaxRecord
}

// AnalysisRun tracks one analysis execution.
type AnalysisRun struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	LicensesPath  string    `json:"licensesPath"`
	ContractsPath string    `json:"contractsPath"`
	TaxesPath     string    `json:"taxesPath"`
	StartedAt     time.Time `json:"startedAt"`
	CompletedAt   time.Time `json:"completedAt,omitzero"`
	FindingCount  int       `json:"findingCount"`
	Error         string    `json:"error,omitempty"`
}

// Run status values.
const (
	RunStatusPending   = "PENDING"
	RunStatusRunning   = "RUNNING"
	RunStatusCompleted = "COMPLETED"
	RunStatusFailed    = "FAILED"
)
